package domain

import "context"

// RawSample is one image reduced to a scalar. Value is nil when the region was
// fully masked for that image.
type RawSample struct {
	Date   string   `json:"date"`
	Source string   `json:"source,omitempty"`
	Value  *float64 `json:"value"`
}

// ZonalReducer asks the geospatial platform for the mean of q.Band over the
// region around q.Point for every image in q.Collection.
//
// An empty result with a nil error means "no images matched"; a failure of
// the platform itself must be returned as an error. Result order is
// unspecified.
type ZonalReducer interface {
	Reduce(ctx context.Context, q ReductionQuery) ([]RawSample, error)
}
