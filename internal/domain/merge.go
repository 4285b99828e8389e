package domain

import (
	"fmt"
)

// RegionRadius is the reduction radius around the point, in meters.
const RegionRadius = 500

// ReducerMean is the only statistic the pipeline asks for.
const ReducerMean = "mean"

// CollectionMember is one catalog inside a merged collection. Select maps
// native band names onto canonical ones; Sensor is set for masked optical
// members and nil for plain datasets.
type CollectionMember struct {
	ID     string            `json:"id"`
	Select map[string]string `json:"select,omitempty"`
	Sensor *SensorProfile    `json:"sensor,omitempty"`
}

// IndexSpec describes a normalized-difference band added to every image.
type IndexSpec struct {
	Name     string `json:"name"`
	Positive string `json:"positive"`
	Negative string `json:"negative"`
}

// Collection describes an image collection after date, bounds, scene, mask
// and index transforms. Members are unioned without ordering or weighting;
// date collisions between members are resolved by [Aggregate].
type Collection struct {
	Members     []CollectionMember `json:"members"`
	Start       string             `json:"start"`
	End         string             `json:"end"`
	SceneFilter *SceneFilter       `json:"scene_filter,omitempty"`
	Masked      bool               `json:"masked"`
	Index       *IndexSpec         `json:"index,omitempty"`
}

// ReductionQuery is one bulk call to the zonal reduction service.
type ReductionQuery struct {
	Collection Collection `json:"collection"`
	Point      Point      `json:"point"`
	Radius     float64    `json:"radius"`
	Reducer    string     `json:"reducer"`
	Band       string     `json:"band"`
}

// Merge unions per-sensor collections for the request window into one masked,
// NDVI-augmented collection. Every profile must present the uniform band
// schema; one that cannot fails the merge instead of being dropped.
func Merge(profiles []SensorProfile, req ObservationRequest, scene *SceneFilter) (Collection, error) {
	if len(profiles) == 0 {
		return Collection{}, fmt.Errorf("merge: no sensors")
	}
	members := make([]CollectionMember, 0, len(profiles))
	for _, p := range profiles {
		mapping, err := p.BandMapping()
		if err != nil {
			return Collection{}, fmt.Errorf("merge: %w", err)
		}
		sel := make(map[string]string, len(mapping))
		for role, native := range mapping {
			sel[native] = role
		}
		profile := p
		members = append(members, CollectionMember{ID: p.ID, Select: sel, Sensor: &profile})
	}
	return Collection{
		Members:     members,
		Start:       req.Start.Format(DateLayout),
		End:         req.End.Format(DateLayout),
		SceneFilter: scene,
		Masked:      true,
		Index:       &IndexSpec{Name: BandNDVI, Positive: BandNIR, Negative: BandRed},
	}, nil
}

// VegetationQuery builds the single NDVI reduction for a source.
func (s Source) VegetationQuery(req ObservationRequest) (ReductionQuery, error) {
	coll, err := Merge(s.Sensors, req, s.SceneFilter)
	if err != nil {
		return ReductionQuery{}, err
	}
	return ReductionQuery{
		Collection: coll,
		Point:      req.Point,
		Radius:     RegionRadius,
		Reducer:    ReducerMean,
		Band:       BandNDVI,
	}, nil
}

// Query builds the unmasked reduction for a plain dataset.
func (d Dataset) Query(req ObservationRequest) ReductionQuery {
	return ReductionQuery{
		Collection: Collection{
			Members: []CollectionMember{{ID: d.ID}},
			Start:   req.Start.Format(DateLayout),
			End:     req.End.Format(DateLayout),
		},
		Point:   req.Point,
		Radius:  RegionRadius,
		Reducer: ReducerMean,
		Band:    d.Band,
	}
}
