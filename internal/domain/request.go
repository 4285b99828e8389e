package domain

import (
	"fmt"
	"time"

	"github.com/paulmach/orb"
)

// DateLayout is the calendar-day format used on the wire and in series.
const DateLayout = "2006-01-02"

// Point is a WGS-84 latitude/longitude coordinate pair.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Orb returns the point in lon/lat order for geometry encoding.
func (p Point) Orb() orb.Point { return orb.Point{p.Lon, p.Lat} }

// ObservationRequest is the point and date window one response covers.
// Start is inclusive, End exclusive, matching the platform's date filter.
type ObservationRequest struct {
	Point Point
	Start time.Time
	End   time.Time
}

// NewObservationRequest validates the point and parses optional dates,
// defaulting End to today and Start to End minus the source's lookback.
func NewObservationRequest(src Source, lat, lon float64, start, end string) (ObservationRequest, error) {
	if lat < -90 || lat > 90 {
		return ObservationRequest{}, fmt.Errorf("%w: latitude %g out of range", ErrInvalidRequest, lat)
	}
	if lon < -180 || lon > 180 {
		return ObservationRequest{}, fmt.Errorf("%w: longitude %g out of range", ErrInvalidRequest, lon)
	}

	now := clock.Now().UTC()
	req := ObservationRequest{Point: Point{Lat: lat, Lon: lon}}

	if end == "" {
		req.End = truncateDay(now)
	} else {
		t, err := time.Parse(DateLayout, end)
		if err != nil {
			return ObservationRequest{}, fmt.Errorf("%w: end date %q: expected YYYY-MM-DD", ErrInvalidRequest, end)
		}
		req.End = t
	}

	if start == "" {
		req.Start = truncateDay(now.Add(-src.Lookback))
	} else {
		t, err := time.Parse(DateLayout, start)
		if err != nil {
			return ObservationRequest{}, fmt.Errorf("%w: start date %q: expected YYYY-MM-DD", ErrInvalidRequest, start)
		}
		req.Start = t
	}

	if req.Start.After(req.End) {
		return ObservationRequest{}, fmt.Errorf("%w: start %s is after end %s", ErrInvalidRequest,
			req.Start.Format(DateLayout), req.End.Format(DateLayout))
	}
	return req, nil
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
