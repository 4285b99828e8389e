// Package fixture implements domain.ZonalReducer over a YAML file of
// pre-sampled images, for local development and deterministic tests without
// the remote reduction service.
package fixture

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/couchcryptid/ndvi-timeseries-service/internal/domain"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"gopkg.in/yaml.v3"
)

// File is the on-disk fixture layout.
type File struct {
	Images []Image `yaml:"images"`
}

// Image is one acquisition of one catalog. Footprint is
// [minLon, minLat, maxLon, maxLat].
type Image struct {
	Collection string             `yaml:"collection"`
	Date       string             `yaml:"date"`
	Footprint  [4]float64         `yaml:"footprint,flow"`
	Properties map[string]float64 `yaml:"properties,omitempty"`
	Pixels     []Pixel            `yaml:"pixels"`
}

// Pixel is a sampled location with sensor-native band values.
type Pixel struct {
	Lon   float64            `yaml:"lon"`
	Lat   float64            `yaml:"lat"`
	Bands map[string]float64 `yaml:"bands,flow"`
}

func (img Image) bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{img.Footprint[0], img.Footprint[1]},
		Max: orb.Point{img.Footprint[2], img.Footprint[3]},
	}
}

// Reducer answers reduction queries from an in-memory fixture.
type Reducer struct {
	byCollection map[string][]Image
}

// New indexes f by collection. Images are assumed valid; use Load for files.
func New(f File) *Reducer {
	r := &Reducer{byCollection: make(map[string][]Image)}
	for _, img := range f.Images {
		r.byCollection[img.Collection] = append(r.byCollection[img.Collection], img)
	}
	return r
}

// Load reads and validates a fixture file.
func Load(path string) (*Reducer, error) {
	f, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	return New(f), nil
}

// ReadFile parses a fixture file and validates every image.
func ReadFile(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read fixture: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	for i, img := range f.Images {
		if err := validate(img); err != nil {
			return File{}, fmt.Errorf("fixture %s image %d: %w", path, i, err)
		}
	}
	return f, nil
}

func validate(img Image) error {
	if img.Collection == "" {
		return fmt.Errorf("missing collection")
	}
	if _, err := time.Parse(domain.DateLayout, img.Date); err != nil {
		return fmt.Errorf("date %q: %w", img.Date, err)
	}
	if img.Footprint[0] > img.Footprint[2] || img.Footprint[1] > img.Footprint[3] {
		return fmt.Errorf("footprint %v: min exceeds max", img.Footprint)
	}
	return nil
}

// Reduce emits one sample per matching image of every collection member.
// An image whose region has no usable pixel yields a nil value.
func (r *Reducer) Reduce(ctx context.Context, q domain.ReductionQuery) ([]domain.RawSample, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	point := q.Point.Orb()
	var out []domain.RawSample
	for _, m := range q.Collection.Members {
		for _, img := range r.byCollection[m.ID] {
			if !matches(img, q.Collection, point) {
				continue
			}
			v, err := reduceImage(img, m, q, point)
			if err != nil {
				return nil, fmt.Errorf("%s %s: %w", m.ID, img.Date, err)
			}
			out = append(out, domain.RawSample{Date: img.Date, Source: m.ID, Value: v})
		}
	}
	return out, nil
}

// matches applies the date window, the footprint containment and the scene
// filter. An image missing the filtered property is excluded.
func matches(img Image, c domain.Collection, point orb.Point) bool {
	if img.Date < c.Start || img.Date >= c.End {
		return false
	}
	if !img.bound().Contains(point) {
		return false
	}
	if c.SceneFilter != nil {
		v, ok := img.Properties[c.SceneFilter.Property]
		if !ok || v >= c.SceneFilter.LessThan {
			return false
		}
	}
	return true
}

func reduceImage(img Image, m domain.CollectionMember, q domain.ReductionQuery, point orb.Point) (*float64, error) {
	var region []Pixel
	for _, px := range img.Pixels {
		if geo.Distance(orb.Point{px.Lon, px.Lat}, point) <= q.Radius {
			region = append(region, px)
		}
	}

	if q.Collection.Masked {
		if m.Sensor == nil {
			return nil, fmt.Errorf("masked member has no sensor profile")
		}
		if q.Collection.Index == nil || q.Band != q.Collection.Index.Name {
			return nil, fmt.Errorf("unsupported masked band %q", q.Band)
		}
		pixels := make([]domain.Reflectance, 0, len(region))
		for _, px := range region {
			refl, err := m.Sensor.Normalize(px.Bands)
			if err != nil {
				return nil, err
			}
			pixels = append(pixels, refl)
		}
		return domain.MeanNDVI(*m.Sensor, pixels), nil
	}

	values := make([]float64, 0, len(region))
	for _, px := range region {
		v, ok := px.Bands[q.Band]
		if !ok {
			return nil, fmt.Errorf("pixel missing band %s", q.Band)
		}
		values = append(values, v)
	}
	return domain.Mean(values), nil
}
