package domain

import (
	"fmt"
	"math"
)

// Reflectance is one pixel after band-role normalization.
type Reflectance struct {
	Red float64
	NIR float64
	QA  uint64
}

// NDVI returns (nir - red) / (nir + red). The second result is false when the
// index is undefined (zero denominator or non-finite input); callers treat
// that pixel as absent rather than failing.
func NDVI(red, nir float64) (float64, bool) {
	den := nir + red
	if den == 0 || math.IsNaN(den) || math.IsInf(den, 0) {
		return 0, false
	}
	v := (nir - red) / den
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Normalize renames a sensor-native band map onto the uniform schema.
func (p SensorProfile) Normalize(bands map[string]float64) (Reflectance, error) {
	mapping, err := p.BandMapping()
	if err != nil {
		return Reflectance{}, err
	}
	values := make(map[string]float64, len(mapping))
	for role, native := range mapping {
		v, ok := bands[native]
		if !ok {
			return Reflectance{}, fmt.Errorf("%w: sensor %s pixel missing band %s", ErrSchemaMismatch, p.ID, native)
		}
		values[role] = v
	}
	qa := values[BandQA]
	if qa < 0 {
		return Reflectance{}, fmt.Errorf("sensor %s: negative quality value %g", p.ID, qa)
	}
	return Reflectance{Red: values[BandRed], NIR: values[BandNIR], QA: uint64(qa)}, nil
}

// MeanNDVI masks pixels with the profile's quality bits, computes NDVI for the
// survivors and averages the defined values. It returns nil when no pixel
// contributes, which is how a fully masked image surfaces downstream.
func MeanNDVI(p SensorProfile, pixels []Reflectance) *float64 {
	var values []float64
	for _, px := range pixels {
		if !p.Valid(px.QA) {
			continue
		}
		if v, ok := NDVI(px.Red, px.NIR); ok {
			values = append(values, v)
		}
	}
	return Mean(values)
}

// Mean returns the arithmetic mean, or nil for an empty input.
func Mean(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	m := sum / float64(len(values))
	return &m
}
