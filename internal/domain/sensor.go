package domain

import (
	"fmt"
	"sort"
	"time"
)

// Canonical band roles every sensor is renamed onto before merging.
const (
	BandRed = "RED"
	BandNIR = "NIR"
	BandQA  = "QA"

	// BandNDVI is the name of the index band added to every merged image.
	BandNDVI = "NDVI"
)

// SensorProfile describes one sensor catalog: where its red and near-infrared
// reflectance live and which quality bits invalidate a pixel.
// Profiles are plain data and are never mutated after registration.
type SensorProfile struct {
	ID        string `json:"id"`
	RedBand   string `json:"red_band"`
	NIRBand   string `json:"nir_band"`
	QABand    string `json:"qa_band"`
	CloudBit  uint   `json:"cloud_bit"`
	ShadowBit *uint  `json:"shadow_bit,omitempty"`
	CirrusBit *uint  `json:"cirrus_bit,omitempty"`
}

// SceneFilter is a per-image metadata prefilter applied before masking,
// e.g. CLOUDY_PIXEL_PERCENTAGE < 20.
type SceneFilter struct {
	Property string  `json:"property"`
	LessThan float64 `json:"lt"`
}

// RangeStage selects whether the NDVI validity range is enforced on the
// per-image values or on the per-date averages. Every registered source
// filters before averaging; FilterAfterAverage is the per-date variant
// Aggregate also supports.
type RangeStage int

const (
	FilterBeforeAverage RangeStage = iota
	FilterAfterAverage
)

// Source is a supported optical product family addressed by name in requests.
type Source struct {
	Name        string
	Label       string
	Sensors     []SensorProfile
	Lookback    time.Duration
	SceneFilter *SceneFilter
	RangeStage  RangeStage
}

// Dataset is a single-source, unmasked collection such as daily precipitation.
type Dataset struct {
	ID   string
	Band string
}

const day = 24 * time.Hour

// Default lookback windows. They differ per family because of how far back
// each product is available, so they are deliberately not shared.
const (
	LandsatLookback   = 365 * 50 * day
	Sentinel2Lookback = 365*4*day + 365*day/2
)

// SentinelMaxCloudPercent is the scene-level cloud prefilter for Sentinel-2.
const SentinelMaxCloudPercent = 20

// Precipitation is the daily rainfall dataset paired with every NDVI series.
var Precipitation = Dataset{ID: "UCSB-CHG/CHIRPS/DAILY", Band: "precipitation"}

func bit(n uint) *uint { return &n }

var (
	landsatTM = func(id string) SensorProfile {
		return SensorProfile{ID: id, RedBand: "SR_B3", NIRBand: "SR_B4", QABand: "QA_PIXEL", CloudBit: 5, ShadowBit: bit(3)}
	}
	landsatOLI = func(id string) SensorProfile {
		return SensorProfile{ID: id, RedBand: "SR_B4", NIRBand: "SR_B5", QABand: "QA_PIXEL", CloudBit: 5, ShadowBit: bit(3)}
	}
)

var sources = map[string]Source{
	"landsat": {
		Name:  "landsat",
		Label: "Landsat 4/5/7/8/9 Collection 2 Level 2",
		Sensors: []SensorProfile{
			landsatTM("LANDSAT/LT04/C02/T1_L2"),
			landsatTM("LANDSAT/LT05/C02/T1_L2"),
			landsatTM("LANDSAT/LE07/C02/T1_L2"),
			landsatOLI("LANDSAT/LC08/C02/T1_L2"),
			landsatOLI("LANDSAT/LC09/C02/T1_L2"),
		},
		Lookback:   LandsatLookback,
		RangeStage: FilterBeforeAverage,
	},
	"sentinel2": {
		Name:  "sentinel2",
		Label: "Sentinel-2 MSI Level 2A (harmonized)",
		Sensors: []SensorProfile{
			{ID: "COPERNICUS/S2_SR_HARMONIZED", RedBand: "B4", NIRBand: "B8", QABand: "QA60", CloudBit: 10, CirrusBit: bit(11)},
		},
		Lookback:    Sentinel2Lookback,
		SceneFilter: &SceneFilter{Property: "CLOUDY_PIXEL_PERCENTAGE", LessThan: SentinelMaxCloudPercent},
		RangeStage:  FilterBeforeAverage,
	},
}

// LookupSource returns the source registered under name.
func LookupSource(name string) (Source, error) {
	src, ok := sources[name]
	if !ok {
		return Source{}, fmt.Errorf("%w: unknown source %q", ErrInvalidRequest, name)
	}
	return src, nil
}

// Sources lists every registered source sorted by name.
func Sources() []Source {
	out := make([]Source, 0, len(sources))
	for _, s := range sources {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// MaskBits returns the quality bits that invalidate a pixel, cloud first.
func (p SensorProfile) MaskBits() []uint {
	bits := []uint{p.CloudBit}
	if p.ShadowBit != nil {
		bits = append(bits, *p.ShadowBit)
	}
	if p.CirrusBit != nil {
		bits = append(bits, *p.CirrusBit)
	}
	return bits
}

// Valid reports whether a pixel with quality value qa is usable: every mask
// bit must be clear.
func (p SensorProfile) Valid(qa uint64) bool {
	for _, b := range p.MaskBits() {
		if qa&(1<<b) != 0 {
			return false
		}
	}
	return true
}

// BandMapping returns the sensor-native band name for each canonical role.
func (p SensorProfile) BandMapping() (map[string]string, error) {
	roles := map[string]string{
		BandRed: p.RedBand,
		BandNIR: p.NIRBand,
		BandQA:  p.QABand,
	}
	for role, native := range roles {
		if native == "" {
			return nil, fmt.Errorf("%w: sensor %s has no %s band", ErrSchemaMismatch, p.ID, role)
		}
	}
	return roles, nil
}
