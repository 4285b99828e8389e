package fixture

import (
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"time"

	"github.com/couchcryptid/ndvi-timeseries-service/internal/domain"
	"gopkg.in/yaml.v3"
)

// GenerateOptions controls synthetic fixture generation.
type GenerateOptions struct {
	Point domain.Point
	Start time.Time
	End   time.Time
	Seed  uint64

	// CloudProbability is the chance that a pixel has one of its sensor's
	// mask bits (cloud, shadow or cirrus) set.
	CloudProbability float64
}

// Per-catalog revisit intervals in days.
var revisit = map[string]int{
	"LANDSAT/LT04/C02/T1_L2":      16,
	"LANDSAT/LT05/C02/T1_L2":      16,
	"LANDSAT/LE07/C02/T1_L2":      16,
	"LANDSAT/LC08/C02/T1_L2":      16,
	"LANDSAT/LC09/C02/T1_L2":      16,
	"COPERNICUS/S2_SR_HARMONIZED": 5,
}

// Operational windows; images outside them are not generated.
var operational = map[string][2]string{
	"LANDSAT/LT04/C02/T1_L2":      {"1982-08-22", "1993-12-14"},
	"LANDSAT/LT05/C02/T1_L2":      {"1984-03-16", "2012-05-05"},
	"LANDSAT/LE07/C02/T1_L2":      {"1999-05-28", "2022-04-06"},
	"LANDSAT/LC08/C02/T1_L2":      {"2013-04-11", "9999-12-31"},
	"LANDSAT/LC09/C02/T1_L2":      {"2021-10-31", "9999-12-31"},
	"COPERNICUS/S2_SR_HARMONIZED": {"2017-03-28", "9999-12-31"},
}

// pixelOffsets sample a 3x3 grid about 200 m apart around the point.
var pixelOffsets = []float64{-0.0018, 0, 0.0018}

// Generate builds a deterministic fixture around opts.Point covering every
// registered sensor and the precipitation dataset for [Start, End).
func Generate(opts GenerateOptions) File {
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))
	var f File

	for _, src := range domain.Sources() {
		for _, sensor := range src.Sensors {
			f.Images = append(f.Images, opticalImages(rng, opts, sensor)...)
		}
	}
	for d := opts.Start; d.Before(opts.End); d = d.AddDate(0, 0, 1) {
		f.Images = append(f.Images, precipitationImage(rng, opts.Point, d))
	}
	return f
}

// Write encodes f as YAML at path.
func Write(path string, f File) error {
	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode fixture: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // fixtures are not secret
		return fmt.Errorf("write fixture: %w", err)
	}
	return nil
}

func opticalImages(rng *rand.Rand, opts GenerateOptions, sensor domain.SensorProfile) []Image {
	step := revisit[sensor.ID]
	window := operational[sensor.ID]
	var out []Image
	for d := opts.Start; d.Before(opts.End); d = d.AddDate(0, 0, step) {
		date := d.Format(domain.DateLayout)
		if date < window[0] || date > window[1] {
			continue
		}
		img := Image{
			Collection: sensor.ID,
			Date:       date,
			Footprint:  footprint(opts.Point),
			Properties: map[string]float64{"CLOUDY_PIXEL_PERCENTAGE": math.Round(rng.Float64()*4000) / 100},
		}
		for _, dlat := range pixelOffsets {
			for _, dlon := range pixelOffsets {
				img.Pixels = append(img.Pixels, opticalPixel(rng, opts, sensor, d, dlat, dlon))
			}
		}
		out = append(out, img)
	}
	return out
}

func opticalPixel(rng *rand.Rand, opts GenerateOptions, sensor domain.SensorProfile, d time.Time, dlat, dlon float64) Pixel {
	// Seasonal greenness with noise, kept inside (0, 0.95).
	ndvi := 0.5 + 0.3*math.Sin(2*math.Pi*float64(d.YearDay())/365) + rng.NormFloat64()*0.05
	ndvi = math.Min(math.Max(ndvi, 0.01), 0.95)
	red := 0.03 + rng.Float64()*0.05
	nir := red * (1 + ndvi) / (1 - ndvi)

	var qa uint64
	if rng.Float64() < opts.CloudProbability {
		bits := sensor.MaskBits()
		qa |= 1 << bits[rng.IntN(len(bits))]
	}

	return Pixel{
		Lon: round(opts.Point.Lon+dlon, 6),
		Lat: round(opts.Point.Lat+dlat, 6),
		Bands: map[string]float64{
			sensor.RedBand: round(red, 5),
			sensor.NIRBand: round(nir, 5),
			sensor.QABand:  float64(qa),
		},
	}
}

func precipitationImage(rng *rand.Rand, p domain.Point, d time.Time) Image {
	var mm float64
	// Wet season roughly follows the greenness curve.
	wet := 0.5 + 0.4*math.Sin(2*math.Pi*float64(d.YearDay())/365)
	if rng.Float64() < wet {
		mm = round(rng.ExpFloat64()*8, 2)
	}
	return Image{
		Collection: domain.Precipitation.ID,
		Date:       d.Format(domain.DateLayout),
		Footprint:  footprint(p),
		Pixels: []Pixel{{
			Lon:   p.Lon,
			Lat:   p.Lat,
			Bands: map[string]float64{domain.Precipitation.Band: mm},
		}},
	}
}

func footprint(p domain.Point) [4]float64 {
	return [4]float64{p.Lon - 0.5, p.Lat - 0.5, p.Lon + 0.5, p.Lat + 0.5}
}

func round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
