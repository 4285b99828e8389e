// Command genfixture writes a deterministic image fixture for the offline
// reducer. Every registered sensor gets images at its revisit interval within
// its operational window, with seasonal NDVI, a share of masked pixels and
// daily precipitation for the same point.
//
// Usage:
//
//	go run ./cmd/genfixture \
//	  -lat -15.79 -lon -47.88 \
//	  -start 2020-01-01 -end 2022-01-01 \
//	  -out /tmp/brasilia.yaml
//
// The output is what FIXTURE_PATH and cmd/validate -fixture expect.
package main

import (
	"flag"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/couchcryptid/ndvi-timeseries-service/internal/adapter/fixture"
	"github.com/couchcryptid/ndvi-timeseries-service/internal/domain"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	lat := flag.Float64("lat", -15.79, "latitude of the fixture point")
	lon := flag.Float64("lon", -47.88, "longitude of the fixture point")
	start := flag.String("start", "2020-01-01", "first date (YYYY-MM-DD, inclusive)")
	end := flag.String("end", "2022-01-01", "last date (YYYY-MM-DD, exclusive)")
	seed := flag.Uint64("seed", 42, "random seed")
	cloud := flag.Float64("cloud", 0.2, "probability that a pixel is masked")
	out := flag.String("out", "", "output path for the YAML fixture")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}

	// Reuse the request validation so the fixture covers exactly what a
	// request for the same window would ask for.
	src, err := domain.LookupSource("landsat")
	if err != nil {
		return err
	}
	req, err := domain.NewObservationRequest(src, *lat, *lon, *start, *end)
	if err != nil {
		return err
	}
	if *cloud < 0 || *cloud > 1 {
		return fmt.Errorf("-cloud must be within [0, 1], got %g", *cloud)
	}

	began := time.Now()
	f := fixture.Generate(fixture.GenerateOptions{
		Point:            req.Point,
		Start:            req.Start,
		End:              req.End,
		Seed:             *seed,
		CloudProbability: *cloud,
	})

	counts := map[string]int{}
	for _, img := range f.Images {
		counts[img.Collection]++
	}
	collections := make([]string, 0, len(counts))
	for c := range counts {
		collections = append(collections, c)
	}
	sort.Strings(collections)
	for _, c := range collections {
		log.Printf("%s: %d images", c, counts[c])
	}

	if err := fixture.Write(*out, f); err != nil {
		return err
	}
	log.Printf("wrote %d images to %s in %s", len(f.Images), *out, time.Since(began).Round(time.Millisecond))
	return nil
}
