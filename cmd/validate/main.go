// Command validate runs the full time-series pipeline over an image fixture for
// every supported source and checks the output properties phase by phase:
// fixture integrity, raw reductions, aggregated series, and packaged traces.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -fixture internal/adapter/fixture/testdata/brasilia.yaml \
//	  -lat -15.79 -lon -47.88 \
//	  -start 2021-01-01 -end 2022-01-01
//
// Any file written by cmd/genfixture works as well.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"slices"

	"github.com/couchcryptid/ndvi-timeseries-service/internal/adapter/fixture"
	"github.com/couchcryptid/ndvi-timeseries-service/internal/domain"
	"github.com/couchcryptid/ndvi-timeseries-service/internal/observability"
	"github.com/couchcryptid/ndvi-timeseries-service/internal/pipeline"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	fixturePath := flag.String("fixture", "", "path to the YAML image fixture")
	lat := flag.Float64("lat", -15.79, "latitude of the requested point")
	lon := flag.Float64("lon", -47.88, "longitude of the requested point")
	start := flag.String("start", "2020-01-01", "window start (YYYY-MM-DD, inclusive)")
	end := flag.String("end", "2022-01-01", "window end (YYYY-MM-DD, exclusive)")
	flag.Parse()

	if *fixturePath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*fixturePath, *lat, *lon, *start, *end); code != 0 {
		os.Exit(code)
	}
}

func run(fixturePath string, lat, lon float64, start, end string) int {
	fmt.Println("=== NDVI Time Series Validation ===")
	fmt.Println()

	f, err := fixture.ReadFile(fixturePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}

	reducer := fixture.New(f)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := pipeline.New(reducer, nil, logger, observability.NewMetricsForTesting())
	ctx := context.Background()

	// ── Run validation phases ──
	phases := []*phase{validateFixture(f)}
	var samples int
	for _, src := range domain.Sources() {
		req, err := domain.NewObservationRequest(src, lat, lon, start, end)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: %s request: %v\n", src.Name, err)
			return 1
		}
		phases = append(phases,
			validateReduction(ctx, reducer, src, req),
			validateSeries(ctx, svc, src, req),
			validateTraces(ctx, svc, src, req, &samples),
		)
	}

	// ── Report results ──
	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-48s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Images: %d in fixture, %d NDVI samples packaged\n", len(f.Images), samples)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Phase 1: Fixture Integrity ──
// Every image belongs to a known catalog and carries that catalog's bands.

func validateFixture(f fixture.File) *phase {
	p := &phase{name: "Fixture integrity"}

	profiles := map[string]domain.SensorProfile{}
	for _, src := range domain.Sources() {
		for _, s := range src.Sensors {
			profiles[s.ID] = s
		}
	}

	for i, img := range f.Images {
		if img.Collection == domain.Precipitation.ID {
			for j, px := range img.Pixels {
				if _, ok := px.Bands[domain.Precipitation.Band]; !ok {
					p.errorf("image %d (%s) pixel %d: missing %s", i, img.Date, j, domain.Precipitation.Band)
				}
			}
			continue
		}
		profile, ok := profiles[img.Collection]
		if !ok {
			p.errorf("image %d: unknown collection %q", i, img.Collection)
			continue
		}
		for j, px := range img.Pixels {
			if _, err := profile.Normalize(px.Bands); err != nil {
				p.errorf("image %d (%s %s) pixel %d: %v", i, img.Collection, img.Date, j, err)
			}
		}
	}
	return p
}

// ── Phase 2: Raw Reductions ──
// Samples come from member catalogs and fall inside the requested window.

func validateReduction(ctx context.Context, r domain.ZonalReducer, src domain.Source, req domain.ObservationRequest) *phase {
	p := &phase{name: fmt.Sprintf("%s: raw reductions", src.Name)}

	q, err := src.VegetationQuery(req)
	if err != nil {
		p.errorf("vegetation query: %v", err)
		return p
	}
	raw, err := r.Reduce(ctx, q)
	if err != nil {
		p.errorf("reduce: %v", err)
		return p
	}

	members := map[string]bool{}
	for _, m := range q.Collection.Members {
		members[m.ID] = true
	}
	for i, s := range raw {
		if !members[s.Source] {
			p.errorf("sample %d: source %q is not a member of %s", i, s.Source, src.Name)
		}
		if s.Date < q.Collection.Start || s.Date >= q.Collection.End {
			p.errorf("sample %d: date %s outside [%s, %s)", i, s.Date, q.Collection.Start, q.Collection.End)
		}
	}
	return p
}

// ── Phase 3: Aggregated Series ──
// Dates strictly ascend, NDVI stays in [0,1], precipitation is non-negative.

func validateSeries(ctx context.Context, svc *pipeline.Service, src domain.Source, req domain.ObservationRequest) *phase {
	p := &phase{name: fmt.Sprintf("%s: aggregated series", src.Name)}

	ndvi, err := svc.VegetationSeries(ctx, src, req)
	if err != nil {
		p.errorf("ndvi series: %v", err)
	}
	checkAscending(p, "ndvi", ndvi)
	for _, s := range ndvi {
		if !domain.NDVIRange.Contains(s.Value) {
			p.errorf("ndvi %s: value %g outside [0, 1]", s.Date.Format(domain.DateLayout), s.Value)
		}
	}

	precip, err := svc.PrecipitationSeries(ctx, req)
	if err != nil {
		p.errorf("precipitation series: %v", err)
	}
	checkAscending(p, "precipitation", precip)
	for _, s := range precip {
		if s.Value < 0 || math.IsNaN(s.Value) {
			p.errorf("precipitation %s: invalid value %g", s.Date.Format(domain.DateLayout), s.Value)
		}
	}
	return p
}

func checkAscending(p *phase, kind string, s domain.Series) {
	for i := 1; i < len(s); i++ {
		if !s[i].Date.After(s[i-1].Date) {
			p.errorf("%s: date %s does not follow %s", kind,
				s[i].Date.Format(domain.DateLayout), s[i-1].Date.Format(domain.DateLayout))
		}
	}
}

// ── Phase 4: Packaged Traces ──
// Three traces in fixed order; the index traces share dates and length.

func validateTraces(ctx context.Context, svc *pipeline.Service, src domain.Source, req domain.ObservationRequest, samples *int) *phase {
	p := &phase{name: fmt.Sprintf("%s: packaged traces", src.Name)}

	traces, err := svc.Build(ctx, src, req)
	if err != nil {
		p.errorf("build: %v", err)
		return p
	}
	if len(traces) != 3 {
		p.errorf("expected 3 traces, got %d", len(traces))
		return p
	}

	want := []string{domain.TraceSmoothed, domain.TraceRaw, domain.TracePrecipitation}
	for i, name := range want {
		if traces[i].Name != name {
			p.errorf("trace %d: expected %q, got %q", i, name, traces[i].Name)
		}
		if len(traces[i].X) != len(traces[i].Y) {
			p.errorf("trace %q: %d dates but %d values", traces[i].Name, len(traces[i].X), len(traces[i].Y))
		}
	}

	smoothed, raw := traces[0], traces[1]
	if !slices.Equal(smoothed.X, raw.X) {
		p.errorf("smoothed and raw traces have different dates")
	}
	if len(raw.Y) <= domain.SmoothingWindow && !slices.Equal(smoothed.Y, raw.Y) {
		p.errorf("series of %d samples must pass through smoothing unchanged", len(raw.Y))
	}
	*samples += len(raw.Y)
	return p
}
