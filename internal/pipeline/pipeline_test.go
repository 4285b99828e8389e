package pipeline_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/couchcryptid/ndvi-timeseries-service/internal/domain"
	"github.com/couchcryptid/ndvi-timeseries-service/internal/observability"
	"github.com/couchcryptid/ndvi-timeseries-service/internal/pipeline"
	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

// mockReducer answers by requested band so both series can be scripted independently.
type mockReducer struct {
	mu      sync.Mutex
	samples map[string][]domain.RawSample
	errs    map[string]error
	queries []domain.ReductionQuery
	health  error
}

func (m *mockReducer) Reduce(_ context.Context, q domain.ReductionQuery) ([]domain.RawSample, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, q)
	if err := m.errs[q.Band]; err != nil {
		return nil, err
	}
	return m.samples[q.Band], nil
}

func (m *mockReducer) queryFor(band string) (domain.ReductionQuery, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, q := range m.queries {
		if q.Band == band {
			return q, true
		}
	}
	return domain.ReductionQuery{}, false
}

type healthyReducer struct {
	mockReducer
}

func (h *healthyReducer) Healthy(_ context.Context) error { return h.health }

type mockPublisher struct {
	mu     sync.Mutex
	events []domain.SeriesEvent
	err    error
}

func (m *mockPublisher) Publish(_ context.Context, event domain.SeriesEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, event)
	return nil
}

func newTestMetrics() *observability.Metrics {
	return observability.NewMetricsForTesting()
}

// --- tests ---

func TestService_Build_HappyPath(t *testing.T) {
	reducer := &mockReducer{samples: map[string][]domain.RawSample{
		domain.BandNDVI: {
			raw("2021-03-05", 0.4),
			raw("2021-01-10", 0.2),
			raw("2021-01-10", 0.4), // second sensor, same day
			null("2021-02-01"),
			raw("2021-02-14", 1.3), // out of range
		},
		"precipitation": {
			raw("2021-01-02", 0),
			raw("2021-01-01", 4.5),
			raw("2021-01-03", 12.25),
		},
	}}
	metrics := newTestMetrics()
	svc := pipeline.New(reducer, nil, slog.Default(), metrics)

	traces, err := svc.Build(context.Background(), source(t, "landsat"), testRequest())
	require.NoError(t, err)
	require.Len(t, traces, 3)

	assert.Equal(t, []string{"2021-01-10", "2021-03-05"}, traces[1].X)
	assert.InDeltaSlice(t, []float64{0.3, 0.4}, traces[1].Y, 1e-12)
	// short series: smoothing is identity
	assert.Equal(t, traces[1].X, traces[0].X)
	assert.InDeltaSlice(t, traces[1].Y, traces[0].Y, 0)

	if diff := cmp.Diff([]string{"2021-01-01", "2021-01-02", "2021-01-03"}, traces[2].X); diff != "" {
		t.Fatalf("precipitation dates mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []float64{4.5, 0, 12.25}, traces[2].Y)

	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.ReductionCalls.WithLabelValues(pipeline.SeriesNDVI, "success")), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.ReductionCalls.WithLabelValues(pipeline.SeriesPrecipitation, "success")), 0)
}

func TestService_Build_IssuesOneBulkCallPerSeries(t *testing.T) {
	reducer := &mockReducer{samples: map[string][]domain.RawSample{
		domain.BandNDVI: {raw("2021-01-10", 0.2)},
		"precipitation": {raw("2021-01-10", 1)},
	}}
	svc := pipeline.New(reducer, nil, slog.Default(), newTestMetrics())

	_, err := svc.Build(context.Background(), source(t, "sentinel2"), testRequest())
	require.NoError(t, err)

	assert.Len(t, reducer.queries, 2)

	ndvi, ok := reducer.queryFor(domain.BandNDVI)
	require.True(t, ok)
	assert.True(t, ndvi.Collection.Masked)
	require.NotNil(t, ndvi.Collection.SceneFilter)
	assert.InDelta(t, float64(domain.RegionRadius), ndvi.Radius, 0)

	precip, ok := reducer.queryFor("precipitation")
	require.True(t, ok)
	assert.False(t, precip.Collection.Masked)
	assert.Equal(t, "UCSB-CHG/CHIRPS/DAILY", precip.Collection.Members[0].ID)
}

func TestService_Build_SmoothsLongSeries(t *testing.T) {
	var ndvi []domain.RawSample
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range 15 {
		v := 0.3
		if i%5 == 2 {
			v = 0.9
		}
		ndvi = append(ndvi, raw(start.AddDate(0, 0, 8*i).Format(domain.DateLayout), v))
	}
	reducer := &mockReducer{samples: map[string][]domain.RawSample{
		domain.BandNDVI: ndvi,
		"precipitation": {raw("2020-01-01", 2)},
	}}
	svc := pipeline.New(reducer, nil, slog.Default(), newTestMetrics())

	traces, err := svc.Build(context.Background(), source(t, "landsat"), testRequest())
	require.NoError(t, err)

	require.Len(t, traces[0].Y, 15)
	assert.Equal(t, traces[1].X, traces[0].X)
	assert.InDelta(t, 0.9, traces[1].Y[7], 0)
	assert.Less(t, traces[0].Y[7], 0.9)
	for _, v := range traces[1].Y {
		assert.True(t, domain.NDVIRange.Contains(v))
	}
}

func TestService_Build_NoDataForBothSources(t *testing.T) {
	for _, name := range []string{"landsat", "sentinel2"} {
		t.Run(name, func(t *testing.T) {
			reducer := &mockReducer{samples: map[string][]domain.RawSample{
				"precipitation": {raw("2021-01-01", 3)},
			}}
			metrics := newTestMetrics()
			svc := pipeline.New(reducer, nil, slog.Default(), metrics)

			_, err := svc.Build(context.Background(), source(t, name), testRequest())
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrNoData)
			assert.Contains(t, err.Error(), "no valid NDVI data")
			assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.ReductionCalls.WithLabelValues(pipeline.SeriesNDVI, "empty")), 0)
		})
	}
}

func TestService_Build_AllSamplesFilteredIsNoData(t *testing.T) {
	reducer := &mockReducer{samples: map[string][]domain.RawSample{
		domain.BandNDVI: {null("2021-01-01"), raw("2021-01-02", -0.3)},
		"precipitation": {raw("2021-01-01", 3)},
	}}
	svc := pipeline.New(reducer, nil, slog.Default(), newTestMetrics())

	_, err := svc.Build(context.Background(), source(t, "sentinel2"), testRequest())
	assert.ErrorIs(t, err, domain.ErrNoData)
}

func TestService_Build_EmptyPrecipitationIsNoData(t *testing.T) {
	reducer := &mockReducer{samples: map[string][]domain.RawSample{
		domain.BandNDVI: {raw("2021-01-01", 0.5)},
	}}
	svc := pipeline.New(reducer, nil, slog.Default(), newTestMetrics())

	_, err := svc.Build(context.Background(), source(t, "landsat"), testRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNoData)
	assert.Contains(t, err.Error(), "precipitation")
}

func TestService_Build_ExternalErrorPropagates(t *testing.T) {
	platformErr := &domain.ExternalQueryError{Op: "reduce", Err: errors.New("user memory limit exceeded")}
	reducer := &mockReducer{
		samples: map[string][]domain.RawSample{"precipitation": {raw("2021-01-01", 1)}},
		errs:    map[string]error{domain.BandNDVI: platformErr},
	}
	metrics := newTestMetrics()
	svc := pipeline.New(reducer, nil, slog.Default(), metrics)

	traces, err := svc.Build(context.Background(), source(t, "landsat"), testRequest())
	require.Error(t, err)
	assert.Nil(t, traces)
	assert.True(t, domain.IsExternal(err))
	assert.NotErrorIs(t, err, domain.ErrNoData)
	assert.Contains(t, err.Error(), "user memory limit exceeded")
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.ReductionCalls.WithLabelValues(pipeline.SeriesNDVI, "error")), 0)
}

func TestService_Build_MalformedPayloadIsUnexpected(t *testing.T) {
	reducer := &mockReducer{samples: map[string][]domain.RawSample{
		domain.BandNDVI: {{Date: "05/01/2021", Value: ptr(0.3)}},
		"precipitation": {raw("2021-01-01", 1)},
	}}
	svc := pipeline.New(reducer, nil, slog.Default(), newTestMetrics())

	_, err := svc.Build(context.Background(), source(t, "landsat"), testRequest())
	require.Error(t, err)
	assert.False(t, domain.IsExternal(err))
	assert.NotErrorIs(t, err, domain.ErrNoData)
}

func TestService_PrecipitationIndependentOfVegetation(t *testing.T) {
	precip := []domain.RawSample{raw("2021-01-02", 7), raw("2021-01-01", 1), raw("2021-01-01", 3)}

	with := &mockReducer{samples: map[string][]domain.RawSample{
		domain.BandNDVI: {raw("2021-01-01", 0.5), raw("2021-01-05", 0.6)},
		"precipitation": precip,
	}}
	without := &mockReducer{samples: map[string][]domain.RawSample{
		"precipitation": precip,
	}}

	req := testRequest()
	a, err := pipeline.New(with, nil, slog.Default(), newTestMetrics()).PrecipitationSeries(context.Background(), req)
	require.NoError(t, err)
	b, err := pipeline.New(without, nil, slog.Default(), newTestMetrics()).PrecipitationSeries(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, []string{"2021-01-01", "2021-01-02"}, a.Dates())
	assert.Equal(t, []float64{2, 7}, a.Values())
}

func TestService_Build_PublishesEvent(t *testing.T) {
	fixed := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	domain.SetClock(clockwork.NewFakeClockAt(fixed))
	t.Cleanup(func() { domain.SetClock(nil) })

	reducer := &mockReducer{samples: map[string][]domain.RawSample{
		domain.BandNDVI: {raw("2021-01-01", 0.5)},
		"precipitation": {raw("2021-01-01", 1)},
	}}
	pub := &mockPublisher{}
	svc := pipeline.New(reducer, pub, slog.Default(), newTestMetrics())

	traces, err := svc.Build(context.Background(), source(t, "sentinel2"), testRequest())
	require.NoError(t, err)

	require.Len(t, pub.events, 1)
	ev := pub.events[0]
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, "sentinel2", ev.Source)
	assert.Equal(t, "2021-01-01", ev.Start)
	assert.Equal(t, "2022-01-01", ev.End)
	assert.Equal(t, fixed, ev.ComputedAt)
	assert.Equal(t, traces, ev.Traces)
}

func TestService_Build_PublishFailureDoesNotFailRequest(t *testing.T) {
	reducer := &mockReducer{samples: map[string][]domain.RawSample{
		domain.BandNDVI: {raw("2021-01-01", 0.5)},
		"precipitation": {raw("2021-01-01", 1)},
	}}
	metrics := newTestMetrics()
	svc := pipeline.New(reducer, &mockPublisher{err: errors.New("broker down")}, slog.Default(), metrics)

	traces, err := svc.Build(context.Background(), source(t, "landsat"), testRequest())
	require.NoError(t, err)
	assert.Len(t, traces, 3)
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.PublishFailures), 0)
}

func TestService_CheckReadiness(t *testing.T) {
	t.Run("plain reducer is always ready", func(t *testing.T) {
		svc := pipeline.New(&mockReducer{}, nil, slog.Default(), newTestMetrics())
		assert.NoError(t, svc.CheckReadiness(context.Background()))
	})

	t.Run("health-checking reducer is consulted", func(t *testing.T) {
		r := &healthyReducer{}
		r.health = errors.New("circuit open")
		svc := pipeline.New(r, nil, slog.Default(), newTestMetrics())
		assert.EqualError(t, svc.CheckReadiness(context.Background()), "circuit open")
	})
}

// --- helpers ---

func ptr(v float64) *float64 { return &v }

func raw(date string, v float64) domain.RawSample {
	return domain.RawSample{Date: date, Value: ptr(v)}
}

func null(date string) domain.RawSample {
	return domain.RawSample{Date: date}
}

func source(t *testing.T, name string) domain.Source {
	t.Helper()
	src, err := domain.LookupSource(name)
	require.NoError(t, err)
	return src
}

func testRequest() domain.ObservationRequest {
	return domain.ObservationRequest{
		Point: domain.Point{Lat: -15.79, Lon: -47.88},
		Start: time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}
