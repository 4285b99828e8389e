package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/ndvi-timeseries-service/internal/domain"
	"github.com/couchcryptid/ndvi-timeseries-service/internal/observability"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Series kinds used as metric labels and in error messages.
const (
	SeriesNDVI          = "ndvi"
	SeriesPrecipitation = "precipitation"
)

const publishTimeout = 5 * time.Second

// Publisher receives every successfully built response.
type Publisher interface {
	Publish(ctx context.Context, event domain.SeriesEvent) error
}

// HealthChecker is implemented by reducers that can report backend health.
type HealthChecker interface {
	Healthy(ctx context.Context) error
}

// Service builds the packaged NDVI and precipitation series for one request.
type Service struct {
	reducer   domain.ZonalReducer
	publisher Publisher
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// New creates a Service. Pass a nil publisher to disable event publication.
func New(reducer domain.ZonalReducer, publisher Publisher, logger *slog.Logger, metrics *observability.Metrics) *Service {
	return &Service{
		reducer:   reducer,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
	}
}

// CheckReadiness delegates to the reducer when it can report its own health.
func (s *Service) CheckReadiness(ctx context.Context) error {
	if hc, ok := s.reducer.(HealthChecker); ok {
		return hc.Healthy(ctx)
	}
	return nil
}

// Build runs both reductions concurrently, smooths the NDVI series and
// packages the three traces. Either series failing fails the whole build.
func (s *Service) Build(ctx context.Context, src domain.Source, req domain.ObservationRequest) ([]domain.Trace, error) {
	start := time.Now()

	var ndvi, precip domain.Series
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		ndvi, err = s.VegetationSeries(gctx, src, req)
		return err
	})
	g.Go(func() error {
		var err error
		precip, err = s.PrecipitationSeries(gctx, req)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	traces := domain.Package(ndvi, domain.SmoothSeries(ndvi), precip)

	elapsed := time.Since(start)
	s.metrics.BuildDuration.Observe(elapsed.Seconds())
	s.logger.Info("series built",
		"source", src.Name,
		"lat", req.Point.Lat,
		"lon", req.Point.Lon,
		"start", req.Start.Format(domain.DateLayout),
		"end", req.End.Format(domain.DateLayout),
		"ndvi_samples", len(ndvi),
		"precipitation_samples", len(precip),
		"duration", elapsed,
	)

	s.publish(ctx, src, req, traces)
	return traces, nil
}

// VegetationSeries reduces the merged, masked collection of src and aggregates
// it into a [0,1] NDVI series.
func (s *Service) VegetationSeries(ctx context.Context, src domain.Source, req domain.ObservationRequest) (domain.Series, error) {
	q, err := src.VegetationQuery(req)
	if err != nil {
		return nil, fmt.Errorf("%s series: %w", SeriesNDVI, err)
	}
	raw, err := s.reduce(ctx, SeriesNDVI, q)
	if err != nil {
		return nil, err
	}
	series, err := domain.Aggregate(raw, domain.AggregateOptions{Range: &domain.NDVIRange, Stage: src.RangeStage})
	if err != nil {
		return nil, fmt.Errorf("%s series: %w", SeriesNDVI, err)
	}
	s.metrics.SeriesSamples.WithLabelValues(SeriesNDVI).Observe(float64(len(series)))
	if len(series) == 0 {
		return nil, fmt.Errorf("%w: no valid NDVI data found for the specified period and location", domain.ErrNoData)
	}
	return series, nil
}

// PrecipitationSeries reduces the daily precipitation dataset without masking
// or range filtering.
func (s *Service) PrecipitationSeries(ctx context.Context, req domain.ObservationRequest) (domain.Series, error) {
	raw, err := s.reduce(ctx, SeriesPrecipitation, domain.Precipitation.Query(req))
	if err != nil {
		return nil, err
	}
	series, err := domain.Aggregate(raw, domain.AggregateOptions{})
	if err != nil {
		return nil, fmt.Errorf("%s series: %w", SeriesPrecipitation, err)
	}
	s.metrics.SeriesSamples.WithLabelValues(SeriesPrecipitation).Observe(float64(len(series)))
	if len(series) == 0 {
		return nil, fmt.Errorf("%w: no precipitation data found for the specified period and location", domain.ErrNoData)
	}
	return series, nil
}

func (s *Service) reduce(ctx context.Context, kind string, q domain.ReductionQuery) ([]domain.RawSample, error) {
	start := time.Now()
	raw, err := s.reducer.Reduce(ctx, q)
	s.metrics.ReductionDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())

	switch {
	case err != nil:
		s.metrics.ReductionCalls.WithLabelValues(kind, "error").Inc()
		return nil, fmt.Errorf("%s series: %w", kind, err)
	case len(raw) == 0:
		s.metrics.ReductionCalls.WithLabelValues(kind, "empty").Inc()
	default:
		s.metrics.ReductionCalls.WithLabelValues(kind, "success").Inc()
	}
	s.logger.Debug("reduction complete", "series", kind, "samples", len(raw))
	return raw, nil
}

// publish is best-effort; a failed write never fails the request.
func (s *Service) publish(ctx context.Context, src domain.Source, req domain.ObservationRequest, traces []domain.Trace) {
	if s.publisher == nil {
		return
	}
	event := domain.SeriesEvent{
		ID:         uuid.NewString(),
		Source:     src.Name,
		Point:      req.Point,
		Start:      req.Start.Format(domain.DateLayout),
		End:        req.End.Format(domain.DateLayout),
		Traces:     traces,
		ComputedAt: domain.Now().UTC(),
	}

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.publisher.Publish(pctx, event); err != nil {
		s.metrics.PublishFailures.Inc()
		s.logger.Warn("publish series event failed", "error", err, "event_id", event.ID, "source", src.Name)
	}
}
