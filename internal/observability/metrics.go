package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ndvi_timeseries"

// Metrics holds the Prometheus counters, histograms, and gauges for the time-series service.
type Metrics struct {
	Requests      *prometheus.CounterVec // labels: source, outcome={ok,invalid,no_data,external,error}
	BuildDuration prometheus.Histogram

	// Reduction service metrics.
	ReductionCalls    *prometheus.CounterVec   // labels: series={ndvi,precipitation}, outcome={success,empty,error}
	ReductionDuration *prometheus.HistogramVec // labels: series
	SeriesSamples     *prometheus.HistogramVec // labels: series
	BreakerState      prometheus.Gauge

	PublishFailures prometheus.Counter
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.Requests,
		m.BuildDuration,
		m.ReductionCalls,
		m.ReductionDuration,
		m.SeriesSamples,
		m.BreakerState,
		m.PublishFailures,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Time-series requests by source and outcome.",
		}, []string{"source", "outcome"}),
		BuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Duration of a complete series build including both reductions.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 90},
		}),
		ReductionCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reduction_calls_total",
			Help:      "Zonal reduction calls by series kind and outcome.",
		}, []string{"series", "outcome"}),
		ReductionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reduction_duration_seconds",
			Help:      "Zonal reduction round-trip duration in seconds.",
			Buckets:   []float64{0.05, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"series"}),
		SeriesSamples: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "series_samples",
			Help:      "Number of dated samples per aggregated series.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}, []string{"series"}),
		BreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reduction_breaker_state",
			Help:      "Reduction circuit breaker state: 0 closed, 1 half-open, 2 open.",
		}),
		PublishFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_failures_total",
			Help:      "Series events that could not be written to Kafka.",
		}),
	}
}
