//go:build reduction

package reduction

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/couchcryptid/ndvi-timeseries-service/internal/config"
	"github.com/couchcryptid/ndvi-timeseries-service/internal/domain"
	"github.com/couchcryptid/ndvi-timeseries-service/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests hit a real reduction service and require REDUCTION_URL, plus
// REDUCTION_CREDENTIALS_FILE when the service expects OAuth2 tokens.
// Run with: go test -tags=reduction ./internal/adapter/reduction/ -v -count=1

func smokeClient(t *testing.T) *Client {
	t.Helper()
	baseURL := os.Getenv("REDUCTION_URL")
	if baseURL == "" {
		t.Fatal("REDUCTION_URL must be set to run smoke tests")
	}
	httpClient, err := NewHTTPClient(context.Background(), os.Getenv("REDUCTION_CREDENTIALS_FILE"), config.DefaultReductionScope, 2*time.Minute)
	require.NoError(t, err)
	return NewClient(baseURL, httpClient, observability.NewMetricsForTesting(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func smokeRequest() domain.ObservationRequest {
	// Cerrado farmland near Brasilia.
	return domain.ObservationRequest{
		Point: domain.Point{Lat: -15.60, Lon: -47.70},
		Start: time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2022, 4, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestSmoke_Healthy(t *testing.T) {
	require.NoError(t, smokeClient(t).Healthy(context.Background()))
}

func TestSmoke_ReduceSentinel2(t *testing.T) {
	src, err := domain.LookupSource("sentinel2")
	require.NoError(t, err)
	q, err := src.VegetationQuery(smokeRequest())
	require.NoError(t, err)

	samples, err := smokeClient(t).Reduce(context.Background(), q)
	require.NoError(t, err)
	assert.NotEmpty(t, samples)
	for _, s := range samples {
		assert.Regexp(t, `^\d{4}-\d{2}-\d{2}$`, s.Date)
	}
}

func TestSmoke_ReducePrecipitation(t *testing.T) {
	samples, err := smokeClient(t).Reduce(context.Background(), domain.Precipitation.Query(smokeRequest()))
	require.NoError(t, err)
	// CHIRPS is daily: one sample per day in the window.
	assert.Len(t, samples, 90)
}
