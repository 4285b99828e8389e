package reduction

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/couchcryptid/ndvi-timeseries-service/internal/domain"
	"github.com/couchcryptid/ndvi-timeseries-service/internal/observability"
	"github.com/paulmach/orb/geojson"
	"github.com/sony/gobreaker"
)

const (
	reducePath = "/v1/reduce"
	healthPath = "/healthz"

	// maxErrorBody bounds how much of a failed response is copied into errors.
	maxErrorBody = 4096
)

var errCircuitOpen = errors.New("circuit breaker open")

// Client implements domain.ZonalReducer against the remote reduction service.
// Each Reduce is one bulk POST covering every image in the collection.
type Client struct {
	baseURL    string
	httpClient *http.Client
	circuit    *gobreaker.CircuitBreaker
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a reduction client. httpClient carries auth and timeout;
// see NewHTTPClient.
func NewClient(baseURL string, httpClient *http.Client, metrics *observability.Metrics, logger *slog.Logger) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		metrics:    metrics,
		logger:     logger,
	}
	c.circuit = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "reduction",
		MaxRequests: 1,
		Interval:    1 * time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// Caller cancellations say nothing about the backend.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: c.onStateChange,
	})
	return c
}

// reduceRequest is the wire form of a domain.ReductionQuery. Region repeats
// the point as GeoJSON for services that filter by geometry.
type reduceRequest struct {
	domain.ReductionQuery
	Region *geojson.Geometry `json:"region"`
}

type reduceResponse struct {
	Samples []domain.RawSample `json:"samples"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Reduce posts q to the service and returns its samples. Transport failures,
// non-2xx responses and an open circuit are *domain.ExternalQueryError; an
// undecodable 2xx body or a cancelled ctx is a plain error.
func (c *Client) Reduce(ctx context.Context, q domain.ReductionQuery) ([]domain.RawSample, error) {
	body, err := json.Marshal(reduceRequest{
		ReductionQuery: q,
		Region:         geojson.NewGeometry(q.Point.Orb()),
	})
	if err != nil {
		return nil, fmt.Errorf("encode reduction query: %w", err)
	}

	result, err := c.circuit.Execute(func() (interface{}, error) {
		return c.post(ctx, body)
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("reduce %s: %w", q.Band, err)
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = fmt.Errorf("%w: %v", errCircuitOpen, err)
		}
		return nil, &domain.ExternalQueryError{Op: "reduce " + q.Band, Err: err}
	}

	data, ok := result.([]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from circuit breaker")
	}
	var resp reduceResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decode reduction response: %w", err)
	}
	return resp.Samples, nil
}

func (c *Client) post(ctx context.Context, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+reducePath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("reduction request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError(resp)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read reduction response: %w", err)
	}
	return data, nil
}

// Healthy reports the breaker state and checks the service health endpoint.
func (c *Client) Healthy(ctx context.Context) error {
	if c.circuit.State() == gobreaker.StateOpen {
		return errCircuitOpen
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthPath, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("reduction service unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("reduction service unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) onStateChange(name string, from, to gobreaker.State) {
	c.logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
	c.metrics.BreakerState.Set(float64(to))
}

// statusError extracts the service's error message when the body carries one.
func statusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var e errorResponse
	if json.Unmarshal(raw, &e) == nil && e.Error != "" {
		return fmt.Errorf("status %d: %s", resp.StatusCode, e.Error)
	}
	return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
}
