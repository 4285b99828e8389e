package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/couchcryptid/ndvi-timeseries-service/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Request outcomes recorded on the requests counter.
const (
	outcomeOK       = "ok"
	outcomeInvalid  = "invalid"
	outcomeNoData   = "no_data"
	outcomeExternal = "external"
	outcomeError    = "error"
)

// seriesQuery holds the raw inputs of a time-series request.
type seriesQuery struct {
	Lat   float64 `validate:"gte=-90,lte=90"`
	Lon   float64 `validate:"gte=-180,lte=180"`
	Start string  `validate:"omitempty,datetime=2006-01-02"`
	End   string  `validate:"omitempty,datetime=2006-01-02"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func handleWelcome(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "NDVI and precipitation time series API. See /swagger/ for the API reference.",
	})
}

func (s *Server) handleTimeseries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	s.serveSeries(w, r, chi.URLParam(r, "source"), q.Get("lat"), q.Get("lon"), q.Get("start"), q.Get("end"))
}

// handleLegacy serves /{source}/{lat}/{lon}?data_inicio=&data_fim= for a fixed source.
func (s *Server) handleLegacy(source string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		s.serveSeries(w, r, source, chi.URLParam(r, "lat"), chi.URLParam(r, "lon"), q.Get("data_inicio"), q.Get("data_fim"))
	}
}

func (s *Server) serveSeries(w http.ResponseWriter, r *http.Request, source, lat, lon, start, end string) {
	src, req, err := parseRequest(source, lat, lon, start, end)
	if err != nil {
		s.writeError(w, source, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	traces, err := s.builder.Build(ctx, src, req)
	if err != nil {
		s.writeError(w, source, err)
		return
	}
	s.metrics.Requests.WithLabelValues(source, outcomeOK).Inc()
	writeJSON(w, http.StatusOK, traces)
}

func parseRequest(source, lat, lon, start, end string) (domain.Source, domain.ObservationRequest, error) {
	src, err := domain.LookupSource(source)
	if err != nil {
		return domain.Source{}, domain.ObservationRequest{}, err
	}

	q := seriesQuery{Start: start, End: end}
	if q.Lat, err = parseCoordinate("lat", lat); err != nil {
		return domain.Source{}, domain.ObservationRequest{}, err
	}
	if q.Lon, err = parseCoordinate("lon", lon); err != nil {
		return domain.Source{}, domain.ObservationRequest{}, err
	}
	if err := validate.Struct(q); err != nil {
		return domain.Source{}, domain.ObservationRequest{}, fmt.Errorf("%w: %s", domain.ErrInvalidRequest, describe(err))
	}

	req, err := domain.NewObservationRequest(src, q.Lat, q.Lon, q.Start, q.End)
	if err != nil {
		return domain.Source{}, domain.ObservationRequest{}, err
	}
	return src, req, nil
}

func parseCoordinate(name, raw string) (float64, error) {
	if raw == "" {
		return 0, fmt.Errorf("%w: %s is required", domain.ErrInvalidRequest, name)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q is not a number", domain.ErrInvalidRequest, name, raw)
	}
	return v, nil
}

// describe turns validator errors into a caller-facing message.
func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	switch fe.Field() {
	case "Lat":
		return "latitude must be between -90 and 90"
	case "Lon":
		return "longitude must be between -180 and 180"
	case "Start":
		return fmt.Sprintf("start date %q: expected YYYY-MM-DD", fe.Value())
	case "End":
		return fmt.Sprintf("end date %q: expected YYYY-MM-DD", fe.Value())
	}
	return fe.Error()
}

// writeError maps the domain error taxonomy onto status codes.
func (s *Server) writeError(w http.ResponseWriter, source string, err error) {
	var (
		status  int
		outcome string
		detail  string
	)
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		status, outcome, detail = http.StatusBadRequest, outcomeInvalid, err.Error()
	case errors.Is(err, domain.ErrNoData):
		status, outcome, detail = http.StatusNotFound, outcomeNoData, err.Error()
	case domain.IsExternal(err):
		status, outcome = http.StatusBadGateway, outcomeExternal
		detail = "error fetching data from reduction service: " + err.Error()
	default:
		status, outcome = http.StatusInternalServerError, outcomeError
		detail = "an unexpected error occurred: " + err.Error()
	}

	if _, lookupErr := domain.LookupSource(source); lookupErr != nil {
		source = "unknown"
	}
	s.metrics.Requests.WithLabelValues(source, outcome).Inc()

	if status >= http.StatusInternalServerError {
		s.logger.Error("series request failed", "source", source, "outcome", outcome, "error", err)
	} else {
		s.logger.Debug("series request rejected", "source", source, "outcome", outcome, "error", err)
	}
	writeJSON(w, status, errorResponse{Detail: detail})
}
