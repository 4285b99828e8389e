package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/ndvi-timeseries-service/internal/adapter/http"
	"github.com/couchcryptid/ndvi-timeseries-service/internal/adapter/fixture"
	kafkaadapter "github.com/couchcryptid/ndvi-timeseries-service/internal/adapter/kafka"
	"github.com/couchcryptid/ndvi-timeseries-service/internal/adapter/reduction"
	"github.com/couchcryptid/ndvi-timeseries-service/internal/config"
	"github.com/couchcryptid/ndvi-timeseries-service/internal/domain"
	"github.com/couchcryptid/ndvi-timeseries-service/internal/observability"
	"github.com/couchcryptid/ndvi-timeseries-service/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reducer, err := newReducer(ctx, cfg, metrics, logger)
	if err != nil {
		logger.Error("failed to initialize reducer", "reducer", cfg.Reducer, "error", err)
		os.Exit(1)
	}

	// Event publication is feature-flagged via KAFKA_BROKERS.
	var (
		publisher pipeline.Publisher
		writer    *kafkaadapter.Publisher
	)
	if cfg.PublishEnabled() {
		writer = kafkaadapter.NewPublisher(cfg, logger)
		publisher = writer
		logger.Info("series event publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	} else {
		logger.Info("series event publishing disabled")
	}

	svc := pipeline.New(reducer, publisher, logger, metrics)
	srv := httpadapter.NewServer(cfg, svc, svc, metrics, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

func newReducer(ctx context.Context, cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) (domain.ZonalReducer, error) {
	switch cfg.Reducer {
	case config.ReducerFixture:
		r, err := fixture.Load(cfg.FixturePath)
		if err != nil {
			return nil, err
		}
		logger.Info("using fixture reducer", "path", cfg.FixturePath)
		return r, nil
	case config.ReducerRemote:
		httpClient, err := reduction.NewHTTPClient(ctx, cfg.ReductionCredentialsFile, cfg.ReductionScope, cfg.ReductionTimeout)
		if err != nil {
			return nil, err
		}
		logger.Info("using remote reducer", "url", cfg.ReductionURL, "timeout", cfg.ReductionTimeout,
			"authenticated", cfg.ReductionCredentialsFile != "")
		return reduction.NewClient(cfg.ReductionURL, httpClient, metrics, logger), nil
	default:
		return nil, fmt.Errorf("unsupported reducer %q", cfg.Reducer)
	}
}
