package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

// Reducer backends.
const (
	ReducerRemote  = "remote"
	ReducerFixture = "fixture"
)

// DefaultReductionScope is the OAuth scope requested for service-account credentials.
const DefaultReductionScope = "https://www.googleapis.com/auth/earthengine.readonly"

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	RequestTimeout  time.Duration

	CORSAllowedOrigins []string

	// Zonal reduction backend.
	Reducer                  string
	ReductionURL             string
	ReductionTimeout         time.Duration
	ReductionCredentialsFile string
	ReductionScope           string
	FixturePath              string

	// Optional event publication. Empty brokers disables it.
	KafkaBrokers []string
	KafkaTopic   string
}

// PublishEnabled reports whether series events should be written to Kafka.
func (c *Config) PublishEnabled() bool { return len(c.KafkaBrokers) > 0 }

// Load reads configuration from environment variables, applying defaults where
// unset. A .env file in the working directory is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}
	requestTimeout, err := parseDuration("REQUEST_TIMEOUT", "90s")
	if err != nil {
		return nil, err
	}
	reductionTimeout, err := parseDuration("REDUCTION_TIMEOUT", "60s")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		RequestTimeout:  requestTimeout,

		CORSAllowedOrigins: splitList(sharedcfg.EnvOrDefault("CORS_ALLOWED_ORIGINS", "*")),

		Reducer:                  strings.ToLower(sharedcfg.EnvOrDefault("REDUCER", ReducerRemote)),
		ReductionURL:             os.Getenv("REDUCTION_URL"),
		ReductionTimeout:         reductionTimeout,
		ReductionCredentialsFile: os.Getenv("REDUCTION_CREDENTIALS_FILE"),
		ReductionScope:           sharedcfg.EnvOrDefault("REDUCTION_SCOPE", DefaultReductionScope),
		FixturePath:              os.Getenv("FIXTURE_PATH"),

		KafkaTopic: sharedcfg.EnvOrDefault("KAFKA_TOPIC", "ndvi-timeseries"),
	}
	if brokers := strings.TrimSpace(os.Getenv("KAFKA_BROKERS")); brokers != "" {
		cfg.KafkaBrokers = sharedcfg.ParseBrokers(brokers)
	}

	switch cfg.Reducer {
	case ReducerRemote:
		if cfg.ReductionURL == "" {
			return nil, errors.New("REDUCTION_URL is required when REDUCER is remote")
		}
	case ReducerFixture:
		if cfg.FixturePath == "" {
			return nil, errors.New("FIXTURE_PATH is required when REDUCER is fixture")
		}
	default:
		return nil, fmt.Errorf("invalid REDUCER %q: expected %s or %s", cfg.Reducer, ReducerRemote, ReducerFixture)
	}
	if cfg.PublishEnabled() && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		return nil, errors.New("CORS_ALLOWED_ORIGINS must list at least one origin")
	}

	return cfg, nil
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
