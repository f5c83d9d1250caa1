package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime settings. Values come from the environment with an
// optional .env file for local development.
type Config struct {
	Environment string
	HTTPAddr    string
	DatabaseURL string

	// WebhookSecret is the shared secret used to verify payment processor
	// signatures. Ingestion refuses to start without it.
	WebhookSecret string

	// AdminAPIKey guards the administrative endpoints.
	AdminAPIKey string

	WebhookRateLimit  int
	WebhookRateWindow time.Duration

	ReplayBatchSize    int
	ReplayPollInterval time.Duration

	TracingEnabled          bool
	TracingExporterEndpoint string
	TracingExporterProtocol string
	TracingSamplingRatio    float64

	ServiceName    string
	ServiceVersion string
}

var ErrMissingWebhookSecret = errors.New("missing_webhook_secret")

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Environment:             envString("ENVIRONMENT", "development"),
		HTTPAddr:                envString("HTTP_ADDR", ":8080"),
		DatabaseURL:             envString("DATABASE_URL", ""),
		WebhookSecret:           envString("WEBHOOK_SECRET", ""),
		AdminAPIKey:             envString("ADMIN_API_KEY", ""),
		WebhookRateLimit:        envInt("WEBHOOK_RATE_LIMIT", 120),
		WebhookRateWindow:       envDuration("WEBHOOK_RATE_WINDOW", time.Minute),
		ReplayBatchSize:         envInt("REPLAY_BATCH_SIZE", 50),
		ReplayPollInterval:      envDuration("REPLAY_POLL_INTERVAL", 15*time.Second),
		TracingEnabled:          envBool("TRACING_ENABLED", false),
		TracingExporterEndpoint: envString("TRACING_EXPORTER_ENDPOINT", ""),
		TracingExporterProtocol: envString("TRACING_EXPORTER_PROTOCOL", "grpc"),
		TracingSamplingRatio:    envFloat("TRACING_SAMPLING_RATIO", 0.1),
		ServiceName:             envString("SERVICE_NAME", "meridian"),
		ServiceVersion:          envString("SERVICE_VERSION", "dev"),
	}

	if cfg.WebhookSecret == "" && cfg.Environment == "production" {
		return cfg, ErrMissingWebhookSecret
	}

	return cfg, nil
}

// IsProduction reports whether the process runs with production settings.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

func envString(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envFloat(key string, fallback float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func envBool(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envDuration(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}
