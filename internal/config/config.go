// Package config loads WindRider process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// StorageBackend selects where routes and scoring configurations are kept.
type StorageBackend string

const (
	StorageMemory   StorageBackend = "memory"
	StoragePostgres StorageBackend = "postgres"
)

// DevelopmentSigningKey is used when JWT_SIGNING_KEY is unset outside production.
const DevelopmentSigningKey = "local-dev-signing-key-change-in-production"

// Config holds process configuration shared by the API and the worker.
type Config struct {
	Env        string
	Port       string
	RequireTLS bool

	StorageBackend StorageBackend
	RunMigrations  bool

	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string

	OpenWeatherMapAPIKey  string
	OpenWeatherMapBaseURL string
	WeatherCacheTTL       time.Duration
	AnalysisFetchTimeout  time.Duration

	OTelEnabled     bool
	OTLPEndpoint    string
	OTelSampleRatio float64

	PubSubProjectID    string
	PubSubSubscription string
	WarmupConcurrency  int
}

// IsProduction reports whether the process runs in production.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// UsesDefaultSigningKey reports whether tokens are signed with the
// development key.
func (c Config) UsesDefaultSigningKey() bool {
	return c.JWTSigningKey == DevelopmentSigningKey
}

// LoadDotEnv loads variables from the given .env files (".env" when none are
// given) without overriding variables already set. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return nil
}

// FromEnv builds a Config from environment variables.
func FromEnv() (Config, error) {
	var errs []error

	cfg := Config{
		Env:                   getEnvOrDefault("APP_ENV", "development"),
		Port:                  getEnvOrDefault("APP_PORT", "8080"),
		StorageBackend:        StorageBackend(strings.ToLower(getEnvOrDefault("STORAGE_BACKEND", string(StorageMemory)))),
		JWTSigningKey:         os.Getenv("JWT_SIGNING_KEY"),
		JWTIssuer:             getEnvOrDefault("JWT_ISSUER", "https://api.windrider.app"),
		JWTAudience:           getEnvOrDefault("JWT_AUDIENCE", "windrider-api"),
		OpenWeatherMapAPIKey:  os.Getenv("OPENWEATHERMAP_API_KEY"),
		OpenWeatherMapBaseURL: os.Getenv("OPENWEATHERMAP_BASE_URL"),
		OTLPEndpoint:          getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		PubSubProjectID:       os.Getenv("PUBSUB_PROJECT_ID"),
		PubSubSubscription:    getEnvOrDefault("PUBSUB_SUBSCRIPTION", "windrider-worker"),
	}

	switch cfg.StorageBackend {
	case StorageMemory, StoragePostgres:
	default:
		errs = append(errs, fmt.Errorf("STORAGE_BACKEND: unknown backend %q", cfg.StorageBackend))
	}

	if cfg.JWTSigningKey == "" {
		if cfg.IsProduction() {
			errs = append(errs, errors.New("JWT_SIGNING_KEY: required in production"))
		}
		cfg.JWTSigningKey = DevelopmentSigningKey
	}

	cfg.RunMigrations = parseBool("DB_RUN_MIGRATIONS", false, &errs)
	cfg.OTelEnabled = parseBool("OTEL_ENABLED", false, &errs)
	cfg.RequireTLS = parseBool("REQUIRE_TLS", false, &errs)
	cfg.OTelSampleRatio = parseFloat("OTEL_SAMPLE_RATIO", 1, &errs)
	if cfg.OTelSampleRatio < 0 || cfg.OTelSampleRatio > 1 {
		errs = append(errs, errors.New("OTEL_SAMPLE_RATIO: must be between 0 and 1"))
	}
	cfg.WeatherCacheTTL = parseDuration("WEATHER_CACHE_TTL", 10*time.Minute, &errs)
	cfg.AnalysisFetchTimeout = parseDuration("ANALYSIS_FETCH_TIMEOUT", 10*time.Second, &errs)
	cfg.WarmupConcurrency = parseInt("WARMUP_CONCURRENCY", 3, &errs)
	if cfg.WarmupConcurrency < 1 {
		errs = append(errs, errors.New("WARMUP_CONCURRENCY: must be at least 1"))
	}

	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func parseBool(key string, def bool, errs *[]error) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return v
}

func parseDuration(key string, def time.Duration, errs *[]error) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return v
}

func parseInt(key string, def int, errs *[]error) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return v
}

func parseFloat(key string, def float64, errs *[]error) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return v
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
