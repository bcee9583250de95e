package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windrider/windrider/internal/config"
)

var configKeys = []string{
	"APP_ENV", "APP_PORT", "REQUIRE_TLS", "STORAGE_BACKEND", "DB_RUN_MIGRATIONS",
	"JWT_SIGNING_KEY", "JWT_ISSUER", "JWT_AUDIENCE",
	"OPENWEATHERMAP_API_KEY", "OPENWEATHERMAP_BASE_URL",
	"WEATHER_CACHE_TTL", "ANALYSIS_FETCH_TIMEOUT",
	"OTEL_ENABLED", "OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_SAMPLE_RATIO",
	"PUBSUB_PROJECT_ID", "PUBSUB_SUBSCRIPTION", "WARMUP_CONCURRENCY",
}

// clearEnv blanks every variable the config reads so the host environment
// cannot leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configKeys {
		t.Setenv(k, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := config.FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, config.StorageMemory, cfg.StorageBackend)
	assert.False(t, cfg.RunMigrations)
	assert.True(t, cfg.UsesDefaultSigningKey())
	assert.Equal(t, "https://api.windrider.app", cfg.JWTIssuer)
	assert.Equal(t, "windrider-api", cfg.JWTAudience)
	assert.Equal(t, 10*time.Minute, cfg.WeatherCacheTTL)
	assert.Equal(t, 10*time.Second, cfg.AnalysisFetchTimeout)
	assert.Equal(t, 3, cfg.WarmupConcurrency)
	assert.Equal(t, "windrider-worker", cfg.PubSubSubscription)
	assert.False(t, cfg.OTelEnabled)
	assert.False(t, cfg.RequireTLS)
	assert.InDelta(t, 1.0, cfg.OTelSampleRatio, 1e-9)
}

func TestFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("STORAGE_BACKEND", "Postgres")
	t.Setenv("DB_RUN_MIGRATIONS", "true")
	t.Setenv("JWT_SIGNING_KEY", "prod-key")
	t.Setenv("WEATHER_CACHE_TTL", "5m")
	t.Setenv("WARMUP_CONCURRENCY", "8")
	t.Setenv("OTEL_ENABLED", "1")
	t.Setenv("REQUIRE_TLS", "true")

	cfg, err := config.FromEnv()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, config.StoragePostgres, cfg.StorageBackend)
	assert.True(t, cfg.RunMigrations)
	assert.Equal(t, "prod-key", cfg.JWTSigningKey)
	assert.False(t, cfg.UsesDefaultSigningKey())
	assert.Equal(t, 5*time.Minute, cfg.WeatherCacheTTL)
	assert.Equal(t, 8, cfg.WarmupConcurrency)
	assert.True(t, cfg.OTelEnabled)
	assert.True(t, cfg.RequireTLS)
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"unknown backend", map[string]string{"STORAGE_BACKEND": "redis"}, "STORAGE_BACKEND"},
		{"missing production key", map[string]string{"APP_ENV": "production"}, "JWT_SIGNING_KEY"},
		{"bad duration", map[string]string{"WEATHER_CACHE_TTL": "soon"}, "WEATHER_CACHE_TTL"},
		{"bad bool", map[string]string{"OTEL_ENABLED": "maybe"}, "OTEL_ENABLED"},
		{"sample ratio above one", map[string]string{"OTEL_SAMPLE_RATIO": "1.5"}, "OTEL_SAMPLE_RATIO"},
		{"sample ratio not a number", map[string]string{"OTEL_SAMPLE_RATIO": "half"}, "OTEL_SAMPLE_RATIO"},
		{"zero concurrency", map[string]string{"WARMUP_CONCURRENCY": "0"}, "WARMUP_CONCURRENCY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := config.FromEnv()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_PORT", "9000")
	// Set-but-empty counts as present for godotenv.
	require.NoError(t, os.Unsetenv("STORAGE_BACKEND"))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("APP_PORT=7000\nSTORAGE_BACKEND=postgres\n"), 0o600))

	require.NoError(t, config.LoadDotEnv(path))

	cfg, err := config.FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Port, "existing variables win over the file")
	assert.Equal(t, config.StoragePostgres, cfg.StorageBackend)
}

func TestLoadDotEnv_MissingFileIgnored(t *testing.T) {
	assert.NoError(t, config.LoadDotEnv(filepath.Join(t.TempDir(), "absent.env")))
}
