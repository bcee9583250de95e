// Package main provides the entrypoint for the WindRider background worker.
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/windrider/windrider/internal/config"
	"github.com/windrider/windrider/internal/database"
	"github.com/windrider/windrider/internal/provider/resilience"
	"github.com/windrider/windrider/internal/route"
	"github.com/windrider/windrider/internal/telemetry"
	"github.com/windrider/windrider/internal/weather"
	"github.com/windrider/windrider/internal/weather/openweathermap"
	"github.com/windrider/windrider/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "windrider-worker"

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting WindRider worker")

	if err := config.LoadDotEnv(); err != nil {
		log.Warn().Err(err).Msg("ignoring unreadable .env file")
	}
	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Env,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.OTelEnabled,
		SampleRatio:    cfg.OTelSampleRatio,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	// Routes are only shared with the API through PostgreSQL
	var routes worker.RouteLister
	if cfg.StorageBackend == config.StoragePostgres {
		pool, err := database.Connect(ctx, database.ConfigFromEnv(), log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()
		routes = route.NewPostgresRepository(pool)
	} else {
		log.Warn().Msg("in-memory storage has no shared routes - weather warm-up only covers the health check point")
	}

	providers := resilience.NewRegistry()
	provider := openweathermap.NewClient(openweathermap.ClientConfig{
		APIKey:  cfg.OpenWeatherMapAPIKey,
		BaseURL: cfg.OpenWeatherMapBaseURL,
		HTTPClient: resilience.NewClient(resilience.ClientConfig{
			Name:     openweathermap.ProviderName,
			Registry: providers,
			Logger:   log,
		}),
		Logger: log,
	})
	providerMetrics, err := telemetry.NewProviderMetrics(provider.Name())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize provider metrics")
	}
	weatherService := weather.NewService(weather.ServiceConfig{
		Provider: provider,
		Logger:   log,
		CacheTTL: cfg.WeatherCacheTTL,
		Metrics:  providerMetrics,
	})

	refreshConfig := worker.DefaultRefreshConfig()
	refreshConfig.Concurrency = cfg.WarmupConcurrency
	refreshJob := worker.NewRefreshJob(worker.RefreshJobConfig{
		Config:  refreshConfig,
		Logger:  log,
		Routes:  routes,
		Weather: weatherService,
	})

	// Worker also exposes a health endpoint for Cloud Run
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":        "healthy",
			"version":       Version,
			"refresh":       refreshJob.Metrics(),
			"providers":     providers.All(),
			"weather_cache": weatherService.Stats(),
		})
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health check server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("health server error")
		}
	}()

	if cfg.PubSubProjectID != "" {
		handler, err := worker.NewPubSubHandler(ctx, worker.PubSubConfig{
			ProjectID:        cfg.PubSubProjectID,
			SubscriptionName: cfg.PubSubSubscription,
			RefreshJob:       refreshJob,
			Logger:           log,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create pubsub handler")
		}
		defer handler.Close()

		go func() {
			if err := handler.Start(ctx); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("pubsub handler stopped")
			}
		}()
	} else {
		log.Warn().Msg("PUBSUB_PROJECT_ID not set - no jobs will be received")
	}

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down worker")
	cancel()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("worker stopped")
}
