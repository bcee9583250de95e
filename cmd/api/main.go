// Package main provides the entrypoint for the WindRider API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/windrider/windrider/internal/analysis"
	"github.com/windrider/windrider/internal/api"
	"github.com/windrider/windrider/internal/api/handler"
	"github.com/windrider/windrider/internal/api/middleware"
	"github.com/windrider/windrider/internal/auth"
	"github.com/windrider/windrider/internal/config"
	"github.com/windrider/windrider/internal/database"
	"github.com/windrider/windrider/internal/provider/resilience"
	"github.com/windrider/windrider/internal/route"
	"github.com/windrider/windrider/internal/scoring"
	"github.com/windrider/windrider/internal/telemetry"
	"github.com/windrider/windrider/internal/weather"
	"github.com/windrider/windrider/internal/weather/openweathermap"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const serviceName = "windrider-api"

func main() {
	log := zerolog.New(os.Stdout).With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	if err := run(log); err != nil {
		log.Fatal().Err(err).Msg("api stopped with error")
	}
	log.Info().Msg("server stopped")
}

func run(log zerolog.Logger) error {
	log.Info().Str("build_time", BuildTime).Msg("starting WindRider API")

	if err := config.LoadDotEnv(); err != nil {
		log.Warn().Err(err).Msg("ignoring unreadable .env file")
	}
	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Env,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.OTelEnabled,
		SampleRatio:    cfg.OTelSampleRatio,
	})
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(flushCtx); err != nil {
			log.Error().Err(err).Msg("telemetry shutdown failed")
		}
	}()
	if cfg.OTelEnabled {
		log.Info().Str("otlp_endpoint", cfg.OTLPEndpoint).Msg("exporting telemetry")
	}

	metrics, err := middleware.NewMetrics()
	if err != nil {
		return fmt.Errorf("initializing http metrics: %w", err)
	}

	var (
		routeRepo   route.Repository
		scoringRepo scoring.Repository
		checks      []handler.DependencyCheck
	)
	if cfg.StorageBackend == config.StoragePostgres {
		pool, err := connectDatabase(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer pool.Close()

		routeRepo = route.NewPostgresRepository(pool)
		scoringRepo = scoring.NewPostgresRepository(pool)
		checks = append(checks, handler.DependencyCheck{Name: "postgres", Check: pool.Ping})
	} else {
		routeRepo = route.NewInMemoryRepository()
		scoringRepo = scoring.NewInMemoryRepository()
		log.Warn().Msg("using in-memory storage - routes are lost on restart")
	}

	providers := resilience.NewRegistry()
	weatherService, err := newWeatherService(cfg, providers, log)
	if err != nil {
		return fmt.Errorf("initializing weather service: %w", err)
	}

	if cfg.UsesDefaultSigningKey() {
		log.Warn().Msg("using default JWT signing key - not secure for production")
	}
	authService := auth.NewService(auth.ServiceConfig{
		JWTService: auth.NewJWTService(auth.JWTConfig{
			SigningKey: cfg.JWTSigningKey,
			Issuer:     cfg.JWTIssuer,
			Audience:   cfg.JWTAudience,
		}),
		Logger: log,
	})

	routeService := route.NewService(routeRepo)
	scoringService := scoring.NewService(scoring.ServiceConfig{
		Repository: scoringRepo,
		Logger:     log,
		CacheTTL:   time.Minute,
	})
	analysisService, err := analysis.NewService(analysis.ServiceConfig{
		Weather:      weatherService,
		Routes:       routeService,
		Scoring:      scoringService,
		Logger:       log,
		FetchTimeout: cfg.AnalysisFetchTimeout,
	})
	if err != nil {
		return fmt.Errorf("initializing analysis service: %w", err)
	}
	// Background analyses publish after the HTTP server has drained.
	defer analysisService.Wait()

	server := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: api.NewRouter(api.RouterConfig{
			Version:         Version,
			BuildTime:       BuildTime,
			Logger:          log,
			ServiceName:     serviceName,
			Metrics:         metrics,
			AuthService:     authService,
			RouteService:    routeService,
			ScoringService:  scoringService,
			AnalysisService: analysisService,
			Providers:       providers,
			ReadinessChecks: checks,
			RequireTLS:      cfg.RequireTLS,
		}),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return serve(ctx, server, log)
}

// serve runs the server until ctx is cancelled, then drains in-flight
// requests for up to 30 seconds.
func serve(ctx context.Context, server *http.Server, log zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("server listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listening: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server")
	drainCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(drainCtx); err != nil {
		return fmt.Errorf("draining server: %w", err)
	}
	return nil
}

func connectDatabase(ctx context.Context, cfg config.Config, log zerolog.Logger) (*pgxpool.Pool, error) {
	pool, err := database.Connect(ctx, database.ConfigFromEnv(), log)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	log.Info().
		Str("database", pool.Config().ConnConfig.Database).
		Str("host", pool.Config().ConnConfig.Host).
		Msg("database connected")

	if cfg.RunMigrations {
		if err := database.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrating database: %w", err)
		}
		log.Info().Msg("database schema applied")
	}
	return pool, nil
}

func newWeatherService(cfg config.Config, providers *resilience.Registry, log zerolog.Logger) (*weather.Service, error) {
	if cfg.OpenWeatherMapAPIKey == "" {
		log.Warn().Msg("no OpenWeatherMap API key - analyses will report wind unavailable")
	}

	provider := openweathermap.NewClient(openweathermap.ClientConfig{
		APIKey:  cfg.OpenWeatherMapAPIKey,
		BaseURL: cfg.OpenWeatherMapBaseURL,
		HTTPClient: resilience.NewClient(resilience.ClientConfig{
			Name:     openweathermap.ProviderName,
			Timeout:  5 * time.Second,
			Registry: providers,
			Logger:   log,
		}),
		Logger: log,
	})

	providerMetrics, err := telemetry.NewProviderMetrics(provider.Name())
	if err != nil {
		return nil, err
	}

	return weather.NewService(weather.ServiceConfig{
		Provider: provider,
		Logger:   log,
		CacheTTL: cfg.WeatherCacheTTL,
		Metrics:  providerMetrics,
	}), nil
}
