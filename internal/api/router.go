// Package api provides the HTTP API for WindRider.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/windrider/windrider/internal/analysis"
	"github.com/windrider/windrider/internal/api/handler"
	"github.com/windrider/windrider/internal/api/middleware"
	"github.com/windrider/windrider/internal/auth"
	"github.com/windrider/windrider/internal/provider/resilience"
	"github.com/windrider/windrider/internal/route"
	"github.com/windrider/windrider/internal/scoring"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version         string
	BuildTime       string
	Logger          zerolog.Logger
	ServiceName     string
	Metrics         *middleware.Metrics
	AuthService     *auth.Service
	RouteService    *route.Service
	ScoringService  *scoring.Service
	AnalysisService *analysis.Service
	Providers       *resilience.Registry
	ReadinessChecks []handler.DependencyCheck
	RequireTLS      bool
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Set default service name if not provided
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "windrider-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))   // Structured logging
	r.Use(middleware.Recovery(cfg.Logger)) // Panic recovery
	r.Use(chimiddleware.RealIP)            // Real IP extraction
	r.Use(middleware.SecurityHeaders)      // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS(cfg.RequireTLS))
	r.Use(middleware.ContentTypeJSON)      // JSON content type

	// Initialize handlers
	opsHandler := handler.NewOpsHandler(handler.OpsHandlerConfig{
		Version:   cfg.Version,
		BuildTime: cfg.BuildTime,
		Providers: cfg.Providers,
		Checks:    cfg.ReadinessChecks,
	})
	authHandler := handler.NewAuthHandler(cfg.AuthService)
	routeHandler := handler.NewRouteHandler(cfg.RouteService)
	analysisHandler := handler.NewAnalysisHandler(cfg.AnalysisService)
	scoringHandler := handler.NewScoringHandler(cfg.ScoringService)

	authMiddleware := middleware.Auth(cfg.AuthService)

	// Rate limits per endpoint category: auth by IP, the rest by device
	authRateLimit := middleware.RateLimitByIP(middleware.AuthRateLimit)
	weatherRateLimit := middleware.RateLimitByDevice(middleware.ExpensiveRateLimit)
	standardRateLimit := middleware.RateLimitByDevice(middleware.StandardRateLimit)
	requireJSON := middleware.RequireJSON
	requireGPX := middleware.RequireContentType(middleware.GPXMediaTypes...)

	r.Route("/v1", func(r chi.Router) {
		// Device auth (public) - strict rate limiting
		r.Route("/auth", func(r chi.Router) {
			r.Use(authRateLimit)
			r.Use(requireJSON)
			r.Post("/device", authHandler.RegisterDevice)
			r.Post("/refresh", authHandler.RefreshToken)
		})

		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			// Status endpoint requires authentication
			r.With(authMiddleware).Get("/status", opsHandler.SystemStatus)
		})

		// Everything below is scoped to the authenticated device
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(standardRateLimit)

			r.With(requireGPX).Post("/routes:import-gpx", routeHandler.ImportGPX)
			r.With(requireJSON).Post("/analysis:preview", analysisHandler.PreviewAnalysis)

			r.Route("/routes", func(r chi.Router) {
				r.Get("/", routeHandler.ListRoutes)
				r.With(requireJSON).Post("/", routeHandler.CreateRoute)

				r.Route("/{routeId}", func(r chi.Router) {
					r.Get("/", routeHandler.GetRoute)
					r.With(requireJSON).Put("/", routeHandler.UpdateRoute)
					r.Delete("/", routeHandler.DeleteRoute)
					r.Get("/stats", routeHandler.GetRouteStats)

					// Analysis fetches live weather - stricter limit
					r.With(weatherRateLimit).Post("/analysis", analysisHandler.AnalyzeRoute)
				})
			})

			r.Route("/me", func(r chi.Router) {
				r.Get("/analysis/latest", analysisHandler.GetLatestAnalysis)
				r.Delete("/analysis", analysisHandler.ClearAnalysis)

				r.Route("/scoring-configuration", func(r chi.Router) {
					r.Get("/", scoringHandler.GetScoringConfiguration)
					r.With(requireJSON).Put("/", scoringHandler.PutScoringConfiguration)
					r.Delete("/", scoringHandler.DeleteScoringConfiguration)
				})
			})
		})
	})

	return r
}
