// Package api provides the HTTP API for FloodWatch.
package api

import (
	"context"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/floodwatch/floodwatch/internal/alert"
	"github.com/floodwatch/floodwatch/internal/api/handler"
	"github.com/floodwatch/floodwatch/internal/api/middleware"
	"github.com/floodwatch/floodwatch/internal/auth"
	"github.com/floodwatch/floodwatch/internal/contact"
	"github.com/floodwatch/floodwatch/internal/featureflags"
	"github.com/floodwatch/floodwatch/internal/provider/resilience"
	"github.com/floodwatch/floodwatch/internal/sensor"
	"github.com/floodwatch/floodwatch/internal/worker"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version   string
	BuildTime string
	Logger    zerolog.Logger
	Clock     clockwork.Clock

	// Metrics records HTTP metrics through OpenTelemetry. Optional.
	Metrics *middleware.Metrics
	// TracerProvider for request spans. Nil uses the global provider.
	TracerProvider trace.TracerProvider
	// Gatherer is exposed on /metrics. Optional.
	Gatherer prometheus.Gatherer

	// Tokens validates responder bearer tokens.
	Tokens     middleware.TokenValidator
	RequireTLS bool

	Manager            *worker.Manager
	Pipeline           *worker.Pipeline
	AlertService       *alert.Service
	SensorService      *sensor.Service
	Contacts           *contact.Resolver
	FeatureFlagService *featureflags.Service
	Registry           *resilience.Registry
	Subsystems         map[string]handler.Pinger
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware - order matters
	r.Use(middleware.RequestID)                   // Generate/propagate request ID first
	r.Use(middleware.Tracing(cfg.TracerProvider)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))         // Structured logging
	r.Use(middleware.Recovery(cfg.Logger))       // Panic recovery
	r.Use(chimiddleware.RealIP)                  // Real IP extraction
	r.Use(middleware.SecurityHeaders)            // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS(cfg.RequireTLS)) // TLS enforcement
	r.Use(middleware.ContentTypeJSON)            // JSON content type

	// Initialize handlers
	var degradations func(ctx context.Context) []string
	if cfg.FeatureFlagService != nil {
		degradations = cfg.FeatureFlagService.ActiveDegradations
	}
	var sessions handler.SessionCounter
	if cfg.Manager != nil {
		sessions = cfg.Manager
	}
	opsHandler := handler.NewOpsHandler(handler.OpsHandlerConfig{
		Version:          cfg.Version,
		BuildTime:        cfg.BuildTime,
		Registry:         cfg.Registry,
		Sessions:         sessions,
		Subsystems:       cfg.Subsystems,
		DegradationFlags: degradations,
		Clock:            cfg.Clock,
	})
	sessionHandler := handler.NewSessionHandler(handler.SessionHandlerConfig{
		Manager: cfg.Manager,
		Clock:   cfg.Clock,
		Logger:  cfg.Logger,
	})
	riskHandler := handler.NewRiskHandler(cfg.Pipeline)
	alertHandler := handler.NewAlertHandler(cfg.AlertService)
	contactHandler := handler.NewContactHandler(cfg.Contacts)
	sensorHandler := handler.NewSensorHandler(cfg.SensorService, cfg.AlertService)
	featureFlagsHandler := handler.NewFeatureFlagsHandler(cfg.FeatureFlagService)

	// Create auth middleware
	authMiddleware := middleware.Auth(cfg.Tokens)

	// Create rate limit middleware for different endpoint categories
	sessionRateLimit := middleware.RateLimitByIP(middleware.SessionRateLimit)     // 10 req/min
	expensiveRateLimit := middleware.RateLimitByIP(middleware.ExpensiveRateLimit) // 30 req/min
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit)   // 100 req/min
	responderRateLimit := middleware.RateLimitByResponder(middleware.StandardRateLimit)

	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	// API v1 routes
	r.Route("/v1", func(r chi.Router) {
		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.Get("/status", opsHandler.SystemStatus)
		})

		// Dashboard sessions (public) - creation is rate limited per IP
		r.Route("/sessions", func(r chi.Router) {
			r.With(sessionRateLimit).Post("/", sessionHandler.CreateSession)
			r.Route("/{sessionId}", func(r chi.Router) {
				r.Use(standardRateLimit)
				r.Get("/", sessionHandler.GetSession)
				r.Delete("/", sessionHandler.DeleteSession)
				r.Get("/snapshot", sessionHandler.GetSnapshot)
				r.Post("/refresh", sessionHandler.Refresh)
				r.Get("/report", sessionHandler.GetReport)
				r.Get("/stream", sessionHandler.Stream)
			})
		})

		// One-shot assessment - expensive compute
		r.With(expensiveRateLimit).Get("/risk", riskHandler.Assess)

		// Alerts - reads are public, writes need a responder token
		r.Route("/alerts", func(r chi.Router) {
			r.With(standardRateLimit).Get("/", alertHandler.ListAlerts)
			r.With(standardRateLimit).Get("/{alertId}", alertHandler.GetAlert)
			r.Group(func(r chi.Router) {
				r.Use(authMiddleware)
				r.Use(responderRateLimit)
				r.Use(middleware.RequireJSON)
				r.Post("/", alertHandler.CreateAlert)
				r.Post("/{alertId}:deactivate", alertHandler.DeactivateAlert)
			})
		})

		r.With(standardRateLimit).Get("/contacts", contactHandler.ListContacts)
		r.With(standardRateLimit).Get("/stats", sensorHandler.GetStats)

		r.Route("/sensors", func(r chi.Router) {
			r.With(standardRateLimit).Get("/", sensorHandler.ListSensors)
			r.With(authMiddleware, responderRateLimit, middleware.RequireJSON).
				Post("/{sensorId}/readings", sensorHandler.RecordReading)
		})

		// Admin endpoints (authenticated) - for internal operations
		r.Route("/admin", func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(middleware.RequireRole(auth.RoleAdmin))
			r.Use(responderRateLimit)

			// Feature flags management
			r.Route("/feature-flags", func(r chi.Router) {
				r.Get("/", featureFlagsHandler.ListFeatureFlags)
				r.With(middleware.RequireJSON).Put("/", featureFlagsHandler.UpsertFeatureFlags)
				r.Get("/history", featureFlagsHandler.FeatureFlagHistory)
				r.Post("/invalidate", featureFlagsHandler.InvalidateCache)
			})
		})
	})

	return r
}
