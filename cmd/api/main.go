// Package main provides the entrypoint for the FloodWatch API server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/floodwatch/floodwatch/internal/api"
	"github.com/floodwatch/floodwatch/internal/api/middleware"
	"github.com/floodwatch/floodwatch/internal/app"
	"github.com/floodwatch/floodwatch/internal/auth"
	"github.com/floodwatch/floodwatch/internal/config"
	"github.com/floodwatch/floodwatch/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "floodwatch-api"

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file loaded")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	log.Info().
		Str("build_time", BuildTime).
		Str("environment", cfg.Environment).
		Msg("starting FloodWatch API")

	ctx := context.Background()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.OTelEnabled,
		SampleRatio:    cfg.OTelSampleRatio,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if tp.Enabled() {
		log.Info().
			Str("otlp_endpoint", cfg.OTLPEndpoint).
			Msg("OpenTelemetry initialized")
	}

	// HTTP metrics go through the global meter provider.
	metrics, err := middleware.NewMetrics(nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}

	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("failed to build application")
		os.Exit(1)
	}
	defer a.Close()

	manager := a.NewManager()
	defer manager.Close()

	signingKey := cfg.JWTSigningKey
	if signingKey == "" {
		if cfg.IsProduction() {
			log.Error().Msg("JWT_SIGNING_KEY is required in production")
			os.Exit(1)
		}
		signingKey = "local-dev-signing-key-change-in-production"
		log.Warn().Msg("using default JWT signing key - not secure for production")
	}
	tokens := auth.NewTokenService(auth.TokenConfig{
		SigningKey: signingKey,
		Issuer:     cfg.JWTIssuer,
		Audience:   cfg.JWTAudience,
		Clock:      a.Clock,
	})

	routerCfg := api.RouterConfig{
		Version:            Version,
		BuildTime:          BuildTime,
		Logger:             log,
		Clock:              a.Clock,
		Metrics:            metrics,
		Gatherer:           a.Registry,
		Tokens:             tokens,
		RequireTLS:         cfg.RequireTLS,
		Manager:            manager,
		Pipeline:           a.Pipeline,
		AlertService:       a.Alerts,
		SensorService:      a.Sensors,
		Contacts:           a.Contacts,
		FeatureFlagService: a.Flags,
		Registry:           a.Providers,
		Subsystems:         a.Subsystems,
	}
	if tp.Enabled() {
		routerCfg.TracerProvider = tp.TracerProvider
	}
	router := api.NewRouter(routerCfg)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("port", cfg.Port).
			Msg("HTTP server listening")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().
		Str("signal", sig.String()).
		Msg("shutting down server")

	// Stop refresh loops before draining connections so streams close cleanly.
	manager.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
