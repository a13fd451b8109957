// Package main provides the entrypoint for the FloodWatch monitor worker.
// It assesses a fixed set of coordinates on an interval and publishes the
// snapshots to Kafka when brokers are configured.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/floodwatch/floodwatch/internal/api/response"
	"github.com/floodwatch/floodwatch/internal/app"
	"github.com/floodwatch/floodwatch/internal/config"
	"github.com/floodwatch/floodwatch/internal/publish"
	"github.com/floodwatch/floodwatch/internal/telemetry"
	"github.com/floodwatch/floodwatch/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "floodwatch-worker"

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
		Msg("starting FloodWatch worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("failed to build application")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}
	defer a.Close()

	monitorCfg := worker.DefaultMonitorConfig()
	if targets := worker.ConfiguredTargets(cfg.MonitoredCoordinates); targets != nil {
		monitorCfg.Targets = targets
	}

	var sink worker.Sink
	if cfg.KafkaEnabled() {
		kafkaSink := publish.NewKafkaSink(publish.KafkaConfig{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaTopic,
			Clock:   a.Clock,
			Logger:  log.With().Str("component", "kafka").Logger(),
		})
		defer func() {
			if err := kafkaSink.Close(); err != nil {
				log.Error().Err(err).Msg("kafka writer close error")
			}
		}()
		sink = kafkaSink
		log.Info().
			Strs("brokers", cfg.KafkaBrokers).
			Str("topic", cfg.KafkaTopic).
			Msg("publishing snapshots to kafka")
	} else {
		log.Warn().Msg("KAFKA_BROKERS unset, snapshots are only logged")
	}

	job := worker.NewMonitorJob(worker.MonitorJobConfig{
		Config:   monitorCfg,
		Pipeline: a.Pipeline,
		Sink:     sink,
		Clock:    a.Clock,
		Logger:   log.With().Str("component", "monitor").Logger(),
		Metrics:  a.Metrics,
	})

	// Worker exposes a health endpoint for the platform probe.
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, map[string]interface{}{
			"status":  "healthy",
			"version": Version,
			"monitor": job.StatsSnapshot(),
		})
	})
	r.Handle("/metrics", promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:         ":" + cfg.WorkerHealthPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.WorkerHealthPort).Msg("health server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("health server error")
		}
	}()

	ticker := a.Clock.NewTicker(cfg.MonitorInterval)
	defer ticker.Stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		runMonitor(ctx, job, ticker.Chan(), log)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("shutting down worker")
	cancel()
	<-done

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("worker stopped")
}

// runMonitor assesses once at start and then on every tick until ctx ends.
func runMonitor(ctx context.Context, job *worker.MonitorJob, ticks <-chan time.Time, log zerolog.Logger) {
	for {
		result := job.Run(ctx)
		if result.SinkErr != nil {
			log.Error().Err(result.SinkErr).Msg("publishing snapshots failed")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticks:
		}
	}
}
