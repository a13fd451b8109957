// Package app assembles the flood assessment components shared by the API
// server and the headless worker.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/floodwatch/floodwatch/internal/alert"
	"github.com/floodwatch/floodwatch/internal/api/handler"
	"github.com/floodwatch/floodwatch/internal/changefeed"
	"github.com/floodwatch/floodwatch/internal/config"
	"github.com/floodwatch/floodwatch/internal/contact"
	"github.com/floodwatch/floodwatch/internal/database"
	"github.com/floodwatch/floodwatch/internal/featureflags"
	"github.com/floodwatch/floodwatch/internal/geo"
	"github.com/floodwatch/floodwatch/internal/geo/nominatim"
	"github.com/floodwatch/floodwatch/internal/provider/resilience"
	"github.com/floodwatch/floodwatch/internal/risk"
	"github.com/floodwatch/floodwatch/internal/sensor"
	"github.com/floodwatch/floodwatch/internal/worker"
)

// App holds the wired components. Close releases them in reverse order.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	Clock  clockwork.Clock

	Registry   *prometheus.Registry
	Metrics    *worker.Metrics
	Providers  *resilience.Registry
	Changes    changefeed.Source
	Publisher  changefeed.Publisher
	Flags      *featureflags.Service
	Alerts     *alert.Service
	Sensors    *sensor.Service
	Contacts   *contact.Resolver
	Regions    *geo.Resolver
	Pipeline   *worker.Pipeline
	Subsystems map[string]handler.Pinger

	pool    *pgxpool.Pool
	redis   *redis.Client
	closers []func() error
}

// Build connects storage and the change feed and assembles the pipeline.
// On error everything opened so far is closed.
func Build(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (_ *App, err error) {
	a := &App{
		Config:     cfg,
		Logger:     logger,
		Clock:      clockwork.NewRealClock(),
		Registry:   prometheus.NewRegistry(),
		Providers:  resilience.NewRegistry(),
		Subsystems: make(map[string]handler.Pinger),
	}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	a.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.Metrics = worker.NewMetrics(a.Registry)

	if err := a.openChangefeed(ctx); err != nil {
		return nil, err
	}

	alertRepo, sensorRepo, contactRepo, flagRepo, err := a.openRepositories(ctx)
	if err != nil {
		return nil, err
	}

	a.Flags = featureflags.NewService(featureflags.ServiceConfig{
		Repository: flagRepo,
		Logger:     logger.With().Str("component", "featureflags").Logger(),
		Clock:      a.Clock,
	})
	a.Alerts = alert.NewService(alert.ServiceConfig{
		Repository: alertRepo,
		Publisher:  a.Publisher,
		Logger:     logger.With().Str("component", "alerts").Logger(),
		Clock:      a.Clock,
	})
	a.Sensors = sensor.NewService(sensor.ServiceConfig{
		Repository: sensorRepo,
		Publisher:  a.Publisher,
		Logger:     logger.With().Str("component", "sensors").Logger(),
		Clock:      a.Clock,
	})
	a.Contacts = contact.NewResolver(contact.ResolverConfig{
		Repository: contactRepo,
		Logger:     logger.With().Str("component", "contacts").Logger(),
	})

	if cfg.SeedDirectory {
		if err := a.seed(ctx, contactRepo); err != nil {
			return nil, err
		}
	}

	httpCfg := resilience.DefaultClientConfig("nominatim")
	httpCfg.Timeout = cfg.GeocoderTimeout
	httpCfg.UserAgent = cfg.GeocoderUserAgent
	httpCfg.Registry = a.Providers
	geocoder := nominatim.NewClient(nominatim.ClientConfig{
		BaseURL:    cfg.GeocoderBaseURL,
		HTTPClient: resilience.NewClient(httpCfg),
		Logger:     logger.With().Str("provider", "nominatim").Logger(),
	})

	a.Regions = geo.NewResolver(geo.ResolverConfig{
		Geocoder: geocoder,
		Logger:   logger.With().Str("component", "regions").Logger(),
		Timeout:  cfg.GeocoderTimeout,
		Clock:    a.Clock,
		Toggles:  a.Flags,
	})

	a.Pipeline = worker.NewPipeline(worker.PipelineConfig{
		Regions:  a.Regions,
		Alerts:   a.Alerts,
		Readings: a.Sensors,
		Contacts: a.Contacts,
		Estimator: risk.NewEstimator(risk.EstimatorConfig{
			Clock:     a.Clock,
			Staleness: cfg.SensorStaleness,
			Toggles:   a.Flags,
			Logger:    logger.With().Str("component", "estimator").Logger(),
		}),
		Aggregator: alert.NewAggregator(alert.AggregatorConfig{
			Toggles: a.Flags,
			Logger:  logger.With().Str("component", "aggregator").Logger(),
		}),
		Clock:   a.Clock,
		Logger:  logger.With().Str("component", "pipeline").Logger(),
		Metrics: a.Metrics,
	})

	return a, nil
}

// NewManager returns a session manager whose schedulers use the app pipeline
// and change feed.
func (a *App) NewManager() *worker.Manager {
	return worker.NewManager(worker.ManagerConfig{
		Factory: func(locator geo.Locator, logger zerolog.Logger) *worker.Scheduler {
			return worker.NewScheduler(worker.SchedulerConfig{
				Pipeline:    a.Pipeline,
				Locator:     locator,
				Changes:     a.Changes,
				Interval:    a.Config.RefreshInterval,
				Intervals:   a.Flags,
				PassTimeout: a.Config.PassTimeout,
				Clock:       a.Clock,
				Logger:      logger,
				Metrics:     a.Metrics,
			})
		},
		Logger:  a.Logger.With().Str("component", "sessions").Logger(),
		Metrics: a.Metrics,
	})
}

// Close releases connections opened by Build.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Logger.Warn().Err(err).Msg("error closing component")
		}
	}
	a.closers = nil
}

func (a *App) openChangefeed(ctx context.Context) error {
	cfg := a.Config
	logger := a.Logger.With().Str("component", "changefeed").Str("backend", cfg.Changefeed).Logger()

	switch cfg.Changefeed {
	case config.ChangefeedPubSub:
		src, err := changefeed.NewPubSubSource(ctx, changefeed.PubSubConfig{
			ProjectID:        cfg.PubSubProjectID,
			SubscriptionName: cfg.PubSubSubscription,
			TopicName:        cfg.PubSubTopic,
			Logger:           logger,
		})
		if err != nil {
			return fmt.Errorf("pubsub change source: %w", err)
		}
		a.closers = append(a.closers, src.Close)

		recvCtx, cancel := context.WithCancel(context.Background())
		a.closers = append(a.closers, func() error { cancel(); return nil })
		go func() {
			if err := src.Start(recvCtx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error().Err(err).Msg("pubsub receive stopped")
			}
		}()
		a.Changes, a.Publisher = src, src

	case config.ChangefeedRedis:
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parsing REDIS_URL: %w", err)
		}
		a.redis = redis.NewClient(opts)
		a.closers = append(a.closers, a.redis.Close)
		if err := a.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
		src := changefeed.NewRedisSource(a.redis, logger)
		a.Changes, a.Publisher = src, src
		a.Subsystems["redis"] = handler.PingerFunc(func(ctx context.Context) error {
			return a.redis.Ping(ctx).Err()
		})

	default:
		hub := changefeed.NewHub()
		a.closers = append(a.closers, hub.Close)
		a.Changes, a.Publisher = hub, hub
	}

	logger.Info().Msg("change feed ready")
	return nil
}

func (a *App) openRepositories(ctx context.Context) (alert.Repository, sensor.Repository, contact.Repository, featureflags.Repository, error) {
	if !a.Config.DatabaseEnabled {
		a.Logger.Warn().Msg("database disabled, using in-memory repositories")
		return alert.NewInMemoryRepository(),
			sensor.NewInMemoryRepository(),
			contact.NewInMemoryRepository(),
			featureflags.NewInMemoryRepository(),
			nil
	}

	dbCfg, err := database.ConfigFromEnv()
	if err != nil {
		return nil, nil, nil, nil, err
	}
	pool, err := database.Connect(ctx, dbCfg)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("connecting to database: %w", err)
	}
	a.pool = pool
	a.closers = append(a.closers, func() error { pool.Close(); return nil })
	a.Subsystems["database"] = handler.PingerFunc(pool.Ping)

	if err := database.Migrate(ctx, pool); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("migrating database: %w", err)
	}

	a.Logger.Info().
		Str("host", dbCfg.Host).
		Int("port", dbCfg.Port).
		Str("database", dbCfg.Database).
		Msg("database connected")

	return alert.NewPostgresRepository(pool),
		sensor.NewPostgresRepository(pool),
		contact.NewPostgresRepository(pool),
		featureflags.NewPostgresRepository(pool),
		nil
}

func (a *App) seed(ctx context.Context, contacts contact.Repository) error {
	for _, s := range sensor.SeedSensors() {
		if err := a.Sensors.RegisterSensor(ctx, s); err != nil {
			return fmt.Errorf("seeding sensor %s: %w", s.ID, err)
		}
	}
	seeded := contact.SeedDirectory()
	for i := range seeded {
		if err := contacts.Upsert(ctx, &seeded[i]); err != nil {
			return fmt.Errorf("seeding contact %s: %w", seeded[i].ID, err)
		}
	}
	a.Logger.Info().Int("contacts", len(seeded)).Msg("directory seeded")
	return nil
}
