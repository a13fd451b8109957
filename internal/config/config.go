// Package config loads service settings from the environment.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/floodwatch/floodwatch/internal/geo"
)

// Change notification backends.
const (
	ChangefeedMemory = "memory"
	ChangefeedPubSub = "pubsub"
	ChangefeedRedis  = "redis"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	Port        string
	Environment string
	RequireTLS  bool

	OTelEnabled     bool
	OTLPEndpoint    string
	OTelSampleRatio float64

	// DatabaseEnabled false runs on seeded in-memory repositories.
	DatabaseEnabled bool
	// SeedDirectory upserts the built-in sensors and contacts at startup.
	SeedDirectory bool

	GeocoderBaseURL   string
	GeocoderUserAgent string
	GeocoderTimeout   time.Duration

	RefreshInterval time.Duration
	PassTimeout     time.Duration
	SensorStaleness time.Duration

	Changefeed         string
	PubSubProjectID    string
	PubSubSubscription string
	PubSubTopic        string
	RedisURL           string

	KafkaBrokers []string
	KafkaTopic   string

	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string

	// Worker only.
	MonitoredCoordinates []geo.Coordinate
	MonitorInterval      time.Duration
	WorkerHealthPort     string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	var errs []error
	duration := func(key, def string) time.Duration {
		d, err := time.ParseDuration(envOrDefault(key, def))
		if err != nil || d <= 0 {
			errs = append(errs, fmt.Errorf("invalid %s", key))
		}
		return d
	}

	ratio, err := strconv.ParseFloat(envOrDefault("OTEL_SAMPLE_RATIO", "1"), 64)
	if err != nil || math.IsNaN(ratio) || ratio < 0 || ratio > 1 {
		errs = append(errs, errors.New("invalid OTEL_SAMPLE_RATIO"))
	}

	cfg := &Config{
		Port:        envOrDefault("APP_PORT", "8080"),
		Environment: envOrDefault("APP_ENV", "development"),
		RequireTLS:  os.Getenv("REQUIRE_TLS") == "true",

		OTelEnabled:     os.Getenv("OTEL_ENABLED") == "true",
		OTLPEndpoint:    envOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTelSampleRatio: ratio,

		DatabaseEnabled: os.Getenv("DATABASE_ENABLED") == "true",
		SeedDirectory:   envOrDefault("SEED_DIRECTORY", "true") == "true",

		GeocoderBaseURL:   envOrDefault("GEOCODER_BASE_URL", "https://nominatim.openstreetmap.org"),
		GeocoderUserAgent: envOrDefault("GEOCODER_USER_AGENT", "FloodWatch/1.0"),
		GeocoderTimeout:   duration("GEOCODER_TIMEOUT", "10s"),

		RefreshInterval: duration("REFRESH_INTERVAL", "2s"),
		PassTimeout:     duration("PASS_TIMEOUT", "8s"),
		SensorStaleness: duration("SENSOR_STALENESS", "10m"),

		Changefeed:         strings.ToLower(envOrDefault("CHANGEFEED", ChangefeedMemory)),
		PubSubProjectID:    os.Getenv("PUBSUB_PROJECT_ID"),
		PubSubSubscription: envOrDefault("PUBSUB_SUBSCRIPTION", "floodwatch-changes"),
		PubSubTopic:        envOrDefault("PUBSUB_TOPIC", "floodwatch-changes"),
		RedisURL:           envOrDefault("REDIS_URL", "redis://localhost:6379/0"),

		KafkaBrokers: parseList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   envOrDefault("KAFKA_TOPIC", "flood-snapshots"),

		JWTSigningKey: os.Getenv("JWT_SIGNING_KEY"),
		JWTIssuer:     envOrDefault("JWT_ISSUER", "floodwatch"),
		JWTAudience:   envOrDefault("JWT_AUDIENCE", "floodwatch-responders"),

		MonitorInterval:  duration("MONITOR_INTERVAL", "5m"),
		WorkerHealthPort: envOrDefault("WORKER_HEALTH_PORT", "8081"),
	}

	coords, err := ParseCoordinates(os.Getenv("MONITORED_COORDINATES"))
	if err != nil {
		errs = append(errs, fmt.Errorf("invalid MONITORED_COORDINATES: %w", err))
	}
	cfg.MonitoredCoordinates = coords

	switch cfg.Changefeed {
	case ChangefeedMemory:
	case ChangefeedPubSub:
		if cfg.PubSubProjectID == "" {
			errs = append(errs, errors.New("CHANGEFEED=pubsub requires PUBSUB_PROJECT_ID"))
		}
	case ChangefeedRedis:
		if cfg.RedisURL == "" {
			errs = append(errs, errors.New("CHANGEFEED=redis requires REDIS_URL"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown CHANGEFEED %q", cfg.Changefeed))
	}

	if cfg.IsProduction() && cfg.JWTSigningKey == "" {
		errs = append(errs, errors.New("JWT_SIGNING_KEY is required in production"))
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsProduction reports whether the service runs in production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// KafkaEnabled reports whether a Kafka sink is configured.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// ParseCoordinates parses "lat,lon;lat,lon". An empty string yields nil.
func ParseCoordinates(s string) ([]geo.Coordinate, error) {
	var out []geo.Coordinate
	for _, pair := range strings.Split(s, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		lat, lon, ok := strings.Cut(pair, ",")
		if !ok {
			return nil, fmt.Errorf("%q: want lat,lon", pair)
		}
		c := geo.Coordinate{}
		var err error
		if c.Lat, err = strconv.ParseFloat(strings.TrimSpace(lat), 64); err != nil {
			return nil, fmt.Errorf("%q: %w", pair, err)
		}
		if c.Lon, err = strconv.ParseFloat(strings.TrimSpace(lon), 64); err != nil {
			return nil, fmt.Errorf("%q: %w", pair, err)
		}
		if err := c.Validate(); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func parseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
