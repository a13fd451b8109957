package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/floodwatch/floodwatch/internal/config"
	"github.com/floodwatch/floodwatch/internal/geo"
)

var keys = []string{
	"APP_PORT", "APP_ENV", "REQUIRE_TLS", "OTEL_ENABLED", "OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_SAMPLE_RATIO", "DATABASE_ENABLED", "SEED_DIRECTORY",
	"GEOCODER_BASE_URL", "GEOCODER_USER_AGENT", "GEOCODER_TIMEOUT",
	"REFRESH_INTERVAL", "PASS_TIMEOUT", "SENSOR_STALENESS",
	"CHANGEFEED", "PUBSUB_PROJECT_ID", "PUBSUB_SUBSCRIPTION", "PUBSUB_TOPIC", "REDIS_URL",
	"KAFKA_BROKERS", "KAFKA_TOPIC", "JWT_SIGNING_KEY", "JWT_ISSUER", "JWT_AUDIENCE",
	"MONITORED_COORDINATES", "MONITOR_INTERVAL", "WORKER_HEALTH_PORT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Environment)
	assert.False(t, cfg.DatabaseEnabled)
	assert.False(t, cfg.RequireTLS)
	assert.True(t, cfg.SeedDirectory)
	assert.Equal(t, 2*time.Second, cfg.RefreshInterval)
	assert.Equal(t, 8*time.Second, cfg.PassTimeout)
	assert.Equal(t, 10*time.Minute, cfg.SensorStaleness)
	assert.Equal(t, 10*time.Second, cfg.GeocoderTimeout)
	assert.Equal(t, config.ChangefeedMemory, cfg.Changefeed)
	assert.False(t, cfg.KafkaEnabled())
	assert.Empty(t, cfg.MonitoredCoordinates)
	assert.Equal(t, "8081", cfg.WorkerHealthPort)
	assert.Equal(t, 5*time.Minute, cfg.MonitorInterval)
	assert.Equal(t, 1.0, cfg.OTelSampleRatio)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("REFRESH_INTERVAL", "5s")
	t.Setenv("REQUIRE_TLS", "true")
	t.Setenv("CHANGEFEED", "Redis")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("MONITORED_COORDINATES", "22.57,88.36;26.14,91.73")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.RefreshInterval)
	assert.True(t, cfg.RequireTLS)
	assert.Equal(t, config.ChangefeedRedis, cfg.Changefeed)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.KafkaEnabled())
	assert.Equal(t, []geo.Coordinate{{Lat: 22.57, Lon: 88.36}, {Lat: 26.14, Lon: 91.73}}, cfg.MonitoredCoordinates)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"bad duration", map[string]string{"PASS_TIMEOUT": "soon"}, "PASS_TIMEOUT"},
		{"negative duration", map[string]string{"SENSOR_STALENESS": "-1m"}, "SENSOR_STALENESS"},
		{"bad coordinates", map[string]string{"MONITORED_COORDINATES": "22.5;88"}, "MONITORED_COORDINATES"},
		{"out of range", map[string]string{"MONITORED_COORDINATES": "120,88"}, "MONITORED_COORDINATES"},
		{"sample ratio above one", map[string]string{"OTEL_SAMPLE_RATIO": "1.5"}, "OTEL_SAMPLE_RATIO"},
		{"negative sample ratio", map[string]string{"OTEL_SAMPLE_RATIO": "-0.1"}, "OTEL_SAMPLE_RATIO"},
		{"unknown changefeed", map[string]string{"CHANGEFEED": "kinesis"}, "CHANGEFEED"},
		{"pubsub without project", map[string]string{"CHANGEFEED": "pubsub"}, "PUBSUB_PROJECT_ID"},
		{"production without key", map[string]string{"APP_ENV": "production"}, "JWT_SIGNING_KEY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := config.Load()
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestLoad_ZeroSampleRatioDisablesSampling(t *testing.T) {
	clearEnv(t)
	t.Setenv("OTEL_SAMPLE_RATIO", "0")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Zero(t, cfg.OTelSampleRatio)
}

func TestParseCoordinates(t *testing.T) {
	coords, err := config.ParseCoordinates(" 25.59, 85.13 ;")
	require.NoError(t, err)
	assert.Equal(t, []geo.Coordinate{{Lat: 25.59, Lon: 85.13}}, coords)

	coords, err = config.ParseCoordinates("")
	require.NoError(t, err)
	assert.Nil(t, coords)

	_, err = config.ParseCoordinates("abc,85")
	assert.Error(t, err)
}
