// Package database provides PostgreSQL connection management and the schema.
package database

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Config holds database connection configuration.
type Config struct {
	// URL, when set, replaces the individual connection fields.
	URL string

	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// ConnectTimeout bounds the retries made while the server comes up.
	ConnectTimeout time.Duration
}

// ConfigFromEnv creates a Config from DB_* variables or DATABASE_URL.
func ConfigFromEnv() (Config, error) {
	var errs []error
	integer := func(key, def string) int {
		n, err := strconv.Atoi(getEnvOrDefault(key, def))
		if err != nil || n < 0 {
			errs = append(errs, fmt.Errorf("invalid %s", key))
		}
		return n
	}
	duration := func(key, def string) time.Duration {
		d, err := time.ParseDuration(getEnvOrDefault(key, def))
		if err != nil || d <= 0 {
			errs = append(errs, fmt.Errorf("invalid %s", key))
		}
		return d
	}

	cfg := Config{
		URL:             os.Getenv("DATABASE_URL"),
		Host:            getEnvOrDefault("DB_HOST", "localhost"),
		Port:            integer("DB_PORT", "5432"),
		User:            getEnvOrDefault("DB_USER", "floodwatch"),
		Password:        getEnvOrDefault("DB_PASSWORD", "localdev"),
		Database:        getEnvOrDefault("DB_NAME", "floodwatch"),
		SSLMode:         getEnvOrDefault("DB_SSL_MODE", "disable"),
		MaxOpenConns:    integer("DB_MAX_OPEN_CONNS", "10"),
		MaxIdleConns:    integer("DB_MAX_IDLE_CONNS", "5"),
		ConnMaxLifetime: duration("DB_CONN_MAX_LIFETIME", "5m"),
		ConnectTimeout:  duration("DB_CONNECT_TIMEOUT", "30s"),
	}
	if cfg.MaxOpenConns == 0 || cfg.MaxIdleConns > cfg.MaxOpenConns {
		errs = append(errs, errors.New("DB_MAX_IDLE_CONNS must not exceed a non-zero DB_MAX_OPEN_CONNS"))
	}
	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ConnectionString returns the PostgreSQL connection string with credentials escaped.
func (c Config) ConnectionString() string {
	if c.URL != "" {
		return c.URL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     c.Host + ":" + strconv.Itoa(c.Port),
		Path:     "/" + c.Database,
		RawQuery: url.Values{"sslmode": {c.SSLMode}}.Encode(),
	}
	return u.String()
}

// Connect creates a connection pool, retrying the initial ping with
// exponential backoff until ConnectTimeout elapses.
func Connect(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxOpenConns) //nolint:gosec // MaxOpenConns is bounded by config validation
	poolConfig.MinConns = int32(cfg.MaxIdleConns) //nolint:gosec // MaxIdleConns is bounded by config validation
	poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = cfg.ConnectTimeout

	if err := backoff.Retry(func() error { return pool.Ping(ctx) }, backoff.WithContext(b, ctx)); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
