package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// schema is applied in order; every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS feature_flags (
		key        TEXT PRIMARY KEY,
		value      JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_by TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS feature_flag_changes (
		id         BIGSERIAL PRIMARY KEY,
		key        TEXT NOT NULL,
		value      JSONB NOT NULL,
		reason     TEXT NOT NULL DEFAULT '',
		changed_by TEXT NOT NULL,
		changed_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS flood_alerts (
		id                  TEXT PRIMARY KEY,
		title               TEXT NOT NULL,
		message             TEXT NOT NULL,
		severity            TEXT NOT NULL,
		category            TEXT NOT NULL,
		state               TEXT NOT NULL,
		district            TEXT,
		affected_areas      TEXT[] NOT NULL DEFAULT '{}',
		evacuation_required BOOLEAN NOT NULL DEFAULT FALSE,
		issued_by           TEXT,
		is_active           BOOLEAN NOT NULL DEFAULT TRUE,
		created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		expires_at          TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS flood_alerts_active_state_idx
		ON flood_alerts (state, created_at DESC) WHERE is_active`,
	`CREATE TABLE IF NOT EXISTS flood_sensors (
		id            TEXT PRIMARY KEY,
		name          TEXT NOT NULL,
		lat           DOUBLE PRECISION NOT NULL,
		lon           DOUBLE PRECISION NOT NULL,
		district      TEXT NOT NULL,
		state         TEXT NOT NULL,
		danger_level  DOUBLE PRECISION NOT NULL,
		warning_level DOUBLE PRECISION NOT NULL,
		is_active     BOOLEAN NOT NULL DEFAULT TRUE,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS sensor_readings (
		id          BIGSERIAL PRIMARY KEY,
		sensor_id   TEXT NOT NULL REFERENCES flood_sensors (id) ON DELETE CASCADE,
		water_level DOUBLE PRECISION NOT NULL,
		recorded_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS sensor_readings_latest_idx
		ON sensor_readings (sensor_id, recorded_at DESC)`,
	`CREATE TABLE IF NOT EXISTS emergency_contacts (
		id           TEXT PRIMARY KEY,
		name         TEXT NOT NULL,
		phone        TEXT NOT NULL,
		email        TEXT,
		department   TEXT NOT NULL,
		designation  TEXT,
		level        TEXT NOT NULL,
		state        TEXT,
		district     TEXT,
		priority     INTEGER NOT NULL DEFAULT 100,
		is_available BOOLEAN NOT NULL DEFAULT TRUE,
		is_active    BOOLEAN NOT NULL DEFAULT TRUE,
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS emergency_contacts_level_idx
		ON emergency_contacts (level, lower(state), lower(district)) WHERE is_active`,
}

// Schema returns the migration statements in application order.
func Schema() []string {
	out := make([]string, len(schema))
	copy(out, schema)
	return out
}

// Migrate applies the schema in a single transaction.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	return pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		for i, stmt := range schema {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("migration step %d: %w", i+1, err)
			}
		}
		return nil
	})
}
