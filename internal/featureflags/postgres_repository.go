package featureflags

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL feature flags repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// List returns every stored flag.
func (r *PostgresRepository) List(ctx context.Context) (map[string]*Flag, error) {
	rows, err := r.pool.Query(ctx, `SELECT key, value, updated_at, updated_by FROM feature_flags`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	flags := make(map[string]*Flag)
	for rows.Next() {
		var (
			flag Flag
			raw  []byte
		)
		if err := rows.Scan(&flag.Key, &raw, &flag.UpdatedAt, &flag.UpdatedBy); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &flag.Value); err != nil {
			return nil, fmt.Errorf("decoding flag %s: %w", flag.Key, err)
		}
		flags[flag.Key] = &flag
	}
	return flags, rows.Err()
}

// Apply upserts flags and appends the audit rows in one transaction.
func (r *PostgresRepository) Apply(ctx context.Context, flags []*Flag, changes []Change) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, f := range flags {
			raw, err := json.Marshal(f.Value)
			if err != nil {
				return err
			}
			batch.Queue(`
				INSERT INTO feature_flags (key, value, updated_at, updated_by)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (key) DO UPDATE SET
					value = EXCLUDED.value,
					updated_at = EXCLUDED.updated_at,
					updated_by = EXCLUDED.updated_by
			`, f.Key, raw, f.UpdatedAt, f.UpdatedBy)
		}
		for _, c := range changes {
			raw, err := json.Marshal(c.Value)
			if err != nil {
				return err
			}
			batch.Queue(`
				INSERT INTO feature_flag_changes (key, value, reason, changed_by, changed_at)
				VALUES ($1, $2, $3, $4, $5)
			`, c.Key, raw, c.Reason, c.ChangedBy, c.ChangedAt)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
}

// History returns the newest audit rows first.
func (r *PostgresRepository) History(ctx context.Context, limit int) ([]Change, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT key, value, reason, changed_by, changed_at
		FROM feature_flag_changes
		ORDER BY changed_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var changes []Change
	for rows.Next() {
		var (
			c   Change
			raw []byte
		)
		if err := rows.Scan(&c.Key, &raw, &c.Reason, &c.ChangedBy, &c.ChangedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &c.Value); err != nil {
			return nil, fmt.Errorf("decoding change for %s: %w", c.Key, err)
		}
		changes = append(changes, c)
	}
	return changes, rows.Err()
}

var _ Repository = (*PostgresRepository)(nil)
