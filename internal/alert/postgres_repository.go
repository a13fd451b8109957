package alert

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL alert repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const alertColumns = `
	id, title, message, severity, category, state, district,
	affected_areas, evacuation_required, issued_by, is_active,
	created_at, expires_at
`

// Get retrieves an alert by ID.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM flood_alerts WHERE id = $1`

	a, err := scanAlert(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAlertNotFound
		}
		return nil, err
	}
	return a, nil
}

// ListActive retrieves alerts active at now for a state.
func (r *PostgresRepository) ListActive(ctx context.Context, state string, now time.Time) ([]*Alert, error) {
	query := `
		SELECT ` + alertColumns + `
		FROM flood_alerts
		WHERE is_active
			AND ($1 = '' OR state = $1)
			AND (expires_at IS NULL OR expires_at > $2)
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, state, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []*Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return alerts, nil
}

func scanAlert(row pgx.Row) (*Alert, error) {
	var (
		a        Alert
		district *string
		issuedBy *string
	)
	err := row.Scan(
		&a.ID,
		&a.Title,
		&a.Message,
		&a.Severity,
		&a.Category,
		&a.State,
		&district,
		&a.AffectedAreas,
		&a.EvacuationRequired,
		&issuedBy,
		&a.IsActive,
		&a.CreatedAt,
		&a.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	if district != nil {
		a.District = *district
	}
	if issuedBy != nil {
		a.IssuedBy = *issuedBy
	}
	return &a, nil
}

// Create stores a new alert.
func (r *PostgresRepository) Create(ctx context.Context, a *Alert) error {
	query := `
		INSERT INTO flood_alerts (` + alertColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	areas := a.AffectedAreas
	if areas == nil {
		areas = []string{}
	}
	_, err := r.pool.Exec(ctx, query,
		a.ID, a.Title, a.Message, a.Severity, a.Category, a.State, nullable(a.District),
		areas, a.EvacuationRequired, nullable(a.IssuedBy), a.IsActive,
		a.CreatedAt, a.ExpiresAt,
	)
	return err
}

// SetActive updates the active flag.
func (r *PostgresRepository) SetActive(ctx context.Context, id string, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE flood_alerts SET is_active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAlertNotFound
	}
	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
