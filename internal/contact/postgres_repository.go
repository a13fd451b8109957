package contact

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL contact repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// List returns the active contacts matching filter ordered by priority.
func (r *PostgresRepository) List(ctx context.Context, filter Filter) ([]Contact, error) {
	query := `
		SELECT
			id, name, phone, COALESCE(email, ''), department, COALESCE(designation, ''),
			level, COALESCE(state, ''), COALESCE(district, ''), priority, is_available, is_active
		FROM emergency_contacts
		WHERE is_active
			AND level = $1
			AND ($2 = '' OR lower(state) = lower($2))
			AND ($3 = '' OR lower(district) = lower($3))
		ORDER BY priority, id
	`

	rows, err := r.pool.Query(ctx, query, filter.Level, filter.State, filter.District)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contacts []Contact
	for rows.Next() {
		var c Contact
		err := rows.Scan(
			&c.ID,
			&c.Name,
			&c.Phone,
			&c.Email,
			&c.Department,
			&c.Designation,
			&c.Level,
			&c.State,
			&c.District,
			&c.Priority,
			&c.Available,
			&c.IsActive,
		)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return contacts, nil
}

// Upsert creates or replaces a contact.
func (r *PostgresRepository) Upsert(ctx context.Context, c *Contact) error {
	query := `
		INSERT INTO emergency_contacts (
			id, name, phone, email, department, designation,
			level, state, district, priority, is_available, is_active
		)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, NULLIF($6, ''), $7, NULLIF($8, ''), NULLIF($9, ''), $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			phone = EXCLUDED.phone,
			email = EXCLUDED.email,
			department = EXCLUDED.department,
			designation = EXCLUDED.designation,
			level = EXCLUDED.level,
			state = EXCLUDED.state,
			district = EXCLUDED.district,
			priority = EXCLUDED.priority,
			is_available = EXCLUDED.is_available,
			is_active = EXCLUDED.is_active,
			updated_at = NOW()
	`

	_, err := r.pool.Exec(ctx, query,
		c.ID, c.Name, c.Phone, c.Email, c.Department, c.Designation,
		c.Level, c.State, c.District, c.Priority, c.Available, c.IsActive,
	)
	return err
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
