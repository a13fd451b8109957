package sensor

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL sensor repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const sensorColumns = `
	id, name, lat, lon, district, state,
	danger_level, warning_level, is_active, created_at
`

// GetSensor retrieves a sensor by ID.
func (r *PostgresRepository) GetSensor(ctx context.Context, id string) (*Sensor, error) {
	query := `SELECT ` + sensorColumns + ` FROM flood_sensors WHERE id = $1`

	s, err := scanSensor(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSensorNotFound
		}
		return nil, err
	}
	return s, nil
}

// ListSensors retrieves sensors in a state, or every sensor when state is empty.
func (r *PostgresRepository) ListSensors(ctx context.Context, state string) ([]*Sensor, error) {
	query := `
		SELECT ` + sensorColumns + `
		FROM flood_sensors
		WHERE ($1 = '' OR state = $1)
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query, state)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sensors []*Sensor
	for rows.Next() {
		s, err := scanSensor(rows)
		if err != nil {
			return nil, err
		}
		sensors = append(sensors, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sensors, nil
}

func scanSensor(row pgx.Row) (*Sensor, error) {
	var s Sensor
	err := row.Scan(
		&s.ID,
		&s.Name,
		&s.Location.Lat,
		&s.Location.Lon,
		&s.District,
		&s.State,
		&s.DangerLevel,
		&s.WarningLevel,
		&s.IsActive,
		&s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// UpsertSensor creates or replaces a sensor.
func (r *PostgresRepository) UpsertSensor(ctx context.Context, s *Sensor) error {
	query := `
		INSERT INTO flood_sensors (` + sensorColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			lat = EXCLUDED.lat,
			lon = EXCLUDED.lon,
			district = EXCLUDED.district,
			state = EXCLUDED.state,
			danger_level = EXCLUDED.danger_level,
			warning_level = EXCLUDED.warning_level,
			is_active = EXCLUDED.is_active
	`

	_, err := r.pool.Exec(ctx, query,
		s.ID, s.Name, s.Location.Lat, s.Location.Lon, s.District, s.State,
		s.DangerLevel, s.WarningLevel, s.IsActive, s.CreatedAt,
	)
	return err
}

// LatestReadings returns the newest reading per sensor in a state.
func (r *PostgresRepository) LatestReadings(ctx context.Context, state string) (map[string]Reading, error) {
	query := `
		SELECT DISTINCT ON (r.sensor_id) r.sensor_id, r.water_level, r.recorded_at
		FROM sensor_readings r
		JOIN flood_sensors s ON s.id = r.sensor_id
		WHERE ($1 = '' OR s.state = $1)
		ORDER BY r.sensor_id, r.recorded_at DESC
	`

	rows, err := r.pool.Query(ctx, query, state)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	readings := make(map[string]Reading)
	for rows.Next() {
		var reading Reading
		if err := rows.Scan(&reading.SensorID, &reading.WaterLevel, &reading.RecordedAt); err != nil {
			return nil, err
		}
		readings[reading.SensorID] = reading
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return readings, nil
}

// InsertReading stores a reading.
func (r *PostgresRepository) InsertReading(ctx context.Context, reading Reading) error {
	query := `
		INSERT INTO sensor_readings (sensor_id, water_level, recorded_at)
		VALUES ($1, $2, $3)
	`
	_, err := r.pool.Exec(ctx, query, reading.SensorID, reading.WaterLevel, reading.RecordedAt)
	return err
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
