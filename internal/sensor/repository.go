package sensor

import "context"

// Repository defines the interface for sensor data persistence.
type Repository interface {
	// GetSensor retrieves a sensor by ID.
	GetSensor(ctx context.Context, id string) (*Sensor, error)

	// ListSensors retrieves sensors in a state, or every sensor when state is empty.
	ListSensors(ctx context.Context, state string) ([]*Sensor, error)

	// UpsertSensor creates or replaces a sensor.
	UpsertSensor(ctx context.Context, sensor *Sensor) error

	// LatestReadings returns the newest reading per sensor in a state, keyed by sensor ID.
	LatestReadings(ctx context.Context, state string) (map[string]Reading, error)

	// InsertReading stores a reading.
	InsertReading(ctx context.Context, reading Reading) error
}
