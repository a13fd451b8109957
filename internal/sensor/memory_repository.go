package sensor

import (
	"context"
	"sort"
	"sync"
)

// InMemoryRepository is an in-memory implementation of Repository.
type InMemoryRepository struct {
	mu       sync.RWMutex
	sensors  map[string]*Sensor
	readings map[string][]Reading
}

// NewInMemoryRepository creates a new in-memory sensor repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		sensors:  make(map[string]*Sensor),
		readings: make(map[string][]Reading),
	}
}

// GetSensor retrieves a sensor by ID.
func (r *InMemoryRepository) GetSensor(_ context.Context, id string) (*Sensor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sensors[id]
	if !ok {
		return nil, ErrSensorNotFound
	}
	cp := *s
	return &cp, nil
}

// ListSensors retrieves sensors in a state ordered by ID.
func (r *InMemoryRepository) ListSensors(_ context.Context, state string) ([]*Sensor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*Sensor
	for _, s := range r.sensors {
		if state != "" && s.State != state {
			continue
		}
		cp := *s
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// UpsertSensor creates or replaces a sensor.
func (r *InMemoryRepository) UpsertSensor(_ context.Context, sensor *Sensor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *sensor
	r.sensors[sensor.ID] = &cp
	return nil
}

// LatestReadings returns the newest reading per sensor in a state.
func (r *InMemoryRepository) LatestReadings(_ context.Context, state string) (map[string]Reading, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]Reading)
	for id, readings := range r.readings {
		s, ok := r.sensors[id]
		if !ok || (state != "" && s.State != state) {
			continue
		}
		for _, reading := range readings {
			if latest, ok := result[id]; !ok || reading.RecordedAt.After(latest.RecordedAt) {
				result[id] = reading
			}
		}
	}
	return result, nil
}

// InsertReading stores a reading.
func (r *InMemoryRepository) InsertReading(_ context.Context, reading Reading) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sensors[reading.SensorID]; !ok {
		return ErrSensorNotFound
	}
	r.readings[reading.SensorID] = append(r.readings[reading.SensorID], reading)
	return nil
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
