package sensor

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/floodwatch/floodwatch/internal/changefeed"
	"github.com/floodwatch/floodwatch/internal/fault"
	"github.com/floodwatch/floodwatch/internal/geo"
)

// ServiceConfig holds configuration for the sensor service.
type ServiceConfig struct {
	Repository Repository
	// Publisher announces recorded readings (default: changefeed.Discard).
	Publisher changefeed.Publisher
	Logger    zerolog.Logger
	Clock     clockwork.Clock
}

// Service provides sensor and reading operations.
type Service struct {
	repo      Repository
	publisher changefeed.Publisher
	logger    zerolog.Logger
	clock     clockwork.Clock
}

// NewService creates a new sensor service.
func NewService(cfg ServiceConfig) *Service {
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = changefeed.Discard
	}
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{
		repo:      cfg.Repository,
		publisher: publisher,
		logger:    cfg.Logger,
		clock:     clock,
	}
}

// RegisterSensor creates or replaces a sensor.
func (s *Service) RegisterSensor(ctx context.Context, sensor *Sensor) error {
	if sensor.ID == "" || strings.TrimSpace(sensor.State) == "" {
		return fmt.Errorf("registering sensor: id and state are required")
	}
	if sensor.CreatedAt.IsZero() {
		sensor.CreatedAt = s.clock.Now()
	}
	return s.repo.UpsertSensor(ctx, sensor)
}

// ListSensors returns the sensors of a state, or all sensors when state is empty.
func (s *Service) ListSensors(ctx context.Context, state string) ([]*Sensor, error) {
	return s.repo.ListSensors(ctx, state)
}

// LatestReading returns the newest reading among the active sensors of the
// region's state, preferring sensors in the region's district. It returns
// nil without error when the region has no readings.
func (s *Service) LatestReading(ctx context.Context, region geo.Region) (*Reading, error) {
	if !region.Known() {
		return nil, nil
	}

	sensors, err := s.repo.ListSensors(ctx, region.State)
	if err != nil {
		return nil, fault.Unavailable("listing sensors", err)
	}
	readings, err := s.repo.LatestReadings(ctx, region.State)
	if err != nil {
		return nil, fault.Unavailable("latest readings", err)
	}

	var inDistrict, inState *Reading
	for _, sensor := range sensors {
		if !sensor.IsActive {
			continue
		}
		reading, ok := readings[sensor.ID]
		if !ok {
			continue
		}
		if inState == nil || reading.RecordedAt.After(inState.RecordedAt) {
			r := reading
			inState = &r
		}
		if strings.EqualFold(sensor.District, region.District) &&
			(inDistrict == nil || reading.RecordedAt.After(inDistrict.RecordedAt)) {
			r := reading
			inDistrict = &r
		}
	}

	if inDistrict != nil {
		return inDistrict, nil
	}
	return inState, nil
}

// RecordReading stores a water-level reading and announces it on the change feed.
// A zero at means now.
func (s *Service) RecordReading(ctx context.Context, sensorID string, waterLevel float64, at time.Time) (*Reading, error) {
	if waterLevel < 0 || math.IsNaN(waterLevel) || math.IsInf(waterLevel, 0) {
		return nil, fmt.Errorf("%w: water level %v", ErrInvalidReading, waterLevel)
	}

	sensor, err := s.repo.GetSensor(ctx, sensorID)
	if err != nil {
		return nil, err
	}
	if !sensor.IsActive {
		return nil, ErrSensorInactive
	}

	if at.IsZero() {
		at = s.clock.Now()
	}
	reading := Reading{SensorID: sensorID, WaterLevel: waterLevel, RecordedAt: at}
	if err := s.repo.InsertReading(ctx, reading); err != nil {
		return nil, fmt.Errorf("storing reading: %w", err)
	}

	if err := s.publisher.Publish(ctx, changefeed.Change{
		Table: changefeed.TableReadings,
		State: sensor.State,
		ID:    sensorID,
		At:    at,
	}); err != nil {
		s.logger.Error().Err(err).Str("sensor_id", sensorID).Msg("failed to publish reading change")
	}

	return &reading, nil
}

// Summarize counts the sensors of a state and those at or above danger level.
func (s *Service) Summarize(ctx context.Context, state string) (*Summary, error) {
	sensors, err := s.repo.ListSensors(ctx, state)
	if err != nil {
		return nil, err
	}
	readings, err := s.repo.LatestReadings(ctx, state)
	if err != nil {
		return nil, err
	}

	summary := &Summary{TotalSensors: len(sensors)}
	for _, sensor := range sensors {
		if !sensor.IsActive {
			continue
		}
		summary.ActiveSensors++
		if reading, ok := readings[sensor.ID]; ok && sensor.DangerLevel > 0 && reading.WaterLevel >= sensor.DangerLevel {
			summary.DangerZones++
		}
	}
	return summary, nil
}
