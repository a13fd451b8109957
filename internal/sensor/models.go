// Package sensor stores flood gauges and their water-level readings.
package sensor

import (
	"errors"
	"time"

	"github.com/floodwatch/floodwatch/internal/geo"
)

// Sensor errors.
var (
	ErrSensorNotFound = errors.New("sensor not found")
	ErrSensorInactive = errors.New("sensor inactive")
	ErrInvalidReading = errors.New("invalid reading")
)

// Sensor is a water-level gauge installed in a district.
type Sensor struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Location     geo.Coordinate `json:"location"`
	District     string         `json:"district"`
	State        string         `json:"state"`
	DangerLevel  float64        `json:"dangerLevel"`
	WarningLevel float64        `json:"warningLevel"`
	IsActive     bool           `json:"isActive"`
	CreatedAt    time.Time      `json:"createdAt"`
}

// Reading is a single water-level measurement in meters.
type Reading struct {
	SensorID   string    `json:"sensorId"`
	WaterLevel float64   `json:"waterLevel"`
	RecordedAt time.Time `json:"recordedAt"`
}

// Age returns how old the reading is at now.
func (r Reading) Age(now time.Time) time.Duration {
	return now.Sub(r.RecordedAt)
}

// Summary counts sensors for one state.
type Summary struct {
	TotalSensors  int `json:"totalSensors"`
	ActiveSensors int `json:"activeSensors"`
	// DangerZones counts active sensors whose latest reading is at or above their danger level.
	DangerZones int `json:"dangerZones"`
}
