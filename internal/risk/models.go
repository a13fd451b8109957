// Package risk derives flood risk factors, water levels and the single risk
// classification used everywhere a risk level is shown.
package risk

import (
	"fmt"
	"strings"
	"time"
)

// Level is a qualitative factor rating.
type Level string

const (
	LevelLow      Level = "LOW"
	LevelModerate Level = "MODERATE"
	LevelHigh     Level = "HIGH"
)

// Elevation describes terrain relevant to flooding.
type Elevation string

const (
	ElevationLow      Elevation = "LOW"
	ElevationVariable Elevation = "VARIABLE"
)

// Factors are the qualitative inputs to the risk score. They are a pure
// function of coordinate, region and date and are recomputed every pass.
type Factors struct {
	MonsoonIntensity Level     `json:"monsoonIntensity"`
	RiverProximity   Level     `json:"riverProximity"`
	Elevation        Elevation `json:"elevation"`
	SeasonalRisk     Level     `json:"seasonalRisk"`
}

// Classification is the ordinal flood-danger level.
type Classification string

const (
	ClassificationLow      Classification = "LOW"
	ClassificationModerate Classification = "MODERATE"
	ClassificationHigh     Classification = "HIGH"
	ClassificationCritical Classification = "CRITICAL"
)

// Classifications lists every classification in ascending order.
var Classifications = []Classification{
	ClassificationLow,
	ClassificationModerate,
	ClassificationHigh,
	ClassificationCritical,
}

// Rank orders classifications: Low=0 < Moderate < High < Critical=3.
// Unknown values rank -1.
func (c Classification) Rank() int {
	switch c {
	case ClassificationLow:
		return 0
	case ClassificationModerate:
		return 1
	case ClassificationHigh:
		return 2
	case ClassificationCritical:
		return 3
	default:
		return -1
	}
}

// Valid reports whether c is one of the four classifications.
func (c Classification) Valid() bool {
	return c.Rank() >= 0
}

// Color returns the display color for the classification.
func (c Classification) Color() string {
	switch c {
	case ClassificationLow:
		return "#10b981"
	case ClassificationModerate:
		return "#f59e0b"
	case ClassificationHigh:
		return "#ef4444"
	case ClassificationCritical:
		return "#dc2626"
	default:
		return "#6b7280"
	}
}

// ParseClassification accepts any casing of a classification name.
func ParseClassification(s string) (Classification, error) {
	c := Classification(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("unknown risk classification %q", s)
	}
	return c, nil
}

// WaterLevel is a water-level value in meters with its provenance.
type WaterLevel struct {
	Meters float64 `json:"meters"`
	// Synthetic is true when the value was estimated rather than measured.
	Synthetic  bool      `json:"synthetic"`
	SensorID   string    `json:"sensorId,omitempty"`
	RecordedAt time.Time `json:"recordedAt"`
}

// Assessment is one scored evaluation.
type Assessment struct {
	Factors        Factors        `json:"factors"`
	WaterLevel     WaterLevel     `json:"waterLevel"`
	Score          int            `json:"score"`
	Classification Classification `json:"classification"`
	Color          string         `json:"color"`
}
