package risk

import (
	"strings"
	"time"

	"github.com/floodwatch/floodwatch/internal/geo"
)

var (
	highRiverStates = map[string]bool{
		"west bengal":   true,
		"bihar":         true,
		"assam":         true,
		"uttar pradesh": true,
		"punjab":        true,
	}
	moderateRiverStates = map[string]bool{
		"haryana":        true,
		"rajasthan":      true,
		"madhya pradesh": true,
		"orissa":         true,
		"odisha":         true,
	}
)

// CalculateFactors derives the risk factors for a coordinate and region on a date.
func CalculateFactors(c geo.Coordinate, region geo.Region, now time.Time) Factors {
	return Factors{
		MonsoonIntensity: MonsoonIntensity(c),
		RiverProximity:   RiverProximity(region.State),
		Elevation:        ElevationAt(c),
		SeasonalRisk:     SeasonalRisk(now.Month()),
	}
}

// MonsoonIntensity rates rainfall exposure by geographic band: the western
// ghats and the north-east are high, the dry north is low.
func MonsoonIntensity(c geo.Coordinate) Level {
	switch {
	case c.Lon < 77 && c.Lat > 15 && c.Lat < 20:
		return LevelHigh
	case c.Lon > 85 && c.Lat > 22:
		return LevelHigh
	case c.Lat > 26:
		return LevelLow
	default:
		return LevelModerate
	}
}

// RiverProximity rates a state by its major flood-prone river systems.
func RiverProximity(state string) Level {
	key := strings.ToLower(strings.TrimSpace(state))
	switch {
	case highRiverStates[key]:
		return LevelHigh
	case moderateRiverStates[key]:
		return LevelModerate
	default:
		return LevelLow
	}
}

// ElevationAt is Variable in the Himalayan north and along the southern
// coasts, Low elsewhere.
func ElevationAt(c geo.Coordinate) Elevation {
	if c.Lat > 28 || (c.Lat < 12 && (c.Lon < 77 || c.Lon > 80)) {
		return ElevationVariable
	}
	return ElevationLow
}

// SeasonalRisk is High through the monsoon (June to October), Low from
// November to February and Moderate in the pre-monsoon months.
func SeasonalRisk(month time.Month) Level {
	switch {
	case month >= time.June && month <= time.October:
		return LevelHigh
	case month >= time.November || month <= time.February:
		return LevelLow
	default:
		return LevelModerate
	}
}
