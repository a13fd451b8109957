package report

import (
	"github.com/floodwatch/floodwatch/internal/alert"
	"github.com/floodwatch/floodwatch/internal/sensor"
)

// Stats are the dashboard headline numbers for a state.
type Stats struct {
	State              string `json:"state,omitempty"`
	TotalSensors       int    `json:"totalSensors"`
	ActiveSensors      int    `json:"activeSensors"`
	DangerZones        int    `json:"dangerZones"`
	ActiveAlerts       int    `json:"activeAlerts"`
	CriticalAlerts     int    `json:"criticalAlerts"`
	EvacuationRequired int    `json:"evacuationRequired"`
}

// BuildStats combines a sensor summary with the active alerts of a state.
func BuildStats(state string, sensors sensor.Summary, alerts []alert.Alert) Stats {
	stats := Stats{
		State:         state,
		TotalSensors:  sensors.TotalSensors,
		ActiveSensors: sensors.ActiveSensors,
		DangerZones:   sensors.DangerZones,
		ActiveAlerts:  len(alerts),
	}
	for _, a := range alerts {
		if a.Severity == alert.SeverityCritical {
			stats.CriticalAlerts++
		}
		if a.EvacuationRequired {
			stats.EvacuationRequired++
		}
	}
	return stats
}
