// Package worker runs flood assessment passes: per-session refresh
// schedulers and the headless monitor over fixed coordinates.
package worker

import (
	"time"

	"github.com/floodwatch/floodwatch/internal/geo"
)

// MonitorTarget is a named area watched by the headless monitor.
type MonitorTarget struct {
	// Name is the human-readable name of the target.
	Name string

	// Points are the coordinates assessed on every run.
	Points []geo.Coordinate

	// Priority determines assessment order (lower = higher priority).
	Priority int
}

// MonitorConfig holds configuration for the monitor job.
type MonitorConfig struct {
	// Targets are the areas to assess.
	// If empty, uses DefaultMonitorTargets.
	Targets []MonitorTarget

	// Concurrency is the number of concurrent assessments.
	// Default: 3
	Concurrency int

	// Timeout bounds the assessment of one point.
	// Default: 30 seconds
	Timeout time.Duration
}

// DefaultMonitorConfig returns the default monitor configuration.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Targets:     DefaultMonitorTargets(),
		Concurrency: 3,
		Timeout:     30 * time.Second,
	}
}

// DefaultMonitorTargets returns flood-prone population centres, river
// basins first.
func DefaultMonitorTargets() []MonitorTarget {
	return []MonitorTarget{
		{
			Name:     "Kolkata",
			Priority: 1,
			Points: []geo.Coordinate{
				{Lat: 22.5726, Lon: 88.3639}, // Kolkata
				{Lat: 22.5958, Lon: 88.2636}, // Howrah
			},
		},
		{
			Name:     "Patna",
			Priority: 1,
			Points: []geo.Coordinate{
				{Lat: 25.5941, Lon: 85.1376}, // Patna
				{Lat: 25.6093, Lon: 85.1235}, // Gandhi Ghat
			},
		},
		{
			Name:     "Guwahati",
			Priority: 1,
			Points: []geo.Coordinate{
				{Lat: 26.1445, Lon: 91.7362}, // Guwahati
			},
		},
		{
			Name:     "Mumbai",
			Priority: 2,
			Points: []geo.Coordinate{
				{Lat: 19.0760, Lon: 72.8777}, // Mumbai
				{Lat: 19.0896, Lon: 72.8656}, // Mithi river, Kurla
			},
		},
		{
			Name:     "Delhi",
			Priority: 2,
			Points: []geo.Coordinate{
				{Lat: 28.6139, Lon: 77.2090}, // New Delhi
				{Lat: 28.6562, Lon: 77.2410}, // Yamuna, Old Railway Bridge
			},
		},
		{
			Name:     "Chennai",
			Priority: 2,
			Points: []geo.Coordinate{
				{Lat: 13.0827, Lon: 80.2707}, // Chennai
			},
		},
		{
			Name:     "Kochi",
			Priority: 3,
			Points: []geo.Coordinate{
				{Lat: 9.9312, Lon: 76.2673}, // Kochi
			},
		},
		{
			Name:     "Bhubaneswar",
			Priority: 3,
			Points: []geo.Coordinate{
				{Lat: 20.2961, Lon: 85.8245}, // Bhubaneswar
			},
		},
	}
}

// AllPoints returns all points from all targets, in target order.
func (c MonitorConfig) AllPoints() []geo.Coordinate {
	var points []geo.Coordinate
	for _, target := range c.Targets {
		points = append(points, target.Points...)
	}
	return points
}

// TotalPoints returns the total number of points to assess.
func (c MonitorConfig) TotalPoints() int {
	total := 0
	for _, target := range c.Targets {
		total += len(target.Points)
	}
	return total
}

// ConfiguredTargets wraps explicitly configured points in a single target.
func ConfiguredTargets(points []geo.Coordinate) []MonitorTarget {
	if len(points) == 0 {
		return nil
	}
	return []MonitorTarget{{Name: "Configured", Priority: 1, Points: points}}
}
