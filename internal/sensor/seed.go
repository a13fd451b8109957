package sensor

import "github.com/floodwatch/floodwatch/internal/geo"

// SeedSensors returns the gauges registered when running without a database.
func SeedSensors() []*Sensor {
	return []*Sensor{
		{ID: "gauge-farakka", Name: "Farakka Barrage", Location: geo.Coordinate{Lat: 24.8040, Lon: 87.9270}, District: "Murshidabad", State: "West Bengal", DangerLevel: 4.2, WarningLevel: 3.5, IsActive: true},
		{ID: "gauge-kolkata", Name: "Hooghly at Kolkata", Location: geo.Coordinate{Lat: 22.5726, Lon: 88.3639}, District: "Kolkata", State: "West Bengal", DangerLevel: 4.0, WarningLevel: 3.2, IsActive: true},
		{ID: "gauge-patna", Name: "Ganga at Gandhi Ghat", Location: geo.Coordinate{Lat: 25.6200, Lon: 85.1600}, District: "Patna", State: "Bihar", DangerLevel: 4.5, WarningLevel: 3.6, IsActive: true},
		{ID: "gauge-guwahati", Name: "Brahmaputra at Guwahati", Location: geo.Coordinate{Lat: 26.1900, Lon: 91.7400}, District: "Kamrup Metropolitan", State: "Assam", DangerLevel: 4.8, WarningLevel: 3.9, IsActive: true},
		{ID: "gauge-delhi-yamuna", Name: "Yamuna at Old Railway Bridge", Location: geo.Coordinate{Lat: 28.6600, Lon: 77.2500}, District: "New Delhi", State: "Delhi", DangerLevel: 4.0, WarningLevel: 3.3, IsActive: true},
		{ID: "gauge-mumbai-mithi", Name: "Mithi River at Kurla", Location: geo.Coordinate{Lat: 19.0700, Lon: 72.8800}, District: "Mumbai Suburban", State: "Maharashtra", DangerLevel: 3.8, WarningLevel: 3.0, IsActive: true},
	}
}
