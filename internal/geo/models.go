// Package geo resolves coordinates to Indian administrative regions.
package geo

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Sentinel values used when a region cannot be identified.
const (
	UnknownState    = "Unknown State"
	UnknownDistrict = "Unknown District"
	UnknownCountry  = "Unknown"
	DefaultCountry  = "India"
)

// ErrInvalidCoordinates is returned for coordinates outside the WGS84 range.
var ErrInvalidCoordinates = errors.New("invalid coordinates")

// Coordinate is a WGS84 position in degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Validate checks the coordinate is within the valid latitude/longitude range.
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lon) || c.Lat < -90 || c.Lat > 90 || c.Lon < -180 || c.Lon > 180 {
		return fmt.Errorf("%w: lat=%f lon=%f", ErrInvalidCoordinates, c.Lat, c.Lon)
	}
	return nil
}

// Region is the resolved administrative identity of a coordinate.
// State is never empty; unresolved regions carry UnknownState.
type Region struct {
	District         string `json:"district"`
	State            string `json:"state"`
	Country          string `json:"country"`
	City             string `json:"city,omitempty"`
	FormattedAddress string `json:"formattedAddress,omitempty"`
}

// Normalized fills empty identity fields with their sentinels and trims
// provider suffix noise from the district name.
func (r Region) Normalized() Region {
	r.State = strings.TrimSpace(r.State)
	if r.State == "" {
		r.State = UnknownState
	}
	r.District = trimDistrictSuffix(strings.TrimSpace(r.District))
	if r.District == "" {
		r.District = UnknownDistrict
	}
	if r.Country == "" {
		r.Country = DefaultCountry
	}
	return r
}

// Known reports whether the state was identified.
func (r Region) Known() bool {
	return r.State != "" && r.State != UnknownState
}

// Equal compares the administrative identity, ignoring display fields.
func (r Region) Equal(other Region) bool {
	return r.State == other.State && r.District == other.District && r.Country == other.Country
}

const districtSuffix = " district"

func trimDistrictSuffix(name string) string {
	if len(name) >= len(districtSuffix) && strings.EqualFold(name[len(name)-len(districtSuffix):], districtSuffix) {
		return strings.TrimSpace(name[:len(name)-len(districtSuffix)])
	}
	return name
}

// BoundingBox is an inclusive latitude/longitude rectangle.
type BoundingBox struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// Contains checks if a point is within the bounding box.
func (b BoundingBox) Contains(c Coordinate) bool {
	return c.Lat >= b.MinLat && c.Lat <= b.MaxLat &&
		c.Lon >= b.MinLon && c.Lon <= b.MaxLon
}
