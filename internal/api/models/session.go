package models

import "github.com/floodwatch/floodwatch/internal/snapshot"

// Device location failure codes reported by clients that could not obtain a fix.
const (
	LocationErrorDenied      = "denied"
	LocationErrorUnavailable = "unavailable"
	LocationErrorTimeout     = "timeout"
)

// LocationReport is the device location a client sends when creating or
// refreshing a session. Either both coordinates or neither must be given;
// with neither, LocationError says why and the default location is used.
type LocationReport struct {
	Lat           *float64 `json:"lat,omitempty" validate:"required_with=Lon,omitempty,gte=-90,lte=90"`
	Lon           *float64 `json:"lon,omitempty" validate:"required_with=Lat,omitempty,gte=-180,lte=180"`
	LocationError string   `json:"locationError,omitempty" validate:"omitempty,oneof=denied unavailable timeout"`
}

// HasCoordinate reports whether the report carries a position.
func (r LocationReport) HasCoordinate() bool {
	return r.Lat != nil && r.Lon != nil
}

// Session is the body returned when a session is created or inspected.
type Session struct {
	ID       string             `json:"id"`
	State    string             `json:"state"`
	Snapshot *snapshot.Snapshot `json:"snapshot,omitempty"`
}

// RefreshResult reports whether a manual refresh started a pass. False means
// a pass was already in flight and the request was coalesced into it.
type RefreshResult struct {
	Started bool `json:"started"`
}

// Pending is returned with 202 while a session has not published yet.
type Pending struct {
	State string `json:"state"`
}
