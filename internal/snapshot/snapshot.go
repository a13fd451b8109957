// Package snapshot defines the published read model of one assessment pass.
package snapshot

import (
	"time"

	"github.com/floodwatch/floodwatch/internal/alert"
	"github.com/floodwatch/floodwatch/internal/contact"
	"github.com/floodwatch/floodwatch/internal/geo"
	"github.com/floodwatch/floodwatch/internal/risk"
)

// NoticeCode identifies an advisory banner.
type NoticeCode string

const (
	NoticeLocationDefaulted  NoticeCode = "LOCATION_DEFAULTED"
	NoticeRegionFallback     NoticeCode = "REGION_FALLBACK"
	NoticeSensorStale        NoticeCode = "SENSOR_STALE"
	NoticeSensorUnavailable  NoticeCode = "SENSOR_UNAVAILABLE"
	NoticeAlertsUnavailable  NoticeCode = "ALERTS_UNAVAILABLE"
	NoticeContactsFallback   NoticeCode = "CONTACTS_FALLBACK"
	NoticeWaterLevelEstimate NoticeCode = "WATER_LEVEL_ESTIMATED"
)

// Notice is a non-blocking advisory shown alongside a snapshot.
type Notice struct {
	Code    NoticeCode `json:"code"`
	Message string     `json:"message"`
}

// Snapshot is one internally consistent pipeline result. Published snapshots
// are never modified; a new pass replaces the whole value.
type Snapshot struct {
	Sequence       uint64              `json:"sequence"`
	Coordinate     geo.Coordinate      `json:"coordinate"`
	Region         geo.Region          `json:"region"`
	RegionSource   geo.Source          `json:"regionSource"`
	Factors        risk.Factors        `json:"factors"`
	WaterLevel     risk.WaterLevel     `json:"waterLevel"`
	Score          int                 `json:"score"`
	Classification risk.Classification `json:"classification"`
	Color          string              `json:"color"`
	Alerts         []alert.Alert       `json:"alerts"`
	Contacts       []contact.Contact   `json:"contacts"`
	Notices        []Notice            `json:"notices"`
	ComputedAt     time.Time           `json:"computedAt"`
}

// Synthetic reports whether the water level was estimated.
func (s *Snapshot) Synthetic() bool {
	return s.WaterLevel.Synthetic
}

// HasNotice reports whether the snapshot carries a notice with code.
func (s *Snapshot) HasNotice(code NoticeCode) bool {
	for _, n := range s.Notices {
		if n.Code == code {
			return true
		}
	}
	return false
}

// CriticalAlerts counts alerts of critical severity.
func (s *Snapshot) CriticalAlerts() int {
	n := 0
	for _, a := range s.Alerts {
		if a.Severity == alert.SeverityCritical {
			n++
		}
	}
	return n
}

// EvacuationRequired reports whether any alert requires evacuation.
func (s *Snapshot) EvacuationRequired() bool {
	for _, a := range s.Alerts {
		if a.EvacuationRequired {
			return true
		}
	}
	return false
}
