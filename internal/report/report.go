// Package report renders snapshots as downloadable situation reports and
// computes dashboard statistics.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/floodwatch/floodwatch/internal/alert"
	"github.com/floodwatch/floodwatch/internal/contact"
	"github.com/floodwatch/floodwatch/internal/geo"
	"github.com/floodwatch/floodwatch/internal/risk"
	"github.com/floodwatch/floodwatch/internal/snapshot"
)

// Report format constants.
const (
	Title   = "FloodWatch India - Situation Report"
	Version = "1"
)

// ErrInvalidReport is returned when a document is not a valid situation report.
var ErrInvalidReport = errors.New("invalid situation report")

// Report is the exported situation report. Field names are stable within a Version.
type Report struct {
	Title              string              `json:"title"`
	Version            string              `json:"version"`
	GeneratedAt        time.Time           `json:"generatedAt"`
	Timestamp          time.Time           `json:"timestamp"`
	Coordinate         geo.Coordinate      `json:"coordinate"`
	Region             geo.Region          `json:"region"`
	RiskClassification risk.Classification `json:"riskClassification"`
	RiskScore          int                 `json:"riskScore"`
	RiskColor          string              `json:"riskColor"`
	WaterLevel         float64             `json:"waterLevel"`
	Synthetic          bool                `json:"synthetic"`
	Factors            risk.Factors        `json:"factors"`
	Alerts             []alert.Alert       `json:"alerts"`
	Contacts           []contact.Contact   `json:"contacts"`
	Notices            []snapshot.Notice   `json:"notices"`
	Summary            Summary             `json:"summary"`
}

// Summary holds headline counts.
type Summary struct {
	ActiveAlerts       int  `json:"activeAlerts"`
	CriticalAlerts     int  `json:"criticalAlerts"`
	EvacuationRequired bool `json:"evacuationRequired"`
	Contacts           int  `json:"contacts"`
}

// Build renders a snapshot as a report generated at generatedAt.
func Build(s *snapshot.Snapshot, generatedAt time.Time) *Report {
	return &Report{
		Title:              Title,
		Version:            Version,
		GeneratedAt:        generatedAt.UTC(),
		Timestamp:          s.ComputedAt.UTC(),
		Coordinate:         s.Coordinate,
		Region:             s.Region,
		RiskClassification: s.Classification,
		RiskScore:          s.Score,
		RiskColor:          s.Classification.Color(),
		WaterLevel:         s.WaterLevel.Meters,
		Synthetic:          s.WaterLevel.Synthetic,
		Factors:            s.Factors,
		Alerts:             nonNil(s.Alerts),
		Contacts:           nonNil(s.Contacts),
		Notices:            nonNil(s.Notices),
		Summary: Summary{
			ActiveAlerts:       len(s.Alerts),
			CriticalAlerts:     s.CriticalAlerts(),
			EvacuationRequired: s.EvacuationRequired(),
			Contacts:           len(s.Contacts),
		},
	}
}

// Marshal encodes a report as indented JSON.
func Marshal(r *Report) ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// Parse decodes and validates a report.
func Parse(data []byte) (*Report, error) {
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidReport, err)
	}
	switch {
	case r.Version != Version:
		return nil, fmt.Errorf("%w: unsupported version %q", ErrInvalidReport, r.Version)
	case !r.RiskClassification.Valid():
		return nil, fmt.Errorf("%w: unknown classification %q", ErrInvalidReport, r.RiskClassification)
	case r.Region.State == "":
		return nil, fmt.Errorf("%w: missing region state", ErrInvalidReport)
	}
	return &r, nil
}

// Filename is the suggested download name for a report.
func Filename(r *Report) string {
	return fmt.Sprintf("flood-report-%s.json", r.GeneratedAt.Format("2006-01-02"))
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
