// Package alert manages flood alerts and aggregates them per region.
package alert

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Alert errors.
var (
	ErrAlertNotFound = errors.New("alert not found")
	ErrInvalidAlert  = errors.New("invalid alert")
)

// Severity is the ordinal urgency of an alert.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityDanger   Severity = "DANGER"
	SeverityCritical Severity = "CRITICAL"
)

// Rank orders severities from Info=0 to Critical=3. Unknown values rank -1.
func (s Severity) Rank() int {
	switch s {
	case SeverityInfo:
		return 0
	case SeverityWarning:
		return 1
	case SeverityDanger:
		return 2
	case SeverityCritical:
		return 3
	default:
		return -1
	}
}

// ParseSeverity accepts any casing of a severity name.
func ParseSeverity(s string) (Severity, error) {
	sev := Severity(strings.ToUpper(strings.TrimSpace(s)))
	if sev.Rank() < 0 {
		return "", fmt.Errorf("%w: unknown severity %q", ErrInvalidAlert, s)
	}
	return sev, nil
}

// Category groups alerts that describe the same condition. Two alerts for
// one state with the same category are duplicates.
type Category string

const (
	CategoryRainfall   Category = "RAINFALL"
	CategoryRiver      Category = "RIVER"
	CategoryCyclone    Category = "CYCLONE"
	CategoryLandslide  Category = "LANDSLIDE"
	CategoryEvacuation Category = "EVACUATION"
	CategoryGeneral    Category = "GENERAL"
)

// Categories lists every known category.
var Categories = []Category{
	CategoryRainfall,
	CategoryRiver,
	CategoryCyclone,
	CategoryLandslide,
	CategoryEvacuation,
	CategoryGeneral,
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// InferCategory guesses a category from alert text for sources that do not set one.
func InferCategory(title, message string) Category {
	text := strings.ToLower(title + " " + message)
	switch {
	case strings.Contains(text, "evacuat"):
		return CategoryEvacuation
	case strings.Contains(text, "cyclone"):
		return CategoryCyclone
	case strings.Contains(text, "landslide"):
		return CategoryLandslide
	case strings.Contains(text, "river"), strings.Contains(text, "water level"):
		return CategoryRiver
	case strings.Contains(text, "rain"):
		return CategoryRainfall
	default:
		return CategoryGeneral
	}
}

// Alert is a flood alert for a state.
type Alert struct {
	ID                 string     `json:"id"`
	Title              string     `json:"title"`
	Message            string     `json:"message"`
	Severity           Severity   `json:"severity"`
	Category           Category   `json:"category"`
	State              string     `json:"state"`
	District           string     `json:"district,omitempty"`
	AffectedAreas      []string   `json:"affectedAreas"`
	EvacuationRequired bool       `json:"evacuationRequired"`
	IssuedBy           string     `json:"issuedBy,omitempty"`
	IsActive           bool       `json:"isActive"`
	Synthetic          bool       `json:"synthetic"`
	CreatedAt          time.Time  `json:"createdAt"`
	ExpiresAt          *time.Time `json:"expiresAt,omitempty"`
}

// ActiveAt reports whether the alert is active and unexpired at now.
func (a *Alert) ActiveAt(now time.Time) bool {
	if !a.IsActive {
		return false
	}
	return a.ExpiresAt == nil || now.Before(*a.ExpiresAt)
}

// CategoryOrInferred returns the alert category, inferring it from text when unset.
func (a *Alert) CategoryOrInferred() Category {
	if a.Category.Valid() {
		return a.Category
	}
	return InferCategory(a.Title, a.Message)
}
