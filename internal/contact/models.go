// Package contact resolves emergency contacts for a region.
package contact

import (
	"errors"
	"strings"
)

// ErrContactNotFound is returned when a contact is not found.
var ErrContactNotFound = errors.New("contact not found")

// Level is the administrative scope of a contact.
type Level string

const (
	LevelNational Level = "NATIONAL"
	LevelState    Level = "STATE"
	LevelDistrict Level = "DISTRICT"
	LevelLocal    Level = "LOCAL"
)

// Contact is an emergency phone contact. Lower Priority is called first.
type Contact struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	Email       string `json:"email,omitempty"`
	Department  string `json:"department"`
	Designation string `json:"designation,omitempty"`
	Level       Level  `json:"level"`
	State       string `json:"state,omitempty"`
	District    string `json:"district,omitempty"`
	Priority    int    `json:"priority"`
	Available   bool   `json:"available"`
	IsActive    bool   `json:"-"`
}

// Filter selects contacts of one level, optionally narrowed by state and district.
type Filter struct {
	Level    Level
	State    string
	District string
}

// NormalizePhone strips spaces and dashes so equivalent numbers compare equal.
func NormalizePhone(phone string) string {
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return -1
		}
		return r
	}, strings.TrimSpace(phone))
}
