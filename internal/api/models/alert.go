package models

import (
	"time"

	"github.com/floodwatch/floodwatch/internal/alert"
)

// AlertCreateRequest is the request body for publishing an alert.
type AlertCreateRequest struct {
	Title              string     `json:"title" validate:"required,max=120"`
	Message            string     `json:"message" validate:"required,max=1000"`
	Severity           string     `json:"severity" validate:"required,severity"`
	Category           string     `json:"category,omitempty" validate:"omitempty,category"`
	State              string     `json:"state" validate:"required,max=64"`
	District           string     `json:"district,omitempty" validate:"max=64"`
	AffectedAreas      []string   `json:"affectedAreas,omitempty" validate:"max=50,dive,required,max=100"`
	EvacuationRequired bool       `json:"evacuationRequired"`
	ExpiresAt          *time.Time `json:"expiresAt,omitempty"`
}

// AlertList is a list of alerts.
type AlertList struct {
	Items []alert.Alert `json:"items"`
	Count int           `json:"count"`
}
