package models

import (
	"time"

	"github.com/floodwatch/floodwatch/internal/contact"
)

// ContactList is the resolved emergency directory for a region. Floor is set
// when every directory layer failed and the built-in national numbers are shown.
type ContactList struct {
	Items []contact.Contact `json:"items"`
	Floor bool              `json:"floor"`
}

// ReadingCreateRequest is the request body for recording a sensor reading.
type ReadingCreateRequest struct {
	WaterLevel *float64   `json:"waterLevel" validate:"required,gte=0,lte=100"`
	RecordedAt *time.Time `json:"recordedAt,omitempty"`
}
