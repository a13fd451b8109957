package alert

import (
	"context"
	"time"
)

// Repository defines the interface for alert persistence.
type Repository interface {
	// Get retrieves an alert by ID.
	Get(ctx context.Context, id string) (*Alert, error)

	// ListActive retrieves alerts active at now for a state, or every state when state is empty.
	ListActive(ctx context.Context, state string, now time.Time) ([]*Alert, error)

	// Create stores a new alert.
	Create(ctx context.Context, alert *Alert) error

	// SetActive updates the active flag. Returns ErrAlertNotFound for unknown IDs.
	SetActive(ctx context.Context, id string, active bool) error
}
