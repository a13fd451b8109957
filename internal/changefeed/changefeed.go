// Package changefeed delivers upstream data-change notifications to refresh sessions.
package changefeed

import (
	"context"
	"errors"
	"time"
)

// Table names a watched upstream table.
type Table string

const (
	TableAlerts   Table = "flood_alerts"
	TableReadings Table = "sensor_readings"
	TableContacts Table = "emergency_contacts"
	TableSensors  Table = "flood_sensors"
)

// AllStates subscribes to changes for every state.
const AllStates = ""

// ErrClosed is returned when subscribing to a closed source.
var ErrClosed = errors.New("changefeed closed")

// Change is a single upstream modification.
type Change struct {
	Table Table     `json:"table"`
	State string    `json:"state"`
	ID    string    `json:"id,omitempty"`
	At    time.Time `json:"at"`
}

// Handler receives changes. Handlers must not block.
type Handler func(Change)

// Unsubscribe releases a subscription. Calling it more than once is a no-op.
type Unsubscribe func()

// Source provides push notification of upstream changes.
type Source interface {
	Subscribe(ctx context.Context, table Table, state string, fn Handler) (Unsubscribe, error)
}

// Publisher announces upstream changes.
type Publisher interface {
	Publish(ctx context.Context, change Change) error
}

// Discard is a Publisher that drops every change.
var Discard Publisher = discard{}

type discard struct{}

func (discard) Publish(context.Context, Change) error { return nil }

func matches(table Table, state string, c Change) bool {
	return table == c.Table && (state == AllStates || state == c.State)
}
