// Package featureflags provides runtime toggles for the assessment pipeline.
// Operators flip them to degrade gracefully while an upstream is unhealthy.
package featureflags

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// Well-known feature flag keys.
const (
	// FlagDisableSyntheticAlerts suppresses the seasonal and river-monitoring alerts
	// the aggregator synthesizes on top of sourced alerts.
	FlagDisableSyntheticAlerts = "disable_synthetic_alerts"

	// FlagSyntheticWaterLevelOnly ignores live sensor readings and always estimates.
	FlagSyntheticWaterLevelOnly = "synthetic_water_level_only"

	// FlagCachedOnlyGeocoding skips the reverse geocoder and resolves regions from
	// the cache or the bounding-box table.
	FlagCachedOnlyGeocoding = "cached_only_geocoding"

	// FlagRefreshIntervalSeconds overrides the scheduler tick for new sessions.
	FlagRefreshIntervalSeconds = "refresh_interval_seconds"
)

// MaxRefreshIntervalSeconds bounds FlagRefreshIntervalSeconds.
const MaxRefreshIntervalSeconds = 3600

var (
	// ErrUnknownFlag is returned when an update names a key with no definition.
	ErrUnknownFlag = errors.New("unknown feature flag")

	// ErrInvalidValue is returned when an update value does not fit the flag kind.
	ErrInvalidValue = errors.New("invalid feature flag value")
)

// Kind is the value type of a flag.
type Kind string

// Flag kinds.
const (
	KindBool    Kind = "bool"
	KindSeconds Kind = "seconds"
)

// Definition describes a known flag.
type Definition struct {
	Key     string
	Kind    Kind
	Default interface{}
	// Degrades marks flags that lower assessment fidelity when enabled.
	Degrades    bool
	Description string
}

var definitions = []Definition{
	{
		Key:         FlagDisableSyntheticAlerts,
		Kind:        KindBool,
		Default:     false,
		Degrades:    true,
		Description: "Suppress synthesized rainfall and river-monitoring alerts",
	},
	{
		Key:         FlagSyntheticWaterLevelOnly,
		Kind:        KindBool,
		Default:     false,
		Degrades:    true,
		Description: "Ignore live gauge readings and always estimate the water level",
	},
	{
		Key:         FlagCachedOnlyGeocoding,
		Kind:        KindBool,
		Default:     false,
		Degrades:    true,
		Description: "Resolve regions from the cache and bounding boxes only",
	},
	{
		Key:         FlagRefreshIntervalSeconds,
		Kind:        KindSeconds,
		Default:     float64(0),
		Description: "Scheduler tick for new sessions; 0 keeps the configured interval",
	},
}

// Definitions returns the known flags in display order.
func Definitions() []Definition {
	out := make([]Definition, len(definitions))
	copy(out, definitions)
	return out
}

// Lookup returns the definition of key.
func Lookup(key string) (Definition, bool) {
	for _, d := range definitions {
		if d.Key == key {
			return d, true
		}
	}
	return Definition{}, false
}

// Validate checks that v fits the flag kind. JSON numbers arrive as float64.
func (d Definition) Validate(v interface{}) error {
	switch d.Kind {
	case KindBool:
		if _, ok := v.(bool); !ok {
			return fmt.Errorf("%w: %s expects a boolean", ErrInvalidValue, d.Key)
		}
	case KindSeconds:
		n, ok := v.(float64)
		if !ok || n < 0 || n > MaxRefreshIntervalSeconds || n != math.Trunc(n) {
			return fmt.Errorf("%w: %s expects whole seconds between 0 and %d", ErrInvalidValue, d.Key, MaxRefreshIntervalSeconds)
		}
	}
	return nil
}

// Toggles is the read side of the flag service consumed by pipeline components.
type Toggles interface {
	IsEnabled(ctx context.Context, key string) bool
}

// Static is a fixed set of toggles, handy for tests and one-shot assessments.
type Static map[string]bool

// IsEnabled reports whether key is set.
func (s Static) IsEnabled(_ context.Context, key string) bool {
	return s[key]
}

// Flag represents a feature flag with its current value.
type Flag struct {
	Key       string      `json:"key"`
	Value     interface{} `json:"value"`
	UpdatedAt time.Time   `json:"updatedAt"`
	UpdatedBy string      `json:"updatedBy,omitempty"`
}

// Change is one audited flag update.
type Change struct {
	Key       string      `json:"key"`
	Value     interface{} `json:"value"`
	Reason    string      `json:"reason,omitempty"`
	ChangedBy string      `json:"changedBy"`
	ChangedAt time.Time   `json:"changedAt"`
}

// FlagList represents a list of feature flags.
type FlagList struct {
	Items []Flag `json:"items"`
}

// ChangeList is the audit trail, newest first.
type ChangeList struct {
	Items []Change `json:"items"`
}

// FlagUpdate represents a single flag update request.
type FlagUpdate struct {
	Key   string      `json:"key" validate:"required"`
	Value interface{} `json:"value"`
}

// FlagUpdateRequest represents a request to update feature flags.
type FlagUpdateRequest struct {
	Updates []FlagUpdate `json:"updates" validate:"required,min=1,dive"`
	Reason  string       `json:"reason" validate:"max=200"`
}

// BoolValue returns the flag value as a boolean.
// Returns the default value if the flag is nil or not a boolean.
func (f *Flag) BoolValue(defaultValue bool) bool {
	if f == nil {
		return defaultValue
	}
	switch v := f.Value.(type) {
	case bool:
		return v
	case float64:
		return v != 0
	default:
		return defaultValue
	}
}

// IntValue returns the flag value as an integer.
func (f *Flag) IntValue(defaultValue int) int {
	if f == nil {
		return defaultValue
	}
	switch v := f.Value.(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return defaultValue
	}
}

// DefaultFlags returns every defined flag at its default value.
func DefaultFlags() map[string]*Flag {
	flags := make(map[string]*Flag, len(definitions))
	for _, d := range definitions {
		flags[d.Key] = &Flag{Key: d.Key, Value: d.Default}
	}
	return flags
}
