// Package fault defines the failure taxonomy shared by the flood assessment core.
//
// Adapters wrap their errors with one of the sentinels below so callers can
// branch with errors.Is and choose the documented fallback. None of these
// kinds is ever surfaced to a dashboard as a hard failure.
package fault

import (
	"context"
	"errors"
	"fmt"
)

// Taxonomy sentinels.
var (
	// ErrUnavailable means a provider or data source could not be reached.
	ErrUnavailable = errors.New("unavailable")

	// ErrDenied means the user declined a capability such as location access.
	ErrDenied = errors.New("denied")

	// ErrStale means data exists but is older than its freshness threshold.
	ErrStale = errors.New("stale")

	// ErrMalformed means an external source returned an unexpected shape.
	ErrMalformed = errors.New("malformed")
)

// Kind is the coarse classification of a failure.
type Kind string

const (
	KindNone        Kind = ""
	KindUnavailable Kind = "UNAVAILABLE"
	KindDenied      Kind = "DENIED"
	KindStale       Kind = "STALE"
	KindMalformed   Kind = "MALFORMED"
)

// KindOf classifies err. Unknown errors, timeouts and cancellations are
// treated as Unavailable.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrDenied):
		return KindDenied
	case errors.Is(err, ErrStale):
		return KindStale
	case errors.Is(err, ErrMalformed):
		return KindMalformed
	case errors.Is(err, ErrUnavailable),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return KindUnavailable
	default:
		return KindUnavailable
	}
}

// Unavailable wraps err as ErrUnavailable with a short operation label.
func Unavailable(op string, err error) error {
	if err == nil {
		return fmt.Errorf("%s: %w", op, ErrUnavailable)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}

// Malformed wraps err as ErrMalformed with a short operation label.
func Malformed(op string, err error) error {
	if err == nil {
		return fmt.Errorf("%s: %w", op, ErrMalformed)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrMalformed, err)
}

// Stale wraps err as ErrStale with a short operation label.
func Stale(op string, err error) error {
	if err == nil {
		return fmt.Errorf("%s: %w", op, ErrStale)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStale, err)
}
