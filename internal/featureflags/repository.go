package featureflags

import "context"

// Repository stores flag values and their audit trail.
type Repository interface {
	// List returns the stored flags by key. Keys never written are absent.
	List(ctx context.Context) (map[string]*Flag, error)

	// Apply stores flags and appends changes in one transaction.
	Apply(ctx context.Context, flags []*Flag, changes []Change) error

	// History returns at most limit changes, newest first.
	History(ctx context.Context, limit int) ([]Change, error)
}
