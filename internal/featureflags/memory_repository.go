package featureflags

import (
	"context"
	"sync"
)

// InMemoryRepository keeps flags in process, used when the database is disabled.
type InMemoryRepository struct {
	mu      sync.RWMutex
	flags   map[string]Flag
	changes []Change
}

// NewInMemoryRepository creates an empty repository. Unset flags read as
// their defaults through the service.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{flags: make(map[string]Flag)}
}

// List returns copies of the stored flags.
func (r *InMemoryRepository) List(_ context.Context) (map[string]*Flag, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]*Flag, len(r.flags))
	for k, v := range r.flags {
		f := v
		out[k] = &f
	}
	return out, nil
}

// Apply stores flags and records changes.
func (r *InMemoryRepository) Apply(_ context.Context, flags []*Flag, changes []Change) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, f := range flags {
		r.flags[f.Key] = *f
	}
	r.changes = append(r.changes, changes...)
	return nil
}

// History returns the newest changes first.
func (r *InMemoryRepository) History(_ context.Context, limit int) ([]Change, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := len(r.changes)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Change, 0, n)
	for i := len(r.changes) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, r.changes[i])
	}
	return out, nil
}

var _ Repository = (*InMemoryRepository)(nil)
