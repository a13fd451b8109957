package alert

import (
	"context"
	"sync"
	"time"
)

// InMemoryRepository is an in-memory implementation of Repository.
type InMemoryRepository struct {
	mu     sync.RWMutex
	alerts map[string]*Alert
}

// NewInMemoryRepository creates a new in-memory alert repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{alerts: make(map[string]*Alert)}
}

// Get retrieves an alert by ID.
func (r *InMemoryRepository) Get(_ context.Context, id string) (*Alert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.alerts[id]
	if !ok {
		return nil, ErrAlertNotFound
	}
	return clone(a), nil
}

// ListActive retrieves alerts active at now for a state.
func (r *InMemoryRepository) ListActive(_ context.Context, state string, now time.Time) ([]*Alert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*Alert
	for _, a := range r.alerts {
		if state != "" && a.State != state {
			continue
		}
		if !a.ActiveAt(now) {
			continue
		}
		result = append(result, clone(a))
	}
	return result, nil
}

// Create stores a new alert.
func (r *InMemoryRepository) Create(_ context.Context, a *Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.alerts[a.ID] = clone(a)
	return nil
}

// SetActive updates the active flag.
func (r *InMemoryRepository) SetActive(_ context.Context, id string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.alerts[id]
	if !ok {
		return ErrAlertNotFound
	}
	a.IsActive = active
	return nil
}

func clone(a *Alert) *Alert {
	cp := *a
	cp.AffectedAreas = append([]string(nil), a.AffectedAreas...)
	if a.ExpiresAt != nil {
		expires := *a.ExpiresAt
		cp.ExpiresAt = &expires
	}
	return &cp
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
