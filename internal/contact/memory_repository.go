package contact

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// InMemoryRepository is an in-memory implementation of Repository.
type InMemoryRepository struct {
	mu       sync.RWMutex
	contacts map[string]Contact
}

// NewInMemoryRepository creates an empty in-memory contact repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{contacts: make(map[string]Contact)}
}

// NewSeededRepository creates an in-memory repository holding the seed directory.
func NewSeededRepository() *InMemoryRepository {
	repo := NewInMemoryRepository()
	for _, c := range SeedDirectory() {
		repo.contacts[c.ID] = c
	}
	return repo
}

// List returns the active contacts matching filter ordered by priority.
func (r *InMemoryRepository) List(_ context.Context, filter Filter) ([]Contact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []Contact
	for _, c := range r.contacts {
		if !c.IsActive || c.Level != filter.Level {
			continue
		}
		if filter.State != "" && !strings.EqualFold(c.State, filter.State) {
			continue
		}
		if filter.District != "" && !strings.EqualFold(c.District, filter.District) {
			continue
		}
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Priority != result[j].Priority {
			return result[i].Priority < result[j].Priority
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// Upsert creates or replaces a contact.
func (r *InMemoryRepository) Upsert(_ context.Context, c *Contact) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.contacts[c.ID] = *c
	return nil
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
