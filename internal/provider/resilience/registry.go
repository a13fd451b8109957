package resilience

import (
	"sort"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// Status is the coarse health of a provider derived from its breaker state.
type Status string

const (
	StatusOK       Status = "OK"
	StatusDegraded Status = "DEGRADED"
	StatusFail     Status = "FAIL"
)

// Health is a point-in-time view of one provider.
type Health struct {
	Name          string           `json:"name"`
	Status        Status           `json:"status"`
	BreakerState  string           `json:"breakerState"`
	Counts        gobreaker.Counts `json:"-"`
	LastSuccessAt *time.Time       `json:"lastSuccessAt,omitempty"`
	LastFailureAt *time.Time       `json:"lastFailureAt,omitempty"`
	LastError     string           `json:"lastError,omitempty"`
}

type breakerView interface {
	State() gobreaker.State
	Counts() gobreaker.Counts
}

// Registry tracks provider clients and their most recent outcomes.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]*entry
	now       func() time.Time
}

type entry struct {
	client        breakerView
	lastSuccessAt *time.Time
	lastFailureAt *time.Time
	lastError     string
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]*entry),
		now:       time.Now,
	}
}

// Register adds or replaces a provider client.
func (r *Registry) Register(name string, client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = &entry{client: client}
}

// Unregister removes a provider.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.providers, name)
}

// RecordSuccess stamps the provider's last successful call.
func (r *Registry) RecordSuccess(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.providers[name]; ok {
		now := r.now()
		e.lastSuccessAt = &now
	}
}

// RecordFailure stamps the provider's last failed call.
func (r *Registry) RecordFailure(name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.providers[name]; ok {
		now := r.now()
		e.lastFailureAt = &now
		if err != nil {
			e.lastError = err.Error()
		}
	}
}

// Health returns the health of one provider, or nil if it is not registered.
func (r *Registry) Health(name string) *Health {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.providers[name]
	if !ok {
		return nil
	}
	return e.health(name)
}

// All returns the health of every provider sorted by name.
func (r *Registry) All() []*Health {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Health, 0, len(r.providers))
	for name, e := range r.providers {
		out = append(out, e.health(name))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len returns the number of registered providers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.providers)
}

// Overall folds provider health into a single status: any open breaker is
// DEGRADED (every provider has a fallback), otherwise OK.
func (r *Registry) Overall() Status {
	for _, h := range r.All() {
		if h.Status != StatusOK {
			return StatusDegraded
		}
	}
	return StatusOK
}

func (e *entry) health(name string) *Health {
	state := e.client.State()
	status := StatusOK
	switch state {
	case gobreaker.StateHalfOpen:
		status = StatusDegraded
	case gobreaker.StateOpen:
		status = StatusFail
	}
	return &Health{
		Name:          name,
		Status:        status,
		BreakerState:  state.String(),
		Counts:        e.client.Counts(),
		LastSuccessAt: e.lastSuccessAt,
		LastFailureAt: e.lastFailureAt,
		LastError:     e.lastError,
	}
}
