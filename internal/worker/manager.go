package worker

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/floodwatch/floodwatch/internal/geo"
)

// ErrSessionNotFound is returned for unknown or torn-down session IDs.
var ErrSessionNotFound = errors.New("session not found")

// ErrManagerClosed is returned when creating a session after Close.
var ErrManagerClosed = errors.New("session manager closed")

// SessionFactory builds an unstarted scheduler for a session.
type SessionFactory func(locator geo.Locator, logger zerolog.Logger) *Scheduler

// ManagerConfig holds configuration for the session manager.
type ManagerConfig struct {
	// Factory builds each session's scheduler. Required.
	Factory SessionFactory

	Logger  zerolog.Logger
	Metrics *Metrics
}

// Manager owns the running session schedulers.
type Manager struct {
	factory SessionFactory
	logger  zerolog.Logger
	metrics *Metrics

	mu       sync.RWMutex
	sessions map[string]*Scheduler
	closed   bool
}

// NewManager creates a session manager.
func NewManager(cfg ManagerConfig) *Manager {
	return &Manager{
		factory:  cfg.Factory,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		sessions: make(map[string]*Scheduler),
	}
}

// Create starts a new session bound to locator and returns its ID.
func (m *Manager) Create(ctx context.Context, locator geo.Locator) (string, *Scheduler, error) {
	id := uuid.New().String()
	logger := m.logger.With().Str("session_id", id).Logger()
	s := m.factory(locator, logger)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return "", nil, ErrManagerClosed
	}
	m.sessions[id] = s
	m.mu.Unlock()

	m.metrics.sessionStarted()
	s.Start(ctx)

	logger.Info().Msg("session created")
	return id, s, nil
}

// Get returns the scheduler of a running session.
func (m *Manager) Get(id string) (*Scheduler, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Teardown stops and forgets a session.
func (m *Manager) Teardown(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}

	s.Teardown()
	m.metrics.sessionEnded()
	m.logger.Info().Str("session_id", id).Msg("session torn down")
	return nil
}

// Len returns the number of running sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close tears down every session. Later Create calls fail.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	sessions := m.sessions
	m.sessions = make(map[string]*Scheduler)
	m.mu.Unlock()

	var wg sync.WaitGroup
	for _, s := range sessions {
		wg.Add(1)
		go func(s *Scheduler) {
			defer wg.Done()
			s.Teardown()
			m.metrics.sessionEnded()
		}(s)
	}
	wg.Wait()

	m.logger.Info().Int("sessions", len(sessions)).Msg("session manager closed")
}
