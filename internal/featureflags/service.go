package featureflags

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// DefaultHistoryLimit is used when History is asked for a non-positive limit.
const DefaultHistoryLimit = 50

// ServiceConfig holds configuration for the feature flag service.
type ServiceConfig struct {
	Repository Repository
	Logger     zerolog.Logger
	// CacheTTL is how long a loaded flag set is served without a reload (default: 1 minute).
	CacheTTL time.Duration
	Clock    clockwork.Clock
}

// Service evaluates flags from a cached copy of the repository. When a reload
// fails the previous copy keeps serving; without one, defaults apply.
type Service struct {
	repo     Repository
	logger   zerolog.Logger
	cacheTTL time.Duration
	clock    clockwork.Clock

	mu       sync.RWMutex
	cache    map[string]*Flag
	loadedAt time.Time
}

// NewService creates a new feature flag service.
func NewService(cfg ServiceConfig) *Service {
	cacheTTL := cfg.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{
		repo:     cfg.Repository,
		logger:   cfg.Logger,
		cacheTTL: cacheTTL,
		clock:    clock,
	}
}

// Flag returns the current value of key, falling back to its default.
// Unknown keys return nil.
func (s *Service) Flag(ctx context.Context, key string) *Flag {
	if f, ok := s.load(ctx)[key]; ok {
		return f
	}
	return DefaultFlags()[key]
}

// Flags returns every defined flag, stored values over defaults, sorted by key.
func (s *Service) Flags(ctx context.Context) []Flag {
	merged := DefaultFlags()
	for k, v := range s.load(ctx) {
		merged[k] = v
	}
	out := make([]Flag, 0, len(merged))
	for _, f := range merged {
		out = append(out, *f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Apply validates and stores updates, recording who made them and why.
// Either every update is stored or none is.
func (s *Service) Apply(ctx context.Context, updates []FlagUpdate, actor, reason string) error {
	now := s.clock.Now()
	seen := make(map[string]bool, len(updates))
	flags := make([]*Flag, 0, len(updates))
	changes := make([]Change, 0, len(updates))

	for _, u := range updates {
		def, ok := Lookup(u.Key)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownFlag, u.Key)
		}
		if seen[u.Key] {
			return fmt.Errorf("%w: %s given twice", ErrInvalidValue, u.Key)
		}
		seen[u.Key] = true
		if err := def.Validate(u.Value); err != nil {
			return err
		}
		flags = append(flags, &Flag{Key: u.Key, Value: u.Value, UpdatedAt: now, UpdatedBy: actor})
		changes = append(changes, Change{Key: u.Key, Value: u.Value, Reason: reason, ChangedBy: actor, ChangedAt: now})
	}

	if err := s.repo.Apply(ctx, flags, changes); err != nil {
		return fmt.Errorf("storing feature flags: %w", err)
	}

	s.mu.Lock()
	if s.cache != nil {
		next := make(map[string]*Flag, len(s.cache)+len(flags))
		for k, v := range s.cache {
			next[k] = v
		}
		for _, f := range flags {
			next[f.Key] = f
		}
		s.cache = next
	}
	s.mu.Unlock()

	for _, c := range changes {
		s.logger.Info().
			Str("flag", c.Key).
			Interface("value", c.Value).
			Str("changed_by", c.ChangedBy).
			Str("reason", c.Reason).
			Msg("feature flag changed")
	}
	return nil
}

// History returns the most recent flag changes, newest first.
func (s *Service) History(ctx context.Context, limit int) ([]Change, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	changes, err := s.repo.History(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("reading flag history: %w", err)
	}
	return changes, nil
}

// InvalidateCache forces a reload on next access.
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadedAt = time.Time{}
}

// IsEnabled returns true if the flag with the given key is enabled (truthy).
// A nil service reports every flag as disabled.
func (s *Service) IsEnabled(ctx context.Context, key string) bool {
	if s == nil || s.repo == nil {
		return false
	}
	return s.Flag(ctx, key).BoolValue(false)
}

// ActiveDegradations lists the enabled flags that reduce assessment fidelity.
func (s *Service) ActiveDegradations(ctx context.Context) []string {
	var active []string
	for _, d := range definitions {
		if d.Degrades && s.IsEnabled(ctx, d.Key) {
			active = append(active, d.Key)
		}
	}
	return active
}

// RefreshInterval returns the overridden scheduler tick, or fallback when unset.
func (s *Service) RefreshInterval(ctx context.Context, fallback time.Duration) time.Duration {
	if s == nil || s.repo == nil {
		return fallback
	}
	seconds := s.Flag(ctx, FlagRefreshIntervalSeconds).IntValue(0)
	if seconds <= 0 {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}

// load returns the cached flag set, reloading it once the TTL has passed.
func (s *Service) load(ctx context.Context) map[string]*Flag {
	now := s.clock.Now()

	s.mu.RLock()
	cache, loadedAt := s.cache, s.loadedAt
	s.mu.RUnlock()
	if cache != nil && now.Sub(loadedAt) < s.cacheTTL {
		return cache
	}

	flags, err := s.repo.List(ctx)
	if err != nil {
		if cache != nil {
			s.logger.Warn().Err(err).Msg("flag reload failed, serving previous values")
			return cache
		}
		s.logger.Warn().Err(err).Msg("flag reload failed, using defaults")
		return nil
	}

	s.mu.Lock()
	s.cache = flags
	s.loadedAt = now
	s.mu.Unlock()
	return flags
}

var _ Toggles = (*Service)(nil)
