// Package resilience wraps outbound provider calls with a circuit breaker,
// bounded retries and health bookkeeping.
package resilience

import (
	"time"

	"github.com/sony/gobreaker/v2"
)

// BreakerConfig holds configuration for a provider circuit breaker.
type BreakerConfig struct {
	// Name identifies the breaker in logs and health reports.
	Name string

	// HalfOpenRequests is the number of probe requests allowed while half-open.
	// Default: 1
	HalfOpenRequests uint32

	// OpenTimeout is how long the breaker stays open before probing again.
	// Default: 30 seconds
	OpenTimeout time.Duration

	// MinRequests is the sample size required before the breaker may trip.
	// Default: 5
	MinRequests uint32

	// FailureRatio trips the breaker once reached over MinRequests.
	// Default: 0.5
	FailureRatio float64

	// OnStateChange is called when the breaker changes state.
	OnStateChange func(name string, from, to gobreaker.State)
}

// DefaultBreakerConfig returns the breaker settings used for geocoding and data providers.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:             name,
		HalfOpenRequests: 1,
		OpenTimeout:      30 * time.Second,
		MinRequests:      5,
		FailureRatio:     0.5,
	}
}

func (c BreakerConfig) withDefaults() BreakerConfig {
	if c.HalfOpenRequests == 0 {
		c.HalfOpenRequests = 1
	}
	if c.OpenTimeout == 0 {
		c.OpenTimeout = 30 * time.Second
	}
	if c.MinRequests == 0 {
		c.MinRequests = 5
	}
	if c.FailureRatio == 0 {
		c.FailureRatio = 0.5
	}
	return c
}

// NewBreaker creates a typed circuit breaker from cfg.
func NewBreaker[T any](cfg BreakerConfig) *gobreaker.CircuitBreaker[T] {
	cfg = cfg.withDefaults()
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.HalfOpenRequests,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
	}
	if cfg.OnStateChange != nil {
		settings.OnStateChange = cfg.OnStateChange
	}
	return gobreaker.NewCircuitBreaker[T](settings)
}
