package risk

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/floodwatch/floodwatch/internal/fault"
	"github.com/floodwatch/floodwatch/internal/featureflags"
	"github.com/floodwatch/floodwatch/internal/geo"
	"github.com/floodwatch/floodwatch/internal/sensor"
)

// Estimator bounds and multipliers.
const (
	BaseWaterLevel     = 2.0
	SeasonalMultiplier = 1.5
	StateMultiplier    = 1.3
	JitterAmplitude    = 0.25
	MinEstimatedLevel  = 1.0
	MaxEstimatedLevel  = 5.0

	DefaultStaleness = 10 * time.Minute
)

var highWaterStates = map[string]bool{
	"west bengal": true,
	"bihar":       true,
	"assam":       true,
}

// RandomSource supplies uniform values in [0, 1). *rand.Rand satisfies it.
type RandomSource interface {
	Float64() float64
}

// EstimatorConfig holds configuration for the water-level estimator.
type EstimatorConfig struct {
	// Rand drives the jitter (default: time-seeded math/rand).
	Rand RandomSource

	// Clock is used for reading freshness and synthetic timestamps.
	Clock clockwork.Clock

	// Staleness is the maximum age of a usable live reading (default: 10 minutes).
	Staleness time.Duration

	// Toggles can force synthetic estimates. Optional.
	Toggles featureflags.Toggles

	Logger zerolog.Logger
}

// Estimator produces the current water level for a region.
type Estimator struct {
	clock     clockwork.Clock
	staleness time.Duration
	toggles   featureflags.Toggles
	logger    zerolog.Logger

	mu  sync.Mutex
	rnd RandomSource
}

// NewEstimator creates a new water-level estimator.
func NewEstimator(cfg EstimatorConfig) *Estimator {
	rnd := cfg.Rand
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano())) //nolint:gosec // jitter, not security
	}
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	staleness := cfg.Staleness
	if staleness == 0 {
		staleness = DefaultStaleness
	}
	return &Estimator{
		clock:     clock,
		staleness: staleness,
		toggles:   cfg.Toggles,
		logger:    cfg.Logger,
		rnd:       rnd,
	}
}

// Staleness returns the freshness threshold for live readings.
func (e *Estimator) Staleness() time.Duration {
	return e.staleness
}

// Estimate returns the live reading when it is fresh, otherwise a synthetic
// estimate. The returned level is always usable; err explains why a supplied
// live reading was ignored (fault.ErrStale or fault.ErrMalformed).
func (e *Estimator) Estimate(ctx context.Context, region geo.Region, f Factors, live *sensor.Reading) (WaterLevel, error) {
	now := e.clock.Now()

	var rejected error
	if live != nil {
		rejected = e.checkLive(ctx, *live, now)
		if rejected == nil {
			return WaterLevel{
				Meters:     live.WaterLevel,
				SensorID:   live.SensorID,
				RecordedAt: live.RecordedAt,
			}, nil
		}
		e.logger.Warn().
			Err(rejected).
			Str("sensor_id", live.SensorID).
			Str("state", region.State).
			Msg("ignoring live reading, using synthetic water level")
	}

	return WaterLevel{
		Meters:     e.synthesize(region, f),
		Synthetic:  true,
		RecordedAt: now,
	}, rejected
}

func (e *Estimator) checkLive(ctx context.Context, r sensor.Reading, now time.Time) error {
	if e.toggles != nil && e.toggles.IsEnabled(ctx, featureflags.FlagSyntheticWaterLevelOnly) {
		return fault.Unavailable("live reading", fmt.Errorf("live readings disabled"))
	}
	if r.WaterLevel < 0 || math.IsNaN(r.WaterLevel) || math.IsInf(r.WaterLevel, 0) {
		return fault.Malformed("live reading", fmt.Errorf("water level %v", r.WaterLevel))
	}
	if age := r.Age(now); age >= e.staleness {
		return fault.Stale("live reading", fmt.Errorf("age %s exceeds %s", age.Round(time.Second), e.staleness))
	}
	return nil
}

func (e *Estimator) synthesize(region geo.Region, f Factors) float64 {
	level := BaseWaterLevel
	if f.SeasonalRisk == LevelHigh {
		level *= SeasonalMultiplier
	}
	if highWaterStates[strings.ToLower(region.State)] {
		level *= StateMultiplier
	}

	e.mu.Lock()
	u := e.rnd.Float64()
	e.mu.Unlock()
	level += (u*2 - 1) * JitterAmplitude

	level = math.Max(MinEstimatedLevel, math.Min(MaxEstimatedLevel, level))
	return math.Round(level*100) / 100
}
