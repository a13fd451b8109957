package geo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/floodwatch/floodwatch/internal/fault"
	"github.com/floodwatch/floodwatch/internal/featureflags"
)

// Geocoder defines the interface for reverse-geocoding providers.
type Geocoder interface {
	// ReverseGeocode maps a coordinate to a region. Failures should wrap
	// fault.ErrUnavailable or fault.ErrMalformed.
	ReverseGeocode(ctx context.Context, c Coordinate) (*Region, error)

	// Name returns the provider name for logging.
	Name() string
}

// Source records where a resolved region came from.
type Source string

const (
	SourceGeocoder Source = "GEOCODER"
	SourceCache    Source = "CACHE"
	SourceStale    Source = "STALE_CACHE"
	SourceFallback Source = "FALLBACK"
)

// Resolution is the result of resolving a coordinate.
type Resolution struct {
	Region Region
	Source Source
	// Err is the provider failure that forced a fallback, if any.
	Err error
}

// Fallback reports whether the region came from the bounding-box table.
func (r Resolution) Fallback() bool {
	return r.Source == SourceFallback
}

// ResolverConfig holds configuration for the region resolver.
type ResolverConfig struct {
	// Geocoder is the reverse-geocoding provider. Nil means fallback only.
	Geocoder Geocoder

	// Logger for resolver operations.
	Logger zerolog.Logger

	// Timeout bounds a single geocoder call (default: 10 seconds).
	Timeout time.Duration

	// CacheTTL is how long a geocoded region is reused (default: 1 hour).
	CacheTTL time.Duration

	// StaleIfErrorTTL allows serving an expired region on provider errors (default: 24 hours).
	StaleIfErrorTTL time.Duration

	// Clock is the time source (default: real clock).
	Clock clockwork.Clock

	// Toggles enables cached-only resolution at runtime. Optional.
	Toggles featureflags.Toggles
}

// Resolver maps coordinates to regions with caching and a deterministic fallback.
type Resolver struct {
	geocoder        Geocoder
	logger          zerolog.Logger
	timeout         time.Duration
	cacheTTL        time.Duration
	staleIfErrorTTL time.Duration
	clock           clockwork.Clock
	toggles         featureflags.Toggles

	mu    sync.RWMutex
	cache map[string]*cachedRegion
}

type cachedRegion struct {
	region    Region
	fetchedAt time.Time
	expiresAt time.Time
}

// NewResolver creates a new region resolver.
func NewResolver(cfg ResolverConfig) *Resolver {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 1 * time.Hour
	}

	staleIfErrorTTL := cfg.StaleIfErrorTTL
	if staleIfErrorTTL == 0 {
		staleIfErrorTTL = 24 * time.Hour
	}

	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &Resolver{
		geocoder:        cfg.Geocoder,
		logger:          cfg.Logger,
		timeout:         timeout,
		cacheTTL:        cacheTTL,
		staleIfErrorTTL: staleIfErrorTTL,
		clock:           clock,
		toggles:         cfg.Toggles,
		cache:           make(map[string]*cachedRegion),
	}
}

// Resolve maps c to a region. It never fails: provider errors and invalid
// coordinates fall back to the bounding-box table.
func (r *Resolver) Resolve(ctx context.Context, c Coordinate) Resolution {
	if err := c.Validate(); err != nil {
		return Resolution{Region: FallbackRegion(c), Source: SourceFallback, Err: fault.Malformed("validate coordinate", err)}
	}

	if r.geocoder == nil {
		return Resolution{Region: FallbackRegion(c), Source: SourceFallback}
	}

	key := cacheKey(c)

	r.mu.RLock()
	if cached, ok := r.cache[key]; ok && r.clock.Now().Before(cached.expiresAt) {
		r.mu.RUnlock()
		return Resolution{Region: cached.region, Source: SourceCache}
	}
	r.mu.RUnlock()

	if r.toggles != nil && r.toggles.IsEnabled(ctx, featureflags.FlagCachedOnlyGeocoding) {
		return r.fromCache(c, key, fault.Unavailable("reverse geocode", fmt.Errorf("geocoding disabled")))
	}

	return r.fetch(ctx, c, key)
}

func (r *Resolver) fetch(ctx context.Context, c Coordinate, key string) Resolution {
	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	region, err := r.geocoder.ReverseGeocode(callCtx, c)
	if err == nil && region != nil {
		normalized := region.Normalized()
		if normalized.Known() {
			now := r.clock.Now()
			r.mu.Lock()
			r.cache[key] = &cachedRegion{
				region:    normalized,
				fetchedAt: now,
				expiresAt: now.Add(r.cacheTTL),
			}
			r.mu.Unlock()
			return Resolution{Region: normalized, Source: SourceGeocoder}
		}
		err = fault.Malformed("reverse geocode", fmt.Errorf("no state in response"))
	}
	if err == nil {
		err = fault.Malformed("reverse geocode", fmt.Errorf("empty response"))
	}

	return r.fromCache(c, key, err)
}

// fromCache serves a stale cached region within the stale-if-error window,
// else the bounding-box fallback.
func (r *Resolver) fromCache(c Coordinate, key string, err error) Resolution {
	r.mu.RLock()
	cached, ok := r.cache[key]
	r.mu.RUnlock()
	if ok && r.clock.Now().Before(cached.fetchedAt.Add(r.staleIfErrorTTL)) {
		r.logger.Warn().
			Err(err).
			Time("fetched_at", cached.fetchedAt).
			Msg("serving stale region due to geocoder error")
		return Resolution{Region: cached.region, Source: SourceStale, Err: err}
	}

	fallback := FallbackRegion(c)
	r.logger.Warn().
		Err(err).
		Str("provider", r.geocoder.Name()).
		Str("kind", string(fault.KindOf(err))).
		Str("state", fallback.State).
		Msg("reverse geocoding failed, using bounding-box fallback")

	return Resolution{Region: fallback, Source: SourceFallback, Err: err}
}

// cacheKey snaps coordinates to a ~100m grid.
func cacheKey(c Coordinate) string {
	return fmt.Sprintf("%.3f:%.3f", c.Lat, c.Lon)
}
