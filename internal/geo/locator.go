package geo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/floodwatch/floodwatch/internal/fault"
)

// DefaultCoordinate is used when the device location cannot be obtained (New Delhi).
var DefaultCoordinate = Coordinate{Lat: 28.6139, Lon: 77.2090}

// DefaultRegion is the region of DefaultCoordinate. It stands in for the
// bounding-box table, whose Haryana box encloses Delhi.
var DefaultRegion = Region{District: "New Delhi", State: "Delhi", Country: DefaultCountry, City: "New Delhi"}

// DefaultLocateTimeout bounds a single location request.
const DefaultLocateTimeout = 10 * time.Second

// ErrLocationTimeout is returned when the device does not answer in time.
var ErrLocationTimeout = fmt.Errorf("location request timed out: %w", fault.ErrUnavailable)

// Locator is the device location capability.
type Locator interface {
	Locate(ctx context.Context) (Coordinate, error)
}

// LocatorFunc adapts a function to the Locator interface.
type LocatorFunc func(ctx context.Context) (Coordinate, error)

// Locate calls f.
func (f LocatorFunc) Locate(ctx context.Context) (Coordinate, error) {
	return f(ctx)
}

// StaticLocator returns a fixed coordinate or a fixed error.
type StaticLocator struct {
	Coordinate Coordinate
	Err        error
}

// Locate returns the configured coordinate or error.
func (l StaticLocator) Locate(_ context.Context) (Coordinate, error) {
	if l.Err != nil {
		return Coordinate{}, l.Err
	}
	return l.Coordinate, nil
}

// DeviceLocator holds the last position reported by a remote client. The
// client pushes fixes or failures; Locate replays the latest one.
type DeviceLocator struct {
	mu    sync.Mutex
	fixed StaticLocator
}

// NewDeviceLocator returns a locator seeded with an initial report.
func NewDeviceLocator(c Coordinate, err error) *DeviceLocator {
	return &DeviceLocator{fixed: StaticLocator{Coordinate: c, Err: err}}
}

// Report replaces the last known position, or records why none is available.
func (d *DeviceLocator) Report(c Coordinate, err error) {
	d.mu.Lock()
	d.fixed = StaticLocator{Coordinate: c, Err: err}
	d.mu.Unlock()
}

// Locate returns the latest report.
func (d *DeviceLocator) Locate(ctx context.Context) (Coordinate, error) {
	d.mu.Lock()
	fixed := d.fixed
	d.mu.Unlock()
	return fixed.Locate(ctx)
}

// Fix is the outcome of a location request.
type Fix struct {
	Coordinate Coordinate
	// Defaulted is set when DefaultCoordinate was substituted.
	Defaulted bool
	// DefaultRegion is the region to use for a substituted location when
	// geocoding falls back. Set together with Defaulted.
	DefaultRegion Region
	// Notice is the advisory text for a substituted location.
	Notice string
	Err    error
}

// Settle replaces a fallback region with DefaultRegion for a defaulted fix.
// Geocoded and cached regions are kept.
func (f Fix) Settle(res Resolution) Resolution {
	if f.Defaulted && res.Fallback() {
		res.Region = f.DefaultRegion
	}
	return res
}

func defaultFix(err error) Fix {
	return Fix{Coordinate: DefaultCoordinate, Defaulted: true, DefaultRegion: DefaultRegion, Notice: NoticeFor(err), Err: err}
}

// Locate asks l for a coordinate, bounded by timeout. Any failure yields
// DefaultCoordinate with an advisory notice.
func Locate(ctx context.Context, l Locator, timeout time.Duration) Fix {
	if l == nil {
		return defaultFix(fault.ErrUnavailable)
	}
	if timeout <= 0 {
		timeout = DefaultLocateTimeout
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	c, err := l.Locate(callCtx)
	if err == nil {
		err = c.Validate()
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = ErrLocationTimeout
		}
		return defaultFix(err)
	}
	return Fix{Coordinate: c}
}

// NoticeFor returns the user-facing advisory for a location failure.
func NoticeFor(err error) string {
	switch {
	case errors.Is(err, fault.ErrDenied):
		return "Location access denied. Using default location (Delhi)."
	case errors.Is(err, ErrLocationTimeout):
		return "Location request timed out. Using default location (Delhi)."
	default:
		return "Location information is unavailable. Using default location (Delhi)."
	}
}
