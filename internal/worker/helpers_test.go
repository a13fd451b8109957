package worker_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/floodwatch/floodwatch/internal/alert"
	"github.com/floodwatch/floodwatch/internal/changefeed"
	"github.com/floodwatch/floodwatch/internal/geo"
	"github.com/floodwatch/floodwatch/internal/risk"
	"github.com/floodwatch/floodwatch/internal/sensor"
	"github.com/floodwatch/floodwatch/internal/snapshot"
	"github.com/floodwatch/floodwatch/internal/worker"
)

var (
	kolkata = geo.Coordinate{Lat: 22.5726, Lon: 88.3639}
	patna   = geo.Coordinate{Lat: 25.5941, Lon: 85.1376}

	westBengal = geo.Region{State: "West Bengal", District: "Kolkata", Country: "India"}

	// Mid-monsoon morning.
	monsoonDay = time.Date(2026, time.July, 15, 6, 0, 0, 0, time.UTC)
)

type fixedRand float64

func (f fixedRand) Float64() float64 { return float64(f) }

// countingRegions resolves every coordinate to region.
type countingRegions struct {
	mu     sync.Mutex
	region geo.Region
	err    error
	calls  int
}

func (r *countingRegions) Resolve(_ context.Context, c geo.Coordinate) geo.Resolution {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.err != nil {
		return geo.Resolution{Region: geo.FallbackRegion(c), Source: geo.SourceFallback, Err: r.err}
	}
	return geo.Resolution{Region: r.region, Source: geo.SourceGeocoder}
}

func (r *countingRegions) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// stubAlerts returns fixed alerts or a fixed error.
type stubAlerts struct {
	alerts []alert.Alert
	err    error
}

func (s stubAlerts) ListActive(context.Context, string) ([]alert.Alert, error) {
	return s.alerts, s.err
}

// blockingReadings holds every call until release is closed or ctx ends.
type blockingReadings struct {
	mu      sync.Mutex
	calls   int
	entered chan struct{}
	release chan struct{}
	reading *sensor.Reading
}

func newBlockingReadings() *blockingReadings {
	return &blockingReadings{
		entered: make(chan struct{}, 16),
		release: make(chan struct{}),
	}
}

func (b *blockingReadings) LatestReading(ctx context.Context, _ geo.Region) (*sensor.Reading, error) {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()

	select {
	case b.entered <- struct{}{}:
	default:
	}
	select {
	case <-b.release:
		return b.reading, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (b *blockingReadings) Calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

// stubReadings returns a fixed reading or error.
type stubReadings struct {
	reading *sensor.Reading
	err     error
}

func (s stubReadings) LatestReading(context.Context, geo.Region) (*sensor.Reading, error) {
	return s.reading, s.err
}

// recordingSource records subscriptions and how often each was released.
type recordingSource struct {
	mu       sync.Mutex
	subs     []*recordedSub
	failWith error
}

type recordedSub struct {
	Table    changefeed.Table
	State    string
	Released int
	handler  changefeed.Handler
}

func (s *recordingSource) Subscribe(_ context.Context, table changefeed.Table, state string, fn changefeed.Handler) (changefeed.Unsubscribe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	sub := &recordedSub{Table: table, State: state, handler: fn}
	s.subs = append(s.subs, sub)
	return func() {
		s.mu.Lock()
		sub.Released++
		s.mu.Unlock()
	}, nil
}

// Subs returns copies of the recorded subscriptions.
func (s *recordingSource) Subs() []recordedSub {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]recordedSub, len(s.subs))
	for i, sub := range s.subs {
		out[i] = *sub
	}
	return out
}

// collector records observed snapshots.
type collector struct {
	mu        sync.Mutex
	snapshots []*snapshot.Snapshot
}

func (c *collector) Observe(s *snapshot.Snapshot) {
	c.mu.Lock()
	c.snapshots = append(c.snapshots, s)
	c.mu.Unlock()
}

func (c *collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.snapshots)
}

var errDown = errors.New("connection refused")

func newPipeline(clock clockwork.Clock, cfg worker.PipelineConfig) *worker.Pipeline {
	cfg.Clock = clock
	cfg.Logger = zerolog.Nop()
	if cfg.Estimator == nil {
		cfg.Estimator = risk.NewEstimator(risk.EstimatorConfig{
			Rand:   fixedRand(0.5),
			Clock:  clock,
			Logger: zerolog.Nop(),
		})
	}
	return worker.NewPipeline(cfg)
}

func sequence(s *worker.Scheduler) uint64 {
	snap := s.Snapshot()
	if snap == nil {
		return 0
	}
	return snap.Sequence
}
