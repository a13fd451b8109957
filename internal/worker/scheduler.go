package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/floodwatch/floodwatch/internal/changefeed"
	"github.com/floodwatch/floodwatch/internal/geo"
	"github.com/floodwatch/floodwatch/internal/snapshot"
)

// Scheduler defaults.
const (
	DefaultInterval    = 2 * time.Second
	DefaultPassTimeout = 8 * time.Second
)

// State is the lifecycle state of a session scheduler.
type State string

const (
	StateIdle      State = "IDLE"
	StateResolving State = "RESOLVING"
	StateComputing State = "COMPUTING"
	StatePublished State = "PUBLISHED"
	StateStopped   State = "STOPPED"
)

// Trigger reasons, used in logs and spans.
const (
	triggerStart  = "start"
	triggerTick   = "tick"
	triggerManual = "manual"
	triggerChange = "change"
)

// watchedTables are subscribed for the session's state.
var watchedTables = []changefeed.Table{
	changefeed.TableAlerts,
	changefeed.TableReadings,
	changefeed.TableContacts,
}

// Observer is called with every published snapshot. Observers run on the
// publishing goroutine and must neither block nor call Teardown.
type Observer func(*snapshot.Snapshot)

// IntervalSource overrides the tick interval at start. *featureflags.Service
// satisfies it.
type IntervalSource interface {
	RefreshInterval(ctx context.Context, fallback time.Duration) time.Duration
}

// SchedulerConfig holds configuration for a session scheduler.
type SchedulerConfig struct {
	// Pipeline computes snapshots. Required.
	Pipeline *Pipeline

	// Locator provides the device coordinate. Nil means the default coordinate.
	Locator geo.Locator

	// Changes delivers upstream change notifications. Optional.
	Changes changefeed.Source

	// Interval between timer-driven passes (default: 2 seconds).
	Interval time.Duration

	// Intervals can override Interval at runtime. Optional.
	Intervals IntervalSource

	// PassTimeout bounds one resolve-compute pass (default: 8 seconds).
	PassTimeout time.Duration

	// LocateTimeout bounds a location request (default: geo.DefaultLocateTimeout).
	LocateTimeout time.Duration

	Clock   clockwork.Clock
	Logger  zerolog.Logger
	Metrics *Metrics
}

// Scheduler drives one dashboard session: it locates the device, resolves
// the region, and republishes a snapshot on every tick, change notification
// or manual refresh. At most one pass is in flight; overlapping triggers
// are dropped.
type Scheduler struct {
	pipeline      *Pipeline
	locator       geo.Locator
	changes       changefeed.Source
	interval      time.Duration
	intervals     IntervalSource
	passTimeout   time.Duration
	locateTimeout time.Duration
	clock         clockwork.Clock
	logger        zerolog.Logger
	metrics       *Metrics
	tracer        trace.Tracer

	current  atomic.Pointer[snapshot.Snapshot]
	inFlight atomic.Bool

	// pubMu serializes publishing against teardown. Lock order: pubMu, then mu.
	pubMu sync.Mutex

	mu           sync.Mutex
	ctx          context.Context
	cancel       context.CancelFunc
	started      bool
	tornDown     bool
	state        State
	seq          uint64
	fix          geo.Fix
	resolution   geo.Resolution
	located      bool
	observers    map[uint64]Observer
	nextObserver uint64
	watching     bool
	watchState   string
	unsubs       []changefeed.Unsubscribe
	done         chan struct{}

	wg           sync.WaitGroup
	teardownOnce sync.Once
}

// NewScheduler creates an idle scheduler. Call Start to begin.
func NewScheduler(cfg SchedulerConfig) *Scheduler {
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	passTimeout := cfg.PassTimeout
	if passTimeout <= 0 {
		passTimeout = DefaultPassTimeout
	}
	locateTimeout := cfg.LocateTimeout
	if locateTimeout <= 0 {
		locateTimeout = geo.DefaultLocateTimeout
	}
	pipeline := cfg.Pipeline
	if pipeline == nil {
		pipeline = NewPipeline(PipelineConfig{Clock: clock, Logger: cfg.Logger, Metrics: cfg.Metrics})
	}

	return &Scheduler{
		pipeline:      pipeline,
		locator:       cfg.Locator,
		changes:       cfg.Changes,
		interval:      interval,
		intervals:     cfg.Intervals,
		passTimeout:   passTimeout,
		locateTimeout: locateTimeout,
		clock:         clock,
		logger:        cfg.Logger,
		metrics:       cfg.Metrics,
		tracer:        otel.Tracer(tracerName),
		state:         StateIdle,
		observers:     make(map[uint64]Observer),
		done:          make(chan struct{}),
	}
}

// Start begins the session: one initial locate-resolve-compute pass, then
// timer-driven passes. The scheduler outlives ctx's cancellation but keeps
// its values; use Teardown to stop it. Start is a no-op after the first call.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started || s.tornDown {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.ctx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	interval := s.interval
	if s.intervals != nil {
		interval = s.intervals.RefreshInterval(ctx, s.interval)
	}
	s.wg.Add(1)
	go s.loop(s.ctx, interval)
	s.mu.Unlock()

	s.logger.Info().Dur("interval", interval).Msg("refresh scheduler started")
	s.trigger(triggerStart, true)
}

// Snapshot returns the latest published snapshot, or nil before the first publish.
func (s *Scheduler) Snapshot() *snapshot.Snapshot {
	return s.current.Load()
}

// State returns the current lifecycle state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// RefreshNow re-locates the device, re-resolves the region and recomputes.
// It reports whether a pass was started; false means one was already in
// flight or the scheduler is not running.
func (s *Scheduler) RefreshNow(_ context.Context) bool {
	return s.trigger(triggerManual, true)
}

// Observe registers fn for every subsequent publish and returns a function
// that unregisters it.
func (s *Scheduler) Observe(fn Observer) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tornDown {
		return func() {}
	}
	id := s.nextObserver
	s.nextObserver++
	s.observers[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.observers, id)
			s.mu.Unlock()
		})
	}
}

// Done is closed once Teardown has completed.
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}

// Teardown stops the scheduler, abandons any in-flight pass and releases
// every change subscription exactly once. No snapshot is published after
// Teardown returns. It is safe to call more than once.
func (s *Scheduler) Teardown() {
	s.teardownOnce.Do(func() {
		s.pubMu.Lock()
		s.mu.Lock()
		s.tornDown = true
		s.observers = nil
		cancel := s.cancel
		s.mu.Unlock()
		s.pubMu.Unlock()

		if cancel != nil {
			cancel()
		}
		s.wg.Wait()

		s.mu.Lock()
		unsubs := s.unsubs
		s.unsubs = nil
		s.watching = false
		s.state = StateStopped
		s.mu.Unlock()

		for _, unsubscribe := range unsubs {
			unsubscribe()
		}

		close(s.done)
		s.logger.Info().Int("subscriptions_released", len(unsubs)).Msg("refresh scheduler stopped")
	})
}

func (s *Scheduler) loop(ctx context.Context, interval time.Duration) {
	defer s.wg.Done()

	ticker := s.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			s.trigger(triggerTick, false)
		}
	}
}

// trigger starts a pass unless one is in flight. resolve forces a fresh
// location and region.
func (s *Scheduler) trigger(reason string, resolve bool) bool {
	s.mu.Lock()
	if !s.started || s.tornDown {
		s.mu.Unlock()
		return false
	}
	if !s.inFlight.CompareAndSwap(false, true) {
		s.mu.Unlock()
		s.metrics.coalesced()
		s.logger.Debug().Str("trigger", reason).Msg("pass in flight, trigger coalesced")
		return false
	}
	s.wg.Add(1)
	ctx := s.ctx
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer s.inFlight.Store(false)
		s.pass(ctx, reason, resolve)
	}()
	return true
}

func (s *Scheduler) onChange(c changefeed.Change) {
	s.logger.Debug().
		Str("table", string(c.Table)).
		Str("id", c.ID).
		Msg("upstream change received")
	s.trigger(triggerChange, false)
}

func (s *Scheduler) pass(ctx context.Context, reason string, resolve bool) {
	start := s.clock.Now()

	ctx, cancel := context.WithTimeout(ctx, s.passTimeout)
	defer cancel()

	ctx, span := s.tracer.Start(ctx, "refresh.pass",
		trace.WithAttributes(
			attribute.String("trigger", reason),
			attribute.Bool("resolve", resolve),
		))
	defer span.End()

	s.mu.Lock()
	fix, res, located := s.fix, s.resolution, s.located
	s.mu.Unlock()

	if resolve || !located {
		s.setState(StateResolving)
		fix = geo.Locate(ctx, s.locator, s.locateTimeout)
		res = s.pipeline.ResolveFix(ctx, fix)

		s.mu.Lock()
		changed := !located || !res.Region.Equal(s.resolution.Region)
		s.fix, s.resolution, s.located = fix, res, true
		s.mu.Unlock()

		if changed {
			s.logger.Info().
				Str("state", res.Region.State).
				Str("district", res.Region.District).
				Str("source", string(res.Source)).
				Bool("location_defaulted", fix.Defaulted).
				Msg("session region resolved")
		}
		s.watch(ctx, res.Region.State)
	}

	s.setState(StateComputing)
	snap := s.pipeline.Compute(ctx, fix, res)

	if s.publish(snap) {
		elapsed := s.clock.Since(start)
		s.metrics.published(elapsed)
		span.SetAttributes(attribute.Int64("snapshot.sequence", int64(snap.Sequence)))
		s.logger.Info().
			Uint64("sequence", snap.Sequence).
			Str("trigger", reason).
			Str("classification", string(snap.Classification)).
			Int("score", snap.Score).
			Int("notices", len(snap.Notices)).
			Dur("duration", elapsed).
			Msg("snapshot published")
		s.setState(StateIdle)
	}
}

// publish swaps in snap and notifies observers. It reports false once the
// scheduler has been torn down.
func (s *Scheduler) publish(snap *snapshot.Snapshot) bool {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()

	s.mu.Lock()
	if s.tornDown {
		s.mu.Unlock()
		return false
	}
	s.seq++
	snap.Sequence = s.seq
	s.current.Store(snap)
	s.state = StatePublished
	observers := make([]Observer, 0, len(s.observers))
	for _, fn := range s.observers {
		observers = append(observers, fn)
	}
	s.mu.Unlock()

	for _, fn := range observers {
		fn(snap)
	}
	return true
}

func (s *Scheduler) setState(state State) {
	s.mu.Lock()
	if !s.tornDown {
		s.state = state
	}
	s.mu.Unlock()
}

// watch keys the change subscriptions to state, releasing the previous set
// when the state changed.
func (s *Scheduler) watch(ctx context.Context, state string) {
	if s.changes == nil {
		return
	}

	s.mu.Lock()
	if s.tornDown || (s.watching && s.watchState == state) {
		s.mu.Unlock()
		return
	}
	previous := s.unsubs
	s.unsubs = nil
	s.watching = false
	s.mu.Unlock()

	for _, unsubscribe := range previous {
		unsubscribe()
	}

	unsubs := make([]changefeed.Unsubscribe, 0, len(watchedTables))
	for _, table := range watchedTables {
		unsubscribe, err := s.changes.Subscribe(ctx, table, state, s.onChange)
		if err != nil {
			s.logger.Error().
				Err(err).
				Str("table", string(table)).
				Str("state", state).
				Msg("failed to subscribe to changes")
			continue
		}
		unsubs = append(unsubs, unsubscribe)
	}

	s.mu.Lock()
	if s.tornDown {
		s.mu.Unlock()
		for _, unsubscribe := range unsubs {
			unsubscribe()
		}
		return
	}
	s.unsubs = unsubs
	s.watchState = state
	// A partial set is retried on the next resolve.
	s.watching = len(unsubs) == len(watchedTables)
	s.mu.Unlock()
}
