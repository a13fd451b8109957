package worker

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/floodwatch/floodwatch/internal/geo"
	"github.com/floodwatch/floodwatch/internal/risk"
	"github.com/floodwatch/floodwatch/internal/snapshot"
)

// Sink receives the snapshots produced by the monitor.
type Sink interface {
	Write(ctx context.Context, snapshots []*snapshot.Snapshot) error
}

// MonitorJob assesses a fixed set of coordinates and forwards the snapshots.
type MonitorJob struct {
	config   MonitorConfig
	pipeline *Pipeline
	sink     Sink
	clock    clockwork.Clock
	logger   zerolog.Logger
	metrics  *Metrics

	stats *MonitorStats
}

// MonitorStats tracks monitor job statistics.
type MonitorStats struct {
	mu sync.RWMutex

	// Counters
	TotalRuns       int64
	Assessed        int64
	Failed          int64
	SinkFailures    int64
	HighOrCritical  int64
	SyntheticLevels int64

	// Timings
	LastRunAt       time.Time
	LastRunDuration time.Duration
	TotalDuration   time.Duration
}

// MonitorJobConfig holds configuration for creating a MonitorJob.
type MonitorJobConfig struct {
	Config   MonitorConfig
	Pipeline *Pipeline
	// Sink is optional; without one snapshots are only logged.
	Sink    Sink
	Clock   clockwork.Clock
	Logger  zerolog.Logger
	Metrics *Metrics
}

// NewMonitorJob creates a new monitor job.
func NewMonitorJob(cfg MonitorJobConfig) *MonitorJob {
	config := cfg.Config
	if len(config.Targets) == 0 {
		config.Targets = DefaultMonitorTargets()
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 3
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	pipeline := cfg.Pipeline
	if pipeline == nil {
		pipeline = NewPipeline(PipelineConfig{Clock: clock, Logger: cfg.Logger, Metrics: cfg.Metrics})
	}

	return &MonitorJob{
		config:   config,
		pipeline: pipeline,
		sink:     cfg.Sink,
		clock:    clock,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		stats:    &MonitorStats{},
	}
}

// MonitorResult contains the result of one monitor run.
type MonitorResult struct {
	StartTime   time.Time
	EndTime     time.Time
	Duration    time.Duration
	TotalPoints int
	Assessed    int
	Failed      int
	Snapshots   []*snapshot.Snapshot
	SinkErr     error
}

// Run assesses every configured point and writes the snapshots to the sink.
func (j *MonitorJob) Run(ctx context.Context) *MonitorResult {
	startTime := j.clock.Now()
	result := &MonitorResult{
		StartTime:   startTime,
		TotalPoints: j.config.TotalPoints(),
	}

	j.logger.Info().
		Int("total_points", result.TotalPoints).
		Int("concurrency", j.config.Concurrency).
		Msg("starting flood monitor run")

	points := j.config.AllPoints()

	pointsChan := make(chan geo.Coordinate, len(points))
	resultsChan := make(chan pointResult, len(points))

	var wg sync.WaitGroup
	for i := 0; i < j.config.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			j.assessWorker(ctx, pointsChan, resultsChan)
		}()
	}

	for _, p := range points {
		pointsChan <- p
	}
	close(pointsChan)

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	for pr := range resultsChan {
		if pr.snapshot == nil {
			result.Failed++
			j.metrics.assessed(false)
			continue
		}
		result.Assessed++
		j.metrics.assessed(true)
		result.Snapshots = append(result.Snapshots, pr.snapshot)
	}

	if j.sink != nil && len(result.Snapshots) > 0 {
		if err := j.sink.Write(ctx, result.Snapshots); err != nil {
			result.SinkErr = err
			j.logger.Error().Err(err).Int("snapshots", len(result.Snapshots)).Msg("failed to write monitor snapshots")
		}
	}

	result.EndTime = j.clock.Now()
	result.Duration = result.EndTime.Sub(startTime)

	j.updateStats(result)

	j.logger.Info().
		Dur("duration", result.Duration).
		Int("assessed", result.Assessed).
		Int("failed", result.Failed).
		Msg("flood monitor run completed")

	return result
}

type pointResult struct {
	point    geo.Coordinate
	snapshot *snapshot.Snapshot
}

func (j *MonitorJob) assessWorker(ctx context.Context, points <-chan geo.Coordinate, results chan<- pointResult) {
	for point := range points {
		select {
		case <-ctx.Done():
			results <- pointResult{point: point}
		default:
			results <- j.assessPoint(ctx, point)
		}
	}
}

func (j *MonitorJob) assessPoint(ctx context.Context, point geo.Coordinate) pointResult {
	pointCtx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	snap := j.pipeline.Evaluate(pointCtx, point)

	j.logger.Debug().
		Float64("lat", point.Lat).
		Float64("lon", point.Lon).
		Str("state", snap.Region.State).
		Str("classification", string(snap.Classification)).
		Msg("point assessed")

	return pointResult{point: point, snapshot: snap}
}

func (j *MonitorJob) updateStats(result *MonitorResult) {
	j.stats.mu.Lock()
	defer j.stats.mu.Unlock()

	j.stats.TotalRuns++
	j.stats.Assessed += int64(result.Assessed)
	j.stats.Failed += int64(result.Failed)
	if result.SinkErr != nil {
		j.stats.SinkFailures++
	}
	for _, s := range result.Snapshots {
		if s.Classification.Rank() >= risk.ClassificationHigh.Rank() {
			j.stats.HighOrCritical++
		}
		if s.Synthetic() {
			j.stats.SyntheticLevels++
		}
	}
	j.stats.LastRunAt = result.EndTime
	j.stats.LastRunDuration = result.Duration
	j.stats.TotalDuration += result.Duration
}

// GetStats returns a copy of the current statistics.
func (j *MonitorJob) GetStats() MonitorStats {
	j.stats.mu.RLock()
	defer j.stats.mu.RUnlock()

	return MonitorStats{
		TotalRuns:       j.stats.TotalRuns,
		Assessed:        j.stats.Assessed,
		Failed:          j.stats.Failed,
		SinkFailures:    j.stats.SinkFailures,
		HighOrCritical:  j.stats.HighOrCritical,
		SyntheticLevels: j.stats.SyntheticLevels,
		LastRunAt:       j.stats.LastRunAt,
		LastRunDuration: j.stats.LastRunDuration,
		TotalDuration:   j.stats.TotalDuration,
	}
}

// StatsSnapshot returns the current statistics as a map.
func (j *MonitorJob) StatsSnapshot() map[string]interface{} {
	s := j.GetStats()
	return map[string]interface{}{
		"total_runs":        s.TotalRuns,
		"assessed":          s.Assessed,
		"failed":            s.Failed,
		"sink_failures":     s.SinkFailures,
		"high_or_critical":  s.HighOrCritical,
		"synthetic_levels":  s.SyntheticLevels,
		"last_run_at":       s.LastRunAt,
		"last_run_duration": s.LastRunDuration.String(),
		"total_duration":    s.TotalDuration.String(),
	}
}
