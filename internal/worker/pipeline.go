package worker

import (
	"context"
	"errors"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/floodwatch/floodwatch/internal/alert"
	"github.com/floodwatch/floodwatch/internal/contact"
	"github.com/floodwatch/floodwatch/internal/fault"
	"github.com/floodwatch/floodwatch/internal/geo"
	"github.com/floodwatch/floodwatch/internal/risk"
	"github.com/floodwatch/floodwatch/internal/sensor"
	"github.com/floodwatch/floodwatch/internal/snapshot"
)

const tracerName = "github.com/floodwatch/floodwatch/internal/worker"

// Advisory messages attached to snapshots.
const (
	msgRegionFallback    = "Location service unavailable. Region estimated from coordinates."
	msgSensorUnavailable = "Live sensor data unavailable. Showing estimated water level."
	msgSensorStale       = "Sensor data is stale. Showing estimated water level."
	msgEstimated         = "Water level is estimated from seasonal and regional patterns."
	msgAlertsUnavailable = "Alert service unavailable. Showing seasonal advisories only."
	msgContactsFallback  = "Contact directory unavailable. Showing national emergency numbers."
)

// RegionResolver maps a coordinate to a region. It must not fail.
type RegionResolver interface {
	Resolve(ctx context.Context, c geo.Coordinate) geo.Resolution
}

// AlertSource lists the active sourced alerts of a state.
type AlertSource interface {
	ListActive(ctx context.Context, state string) ([]alert.Alert, error)
}

// ReadingSource returns the newest sensor reading for a region, or nil.
type ReadingSource interface {
	LatestReading(ctx context.Context, region geo.Region) (*sensor.Reading, error)
}

// ContactResolver builds the emergency contact list for a region.
type ContactResolver interface {
	Resolve(ctx context.Context, region geo.Region) contact.Resolution
}

// PipelineConfig holds the capabilities a pass runs against.
type PipelineConfig struct {
	Regions    RegionResolver
	Alerts     AlertSource
	Readings   ReadingSource
	Contacts   ContactResolver
	Estimator  *risk.Estimator
	Aggregator *alert.Aggregator
	Clock      clockwork.Clock
	Logger     zerolog.Logger
	Metrics    *Metrics
}

// Pipeline computes snapshots. It is safe for concurrent use.
type Pipeline struct {
	regions    RegionResolver
	alerts     AlertSource
	readings   ReadingSource
	contacts   ContactResolver
	estimator  *risk.Estimator
	aggregator *alert.Aggregator
	clock      clockwork.Clock
	logger     zerolog.Logger
	metrics    *Metrics
	tracer     trace.Tracer
}

// NewPipeline creates a pipeline. Missing capabilities degrade to their
// fallbacks: no region resolver means the bounding-box table, no alert or
// reading source means synthetic data, no contact resolver means the national floor.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	estimator := cfg.Estimator
	if estimator == nil {
		estimator = risk.NewEstimator(risk.EstimatorConfig{Clock: clock, Logger: cfg.Logger})
	}
	aggregator := cfg.Aggregator
	if aggregator == nil {
		aggregator = alert.NewAggregator(alert.AggregatorConfig{Logger: cfg.Logger})
	}

	return &Pipeline{
		regions:    cfg.Regions,
		alerts:     cfg.Alerts,
		readings:   cfg.Readings,
		contacts:   cfg.Contacts,
		estimator:  estimator,
		aggregator: aggregator,
		clock:      clock,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
		tracer:     otel.Tracer(tracerName),
	}
}

// ResolveRegion maps c to a region, falling back to the bounding-box table.
func (p *Pipeline) ResolveRegion(ctx context.Context, c geo.Coordinate) geo.Resolution {
	ctx, span := p.tracer.Start(ctx, "refresh.resolve")
	defer span.End()

	var res geo.Resolution
	if p.regions == nil {
		res = geo.Resolution{Region: geo.FallbackRegion(c), Source: geo.SourceFallback}
	} else {
		res = p.regions.Resolve(ctx, c)
	}
	span.SetAttributes(
		attribute.String("region.state", res.Region.State),
		attribute.String("region.source", string(res.Source)),
	)
	return res
}

// ResolveFix resolves the region for fix. A defaulted fix keeps its default
// region when resolution falls back to the bounding-box table.
func (p *Pipeline) ResolveFix(ctx context.Context, fix geo.Fix) geo.Resolution {
	return fix.Settle(p.ResolveRegion(ctx, fix.Coordinate))
}

// Evaluate runs a full pass for a fixed coordinate.
func (p *Pipeline) Evaluate(ctx context.Context, c geo.Coordinate) *snapshot.Snapshot {
	fix := geo.Fix{Coordinate: c}
	return p.Compute(ctx, fix, p.ResolveRegion(ctx, c))
}

// Compute runs the four derived-data branches concurrently against the
// resolved region, joins them and builds the snapshot. Every branch failure
// is replaced by its fallback and reported as a notice.
func (p *Pipeline) Compute(ctx context.Context, fix geo.Fix, res geo.Resolution) *snapshot.Snapshot {
	ctx, span := p.tracer.Start(ctx, "refresh.compute",
		trace.WithAttributes(attribute.String("region.state", res.Region.State)))
	defer span.End()

	now := p.clock.Now()
	region := res.Region

	var (
		wg         sync.WaitGroup
		factors    risk.Factors
		reading    *sensor.Reading
		readingErr error
		sourced    []alert.Alert
		alertsErr  error
		contacts   contact.Resolution
	)

	wg.Add(4)
	go func() {
		defer wg.Done()
		_, s := p.tracer.Start(ctx, "refresh.factors")
		defer s.End()
		factors = risk.CalculateFactors(fix.Coordinate, region, now)
	}()
	go func() {
		defer wg.Done()
		c, s := p.tracer.Start(ctx, "refresh.sensor")
		defer s.End()
		reading, readingErr = p.latestReading(c, region)
	}()
	go func() {
		defer wg.Done()
		c, s := p.tracer.Start(ctx, "refresh.alerts")
		defer s.End()
		sourced, alertsErr = p.activeAlerts(c, region)
	}()
	go func() {
		defer wg.Done()
		c, s := p.tracer.Start(ctx, "refresh.contacts")
		defer s.End()
		contacts = p.resolveContacts(c, region)
	}()
	wg.Wait()

	var notices []snapshot.Notice

	if fix.Defaulted {
		p.metrics.fallback(ComponentLocation)
		notices = append(notices, snapshot.Notice{Code: snapshot.NoticeLocationDefaulted, Message: fix.Notice})
	}
	if res.Fallback() && res.Err != nil {
		p.metrics.fallback(ComponentRegion)
		notices = append(notices, snapshot.Notice{Code: snapshot.NoticeRegionFallback, Message: msgRegionFallback})
	}

	water, rejected := p.estimator.Estimate(ctx, region, factors, reading)
	if readingErr == nil {
		readingErr = rejected
	}
	if readingErr != nil {
		p.metrics.fallback(ComponentSensor)
		if errors.Is(readingErr, fault.ErrStale) {
			notices = append(notices, snapshot.Notice{Code: snapshot.NoticeSensorStale, Message: msgSensorStale})
		} else {
			p.logger.Warn().
				Err(readingErr).
				Str("state", region.State).
				Str("kind", string(fault.KindOf(readingErr))).
				Msg("sensor reading unavailable, using synthetic water level")
			notices = append(notices, snapshot.Notice{Code: snapshot.NoticeSensorUnavailable, Message: msgSensorUnavailable})
		}
	}
	if water.Synthetic {
		notices = append(notices, snapshot.Notice{Code: snapshot.NoticeWaterLevelEstimate, Message: msgEstimated})
	}

	if alertsErr != nil {
		p.metrics.fallback(ComponentAlerts)
		p.logger.Warn().
			Err(alertsErr).
			Str("state", region.State).
			Msg("alert source unavailable, using synthesized alerts only")
		notices = append(notices, snapshot.Notice{Code: snapshot.NoticeAlertsUnavailable, Message: msgAlertsUnavailable})
	}
	alerts := p.aggregator.Aggregate(ctx, region, factors.SeasonalRisk, now, sourced)

	if contacts.Floor {
		p.metrics.fallback(ComponentContacts)
		notices = append(notices, snapshot.Notice{Code: snapshot.NoticeContactsFallback, Message: msgContactsFallback})
	}

	assessment := risk.Assess(water, factors)
	span.SetAttributes(
		attribute.String("risk.classification", string(assessment.Classification)),
		attribute.Int("risk.score", assessment.Score),
		attribute.Int("alerts.count", len(alerts)),
	)

	return &snapshot.Snapshot{
		Coordinate:     fix.Coordinate,
		Region:         region,
		RegionSource:   res.Source,
		Factors:        factors,
		WaterLevel:     water,
		Score:          assessment.Score,
		Classification: assessment.Classification,
		Color:          assessment.Color,
		Alerts:         alerts,
		Contacts:       contacts.Contacts,
		Notices:        notices,
		ComputedAt:     now,
	}
}

func (p *Pipeline) latestReading(ctx context.Context, region geo.Region) (*sensor.Reading, error) {
	if p.readings == nil {
		return nil, nil
	}
	return p.readings.LatestReading(ctx, region)
}

func (p *Pipeline) activeAlerts(ctx context.Context, region geo.Region) ([]alert.Alert, error) {
	if p.alerts == nil || !region.Known() {
		return nil, nil
	}
	alerts, err := p.alerts.ListActive(ctx, region.State)
	if err != nil {
		return nil, fault.Unavailable("list active alerts", err)
	}
	return alerts, nil
}

func (p *Pipeline) resolveContacts(ctx context.Context, region geo.Region) contact.Resolution {
	if p.contacts == nil {
		return contact.Resolution{Contacts: contact.Floor(), Floor: true}
	}
	return p.contacts.Resolve(ctx, region)
}
