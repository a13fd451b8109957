package worker

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Fallback components reported on the fallbacks counter.
const (
	ComponentLocation = "location"
	ComponentRegion   = "region"
	ComponentSensor   = "sensor"
	ComponentAlerts   = "alerts"
	ComponentContacts = "contacts"
)

// Metrics holds the Prometheus collectors for refresh passes and sessions.
// A nil *Metrics records nothing.
type Metrics struct {
	PassesPublished prometheus.Counter
	TicksCoalesced  prometheus.Counter
	PassDuration    prometheus.Histogram
	ActiveSessions  prometheus.Gauge

	// labels: component={location,region,sensor,alerts,contacts}
	Fallbacks *prometheus.CounterVec

	// labels: outcome={success,error}
	MonitorAssessments *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := newMetrics()
	reg.MustRegister(
		m.PassesPublished,
		m.TicksCoalesced,
		m.PassDuration,
		m.ActiveSessions,
		m.Fallbacks,
		m.MonitorAssessments,
	)
	return m
}

// NewMetricsForTesting creates unregistered collectors to avoid
// "already registered" panics across tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		PassesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "floodwatch",
			Name:      "passes_published_total",
			Help:      "Snapshots published by refresh passes.",
		}),
		TicksCoalesced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "floodwatch",
			Name:      "ticks_coalesced_total",
			Help:      "Triggers dropped because a pass was already in flight.",
		}),
		PassDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "floodwatch",
			Name:      "pass_duration_seconds",
			Help:      "Duration of a complete resolve-compute-publish pass.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "floodwatch",
			Name:      "active_sessions",
			Help:      "Dashboard sessions with a running scheduler.",
		}),
		Fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "floodwatch",
			Name:      "fallbacks_total",
			Help:      "Fallback values substituted during passes, by component.",
		}, []string{"component"}),
		MonitorAssessments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "floodwatch",
			Name:      "monitor_assessments_total",
			Help:      "Monitor point assessments by outcome.",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) published(d time.Duration) {
	if m == nil {
		return
	}
	m.PassesPublished.Inc()
	m.PassDuration.Observe(d.Seconds())
}

func (m *Metrics) coalesced() {
	if m == nil {
		return
	}
	m.TicksCoalesced.Inc()
}

func (m *Metrics) fallback(component string) {
	if m == nil {
		return
	}
	m.Fallbacks.WithLabelValues(component).Inc()
}

func (m *Metrics) sessionStarted() {
	if m == nil {
		return
	}
	m.ActiveSessions.Inc()
}

func (m *Metrics) sessionEnded() {
	if m == nil {
		return
	}
	m.ActiveSessions.Dec()
}

func (m *Metrics) assessed(ok bool) {
	if m == nil {
		return
	}
	outcome := "success"
	if !ok {
		outcome = "error"
	}
	m.MonitorAssessments.WithLabelValues(outcome).Inc()
}
