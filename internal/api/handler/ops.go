// Package handler provides HTTP handlers for the FloodWatch API.
package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/floodwatch/floodwatch/internal/api/models"
	"github.com/floodwatch/floodwatch/internal/api/response"
	"github.com/floodwatch/floodwatch/internal/featureflags"
	"github.com/floodwatch/floodwatch/internal/provider/resilience"
)

const pingTimeout = 2 * time.Second

// Pinger checks a backing store. *pgxpool.Pool and redis clients are wrapped
// to satisfy it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SessionCounter reports the number of live dashboard sessions.
type SessionCounter interface {
	Len() int
}

// OpsHandlerConfig holds dependencies for the ops handler.
type OpsHandlerConfig struct {
	Version   string
	BuildTime string
	Registry  *resilience.Registry
	Sessions  SessionCounter
	// Subsystems are pinged by the readiness and status checks, keyed by name.
	Subsystems map[string]Pinger
	// DegradationFlags lists the feature flags currently enabled that reduce
	// fidelity, for the status page. Optional.
	DegradationFlags func(ctx context.Context) []string
	Clock            clockwork.Clock
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	cfg   OpsHandlerConfig
	clock clockwork.Clock
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(cfg OpsHandlerConfig) *OpsHandler {
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &OpsHandler{cfg: cfg, clock: clock}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.Health{
		Status:    models.HealthStatusOK,
		Version:   h.cfg.Version,
		BuildTime: h.cfg.BuildTime,
		Time:      models.Timestamp(h.clock.Now()),
	})
}

// ReadinessCheck handles GET /v1/ops/ready - readiness check. Any failing
// subsystem makes the instance unready.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status:  models.HealthStatusOK,
		Version: h.cfg.Version,
		Time:    models.Timestamp(h.clock.Now()),
	}
	status := http.StatusOK
	for _, s := range h.checkSubsystems(r.Context()) {
		if s.Status == models.HealthStatusOK {
			continue
		}
		if health.Failing == nil {
			health.Failing = make(map[string]string)
		}
		health.Failing[s.Name] = s.Error
		health.Status = models.HealthStatusFail
		status = http.StatusServiceUnavailable
	}
	response.JSON(w, r, status, health)
}

// SystemStatus handles GET /v1/ops/status - provider and subsystem status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	status := models.SystemStatus{
		Status:       models.HealthStatusOK,
		Version:      h.cfg.Version,
		Time:         models.Timestamp(h.clock.Now()),
		Subsystems:   h.checkSubsystems(r.Context()),
		Providers:    []models.ProviderStatus{},
		Degradations: []models.Degradation{},
	}
	if h.cfg.Sessions != nil {
		status.ActiveSessions = h.cfg.Sessions.Len()
	}
	if h.cfg.DegradationFlags != nil {
		for _, key := range h.cfg.DegradationFlags(r.Context()) {
			d := models.Degradation{Flag: key}
			if def, ok := featureflags.Lookup(key); ok {
				d.Description = def.Description
			}
			status.Degradations = append(status.Degradations, d)
		}
	}

	if h.cfg.Registry != nil {
		for _, p := range h.cfg.Registry.All() {
			status.Providers = append(status.Providers, providerStatus(p))
		}
		if h.cfg.Registry.Overall() != resilience.StatusOK {
			status.Status = models.HealthStatusDegraded
		}
	}
	for _, s := range status.Subsystems {
		if s.Status != models.HealthStatusOK {
			status.Status = models.HealthStatusDegraded
		}
	}
	response.JSON(w, r, http.StatusOK, status)
}

func (h *OpsHandler) checkSubsystems(ctx context.Context) []models.SubsystemStatus {
	names := make([]string, 0, len(h.cfg.Subsystems))
	for name := range h.cfg.Subsystems {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]models.SubsystemStatus, 0, len(names))
	for _, name := range names {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		start := h.clock.Now()
		err := h.cfg.Subsystems[name].Ping(pingCtx)
		cancel()

		s := models.SubsystemStatus{
			Name:      name,
			Status:    models.HealthStatusOK,
			LatencyMs: h.clock.Since(start).Milliseconds(),
		}
		if err != nil {
			s.Status = models.HealthStatusFail
			s.Error = err.Error()
		}
		out = append(out, s)
	}
	return out
}

func providerStatus(p *resilience.Health) models.ProviderStatus {
	out := models.ProviderStatus{
		Provider:     p.Name,
		Status:       models.HealthStatus(p.Status),
		BreakerState: p.BreakerState,
		LastError:    p.LastError,
	}
	if p.LastSuccessAt != nil {
		ts := models.Timestamp(*p.LastSuccessAt)
		out.LastSuccessAt = &ts
	}
	if p.LastFailureAt != nil {
		ts := models.Timestamp(*p.LastFailureAt)
		out.LastFailureAt = &ts
	}
	return out
}

// PingerFunc adapts a function to the Pinger interface.
type PingerFunc func(ctx context.Context) error

// Ping calls f.
func (f PingerFunc) Ping(ctx context.Context) error {
	return f(ctx)
}
