package handler

import (
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/floodwatch/floodwatch/internal/api/models"
	"github.com/floodwatch/floodwatch/internal/api/response"
	"github.com/floodwatch/floodwatch/internal/fault"
	"github.com/floodwatch/floodwatch/internal/geo"
	"github.com/floodwatch/floodwatch/internal/report"
	"github.com/floodwatch/floodwatch/internal/worker"
)

// SessionHandlerConfig holds dependencies for the session handler.
type SessionHandlerConfig struct {
	Manager *worker.Manager
	Clock   clockwork.Clock
	Logger  zerolog.Logger
}

// SessionHandler handles dashboard session endpoints. Each session owns a
// refresh scheduler; clients push their device location on create and on
// refresh.
type SessionHandler struct {
	manager *worker.Manager
	clock   clockwork.Clock
	logger  zerolog.Logger

	mu      sync.Mutex
	devices map[string]*geo.DeviceLocator
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(cfg SessionHandlerConfig) *SessionHandler {
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &SessionHandler{
		manager: cfg.Manager,
		clock:   clock,
		logger:  cfg.Logger,
		devices: make(map[string]*geo.DeviceLocator),
	}
}

// CreateSession handles POST /v1/sessions - start a dashboard session.
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var input models.LocationReport
	if !decodeOptional(w, r, &input) {
		return
	}

	device := geo.NewDeviceLocator(reportedLocation(input))
	id, s, err := h.manager.Create(r.Context(), device)
	if err != nil {
		if errors.Is(err, worker.ErrManagerClosed) {
			response.ServiceUnavailable(w, r, "server is shutting down")
			return
		}
		response.InternalError(w, r, "failed to create session")
		return
	}

	h.mu.Lock()
	h.devices[id] = device
	h.mu.Unlock()

	response.Created(w, r, fmt.Sprintf("/v1/sessions/%s", id), sessionBody(id, s))
}

// GetSession handles GET /v1/sessions/{sessionId} - session state and latest snapshot.
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	id, s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	response.JSON(w, r, http.StatusOK, sessionBody(id, s))
}

// GetSnapshot handles GET /v1/sessions/{sessionId}/snapshot - latest
// snapshot, or 202 until the first one is published.
func (h *SessionHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	_, s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	snap := s.Snapshot()
	if snap == nil {
		response.Accepted(w, r, "", models.Pending{State: string(s.State())})
		return
	}
	response.JSON(w, r, http.StatusOK, snap)
}

// Refresh handles POST /v1/sessions/{sessionId}/refresh - manual refresh.
// An optional body replaces the device location before the pass.
func (h *SessionHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	id, s, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var input models.LocationReport
	if !decodeOptional(w, r, &input) {
		return
	}
	if input.HasCoordinate() || input.LocationError != "" {
		h.mu.Lock()
		device := h.devices[id]
		h.mu.Unlock()
		if device != nil {
			device.Report(reportedLocation(input))
		}
	}

	started := s.RefreshNow(r.Context())
	response.Accepted(w, r, fmt.Sprintf("/v1/sessions/%s/snapshot", id), models.RefreshResult{Started: started})
}

// GetReport handles GET /v1/sessions/{sessionId}/report - situation report download.
func (h *SessionHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	_, s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	snap := s.Snapshot()
	if snap == nil {
		response.Conflict(w, r, "no snapshot published yet")
		return
	}

	rep := report.Build(snap, h.clock.Now())
	body, err := report.Marshal(rep)
	if err != nil {
		response.InternalError(w, r, "failed to render report")
		return
	}
	response.Attachment(w, r, report.Filename(rep), "application/json", body)
}

// DeleteSession handles DELETE /v1/sessions/{sessionId} - tear the session down.
func (h *SessionHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionId")
	if err := h.manager.Teardown(id); err != nil {
		if errors.Is(err, worker.ErrSessionNotFound) {
			response.NotFound(w, r, "session not found")
			return
		}
		response.InternalError(w, r, "failed to stop session")
		return
	}

	h.mu.Lock()
	delete(h.devices, id)
	h.mu.Unlock()

	response.NoContent(w, r)
}

func (h *SessionHandler) lookup(w http.ResponseWriter, r *http.Request) (string, *worker.Scheduler, bool) {
	id := chi.URLParam(r, "sessionId")
	s, err := h.manager.Get(id)
	if err != nil {
		response.NotFound(w, r, "session not found")
		return "", nil, false
	}
	return id, s, true
}

func sessionBody(id string, s *worker.Scheduler) models.Session {
	return models.Session{ID: id, State: string(s.State()), Snapshot: s.Snapshot()}
}

// reportedLocation turns a client location report into a locator seed.
// A report without coordinates or an error code counts as unavailable.
func reportedLocation(in models.LocationReport) (geo.Coordinate, error) {
	if in.HasCoordinate() {
		return geo.Coordinate{Lat: *in.Lat, Lon: *in.Lon}, nil
	}
	switch in.LocationError {
	case models.LocationErrorDenied:
		return geo.Coordinate{}, fmt.Errorf("device location: %w", fault.ErrDenied)
	case models.LocationErrorTimeout:
		return geo.Coordinate{}, geo.ErrLocationTimeout
	default:
		return geo.Coordinate{}, fault.Unavailable("device location", nil)
	}
}
