package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/floodwatch/floodwatch/internal/alert"
	"github.com/floodwatch/floodwatch/internal/api/models"
	"github.com/floodwatch/floodwatch/internal/api/response"
	"github.com/floodwatch/floodwatch/internal/fault"
	"github.com/floodwatch/floodwatch/internal/report"
	"github.com/floodwatch/floodwatch/internal/sensor"
)

// SensorHandler handles sensor and dashboard statistics endpoints.
type SensorHandler struct {
	sensors *sensor.Service
	alerts  *alert.Service
}

// NewSensorHandler creates a new SensorHandler.
func NewSensorHandler(sensors *sensor.Service, alerts *alert.Service) *SensorHandler {
	return &SensorHandler{sensors: sensors, alerts: alerts}
}

// ListSensors handles GET /v1/sensors - gauges, optionally for one state.
func (h *SensorHandler) ListSensors(w http.ResponseWriter, r *http.Request) {
	sensors, err := h.sensors.ListSensors(r.Context(), strings.TrimSpace(r.URL.Query().Get("state")))
	if err != nil {
		response.Fault(w, r, fault.Unavailable("listing sensors", err))
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]interface{}{"items": sensors})
}

// RecordReading handles POST /v1/sensors/{sensorId}/readings.
func (h *SensorHandler) RecordReading(w http.ResponseWriter, r *http.Request) {
	var input models.ReadingCreateRequest
	if !decode(w, r, &input) {
		return
	}
	var at time.Time
	if input.RecordedAt != nil {
		at = *input.RecordedAt
	}

	sensorID := chi.URLParam(r, "sensorId")
	reading, err := h.sensors.RecordReading(r.Context(), sensorID, *input.WaterLevel, at)
	switch {
	case errors.Is(err, sensor.ErrSensorNotFound):
		response.NotFound(w, r, "sensor not found")
	case errors.Is(err, sensor.ErrSensorInactive):
		response.Conflict(w, r, "sensor is inactive")
	case errors.Is(err, sensor.ErrInvalidReading):
		response.BadRequest(w, r, err.Error(), nil)
	case err != nil:
		response.Fault(w, r, fault.Unavailable("recording reading", err))
	default:
		response.Created(w, r, fmt.Sprintf("/v1/sensors/%s/readings", sensorID), reading)
	}
}

// GetStats handles GET /v1/stats - dashboard headline numbers for a state.
func (h *SensorHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	state := strings.TrimSpace(r.URL.Query().Get("state"))

	summary, err := h.sensors.Summarize(r.Context(), state)
	if err != nil {
		response.Fault(w, r, fault.Unavailable("summarizing sensors", err))
		return
	}
	alerts, err := h.alerts.ListActive(r.Context(), state)
	if err != nil {
		response.Fault(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, report.BuildStats(state, *summary, alerts))
}
