package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/floodwatch/floodwatch/internal/alert"
	"github.com/floodwatch/floodwatch/internal/api/middleware"
	"github.com/floodwatch/floodwatch/internal/api/models"
	"github.com/floodwatch/floodwatch/internal/api/response"
)

// AlertHandler handles flood alert endpoints.
type AlertHandler struct {
	service *alert.Service
}

// NewAlertHandler creates a new AlertHandler.
func NewAlertHandler(service *alert.Service) *AlertHandler {
	return &AlertHandler{service: service}
}

// ListAlerts handles GET /v1/alerts - active alerts, optionally for one state.
func (h *AlertHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.service.ListActive(r.Context(), strings.TrimSpace(r.URL.Query().Get("state")))
	if err != nil {
		response.Fault(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, models.AlertList{Items: alerts, Count: len(alerts)})
}

// GetAlert handles GET /v1/alerts/{alertId}.
func (h *AlertHandler) GetAlert(w http.ResponseWriter, r *http.Request) {
	a, err := h.service.Get(r.Context(), chi.URLParam(r, "alertId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, a)
}

// CreateAlert handles POST /v1/alerts - publish an alert as the
// authenticated responder.
func (h *AlertHandler) CreateAlert(w http.ResponseWriter, r *http.Request) {
	var input models.AlertCreateRequest
	if !decode(w, r, &input) {
		return
	}
	severity, err := alert.ParseSeverity(input.Severity)
	if err != nil {
		response.BadRequest(w, r, "validation error", []models.FieldError{
			{Field: "severity", Message: "unknown severity", Code: "SEVERITY"},
		})
		return
	}

	responder, _ := middleware.GetResponder(r.Context())
	a, err := h.service.Create(r.Context(), alert.CreateInput{
		Title:              input.Title,
		Message:            input.Message,
		Severity:           severity,
		Category:           alert.Category(strings.ToUpper(input.Category)),
		State:              input.State,
		District:           input.District,
		AffectedAreas:      input.AffectedAreas,
		EvacuationRequired: input.EvacuationRequired,
		IssuedBy:           responder.ID,
		ExpiresAt:          input.ExpiresAt,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Created(w, r, fmt.Sprintf("/v1/alerts/%s", a.ID), a)
}

// DeactivateAlert handles POST /v1/alerts/{alertId}:deactivate.
func (h *AlertHandler) DeactivateAlert(w http.ResponseWriter, r *http.Request) {
	a, err := h.service.Deactivate(r.Context(), chi.URLParam(r, "alertId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, a)
}

func (h *AlertHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, alert.ErrAlertNotFound):
		response.NotFound(w, r, "alert not found")
	case errors.Is(err, alert.ErrInvalidAlert):
		response.BadRequest(w, r, err.Error(), nil)
	default:
		response.Fault(w, r, err)
	}
}
