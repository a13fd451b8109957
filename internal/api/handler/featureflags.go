package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/floodwatch/floodwatch/internal/api/middleware"
	"github.com/floodwatch/floodwatch/internal/api/response"
	"github.com/floodwatch/floodwatch/internal/featureflags"
)

const maxHistoryLimit = 200

// FeatureFlagsHandler handles feature flag endpoints.
type FeatureFlagsHandler struct {
	service *featureflags.Service
}

// NewFeatureFlagsHandler creates a new FeatureFlagsHandler.
func NewFeatureFlagsHandler(service *featureflags.Service) *FeatureFlagsHandler {
	return &FeatureFlagsHandler{service: service}
}

// ListFeatureFlags handles GET /v1/admin/feature-flags - list all feature flags.
func (h *FeatureFlagsHandler) ListFeatureFlags(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, featureflags.FlagList{Items: h.service.Flags(r.Context())})
}

// UpsertFeatureFlags handles PUT /v1/admin/feature-flags - update feature flags.
func (h *FeatureFlagsHandler) UpsertFeatureFlags(w http.ResponseWriter, r *http.Request) {
	var input featureflags.FlagUpdateRequest
	if !decode(w, r, &input) {
		return
	}

	responder, _ := middleware.GetResponder(r.Context())
	err := h.service.Apply(r.Context(), input.Updates, responder.ID, input.Reason)
	switch {
	case errors.Is(err, featureflags.ErrUnknownFlag), errors.Is(err, featureflags.ErrInvalidValue):
		response.BadRequest(w, r, err.Error(), nil)
		return
	case err != nil:
		response.ServiceUnavailable(w, r, "failed to store feature flags")
		return
	}

	response.JSON(w, r, http.StatusOK, featureflags.FlagList{Items: h.service.Flags(r.Context())})
}

// FeatureFlagHistory handles GET /v1/admin/feature-flags/history?limit=.
func (h *FeatureFlagsHandler) FeatureFlagHistory(w http.ResponseWriter, r *http.Request) {
	limit := featureflags.DefaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxHistoryLimit {
			response.BadRequest(w, r, "limit must be between 1 and 200", nil)
			return
		}
		limit = n
	}

	changes, err := h.service.History(r.Context(), limit)
	if err != nil {
		response.ServiceUnavailable(w, r, "flag history unavailable")
		return
	}
	if changes == nil {
		changes = []featureflags.Change{}
	}
	response.JSON(w, r, http.StatusOK, featureflags.ChangeList{Items: changes})
}

// InvalidateCache handles POST /v1/admin/feature-flags/invalidate - invalidate flag cache.
func (h *FeatureFlagsHandler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	h.service.InvalidateCache()
	response.NoContent(w, r)
}
