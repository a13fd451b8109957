package handler

import (
	"net/http"
	"strconv"

	"github.com/floodwatch/floodwatch/internal/api/models"
	"github.com/floodwatch/floodwatch/internal/api/response"
	"github.com/floodwatch/floodwatch/internal/geo"
	"github.com/floodwatch/floodwatch/internal/worker"
)

// RiskHandler serves one-shot assessments without a session.
type RiskHandler struct {
	pipeline *worker.Pipeline
}

// NewRiskHandler creates a new RiskHandler.
func NewRiskHandler(pipeline *worker.Pipeline) *RiskHandler {
	return &RiskHandler{pipeline: pipeline}
}

// Assess handles GET /v1/risk?lat=&lon= - a single snapshot for a coordinate.
func (h *RiskHandler) Assess(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var errs []models.FieldError
	lat, err := strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil {
		errs = append(errs, models.FieldError{Field: "lat", Message: "lat must be a number", Code: "REQUIRED"})
	}
	lon, err := strconv.ParseFloat(q.Get("lon"), 64)
	if err != nil {
		errs = append(errs, models.FieldError{Field: "lon", Message: "lon must be a number", Code: "REQUIRED"})
	}
	if len(errs) > 0 {
		response.BadRequest(w, r, "validation error", errs)
		return
	}

	c := geo.Coordinate{Lat: lat, Lon: lon}
	if err := c.Validate(); err != nil {
		response.BadRequest(w, r, err.Error(), []models.FieldError{
			{Field: "lat,lon", Message: err.Error(), Code: "OUT_OF_RANGE"},
		})
		return
	}
	response.JSON(w, r, http.StatusOK, h.pipeline.Evaluate(r.Context(), c))
}
