// Package response provides utilities for HTTP response handling.
package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/floodwatch/floodwatch/internal/api/middleware"
	"github.com/floodwatch/floodwatch/internal/api/models"
	"github.com/floodwatch/floodwatch/internal/fault"
)

func setRequestID(w http.ResponseWriter, r *http.Request) {
	if requestID := middleware.GetRequestID(r.Context()); requestID != "" {
		w.Header().Set(middleware.RequestIDHeader, requestID)
	}
}

// JSON writes a JSON response with the given status code.
// Includes X-Request-Id header for correlation.
func JSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	setRequestID(w, r)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// Attachment writes body as a downloadable file.
func Attachment(w http.ResponseWriter, r *http.Request, filename, contentType string, body []byte) {
	setRequestID(w, r)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// Error writes a Problem+JSON error response.
func Error(w http.ResponseWriter, r *http.Request, problem *models.Problem) {
	problem.Instance = r.URL.Path
	problem.Write(w)
}

// Fault maps a failure from the assessment core onto a problem response.
// Unclassified errors are reported as internal errors with a generic detail.
func Fault(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, fault.ErrMalformed):
		BadRequest(w, r, err.Error(), nil)
	case errors.Is(err, fault.ErrDenied):
		Forbidden(w, r, err.Error())
	case errors.Is(err, fault.ErrUnavailable), errors.Is(err, fault.ErrStale):
		ServiceUnavailable(w, r, err.Error())
	default:
		InternalError(w, r, "internal error")
	}
}

// Problem writes a problem of kind with detail.
func Problem(w http.ResponseWriter, r *http.Request, kind models.ProblemKind, detail string) {
	Error(w, r, kind.New(middleware.GetRequestID(r.Context()), detail))
}

// BadRequest writes a 400 validation problem carrying field errors.
func BadRequest(w http.ResponseWriter, r *http.Request, detail string, errors []models.FieldError) {
	p := models.KindValidation.New(middleware.GetRequestID(r.Context()), detail)
	p.Errors = errors
	Error(w, r, p)
}

// Unauthorized writes a 401 problem.
func Unauthorized(w http.ResponseWriter, r *http.Request, detail string) {
	Problem(w, r, models.KindUnauthorized, detail)
}

// Forbidden writes a 403 problem.
func Forbidden(w http.ResponseWriter, r *http.Request, detail string) {
	Problem(w, r, models.KindForbidden, detail)
}

// NotFound writes a 404 problem.
func NotFound(w http.ResponseWriter, r *http.Request, detail string) {
	Problem(w, r, models.KindNotFound, detail)
}

// Conflict writes a 409 problem.
func Conflict(w http.ResponseWriter, r *http.Request, detail string) {
	Problem(w, r, models.KindConflict, detail)
}

// InternalError writes a 500 problem.
func InternalError(w http.ResponseWriter, r *http.Request, detail string) {
	Problem(w, r, models.KindInternal, detail)
}

// ServiceUnavailable writes a 503 problem with a Retry-After hint.
func ServiceUnavailable(w http.ResponseWriter, r *http.Request, detail string) {
	Problem(w, r, models.KindUnavailable, detail)
}

// Created writes a 201 Created response with Location header.
func Created(w http.ResponseWriter, r *http.Request, location string, data interface{}) {
	if location != "" {
		w.Header().Set("Location", location)
	}
	JSON(w, r, http.StatusCreated, data)
}

// Accepted writes a 202 Accepted response with Location header.
func Accepted(w http.ResponseWriter, r *http.Request, location string, data interface{}) {
	if location != "" {
		w.Header().Set("Location", location)
	}
	JSON(w, r, http.StatusAccepted, data)
}

// NoContent writes a 204 No Content response.
func NoContent(w http.ResponseWriter, r *http.Request) {
	setRequestID(w, r)
	w.WriteHeader(http.StatusNoContent)
}
