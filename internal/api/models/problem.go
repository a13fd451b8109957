package models

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// ProblemBaseURI prefixes every problem type.
const ProblemBaseURI = "https://api.floodwatch.in/problems/"

// Problem is an RFC 7807 error document served as application/problem+json.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
	TraceID  string `json:"traceId"`

	// Errors lists field validation failures.
	Errors []FieldError `json:"errors,omitempty"`

	// RetryAfter is the suggested wait in seconds, mirrored in the Retry-After header.
	RetryAfter int `json:"retryAfter,omitempty"`
}

// FieldError represents a validation error on a specific field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ProblemKind is a catalogued problem type.
type ProblemKind struct {
	Slug   string
	Title  string
	Status int
	// RetryAfter seconds suggested to clients, zero for errors that retrying cannot fix.
	RetryAfter int
}

// Catalogued problem kinds.
var (
	KindValidation      = ProblemKind{Slug: "validation-error", Title: "Validation error", Status: http.StatusBadRequest}
	KindUnauthorized    = ProblemKind{Slug: "unauthorized", Title: "Unauthorized", Status: http.StatusUnauthorized}
	KindForbidden       = ProblemKind{Slug: "forbidden", Title: "Forbidden", Status: http.StatusForbidden}
	KindTLSRequired     = ProblemKind{Slug: "tls-required", Title: "TLS required", Status: http.StatusForbidden}
	KindNotFound        = ProblemKind{Slug: "not-found", Title: "Not found", Status: http.StatusNotFound}
	KindConflict        = ProblemKind{Slug: "conflict", Title: "Conflict", Status: http.StatusConflict}
	KindUnsupportedType = ProblemKind{Slug: "unsupported-media-type", Title: "Unsupported media type", Status: http.StatusUnsupportedMediaType}
	KindTooManyRequests = ProblemKind{Slug: "too-many-requests", Title: "Too many requests", Status: http.StatusTooManyRequests, RetryAfter: 60}
	KindInternal        = ProblemKind{Slug: "internal-error", Title: "Internal server error", Status: http.StatusInternalServerError}
	KindUnavailable     = ProblemKind{Slug: "service-unavailable", Title: "Service unavailable", Status: http.StatusServiceUnavailable, RetryAfter: 5}
)

// Type returns the problem type URI.
func (k ProblemKind) Type() string {
	return ProblemBaseURI + k.Slug
}

// New creates a problem of this kind.
func (k ProblemKind) New(traceID, detail string) *Problem {
	return &Problem{
		Type:       k.Type(),
		Title:      k.Title,
		Status:     k.Status,
		Detail:     detail,
		TraceID:    traceID,
		RetryAfter: k.RetryAfter,
	}
}

// Write writes the Problem as JSON to the ResponseWriter.
func (p *Problem) Write(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Content-Type", "application/problem+json")
	if p.TraceID != "" {
		h.Set("X-Request-Id", p.TraceID)
	}
	if p.RetryAfter > 0 {
		h.Set("Retry-After", strconv.Itoa(p.RetryAfter))
	}
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}
