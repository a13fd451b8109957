package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/floodwatch/floodwatch/internal/api/middleware"
)

func TestRequestID_GeneratesNewID(t *testing.T) {
	var seen string
	handler := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = middleware.GetRequestID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", http.NoBody))

	assert.True(t, strings.HasPrefix(seen, "req_"), seen)
	assert.Equal(t, seen, w.Header().Get(middleware.RequestIDHeader))
}

func TestRequestID_PropagatesSuppliedID(t *testing.T) {
	tests := []struct {
		name     string
		supplied string
		kept     bool
	}{
		{"plain id", "existing_request_id", true},
		{"uuid", "3f1c2f34-6a1d-4a57-9bde-0d4c1b3f8e21", true},
		{"header injection", "abc\r\nX-Evil: 1", false},
		{"too long", strings.Repeat("a", 65), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
			req.Header.Set(middleware.RequestIDHeader, tt.supplied)
			w := httptest.NewRecorder()

			middleware.RequestID(okHandler).ServeHTTP(w, req)

			got := w.Header().Get(middleware.RequestIDHeader)
			if tt.kept {
				assert.Equal(t, tt.supplied, got)
			} else {
				assert.True(t, strings.HasPrefix(got, "req_"), got)
			}
		})
	}
}

func TestGetRequestID_ReturnsEmptyStringForMissingContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
	assert.Empty(t, middleware.GetRequestID(req.Context()))
}

func TestRequestID_UniqueIDs(t *testing.T) {
	ids := make(map[string]bool)
	for i := 0; i < 100; i++ {
		w := httptest.NewRecorder()
		middleware.RequestID(okHandler).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", http.NoBody))

		id := w.Header().Get(middleware.RequestIDHeader)
		assert.False(t, ids[id], "duplicate request ID generated: %s", id)
		ids[id] = true
	}
}
