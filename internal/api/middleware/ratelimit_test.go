package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/floodwatch/floodwatch/internal/api/middleware"
	"github.com/floodwatch/floodwatch/internal/auth"
)

func sendFrom(handler http.Handler, remoteAddr string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/sessions", http.NoBody)
	req.RemoteAddr = remoteAddr
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRateLimitByIP_BlocksOverLimit(t *testing.T) {
	handler := middleware.RateLimitByIP(middleware.RateLimitConfig{RequestLimit: 3, WindowLength: time.Minute})(okHandler)

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, sendFrom(handler, "10.0.0.1:12345", nil).Code, "request %d", i+1)
	}

	rec := sendFrom(handler, "10.0.0.1:12345", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "Rate limit exceeded")
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, sendFrom(handler, "10.0.0.2:12345", nil).Code, "separate IPs have separate limits")
}

func TestRateLimitByIP_RetryAfterFollowsWindow(t *testing.T) {
	handler := middleware.RateLimitByIP(middleware.RateLimitConfig{RequestLimit: 1, WindowLength: 10 * time.Second})(okHandler)

	sendFrom(handler, "10.0.0.3:1", nil)
	rec := sendFrom(handler, "10.0.0.3:1", nil)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "10", rec.Header().Get("Retry-After"))
}

func TestRateLimitByResponder_KeysByResponder(t *testing.T) {
	svc := newTestTokenService()
	token, _, err := svc.Issue(auth.Responder{ID: "sdrf-assam", Role: auth.RoleResponder})
	assert.NoError(t, err)

	handler := middleware.Auth(svc)(middleware.RateLimitByResponder(middleware.RateLimitConfig{RequestLimit: 2, WindowLength: time.Minute})(okHandler))
	bearer := map[string]string{"Authorization": "Bearer " + token}

	assert.Equal(t, http.StatusOK, sendFrom(handler, "192.168.1.1:1", bearer).Code)
	assert.Equal(t, http.StatusOK, sendFrom(handler, "192.168.1.2:1", bearer).Code)
	assert.Equal(t, http.StatusTooManyRequests, sendFrom(handler, "192.168.1.3:1", bearer).Code,
		"the same responder is limited across addresses")
}

func TestRateLimitByResponder_FallsBackToIP(t *testing.T) {
	handler := middleware.RateLimitByResponder(middleware.RateLimitConfig{RequestLimit: 1, WindowLength: time.Minute})(okHandler)

	assert.Equal(t, http.StatusOK, sendFrom(handler, "172.16.0.1:1", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, sendFrom(handler, "172.16.0.1:1", nil).Code)
	assert.Equal(t, http.StatusOK, sendFrom(handler, "172.16.0.2:1", nil).Code)
}

func TestRateLimitExceededResponse_Format(t *testing.T) {
	handler := middleware.RequestID(middleware.RateLimitByIP(middleware.RateLimitConfig{RequestLimit: 1, WindowLength: time.Minute})(okHandler))

	sendFrom(handler, "203.0.113.1:12345", nil)
	rec := sendFrom(handler, "203.0.113.1:12345", nil)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, "too-many-requests")
	assert.Contains(t, body, "/v1/sessions")
	assert.Contains(t, body, rec.Header().Get(middleware.RequestIDHeader))
}

func TestDefaultRateLimitConfigs(t *testing.T) {
	assert.Equal(t, 10, middleware.SessionRateLimit.RequestLimit)
	assert.Equal(t, 30, middleware.ExpensiveRateLimit.RequestLimit)
	assert.Equal(t, 100, middleware.StandardRateLimit.RequestLimit)
	assert.Equal(t, time.Minute, middleware.StandardRateLimit.WindowLength)
}
