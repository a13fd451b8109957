package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	"github.com/floodwatch/floodwatch/internal/api/models"
)

// RateLimitConfig holds configuration for rate limiting.
type RateLimitConfig struct {
	// Requests per window
	RequestLimit int
	// Window duration
	WindowLength time.Duration
}

// Default rate limit configurations.
var (
	// SessionRateLimit applies to session creation (10 req/min). Each session
	// runs a scheduler until torn down.
	SessionRateLimit = RateLimitConfig{
		RequestLimit: 10,
		WindowLength: time.Minute,
	}

	// ExpensiveRateLimit applies to manual refreshes and one-shot assessments (30 req/min).
	ExpensiveRateLimit = RateLimitConfig{
		RequestLimit: 30,
		WindowLength: time.Minute,
	}

	// StandardRateLimit applies to standard endpoints (100 req/min).
	StandardRateLimit = RateLimitConfig{
		RequestLimit: 100,
		WindowLength: time.Minute,
	}
)

// RateLimitByIP creates a rate limiter middleware keyed by client IP. The IP
// comes from chi's RealIP middleware when it runs earlier in the chain.
func RateLimitByIP(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowLength,
		httprate.WithKeyFuncs(httprate.KeyByRealIP),
		httprate.WithLimitHandler(limitExceeded(cfg)),
	)
}

// RateLimitByResponder keys the limiter by authenticated responder, falling
// back to the client IP. It must run after Auth to see the responder.
func RateLimitByResponder(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowLength,
		httprate.WithKeyFuncs(keyByResponderOrIP),
		httprate.WithLimitHandler(limitExceeded(cfg)),
	)
}

func keyByResponderOrIP(r *http.Request) (string, error) {
	if responder, ok := GetResponder(r.Context()); ok {
		return "responder:" + responder.ID, nil
	}
	return httprate.KeyByRealIP(r)
}

// limitExceeded writes a problem response. httprate does not expose the reset
// time, so Retry-After is the full window.
func limitExceeded(cfg RateLimitConfig) http.HandlerFunc {
	retryAfter := int(cfg.WindowLength.Round(time.Second) / time.Second)
	return func(w http.ResponseWriter, r *http.Request) {
		problem := models.KindTooManyRequests.New(GetRequestID(r.Context()), "Rate limit exceeded. Please try again later.")
		problem.Instance = r.URL.Path
		problem.RetryAfter = retryAfter
		problem.Write(w)
	}
}
