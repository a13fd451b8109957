package middleware

import (
	"net/http"

	"github.com/floodwatch/floodwatch/internal/api/models"
)

// SecurityHeaders adds standard security headers to all HTTP responses.
// The API serves JSON and websocket frames only, so the CSP forbids everything.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Permissions-Policy", "camera=(), microphone=()")

		next.ServeHTTP(w, r)
	})
}

// RequireTLS rejects plain-HTTP requests when enabled. It trusts the
// X-Forwarded-Proto header set by the load balancer.
func RequireTLS(enabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			proto := r.Header.Get("X-Forwarded-Proto")
			if r.TLS == nil && proto != "" && proto != "https" {
				problem := models.KindTLSRequired.New(GetRequestID(r.Context()), "This endpoint requires HTTPS")
				problem.Instance = r.URL.Path
				problem.Write(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
