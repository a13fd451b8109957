package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/floodwatch/floodwatch/internal/api/models"
	"github.com/floodwatch/floodwatch/internal/auth"
)

// responderKey is the context key for the authenticated responder.
type responderKey struct{}

// TokenValidator checks a bearer token.
type TokenValidator interface {
	Validate(token string) (auth.Responder, error)
}

// Auth creates middleware that requires a valid responder bearer token.
func Auth(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeUnauthorized(w, r, "missing authorization header")
				return
			}

			const bearerPrefix = "Bearer "
			if len(authHeader) < len(bearerPrefix) ||
				!strings.EqualFold(authHeader[:len(bearerPrefix)], bearerPrefix) {
				writeUnauthorized(w, r, "invalid authorization header format")
				return
			}

			tokenString := strings.TrimSpace(authHeader[len(bearerPrefix):])
			if tokenString == "" {
				writeUnauthorized(w, r, "missing bearer token")
				return
			}

			responder, err := validator.Validate(tokenString)
			if err != nil {
				switch {
				case errors.Is(err, auth.ErrTokenExpired):
					writeUnauthorized(w, r, "access token has expired")
				case errors.Is(err, auth.ErrInvalidToken):
					writeUnauthorized(w, r, "invalid access token")
				default:
					writeUnauthorized(w, r, "authentication failed")
				}
				return
			}

			ctx := context.WithValue(r.Context(), responderKey{}, responder)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects authenticated responders whose role is weaker than role.
// It must run after Auth.
func RequireRole(role auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			responder, ok := GetResponder(r.Context())
			if !ok {
				writeUnauthorized(w, r, "authentication required")
				return
			}
			if !responder.Role.Allows(role) {
				problem := models.KindForbidden.New(GetRequestID(r.Context()), "role "+string(role)+" required")
				problem.Instance = r.URL.Path
				problem.Write(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// writeUnauthorized writes a 401 problem directly; the response package
// imports this one.
func writeUnauthorized(w http.ResponseWriter, r *http.Request, detail string) {
	problem := models.KindUnauthorized.New(GetRequestID(r.Context()), detail)
	problem.Instance = r.URL.Path
	w.Header().Set("WWW-Authenticate", `Bearer realm="floodwatch"`)
	problem.Write(w)
}

// GetResponder retrieves the authenticated responder from the context.
func GetResponder(ctx context.Context) (auth.Responder, bool) {
	r, ok := ctx.Value(responderKey{}).(auth.Responder)
	return r, ok
}
