package auth_test

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/floodwatch/floodwatch/internal/auth"
)

func newTokenService(clock clockwork.Clock, key, issuer, audience string) *auth.TokenService {
	return auth.NewTokenService(auth.TokenConfig{
		SigningKey: key,
		Issuer:     issuer,
		Audience:   audience,
		Clock:      clock,
	})
}

func TestTokenService_IssueAndValidate(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 7, 15, 6, 0, 0, 0, time.UTC))
	svc := newTokenService(clock, "test-secret-key-for-testing-only", "floodwatch", "floodwatch-responders")

	token, expiresAt, err := svc.Issue(auth.Responder{ID: "ndrf-team-7", Role: auth.RoleResponder})
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, clock.Now().Add(auth.DefaultTokenExpiry), expiresAt)

	r, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "ndrf-team-7", r.ID)
	assert.Equal(t, auth.RoleResponder, r.Role)
}

func TestTokenService_Expired(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 7, 15, 6, 0, 0, 0, time.UTC))
	svc := newTokenService(clock, "key", "floodwatch", "floodwatch-responders")

	token, _, err := svc.Issue(auth.Responder{ID: "ndrf-team-7", Role: auth.RoleAdmin})
	require.NoError(t, err)

	clock.Advance(auth.DefaultTokenExpiry + time.Minute)

	_, err = svc.Validate(token)
	assert.ErrorIs(t, err, auth.ErrTokenExpired)
}

func TestTokenService_InvalidToken(t *testing.T) {
	svc := newTokenService(clockwork.NewRealClock(), "key", "floodwatch", "floodwatch-responders")

	tests := []struct {
		name  string
		token string
	}{
		{"empty token", ""},
		{"malformed token", "not.a.valid.jwt"},
		{"invalid base64", "xxx.yyy.zzz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Validate(tt.token)
			assert.ErrorIs(t, err, auth.ErrInvalidToken)
		})
	}
}

func TestTokenService_Mismatch(t *testing.T) {
	clock := clockwork.NewRealClock()
	issuer := newTokenService(clock, "key-one", "floodwatch", "floodwatch-responders")
	token, _, err := issuer.Issue(auth.Responder{ID: "sdrf-wb", Role: auth.RoleResponder})
	require.NoError(t, err)

	tests := []struct {
		name string
		svc  *auth.TokenService
	}{
		{"wrong signing key", newTokenService(clock, "key-two", "floodwatch", "floodwatch-responders")},
		{"wrong issuer", newTokenService(clock, "key-one", "someone-else", "floodwatch-responders")},
		{"wrong audience", newTokenService(clock, "key-one", "floodwatch", "floodwatch-public")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.svc.Validate(token)
			assert.ErrorIs(t, err, auth.ErrInvalidToken)
		})
	}
}

func TestTokenService_IssueRejectsBadResponder(t *testing.T) {
	svc := newTokenService(clockwork.NewRealClock(), "key", "floodwatch", "floodwatch-responders")

	_, _, err := svc.Issue(auth.Responder{Role: auth.RoleResponder})
	assert.ErrorIs(t, err, auth.ErrMissingSubject)

	_, _, err = svc.Issue(auth.Responder{ID: "x", Role: "mayor"})
	assert.ErrorIs(t, err, auth.ErrInvalidRole)
}

func TestRole_Allows(t *testing.T) {
	assert.True(t, auth.RoleAdmin.Allows(auth.RoleResponder))
	assert.True(t, auth.RoleResponder.Allows(auth.RoleResponder))
	assert.False(t, auth.RoleResponder.Allows(auth.RoleAdmin))
	assert.False(t, auth.Role("").Allows(auth.RoleResponder))
}
