package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
)

// Responder tokens are short-lived HS256 JWTs minted by an operator tool and
// presented as "Authorization: Bearer <token>". There is no refresh flow; an
// expired token is simply re-issued.

// DefaultTokenExpiry is how long responder tokens are valid.
const DefaultTokenExpiry = 12 * time.Hour

// Predefined JWT errors.
var (
	ErrInvalidToken   = errors.New("invalid access token")
	ErrTokenExpired   = errors.New("access token has expired")
	ErrInvalidRole    = errors.New("invalid role")
	ErrMissingSubject = errors.New("missing responder id")
)

// Claims represents the claims in a responder token.
type Claims struct {
	jwt.RegisteredClaims

	// Role is the responder's role.
	Role Role `json:"role"`
}

// TokenService handles responder token creation and validation.
type TokenService struct {
	signingKey []byte
	issuer     string
	audience   string
	expiry     time.Duration
	clock      clockwork.Clock
}

// TokenConfig holds configuration for the token service.
type TokenConfig struct {
	// SigningKey is the secret key used to sign tokens.
	SigningKey string

	// Issuer is the issuer claim (e.g., "floodwatch").
	Issuer string

	// Audience is the audience claim (e.g., "floodwatch-responders").
	Audience string

	// Expiry is the token lifetime (default: 12 hours).
	Expiry time.Duration

	// Clock stamps and checks token times (default: real clock).
	Clock clockwork.Clock
}

// NewTokenService creates a new token service.
func NewTokenService(cfg TokenConfig) *TokenService {
	if cfg.Expiry <= 0 {
		cfg.Expiry = DefaultTokenExpiry
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return &TokenService{
		signingKey: []byte(cfg.SigningKey),
		issuer:     cfg.Issuer,
		audience:   cfg.Audience,
		expiry:     cfg.Expiry,
		clock:      cfg.Clock,
	}
}

// Issue creates a token for the responder.
func (s *TokenService) Issue(r Responder) (string, time.Time, error) {
	if r.ID == "" {
		return "", time.Time{}, ErrMissingSubject
	}
	if !r.Role.Valid() {
		return "", time.Time{}, fmt.Errorf("%w: %q", ErrInvalidRole, r.Role)
	}

	now := s.clock.Now()
	expiresAt := now.Add(s.expiry)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   r.ID,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
			ID:        generateTokenID(),
		},
		Role: r.Role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing access token: %w", err)
	}

	return tokenString, expiresAt, nil
}

// Validate checks a token and returns the responder it was issued to.
func (s *TokenService) Validate(tokenString string) (Responder, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.signingKey, nil
	}, jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.clock.Now),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Responder{}, ErrTokenExpired
		}
		return Responder{}, fmt.Errorf("%w: %s", ErrInvalidToken, err.Error())
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return Responder{}, ErrInvalidToken
	}
	if claims.Subject == "" || !claims.Role.Valid() {
		return Responder{}, ErrInvalidToken
	}

	return Responder{ID: claims.Subject, Role: claims.Role}, nil
}

// generateTokenID generates a unique token ID.
func generateTokenID() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(bytes)
}
