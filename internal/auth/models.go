// Package auth issues and validates responder bearer tokens. Read endpoints
// are public; only writes (alerts, readings, flags) require a token.
package auth

import "slices"

// Role grants access to a class of write endpoints.
type Role string

// Roles, weakest first.
const (
	// RoleResponder may publish alerts and record sensor readings.
	RoleResponder Role = "responder"

	// RoleAdmin may additionally change feature flags.
	RoleAdmin Role = "admin"
)

var roleOrder = []Role{RoleResponder, RoleAdmin}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return slices.Contains(roleOrder, r)
}

// Allows reports whether r is at least as strong as required.
func (r Role) Allows(required Role) bool {
	have := slices.Index(roleOrder, r)
	want := slices.Index(roleOrder, required)
	return have >= 0 && want >= 0 && have >= want
}

// Responder is the authenticated caller of a write endpoint.
type Responder struct {
	ID   string
	Role Role
}
