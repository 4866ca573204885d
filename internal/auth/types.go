package auth

import "errors"

// Role represents an authorisation tier.
type Role string

const (
	// RoleAdmin may refresh the catalog and submit diagnostics for analysis.
	RoleAdmin Role = "admin"

	// RoleViewer is accepted by ParseToken but grants nothing beyond the public routes.
	RoleViewer Role = "viewer"
)

// ValidRoles is the set of roles a token may carry.
var ValidRoles = []Role{RoleAdmin, RoleViewer}

// IsValidRole returns true if r is a known role.
func IsValidRole(r Role) bool {
	for _, v := range ValidRoles {
		if r == v {
			return true
		}
	}
	return false
}

// Sentinel errors for auth operations.
var (
	ErrTokenInvalid = errors.New("invalid token")
	ErrMissingToken = errors.New("missing bearer token")
	ErrNoSecret     = errors.New("jwt secret is not configured")
	ErrInvalidRole  = errors.New("invalid role")
	ErrForbidden    = errors.New("insufficient permissions")
)
