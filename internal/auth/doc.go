// Package auth issues and validates the bearer tokens that guard the admin
// endpoints of the HTTP API.
//
// Tokens are HS256-signed JWTs carrying a subject and a role. They are
// minted from the command line and validated by signature only, so no
// account store is involved. Only RoleAdmin may call admin endpoints.
package auth
