// Package api implements the HTTP REST API and WebSocket server for tuya-ce-core.
//
// This package provides:
//   - Read endpoints for the capability catalog, known devices and their entities
//   - Gap analysis endpoints that classify a diagnostics dump against the catalog
//   - An admin-only view of the activity trail
//   - A WebSocket hub that relays bridge state, discovery and service events
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//
// # Security
//
// Read endpoints and the WebSocket are public. Refreshing the catalog,
// submitting diagnostics and reading the activity trail require a bearer JWT
// with the admin role, minted with the "tuyace token" command.
//
// # Graceful Degradation
//
// The server operates without the bridge, a report store or an activity
// recorder: health omits bridge counters, analyses are returned without being
// saved and nothing is recorded.
package api
