// Package api exposes the operator Control Surface over HTTP.
//
// # Separation of Concerns
//
// The api package defines public JSON types (decoupled from core), maps
// core snapshots to JSON, and hosts an HTTP server with minimal middleware.
// The core package remains unaware of HTTP or JSON.
//
// # Versioning
//
// All routes are versioned under /v1. Non-breaking additions extend types,
// while breaking changes require a new prefix (/v2).
//
// # Server
//
// NewServer wires handlers onto a ServeMux and configures timeouts. Listen
// binds the address so a bind failure can be reported without stopping the
// daemon; Serve handles requests until its context ends and then shuts down
// gracefully.
//
// # Error Model
//
// APIError uses a string message and a timestamp in RFC3339. Handlers validate
// methods and respond with 405 where appropriate. Tunable writes are not
// range checked: an out-of-range value is stored as written and takes effect
// on the next controller cycle.
//
// # Endpoints
//
//   - GET /v1/healthz: liveness
//   - GET /v1/status: maps core.Snapshot into stable JSON
//   - GET, PUT /v1/tunables: operator tunables, partial updates
//   - GET, PUT /v1/suspended: display-off toggle
//   - POST /v1/probe: rerun the platform probe
//   - GET /metrics: Prometheus exposition
package api
