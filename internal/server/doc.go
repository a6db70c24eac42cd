// Package server provides the HTTP side of lexsync: the auth endpoints that
// drive the login flows, health checks, a separate metrics listener and the
// shared ServerContext handed to MCP tools.
//
// # Endpoints
//
//   - GET  /auth/login     starts the redirect flow and redirects to Google
//   - GET  /auth/callback  completes the redirect flow; without query
//     parameters it serves the page that forwards an implicit grant
//   - POST /auth/implicit  completes the implicit flow
//   - POST /auth/logout    revokes and clears the credential
//   - GET  /auth/status    reports the credential state
//   - GET  /healthz, /readyz, /healthz/detailed
//
// Metrics are served on their own address so that operational data is never
// exposed on the application listener.
package server
