// Package instrumentation provides OpenTelemetry metrics and tracing for lexsync.
//
// # Metrics
//
// Provider API:
//   - provider_requests_total: executor round trips by method and status
//   - provider_request_duration_seconds: executor round trip durations
//   - resource_operations_total: adapter operations by resource family, operation, status
//
// Credentials:
//   - oauth_auth_total: login attempts by flow and result
//   - oauth_token_refresh_total: refresh attempts by result
//
// Reconciliation:
//   - reconcile_runs_total: runs by status
//   - reconcile_items_total: classified files by outcome (uploaded, downloaded, conflict)
//
// Serving:
//   - http_requests_total: requests served by the lexsync HTTP server
//   - mcp_tool_invocations_total, mcp_tool_duration_seconds: MCP tool calls
//
// # Exporters
//
// Prometheus (default, served by internal/server on a dedicated port), OTLP
// over HTTP, and stdout for local debugging. Tracing is off unless an
// exporter is configured.
//
// A disabled Provider returns a zero Metrics value whose Record methods do
// nothing, so callers never nil-check.
package instrumentation
