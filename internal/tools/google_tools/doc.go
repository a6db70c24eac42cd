// Package google_tools provides auth_status, which reports whether the
// server holds a usable Google credential and whose it is. Signing in
// happens outside MCP with `lexsync login`, or through /auth/login when
// the HTTP server runs.
package google_tools
