// Package cmd implements the lexsync command-line interface.
//
//   - login: sign in to Google through a loopback callback server
//   - logout: revoke and forget the stored credential
//   - status: show whether a usable credential is held and whose it is
//   - reconcile: reconcile a local directory with a remote folder
//   - serve: run the HTTP server (auth endpoints, health, MCP) and metrics
//   - mcp: run the MCP server on stdin/stdout
//   - version: print the version
//   - generate-docs: print markdown documentation for the MCP tools
package cmd
