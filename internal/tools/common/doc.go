// Package common holds the pieces every MCP tool shares: the instrumented
// handler wrapper, argument readers and result builders.
package common
