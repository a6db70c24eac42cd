package common

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/lexsync/internal/instrumentation"
	"github.com/teemow/lexsync/internal/logging"
	"github.com/teemow/lexsync/internal/server"
)

// Handler is the signature of an MCP tool handler.
type Handler = func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)

// errToolResult marks a span whose tool returned an error result.
var errToolResult = errors.New("tool returned an error result")

// InstrumentedToolHandler wraps a tool handler with a span, invocation
// metrics and a log line.
//
// Usage:
//
//	s.AddTool(myTool, common.InstrumentedToolHandler("my_tool", sc, handler))
func InstrumentedToolHandler(toolName string, sc *server.ServerContext, handler Handler) Handler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ctx, span := instrumentation.StartToolSpan(ctx, toolName)
		start := time.Now()

		result, err := handler(ctx, request)
		duration := time.Since(start)

		status := instrumentation.StatusSuccess
		spanErr := err
		if err != nil || (result != nil && result.IsError) {
			status = instrumentation.StatusError
			if spanErr == nil {
				spanErr = errToolResult
			}
		}

		sc.Metrics().RecordToolInvocation(ctx, toolName, status, duration)
		instrumentation.EndSpan(span, spanErr)

		level := slog.LevelInfo
		if status == instrumentation.StatusError {
			level = slog.LevelWarn
		}
		sc.Logger().Log(ctx, level, "tool invoked",
			logging.Tool(toolName),
			logging.Status(status),
			logging.Duration(duration),
			logging.Err(err))

		return result, err
	}
}
