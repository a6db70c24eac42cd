package common

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/lexsync/internal/api"
	"github.com/teemow/lexsync/internal/google"
)

// StringArg returns a string argument, or "" when it is absent or not a string.
func StringArg(args map[string]any, name string) string {
	v, _ := args[name].(string)
	return strings.TrimSpace(v)
}

// RequiredString returns a non-empty string argument.
func RequiredString(args map[string]any, name string) (string, error) {
	v := StringArg(args, name)
	if v == "" {
		return "", fmt.Errorf("%s is required", name)
	}
	return v, nil
}

// IntArg returns a numeric argument. JSON numbers arrive as float64.
func IntArg(args map[string]any, name string, def int64) int64 {
	switch v := args[name].(type) {
	case float64:
		return int64(v)
	case int:
		return int64(v)
	case int64:
		return v
	}
	return def
}

// BoolArg returns a boolean argument.
func BoolArg(args map[string]any, name string, def bool) bool {
	if v, ok := args[name].(bool); ok {
		return v
	}
	return def
}

// TimeArg parses an RFC 3339 argument. A bare date is read as midnight UTC.
// ok is false when the argument is absent.
func TimeArg(args map[string]any, name string) (t time.Time, ok bool, err error) {
	s := StringArg(args, name)
	if s == "" {
		return time.Time{}, false, nil
	}
	if t, err = time.Parse(time.RFC3339, s); err == nil {
		return t, true, nil
	}
	if t, err = time.Parse(time.DateOnly, s); err == nil {
		return t, true, nil
	}
	return time.Time{}, false, fmt.Errorf("%s must be an RFC 3339 time or a YYYY-MM-DD date", name)
}

// ParseCommaList splits a comma-separated list, dropping empty items.
func ParseCommaList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// JSONResult renders v as indented JSON below a heading line.
func JSONResult(heading string, v any) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	if heading == "" {
		return mcp.NewToolResultText(string(b)), nil
	}
	return mcp.NewToolResultText(heading + "\n" + string(b)), nil
}

// ErrorResult turns a failed operation into a tool error result. Errors
// that need a new login say how to get one.
func ErrorResult(action string, err error) *mcp.CallToolResult {
	if google.IsReauthenticationRequired(err) {
		return mcp.NewToolResultError(fmt.Sprintf("%s: not signed in to Google. Run `lexsync login` and try again.", action))
	}

	if api.IsNotFound(err) {
		return mcp.NewToolResultError(fmt.Sprintf("%s: not found", action))
	}
	return mcp.NewToolResultError(fmt.Sprintf("%s: %v", action, err))
}
