package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// Item statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Result is the outcome of one item.
type Result struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Result string `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// BatchResult aggregates the outcomes of a batch.
type BatchResult struct {
	Total      int      `json:"total"`
	Successful int      `json:"successful"`
	Failed     int      `json:"failed"`
	Results    []Result `json:"results"`
}

// ParseStringOrArray reads a parameter given as a single string, an array
// of strings, or a JSON-encoded array inside a string (some clients send
// arrays that way).
func ParseStringOrArray(param any, paramName string) ([]string, error) {
	if param == nil {
		return nil, fmt.Errorf("%s is required", paramName)
	}

	switch v := param.(type) {
	case string:
		if v == "" {
			return nil, fmt.Errorf("%s cannot be empty", paramName)
		}
		if strings.HasPrefix(v, "[") {
			var list []string
			if err := json.Unmarshal([]byte(v), &list); err == nil {
				if len(list) == 0 {
					return nil, fmt.Errorf("%s cannot be empty", paramName)
				}
				return list, nil
			}
		}
		return []string{v}, nil

	case []any:
		if len(v) == 0 {
			return nil, fmt.Errorf("%s cannot be empty", paramName)
		}
		out := make([]string, 0, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s[%d] must be a string", paramName, i)
			}
			if s == "" {
				return nil, fmt.Errorf("%s[%d] cannot be empty", paramName, i)
			}
			out = append(out, s)
		}
		return out, nil

	default:
		return nil, fmt.Errorf("%s must be a string or array of strings", paramName)
	}
}

// Process runs fn for each id in order. Once ctx ends the remaining items
// are reported as failed without calling fn.
func Process(ctx context.Context, ids []string, fn func(ctx context.Context, id string) (string, error)) BatchResult {
	br := BatchResult{
		Total:   len(ids),
		Results: make([]Result, 0, len(ids)),
	}

	for _, id := range ids {
		r := Result{ID: id, Status: StatusSuccess}

		res, err := "", ctx.Err()
		if err == nil {
			res, err = fn(ctx, id)
		}
		if err != nil {
			r.Status = StatusError
			r.Error = err.Error()
			br.Failed++
		} else {
			r.Result = res
			br.Successful++
		}
		br.Results = append(br.Results, r)
	}
	return br
}

// ToolResult renders br for an MCP client. The result is an error result
// only when every item failed.
func ToolResult(action string, br BatchResult) *mcp.CallToolResult {
	b, _ := json.MarshalIndent(br, "", "  ")
	if br.Total > 0 && br.Failed == br.Total {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to %s:\n%s", action, b))
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s: %d of %d succeeded\n%s", action, br.Successful, br.Total, b))
}
