package common

import (
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/lexsync/internal/api"
	"github.com/teemow/lexsync/internal/google"
)

func TestArgs(t *testing.T) {
	args := map[string]any{
		"name":  "  brief.pdf ",
		"max":   float64(25),
		"html":  true,
		"wrong": 3,
	}

	assert.Equal(t, "brief.pdf", StringArg(args, "name"))
	assert.Empty(t, StringArg(args, "wrong"))
	assert.Equal(t, int64(25), IntArg(args, "max", 10))
	assert.Equal(t, int64(10), IntArg(args, "missing", 10))
	assert.True(t, BoolArg(args, "html", false))
	assert.True(t, BoolArg(args, "missing", true))

	_, err := RequiredString(args, "missing")
	assert.EqualError(t, err, "missing is required")
}

func TestTimeArg(t *testing.T) {
	got, ok, err := TimeArg(map[string]any{"start": "2026-03-02T09:30:00+01:00"}, "start")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, got.Equal(time.Date(2026, 3, 2, 8, 30, 0, 0, time.UTC)))

	got, ok, err = TimeArg(map[string]any{"start": "2026-03-02"}, "start")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), got)

	_, ok, err = TimeArg(map[string]any{}, "start")
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = TimeArg(map[string]any{"start": "next tuesday"}, "start")
	assert.Error(t, err)
}

func TestParseCommaList(t *testing.T) {
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, ParseCommaList(" a@example.com,, b@example.com "))
	assert.Nil(t, ParseCommaList(""))
}

func TestErrorResult(t *testing.T) {
	res := ErrorResult("list files", google.NewAuthError(google.CodeReauthenticationRequired, "", nil))
	assert.True(t, res.IsError)
	assert.Contains(t, res.Content[0].(mcp.TextContent).Text, "lexsync login")

	res = ErrorResult("get file", &api.RequestError{Kind: api.KindStatus, Status: 404, Message: "File not found"})
	assert.Equal(t, "get file: not found", res.Content[0].(mcp.TextContent).Text)
}
