package google_tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/lexsync/internal/api"
	"github.com/teemow/lexsync/internal/logging"
	"github.com/teemow/lexsync/internal/server"
	"github.com/teemow/lexsync/internal/session"
	"github.com/teemow/lexsync/internal/tools/common"
)

// authStatus is the auth_status result.
type authStatus struct {
	session.Status

	User *api.GoogleUserInfo `json:"user,omitempty"`

	// Hint tells the user how to sign in when there is no usable credential.
	Hint string `json:"hint,omitempty"`
}

// RegisterGoogleTools registers the account tools with the MCP server.
func RegisterGoogleTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	statusTool := mcp.NewTool("auth_status",
		mcp.WithDescription("Report whether a Google account is signed in, when the access token expires and which user it belongs to"),
	)
	s.AddTool(statusTool, common.InstrumentedToolHandler("auth_status", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleAuthStatus(ctx, request, sc)
	}))

	return nil
}

func handleAuthStatus(ctx context.Context, _ mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	sess := sc.Session()
	st := authStatus{Status: sess.Status(ctx)}

	if !st.Authenticated && !st.Refreshable {
		st.Hint = "Run `lexsync login` to sign in."
		return common.JSONResult("", st)
	}

	// UserInfo refreshes first when only a refresh secret is held.
	info, err := sess.UserInfo(ctx)
	if err != nil {
		sc.Logger().Warn("fetching user info", logging.Err(err))
		return common.ErrorResult("Failed to verify the credential", err), nil
	}
	st.User = info
	st.Status = sess.Status(ctx)
	return common.JSONResult("", st)
}
