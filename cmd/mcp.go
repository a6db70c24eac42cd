package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/teemow/lexsync/internal/server"
	"github.com/teemow/lexsync/internal/tools/calendar_tools"
	"github.com/teemow/lexsync/internal/tools/drive_tools"
	"github.com/teemow/lexsync/internal/tools/gmail_tools"
	"github.com/teemow/lexsync/internal/tools/google_tools"
)

func newMCPCmd() *cobra.Command {
	var readWrite bool

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Run the MCP server on stdin/stdout",
		Long: `Run the MCP server over stdio, for AI assistants that launch lexsync as a
subprocess. Sign in first with 'lexsync login'; the stored credential is
refreshed as needed.

Only read tools are registered unless --read-write is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMCP(cmd.Context(), readWrite)
		},
	}

	cmd.Flags().BoolVar(&readWrite, "read-write", false, "Register tools that send mail or change events and files")

	return cmd
}

func runMCP(ctx context.Context, readWrite bool) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer rt.Close(ctx)

	sc := server.NewServerContext(ctx, rt.session, rt.logger, rt.metrics())
	defer func() {
		_ = sc.Shutdown()
	}()

	mcpSrv := newMCPServer()
	if err := registerAllTools(mcpSrv, sc, !readWrite); err != nil {
		return err
	}

	if err := mcpserver.ServeStdio(mcpSrv); err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

func newMCPServer() *mcpserver.MCPServer {
	return mcpserver.NewMCPServer("lexsync", version,
		mcpserver.WithToolCapabilities(true),
	)
}

// registerAllTools registers every tool group. Write tools are left out
// when readOnly is set.
func registerAllTools(mcpSrv *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	registrations := []struct {
		name     string
		register func() error
	}{
		{"Gmail", func() error { return gmail_tools.RegisterGmailTools(mcpSrv, sc, readOnly) }},
		{"Calendar", func() error { return calendar_tools.RegisterCalendarTools(mcpSrv, sc, readOnly) }},
		{"Drive", func() error { return drive_tools.RegisterDriveTools(mcpSrv, sc, readOnly) }},
		{"Google account", func() error { return google_tools.RegisterGoogleTools(mcpSrv, sc) }},
	}

	for _, reg := range registrations {
		if err := reg.register(); err != nil {
			return fmt.Errorf("failed to register %s tools: %w", reg.name, err)
		}
	}
	return nil
}
