package drive_tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/lexsync/internal/server"
	"github.com/teemow/lexsync/internal/tools/common"
)

// RegisterDriveTools registers the file and reconciliation tools with the
// MCP server.
func RegisterDriveTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	add := func(tool mcp.Tool, h func(context.Context, mcp.CallToolRequest, *server.ServerContext) (*mcp.CallToolResult, error)) {
		s.AddTool(tool, common.InstrumentedToolHandler(tool.Name, sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return h(ctx, request, sc)
		}))
	}

	add(mcp.NewTool("files_list",
		mcp.WithDescription("List files, optionally inside one folder"),
		mcp.WithString("folderId",
			mcp.Description("Only list direct children of this folder"),
		),
		mcp.WithString("query",
			mcp.Description("Additional Drive query (e.g., \"name contains 'brief'\", \"mimeType='application/pdf'\")"),
		),
		mcp.WithNumber("maxResults",
			mcp.Description("Maximum number of files to return (default: 100, max: 1000)"),
		),
		mcp.WithString("orderBy",
			mcp.Description("Sort order (e.g., 'folder,modifiedTime desc,name')"),
		),
		mcp.WithBoolean("includeTrashed",
			mcp.Description("Include trashed files (default: false)"),
		),
		mcp.WithString("pageToken",
			mcp.Description("Page token from a previous files_list call"),
		),
	), handleListFiles)

	add(mcp.NewTool("files_get",
		mcp.WithDescription("Get the metadata of a file"),
		mcp.WithString("fileId",
			mcp.Required(),
			mcp.Description("The file ID"),
		),
	), handleGetFile)

	add(mcp.NewTool("files_download",
		mcp.WithDescription("Download the content of a file"),
		mcp.WithString("fileId",
			mcp.Required(),
			mcp.Description("The file ID"),
		),
		mcp.WithString("encoding",
			mcp.Description("'base64' (default) or 'text'"),
		),
	), handleDownloadFile)

	if readOnly {
		return nil
	}

	add(mcp.NewTool("files_create_folder",
		mcp.WithDescription("Create a folder"),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("The folder name"),
		),
		mcp.WithString("parentFolders",
			mcp.Description("Comma-separated parent folder IDs"),
		),
	), handleCreateFolder)

	add(mcp.NewTool("files_upload",
		mcp.WithDescription("Upload a file"),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("The file name"),
		),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("The file content, base64-encoded unless isBase64 is false"),
		),
		mcp.WithBoolean("isBase64",
			mcp.Description("Whether content is base64-encoded (default: true)"),
		),
		mcp.WithString("mimeType",
			mcp.Description("MIME type (default: detected from the name)"),
		),
		mcp.WithString("parentFolders",
			mcp.Description("Comma-separated parent folder IDs"),
		),
		mcp.WithString("description",
			mcp.Description("A short description of the file"),
		),
	), handleUploadFile)

	add(mcp.NewTool("files_delete",
		mcp.WithDescription("Permanently delete one or more files"),
		mcp.WithString("fileIds",
			mcp.Required(),
			mcp.Description("File ID (string) or array of file IDs to delete"),
		),
	), handleDeleteFiles)

	add(mcp.NewTool("files_share",
		mcp.WithDescription("Grant reader or writer access to a file"),
		mcp.WithString("fileId",
			mcp.Required(),
			mcp.Description("The file ID"),
		),
		mcp.WithString("role",
			mcp.Required(),
			mcp.Description("'reader' or 'writer'"),
		),
		mcp.WithString("type",
			mcp.Description("Grantee type: 'user' (default), 'group', 'domain' or 'anyone'"),
		),
		mcp.WithString("emailAddress",
			mcp.Description("Email address for user and group grantees"),
		),
		mcp.WithString("domain",
			mcp.Description("Domain for domain grantees"),
		),
		mcp.WithBoolean("notify",
			mcp.Description("Send a notification email (default: false)"),
		),
		mcp.WithString("message",
			mcp.Description("Message included in the notification email"),
		),
	), handleShareFile)

	add(mcp.NewTool("reconcile_folder",
		mcp.WithDescription("Reconcile a local directory with a folder: upload missing files, report remote-newer conflicts, optionally download remote-only files"),
		mcp.WithString("directory",
			mcp.Required(),
			mcp.Description("Absolute path of the local directory"),
		),
		mcp.WithString("folderId",
			mcp.Description("The remote folder ID (default: root, the top level of My Drive)"),
		),
		mcp.WithBoolean("download",
			mcp.Description("Download remote-only files into the directory (default: false)"),
		),
	), handleReconcileFolder)

	return nil
}
