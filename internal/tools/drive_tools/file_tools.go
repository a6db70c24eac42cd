package drive_tools

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"path/filepath"
	"unicode/utf8"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/lexsync/internal/drive"
	"github.com/teemow/lexsync/internal/server"
	"github.com/teemow/lexsync/internal/tools/batch"
	"github.com/teemow/lexsync/internal/tools/common"
)

const (
	maxListResults = 1000

	// maxDownloadSize bounds what files_download returns inline.
	maxDownloadSize = 25 << 20
)

func handleListFiles(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	opts := drive.ListOptions{
		FolderID:       common.StringArg(args, "folderId"),
		Query:          common.StringArg(args, "query"),
		MaxResults:     common.IntArg(args, "maxResults", 100),
		OrderBy:        common.StringArg(args, "orderBy"),
		PageToken:      common.StringArg(args, "pageToken"),
		IncludeTrashed: common.BoolArg(args, "includeTrashed", false),
	}
	if opts.MaxResults < 1 || opts.MaxResults > maxListResults {
		return mcp.NewToolResultError(fmt.Sprintf("maxResults must be between 1 and %d", maxListResults)), nil
	}

	files, next, err := sc.Session().Files().List(ctx, opts)
	if err != nil {
		return common.ErrorResult("Failed to list files", err), nil
	}

	return common.JSONResult(fmt.Sprintf("Found %d file(s):", len(files)), map[string]any{
		"files":         files,
		"nextPageToken": next,
	})
}

func handleGetFile(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	fileID, err := common.RequiredString(request.GetArguments(), "fileId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	file, err := sc.Session().Files().Get(ctx, fileID)
	if err != nil {
		return common.ErrorResult("Failed to get file", err), nil
	}
	return common.JSONResult("", file)
}

func handleDownloadFile(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	fileID, err := common.RequiredString(args, "fileId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	encoding := common.StringArg(args, "encoding")
	if encoding == "" {
		encoding = "base64"
	}
	if encoding != "base64" && encoding != "text" {
		return mcp.NewToolResultError("encoding must be 'base64' or 'text'"), nil
	}

	data, err := sc.Session().Files().Download(ctx, fileID)
	if err != nil {
		return common.ErrorResult("Failed to download file", err), nil
	}
	if len(data) > maxDownloadSize {
		return mcp.NewToolResultError(fmt.Sprintf("File is %d bytes, larger than the %d byte limit", len(data), maxDownloadSize)), nil
	}

	if encoding == "text" {
		if !utf8.Valid(data) {
			return mcp.NewToolResultError("File is not valid UTF-8 text; use encoding 'base64'"), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	}
	return mcp.NewToolResultText(base64.StdEncoding.EncodeToString(data)), nil
}

func handleCreateFolder(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	name, err := common.RequiredString(args, "name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	folder, err := sc.Session().Files().CreateFolder(ctx, name, common.ParseCommaList(common.StringArg(args, "parentFolders")))
	if err != nil {
		return common.ErrorResult("Failed to create folder", err), nil
	}
	return common.JSONResult("Folder created:", folder)
}

func handleUploadFile(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	name, err := common.RequiredString(args, "name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, _ := args["content"].(string)
	if content == "" {
		return mcp.NewToolResultError("content is required"), nil
	}

	data := []byte(content)
	if common.BoolArg(args, "isBase64", true) {
		if data, err = base64.StdEncoding.DecodeString(content); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to decode base64 content: %v", err)), nil
		}
	}

	opts := &drive.UploadOptions{
		ParentFolders: common.ParseCommaList(common.StringArg(args, "parentFolders")),
		Description:   common.StringArg(args, "description"),
		MimeType:      common.StringArg(args, "mimeType"),
	}
	if opts.MimeType == "" {
		opts.MimeType = mime.TypeByExtension(filepath.Ext(name))
	}

	file, err := sc.Session().Files().Upload(ctx, name, bytes.NewReader(data), opts)
	if err != nil {
		return common.ErrorResult("Failed to upload file", err), nil
	}
	return common.JSONResult("File uploaded:", file)
}

func handleDeleteFiles(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	ids, err := batch.ParseStringOrArray(request.GetArguments()["fileIds"], "fileIds")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	files := sc.Session().Files()
	res := batch.Process(ctx, ids, func(ctx context.Context, id string) (string, error) {
		if err := files.Delete(ctx, id); err != nil {
			return "", err
		}
		return "deleted", nil
	})
	return batch.ToolResult("delete files", res), nil
}

func handleShareFile(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	fileID, err := common.RequiredString(args, "fileId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	role, err := common.RequiredString(args, "role")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	perm, err := sc.Session().Files().Share(ctx, fileID, drive.ShareOptions{
		Type:         common.StringArg(args, "type"),
		Role:         role,
		EmailAddress: common.StringArg(args, "emailAddress"),
		Domain:       common.StringArg(args, "domain"),
		Notify:       common.BoolArg(args, "notify", false),
		Message:      common.StringArg(args, "message"),
	})
	if err != nil {
		return common.ErrorResult("Failed to share file", err), nil
	}
	return common.JSONResult("File shared:", perm)
}
