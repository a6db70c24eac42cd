package drive_tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/lexsync/internal/drive"
	"github.com/teemow/lexsync/internal/reconcile"
	"github.com/teemow/lexsync/internal/server"
	"github.com/teemow/lexsync/internal/tools/common"
)

// reconcileReport is the reconcile_folder result.
type reconcileReport struct {
	reconcile.Outcome

	// RemoteOnly lists the files the folder has and the directory lacks.
	RemoteOnly []string `json:"remoteOnly"`

	// Fetched counts the files written to the directory.
	Fetched int `json:"fetched"`
}

func handleReconcileFolder(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	dir, err := common.RequiredString(args, "directory")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !filepath.IsAbs(dir) {
		return mcp.NewToolResultError("directory must be an absolute path"), nil
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return mcp.NewToolResultError(fmt.Sprintf("%s is not a directory", dir)), nil
	}

	local, err := reconcile.ScanDir(dir)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to scan directory: %v", err)), nil
	}

	folderID := common.StringArg(args, "folderId")
	if folderID == "" {
		folderID = drive.RootFolderID
	}

	var remoteOnly []*drive.FileInfo
	out, err := sc.Session().Reconcile(ctx, local, folderID, func(f *drive.FileInfo) {
		remoteOnly = append(remoteOnly, f)
	})
	if err != nil {
		return common.ErrorResult("Failed to reconcile", err), nil
	}

	report := reconcileReport{Outcome: out, RemoteOnly: make([]string, 0, len(remoteOnly))}
	for _, f := range remoteOnly {
		report.RemoteOnly = append(report.RemoteOnly, f.Name)
	}

	if common.BoolArg(args, "download", false) {
		report.Fetched, err = reconcile.Fetch(ctx, dir, sc.Session().Files(), remoteOnly)
		if err != nil {
			return common.ErrorResult("Failed to download remote-only files", err), nil
		}
	}

	return common.JSONResult("Reconciled:", report)
}
