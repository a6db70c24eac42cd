package drive_tools

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/lexsync/internal/tools/tooltest"
)

type fakeDrive struct {
	mu          sync.Mutex
	uploads     []string
	deleted     []string
	permissions []map[string]any
	folders     []map[string]any
	queries     []string
}

const remoteListing = `{"files":[
	{"id":"r1","name":"remote.pdf","mimeType":"application/pdf","modifiedTime":"2026-01-05T10:00:00Z"},
	{"id":"r2","name":"Shared.PDF","mimeType":"application/pdf","modifiedTime":"2030-01-01T00:00:00Z"},
	{"id":"d1","name":"Exhibits","mimeType":"application/vnd.google-apps.folder"}
]}`

func (f *fakeDrive) serve(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case strings.HasSuffix(path, "/upload/drive/v3/files"):
		body, _ := io.ReadAll(r.Body)
		f.uploads = append(f.uploads, string(body))
		_, _ = io.WriteString(w, `{"id":"new-1","name":"uploaded","mimeType":"application/pdf"}`)

	case strings.HasSuffix(path, "/permissions"):
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.permissions = append(f.permissions, body)
		_, _ = io.WriteString(w, `{"id":"perm-1","type":"user","role":"reader","emailAddress":"client@example.com"}`)

	case strings.HasSuffix(path, "/files") && r.Method == http.MethodPost:
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.folders = append(f.folders, body)
		_, _ = io.WriteString(w, `{"id":"folder-1","name":"Matter 42","mimeType":"application/vnd.google-apps.folder"}`)

	case strings.HasSuffix(path, "/files"):
		f.queries = append(f.queries, r.URL.Query().Get("q"))
		_, _ = io.WriteString(w, remoteListing)

	case strings.HasSuffix(path, "/files/missing"):
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":{"code":404,"message":"File not found: missing."}}`)

	case r.Method == http.MethodDelete:
		f.deleted = append(f.deleted, filepath.Base(path))
		w.WriteHeader(http.StatusNoContent)

	case r.URL.Query().Get("alt") == "media":
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = io.WriteString(w, "%PDF-remote")

	default:
		_, _ = io.WriteString(w, `{"id":"r1","name":"remote.pdf","mimeType":"application/pdf","size":"11"}`)
	}
}

func setup(t *testing.T, readOnly bool) (*mcpserver.MCPServer, *fakeDrive) {
	t.Helper()
	fake := &fakeDrive{}
	sc, _ := tooltest.New(t, true, fake.serve)

	s := mcpserver.NewMCPServer("test", "1.0.0", mcpserver.WithToolCapabilities(true))
	require.NoError(t, RegisterDriveTools(s, sc, readOnly))
	return s, fake
}

func call(t *testing.T, s *mcpserver.MCPServer, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	tool, ok := s.ListTools()[name]
	require.True(t, ok, "tool %s not registered", name)
	res, err := tool.Handler(context.Background(), tooltest.Request(name, args))
	require.NoError(t, err)
	return res
}

func TestRegisterDriveTools_ReadOnly(t *testing.T) {
	s, _ := setup(t, true)
	tools := s.ListTools()

	for _, name := range []string{"files_list", "files_get", "files_download"} {
		assert.Contains(t, tools, name)
	}
	for _, name := range []string{"files_create_folder", "files_upload", "files_delete", "files_share", "reconcile_folder"} {
		assert.NotContains(t, tools, name)
	}
}

func TestFilesList(t *testing.T) {
	s, _ := setup(t, true)

	res := call(t, s, "files_list", map[string]any{"folderId": "folder-1"})
	require.False(t, res.IsError, tooltest.Text(t, res))
	assert.Contains(t, tooltest.Text(t, res), "Found 3 file(s)")

	assert.True(t, call(t, s, "files_list", map[string]any{"maxResults": float64(5000)}).IsError)
}

func TestFilesGet(t *testing.T) {
	s, _ := setup(t, true)

	res := call(t, s, "files_get", map[string]any{"fileId": "r1"})
	require.False(t, res.IsError, tooltest.Text(t, res))
	assert.Contains(t, tooltest.Text(t, res), `"name": "remote.pdf"`)

	res = call(t, s, "files_get", map[string]any{"fileId": "missing"})
	assert.True(t, res.IsError)
	assert.Equal(t, "Failed to get file: not found", tooltest.Text(t, res))
}

func TestFilesDownload(t *testing.T) {
	s, _ := setup(t, true)

	res := call(t, s, "files_download", map[string]any{"fileId": "r1", "encoding": "text"})
	require.False(t, res.IsError, tooltest.Text(t, res))
	assert.Equal(t, "%PDF-remote", tooltest.Text(t, res))

	res = call(t, s, "files_download", map[string]any{"fileId": "r1"})
	require.False(t, res.IsError)
	assert.Equal(t, "JVBERi1yZW1vdGU=", tooltest.Text(t, res))
}

func TestFilesUpload(t *testing.T) {
	s, fake := setup(t, false)

	res := call(t, s, "files_upload", map[string]any{
		"name":          "brief.pdf",
		"content":       "JVBERi0=",
		"parentFolders": "folder-1",
	})
	require.False(t, res.IsError, tooltest.Text(t, res))

	fake.mu.Lock()
	defer fake.mu.Unlock()
	require.Len(t, fake.uploads, 1)
	assert.Contains(t, fake.uploads[0], `"name":"brief.pdf"`)
	assert.Contains(t, fake.uploads[0], "application/pdf")
	assert.Contains(t, fake.uploads[0], "%PDF-")
}

func TestFilesUpload_BadBase64(t *testing.T) {
	s, fake := setup(t, false)

	res := call(t, s, "files_upload", map[string]any{"name": "a.pdf", "content": "***"})
	assert.True(t, res.IsError)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Empty(t, fake.uploads)
}

func TestFilesCreateFolder(t *testing.T) {
	s, fake := setup(t, false)

	res := call(t, s, "files_create_folder", map[string]any{"name": "Matter 42", "parentFolders": "root-1"})
	require.False(t, res.IsError, tooltest.Text(t, res))

	fake.mu.Lock()
	defer fake.mu.Unlock()
	require.Len(t, fake.folders, 1)
	assert.Equal(t, "application/vnd.google-apps.folder", fake.folders[0]["mimeType"])
	assert.Equal(t, []any{"root-1"}, fake.folders[0]["parents"])
}

func TestFilesDelete(t *testing.T) {
	s, fake := setup(t, false)

	res := call(t, s, "files_delete", map[string]any{"fileIds": `["r1","r2"]`})
	require.False(t, res.IsError, tooltest.Text(t, res))
	assert.Contains(t, tooltest.Text(t, res), "2 of 2 succeeded")

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, []string{"r1", "r2"}, fake.deleted)
}

func TestFilesShare(t *testing.T) {
	s, fake := setup(t, false)

	res := call(t, s, "files_share", map[string]any{"fileId": "r1", "role": "reader", "emailAddress": "client@example.com"})
	require.False(t, res.IsError, tooltest.Text(t, res))

	res = call(t, s, "files_share", map[string]any{"fileId": "r1", "role": "owner", "emailAddress": "client@example.com"})
	assert.True(t, res.IsError)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	require.Len(t, fake.permissions, 1)
	assert.Equal(t, "reader", fake.permissions[0]["role"])
}

func TestReconcileFolder(t *testing.T) {
	s, fake := setup(t, false)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "local.pdf"), []byte("%PDF-local"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "shared.pdf"), []byte("%PDF-old"), 0o600))
	old := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "shared.pdf"), old, old))

	res := call(t, s, "reconcile_folder", map[string]any{"directory": dir, "folderId": "folder-1", "download": true})
	require.False(t, res.IsError, tooltest.Text(t, res))

	var report reconcileReport
	text := strings.TrimPrefix(tooltest.Text(t, res), "Reconciled:\n")
	require.NoError(t, json.Unmarshal([]byte(text), &report))
	assert.Equal(t, 1, report.Uploaded)
	assert.Equal(t, 1, report.Downloaded)
	assert.Equal(t, []string{"shared.pdf"}, report.Conflicts)
	assert.Equal(t, []string{"remote.pdf"}, report.RemoteOnly)
	assert.Equal(t, 1, report.Fetched)

	data, err := os.ReadFile(filepath.Join(dir, "remote.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-remote", string(data))

	fake.mu.Lock()
	defer fake.mu.Unlock()
	require.Len(t, fake.uploads, 1)
	assert.Contains(t, fake.uploads[0], `"name":"local.pdf"`)
}

func TestReconcileFolder_DefaultsToMyDriveRoot(t *testing.T) {
	s, fake := setup(t, false)

	res := call(t, s, "reconcile_folder", map[string]any{"directory": t.TempDir()})
	require.False(t, res.IsError, tooltest.Text(t, res))

	fake.mu.Lock()
	defer fake.mu.Unlock()
	require.NotEmpty(t, fake.queries)
	assert.Equal(t, "'root' in parents and trashed = false", fake.queries[0])
}

func TestReconcileFolder_Validation(t *testing.T) {
	s, _ := setup(t, false)

	assert.True(t, call(t, s, "reconcile_folder", map[string]any{"directory": "relative/dir"}).IsError)
	assert.True(t, call(t, s, "reconcile_folder", map[string]any{"directory": filepath.Join(t.TempDir(), "nope")}).IsError)
}
