package drive

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/teemow/lexsync/internal/api"
	"github.com/teemow/lexsync/internal/instrumentation"
	"github.com/teemow/lexsync/internal/logging"
)

const (
	fileFields = "id, name, mimeType, size, createdTime, modifiedTime, webViewLink, parents, shared, trashed"

	// listPageSize is used by ListAll, which always wants whole pages.
	listPageSize = 1000
)

// Option configures a Client.
type Option func(*Client)

// WithEndpoint points the client at a different API root, e.g. a test server.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		c.endpoint = endpoint
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Client wraps the Google Drive API service
type Client struct {
	service *drive.Service

	endpoint string
	metrics  *instrumentation.Metrics
	logger   *slog.Logger
}

// New creates a Client on top of hc, which must attach the credential.
func New(ctx context.Context, hc *http.Client, opts ...Option) (*Client, error) {
	c := &Client{logger: logging.Discard()}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.WithService(c.logger, instrumentation.ServiceFiles)

	svcOpts := []option.ClientOption{option.WithHTTPClient(hc)}
	if c.endpoint != "" {
		svcOpts = append(svcOpts, option.WithEndpoint(c.endpoint))
	}

	driveService, err := drive.NewService(ctx, svcOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Drive service: %w", err)
	}

	c.service = driveService
	return c, nil
}

func (c *Client) track(ctx context.Context, op, id string) (context.Context, func(error) error) {
	var attrs []attribute.KeyValue
	if id != "" {
		attrs = append(attrs, attribute.String(instrumentation.SpanAttrResourceID, id))
	}
	return api.Track(ctx, c.metrics, instrumentation.ServiceFiles, op, attrs...)
}

// List returns one page of files and the token for the next page, which is
// empty on the last page. Trashed files are excluded unless requested.
func (c *Client) List(ctx context.Context, opts ListOptions) ([]*FileInfo, string, error) {
	ctx, done := c.track(ctx, instrumentation.OperationList, opts.FolderID)

	call := c.service.Files.List().
		Context(ctx).
		Fields(googleapi.Field("nextPageToken, files(" + fileFields + ")"))

	if q := buildQuery(opts); q != "" {
		call = call.Q(q)
	}
	if opts.MaxResults > 0 {
		call = call.PageSize(opts.MaxResults)
	}
	if opts.OrderBy != "" {
		call = call.OrderBy(opts.OrderBy)
	}
	if opts.PageToken != "" {
		call = call.PageToken(opts.PageToken)
	}

	fileList, err := call.Do()
	if err != nil {
		return nil, "", done(err)
	}

	files := make([]*FileInfo, len(fileList.Files))
	for i, f := range fileList.Files {
		if err := checkModifiedTime(f); err != nil {
			return nil, "", done(err)
		}
		files[i] = convertToFileInfo(f)
	}
	done(nil)
	return files, fileList.NextPageToken, nil
}

// checkModifiedTime rejects listed files whose modification time is missing
// or malformed. Reconciliation compares these timestamps, so a zero value
// would hide conflicts. Folders are exempt.
func checkModifiedTime(f *drive.File) error {
	if f.MimeType == FolderMimeType {
		return nil
	}
	if _, err := time.Parse(time.RFC3339, f.ModifiedTime); err != nil {
		return &api.RequestError{
			Kind:    api.KindDecode,
			Message: fmt.Sprintf("file %s has no valid modifiedTime %q", f.Id, f.ModifiedTime),
			Err:     err,
		}
	}
	return nil
}

// ListAll lists every non-trashed file in folderID (or the whole drive when
// folderID is empty), following pages until the listing is exhausted.
func (c *Client) ListAll(ctx context.Context, folderID string) ([]*FileInfo, error) {
	var all []*FileInfo
	opts := ListOptions{FolderID: folderID, MaxResults: listPageSize}

	for {
		page, next, err := c.List(ctx, opts)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if next == "" {
			return all, nil
		}
		opts.PageToken = next
	}
}

// Get retrieves metadata for a specific file
func (c *Client) Get(ctx context.Context, fileID string) (*FileInfo, error) {
	if fileID == "" {
		return nil, fmt.Errorf("fileID is required")
	}

	ctx, done := c.track(ctx, instrumentation.OperationGet, fileID)

	file, err := c.service.Files.Get(fileID).
		Context(ctx).
		Fields(googleapi.Field(fileFields)).
		Do()
	if err != nil {
		return nil, done(err)
	}
	done(nil)

	return convertToFileInfo(file), nil
}

// CreateFolder creates a new folder in Google Drive
func (c *Client) CreateFolder(ctx context.Context, name string, parentFolders []string) (*FileInfo, error) {
	if name == "" {
		return nil, fmt.Errorf("folder name is required")
	}

	file := &drive.File{
		Name:     name,
		MimeType: FolderMimeType,
		Parents:  parentFolders,
	}

	ctx, done := c.track(ctx, instrumentation.OperationCreate, "")

	driveFile, err := c.service.Files.Create(file).
		Context(ctx).
		Fields(googleapi.Field(fileFields)).
		Do()
	if err != nil {
		return nil, done(err)
	}
	done(nil)

	return convertToFileInfo(driveFile), nil
}

// Upload creates a file from content as one multipart request carrying the
// JSON metadata and the media.
func (c *Client) Upload(ctx context.Context, name string, content io.Reader, opts *UploadOptions) (*FileInfo, error) {
	if name == "" {
		return nil, fmt.Errorf("file name is required")
	}
	if content == nil {
		return nil, fmt.Errorf("file content is required")
	}

	file := &drive.File{Name: name}
	var media []googleapi.MediaOption

	if opts != nil {
		file.Parents = opts.ParentFolders
		file.Description = opts.Description
		if opts.MimeType != "" {
			file.MimeType = opts.MimeType
			media = append(media, googleapi.ContentType(opts.MimeType))
		}
		if opts.ModifiedTime != nil {
			file.ModifiedTime = opts.ModifiedTime.UTC().Format(time.RFC3339)
		}
	}

	ctx, done := c.track(ctx, instrumentation.OperationUpload, "")

	driveFile, err := c.service.Files.Create(file).
		Context(ctx).
		Media(content, media...).
		Fields(googleapi.Field(fileFields)).
		Do()
	if err != nil {
		return nil, done(err)
	}
	done(nil)

	c.logger.Debug("file uploaded", logging.File(name), slog.Int64("size", driveFile.Size))
	return convertToFileInfo(driveFile), nil
}

// Download returns the raw content of a file.
func (c *Client) Download(ctx context.Context, fileID string) ([]byte, error) {
	if fileID == "" {
		return nil, fmt.Errorf("fileID is required")
	}

	ctx, done := c.track(ctx, instrumentation.OperationDownload, fileID)

	resp, err := c.service.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return nil, done(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, done(err)
	}
	done(nil)
	return data, nil
}

// Delete deletes a file from Google Drive
func (c *Client) Delete(ctx context.Context, fileID string) error {
	if fileID == "" {
		return fmt.Errorf("fileID is required")
	}

	ctx, done := c.track(ctx, instrumentation.OperationDelete, fileID)
	return done(c.service.Files.Delete(fileID).Context(ctx).Do())
}

// Share grants a principal reader or writer access to a file.
func (c *Client) Share(ctx context.Context, fileID string, opts ShareOptions) (*Permission, error) {
	if fileID == "" {
		return nil, fmt.Errorf("fileID is required")
	}
	if opts.Role != RoleReader && opts.Role != RoleWriter {
		return nil, fmt.Errorf("role must be %q or %q, got %q", RoleReader, RoleWriter, opts.Role)
	}

	grantee := opts.Type
	if grantee == "" {
		grantee = "user"
	}
	switch grantee {
	case "user", "group":
		if opts.EmailAddress == "" {
			return nil, fmt.Errorf("email address is required for %s grantees", grantee)
		}
	case "domain":
		if opts.Domain == "" {
			return nil, fmt.Errorf("domain is required for domain grantees")
		}
	case "anyone":
	default:
		return nil, fmt.Errorf("unknown grantee type %q", grantee)
	}

	permission := &drive.Permission{
		Type:         grantee,
		Role:         opts.Role,
		EmailAddress: opts.EmailAddress,
		Domain:       opts.Domain,
	}

	call := c.service.Permissions.Create(fileID, permission).
		Fields("id, type, role, emailAddress, domain, displayName")
	if grantee == "user" || grantee == "group" {
		call = call.SendNotificationEmail(opts.Notify)
		if opts.Notify && opts.Message != "" {
			call = call.EmailMessage(opts.Message)
		}
	}

	ctx, done := c.track(ctx, instrumentation.OperationShare, fileID)

	drivePermission, err := call.Context(ctx).Do()
	if err != nil {
		return nil, done(err)
	}
	done(nil)

	c.logger.Info("file shared",
		slog.String("role", opts.Role),
		slog.String("grantee_type", grantee),
		logging.UserHash(opts.EmailAddress))
	return convertToPermission(drivePermission), nil
}

// buildQuery ANDs the folder scope, the trash filter and the caller's query.
func buildQuery(opts ListOptions) string {
	var clauses []string
	if opts.FolderID != "" {
		clauses = append(clauses, fmt.Sprintf("'%s' in parents", escapeQuery(opts.FolderID)))
	}
	if !opts.IncludeTrashed {
		clauses = append(clauses, "trashed = false")
	}
	if opts.Query != "" {
		clauses = append(clauses, "("+opts.Query+")")
	}
	return strings.Join(clauses, " and ")
}

func escapeQuery(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}

// convertToFileInfo converts a Drive API File to our FileInfo type
func convertToFileInfo(f *drive.File) *FileInfo {
	fileInfo := &FileInfo{
		ID:          f.Id,
		Name:        f.Name,
		MimeType:    f.MimeType,
		Size:        f.Size,
		WebViewLink: f.WebViewLink,
		Parents:     f.Parents,
		Shared:      f.Shared,
		Trashed:     f.Trashed,
	}

	if f.CreatedTime != "" {
		if t, err := time.Parse(time.RFC3339, f.CreatedTime); err == nil {
			fileInfo.CreatedTime = t
		}
	}
	if f.ModifiedTime != "" {
		if t, err := time.Parse(time.RFC3339, f.ModifiedTime); err == nil {
			fileInfo.ModifiedTime = t
		}
	}

	return fileInfo
}

// convertToPermission converts a Drive API Permission to our Permission type
func convertToPermission(p *drive.Permission) *Permission {
	return &Permission{
		ID:           p.Id,
		Type:         p.Type,
		Role:         p.Role,
		EmailAddress: p.EmailAddress,
		Domain:       p.Domain,
		DisplayName:  p.DisplayName,
	}
}
