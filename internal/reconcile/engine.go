package reconcile

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"mime"
	"path/filepath"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/teemow/lexsync/internal/drive"
	"github.com/teemow/lexsync/internal/instrumentation"
	"github.com/teemow/lexsync/internal/logging"
)

// LocalFile describes one caller-owned local document. The engine only
// reads it.
type LocalFile struct {
	Name         string
	LastModified time.Time
	Content      []byte
	MimeType     string
}

// Outcome is the result of one reconciliation.
type Outcome struct {
	Uploaded   int      `json:"uploaded"`
	Downloaded int      `json:"downloaded"`
	Conflicts  []string `json:"conflicts"`
}

// Files is the part of the files adapter the engine needs.
type Files interface {
	ListAll(ctx context.Context, folderID string) ([]*drive.FileInfo, error)
	Upload(ctx context.Context, name string, content io.Reader, opts *drive.UploadOptions) (*drive.FileInfo, error)
}

// DownloadFunc is told about each remote file that has no local
// counterpart.
type DownloadFunc func(file *drive.FileInfo)

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// Engine reconciles local documents against a remote folder.
type Engine struct {
	files   Files
	logger  *slog.Logger
	metrics *instrumentation.Metrics
}

// New creates an Engine on top of files.
func New(files Files, opts ...Option) *Engine {
	e := &Engine{
		files:  files,
		logger: logging.Discard(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = logging.WithOperation(e.logger, "reconcile")
	return e
}

// Reconcile converges local and the remote folder folderID (the whole drive
// when empty). Uploads go into folderID. notify may be nil.
//
// On a transfer failure the outcome so far is returned together with a
// *ReconciliationError.
func (e *Engine) Reconcile(ctx context.Context, local []LocalFile, folderID string, notify DownloadFunc) (out Outcome, err error) {
	ctx, span := instrumentation.StartSpan(ctx, "reconcile",
		attribute.String(instrumentation.SpanAttrFolder, folderID),
		attribute.Int(instrumentation.SpanAttrLocalCount, len(local)))
	defer func() {
		status := instrumentation.StatusSuccess
		if err != nil {
			status = instrumentation.StatusError
		}
		e.metrics.RecordReconcile(ctx, status, out.Uploaded, out.Downloaded, len(out.Conflicts))
		instrumentation.EndSpan(span, err)
	}()

	remote, err := e.files.ListAll(ctx, folderID)
	if err != nil {
		return Outcome{}, &ReconciliationError{Phase: PhaseListing, Err: err}
	}

	key := identity()

	index := make(map[string]*drive.FileInfo, len(remote))
	for _, f := range remote {
		k := key(f.Name)
		if first, dup := index[k]; dup {
			e.logger.Warn("duplicate remote name, keeping first",
				logging.File(f.Name), slog.String("kept_id", first.ID), slog.String("ignored_id", f.ID))
			continue
		}
		index[k] = f
	}

	conflicts := make(map[string]struct{})
	seen := make(map[string]bool, len(local))

	defer func() {
		out.Conflicts = sortedNames(conflicts)
	}()

	for _, lf := range local {
		k := key(lf.Name)
		if seen[k] {
			e.logger.Warn("duplicate local name, keeping first", logging.File(lf.Name))
			continue
		}
		seen[k] = true

		rf, ok := index[k]
		switch {
		case !ok:
			if err := e.upload(ctx, lf, folderID); err != nil {
				return out, &ReconciliationError{Phase: PhaseTransfer, Name: lf.Name, Err: err}
			}
			out.Uploaded++

		case rf.IsFolder():
			e.logger.Debug("local file shadows a remote folder, skipping", logging.File(lf.Name))

		case rf.ModifiedTime.After(lf.LastModified):
			conflicts[lf.Name] = struct{}{}
			e.logger.Info("conflict", logging.File(lf.Name),
				slog.Time("remote_modified", rf.ModifiedTime),
				slog.Time("local_modified", lf.LastModified))
		}
	}

	for _, rf := range remote {
		k := key(rf.Name)
		if index[k] != rf || seen[k] || rf.IsFolder() {
			continue
		}
		if notify != nil {
			notify(rf)
		}
		out.Downloaded++
	}

	e.logger.Info("reconciled",
		slog.Int("uploaded", out.Uploaded),
		slog.Int("downloaded", out.Downloaded),
		slog.Int("conflicts", len(conflicts)))
	return out, nil
}

func (e *Engine) upload(ctx context.Context, lf LocalFile, folderID string) error {
	mimeType := lf.MimeType
	if mimeType == "" {
		mimeType = mime.TypeByExtension(filepath.Ext(lf.Name))
	}

	opts := &drive.UploadOptions{MimeType: mimeType}
	if folderID != "" {
		opts.ParentFolders = []string{folderID}
	}
	// carrying the local timestamp keeps the next run from seeing the
	// fresh upload as a newer remote copy
	if !lf.LastModified.IsZero() {
		modified := lf.LastModified
		opts.ModifiedTime = &modified
	}

	_, err := e.files.Upload(ctx, lf.Name, bytes.NewReader(lf.Content), opts)
	if err == nil {
		e.logger.Debug("uploaded", logging.File(lf.Name))
	}
	return err
}

// identity returns the name key function for one reconciliation. A Caser is
// stateful, so each call gets its own.
func identity() func(string) string {
	fold := cases.Fold()
	return func(name string) string {
		return fold.String(norm.NFC.String(name))
	}
}

func sortedNames(set map[string]struct{}) []string {
	names := make([]string, 0, len(set))
	for n := range set {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
