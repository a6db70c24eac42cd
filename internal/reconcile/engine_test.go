package reconcile

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/lexsync/internal/api"
	"github.com/teemow/lexsync/internal/drive"
)

var (
	t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	t1 = t0.Add(time.Hour)
)

type uploaded struct {
	name    string
	content []byte
	opts    *drive.UploadOptions
}

type fakeFiles struct {
	mu       sync.Mutex
	remote   []*drive.FileInfo
	listErr  error
	failOn   string
	uploads  []uploaded
	listings int
}

func (f *fakeFiles) ListAll(_ context.Context, _ string) ([]*drive.FileInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listings++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.remote, nil
}

func (f *fakeFiles) Upload(_ context.Context, name string, content io.Reader, opts *drive.UploadOptions) (*drive.FileInfo, error) {
	if name == f.failOn {
		return nil, &api.RequestError{Kind: api.KindStatus, Status: 403, Code: "storageQuotaExceeded", Message: "quota"}
	}
	data, err := io.ReadAll(content)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.uploads = append(f.uploads, uploaded{name: name, content: data, opts: opts})
	f.mu.Unlock()
	return &drive.FileInfo{ID: "id-" + name, Name: name}, nil
}

func remoteFile(name string, modified time.Time) *drive.FileInfo {
	return &drive.FileInfo{ID: "r-" + name, Name: name, MimeType: "application/pdf", ModifiedTime: modified}
}

func remoteFolder(name string) *drive.FileInfo {
	return &drive.FileInfo{ID: "d-" + name, Name: name, MimeType: drive.FolderMimeType}
}

func collect(notified *[]string) DownloadFunc {
	return func(f *drive.FileInfo) {
		*notified = append(*notified, f.Name)
	}
}

func TestReconcile_UploadsMissingRemote(t *testing.T) {
	files := &fakeFiles{}
	e := New(files)

	out, err := e.Reconcile(context.Background(), []LocalFile{
		{Name: "a.pdf", LastModified: t0, Content: []byte("%PDF"), MimeType: "application/pdf"},
	}, "folder-1", nil)
	require.NoError(t, err)

	assert.Equal(t, 1, out.Uploaded)
	assert.Zero(t, out.Downloaded)
	assert.Empty(t, out.Conflicts)

	require.Len(t, files.uploads, 1)
	up := files.uploads[0]
	assert.Equal(t, "a.pdf", up.name)
	assert.Equal(t, []byte("%PDF"), up.content)
	assert.Equal(t, []string{"folder-1"}, up.opts.ParentFolders)
	assert.Equal(t, "application/pdf", up.opts.MimeType)
	require.NotNil(t, up.opts.ModifiedTime)
	assert.Equal(t, t0, *up.opts.ModifiedTime)
}

func TestReconcile_RemoteNewerIsConflict(t *testing.T) {
	files := &fakeFiles{remote: []*drive.FileInfo{remoteFile("a.pdf", t1)}}

	out, err := New(files).Reconcile(context.Background(), []LocalFile{
		{Name: "a.pdf", LastModified: t0},
	}, "", nil)
	require.NoError(t, err)

	assert.Equal(t, Outcome{Conflicts: []string{"a.pdf"}}, out)
	assert.Empty(t, files.uploads, "conflicts are never written")
}

func TestReconcile_NotifiesRemoteOnly(t *testing.T) {
	files := &fakeFiles{remote: []*drive.FileInfo{
		remoteFolder("Archive"),
		remoteFile("b.pdf", t0),
	}}

	var notified []string
	out, err := New(files).Reconcile(context.Background(), nil, "", collect(&notified))
	require.NoError(t, err)

	assert.Equal(t, 1, out.Downloaded)
	assert.Zero(t, out.Uploaded)
	assert.Equal(t, []string{"b.pdf"}, notified, "folders are never reported")
}

func TestReconcile_NilNotifyStillCounts(t *testing.T) {
	files := &fakeFiles{remote: []*drive.FileInfo{remoteFile("b.pdf", t0)}}

	out, err := New(files).Reconcile(context.Background(), nil, "", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Downloaded)
}

func TestReconcile_LocalNotOlderIsNoop(t *testing.T) {
	files := &fakeFiles{remote: []*drive.FileInfo{
		remoteFile("same.pdf", t0),
		remoteFile("older.pdf", t0),
	}}

	var notified []string
	out, err := New(files).Reconcile(context.Background(), []LocalFile{
		{Name: "same.pdf", LastModified: t0},
		{Name: "older.pdf", LastModified: t1},
	}, "", collect(&notified))
	require.NoError(t, err)

	assert.Equal(t, Outcome{Conflicts: []string{}}, out)
	assert.Empty(t, notified)
	assert.Empty(t, files.uploads)
}

func TestReconcile_CaseInsensitiveIdentity(t *testing.T) {
	files := &fakeFiles{remote: []*drive.FileInfo{
		remoteFile("VOLLMACHT.PDF", t1),
		remoteFile("Straße.docx", t0),
	}}

	var notified []string
	out, err := New(files).Reconcile(context.Background(), []LocalFile{
		{Name: "Vollmacht.pdf", LastModified: t0},
		{Name: "STRASSE.docx", LastModified: t1},
	}, "", collect(&notified))
	require.NoError(t, err)

	assert.Equal(t, []string{"Vollmacht.pdf"}, out.Conflicts)
	assert.Zero(t, out.Uploaded)
	assert.Zero(t, out.Downloaded)
	assert.Empty(t, notified)
}

func TestReconcile_UnicodeNormalization(t *testing.T) {
	// "Müller" precomposed remotely, decomposed locally
	files := &fakeFiles{remote: []*drive.FileInfo{remoteFile("M\u00fcller.pdf", t0)}}

	out, err := New(files).Reconcile(context.Background(), []LocalFile{
		{Name: "Mu\u0308ller.pdf", LastModified: t0},
	}, "", nil)
	require.NoError(t, err)
	assert.Zero(t, out.Uploaded)
	assert.Zero(t, out.Downloaded)
}

func TestReconcile_LocalMatchingRemoteFolder(t *testing.T) {
	files := &fakeFiles{remote: []*drive.FileInfo{remoteFolder("Archive")}}

	out, err := New(files).Reconcile(context.Background(), []LocalFile{
		{Name: "archive", LastModified: t0},
	}, "", nil)
	require.NoError(t, err)
	assert.Zero(t, out.Uploaded)
	assert.Empty(t, out.Conflicts)
}

func TestReconcile_DuplicatesFirstWins(t *testing.T) {
	files := &fakeFiles{remote: []*drive.FileInfo{
		remoteFile("a.pdf", t1),
		remoteFile("A.pdf", t0),
		remoteFile("b.pdf", t0),
		remoteFile("B.PDF", t0),
	}}

	var notified []string
	out, err := New(files).Reconcile(context.Background(), []LocalFile{
		{Name: "a.pdf", LastModified: t0},
		{Name: "A.PDF", LastModified: t0},
	}, "", collect(&notified))
	require.NoError(t, err)

	assert.Equal(t, []string{"a.pdf"}, out.Conflicts)
	assert.Equal(t, []string{"b.pdf"}, notified)
	assert.Equal(t, 1, out.Downloaded)
}

func TestReconcile_ConflictsSortedAndUnique(t *testing.T) {
	files := &fakeFiles{remote: []*drive.FileInfo{
		remoteFile("c.pdf", t1),
		remoteFile("a.pdf", t1),
		remoteFile("b.pdf", t1),
	}}

	out, err := New(files).Reconcile(context.Background(), []LocalFile{
		{Name: "c.pdf", LastModified: t0},
		{Name: "b.pdf", LastModified: t0},
		{Name: "a.pdf", LastModified: t0},
	}, "", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.pdf", "b.pdf", "c.pdf"}, out.Conflicts)
}

func TestReconcile_Deterministic(t *testing.T) {
	files := &fakeFiles{remote: []*drive.FileInfo{
		remoteFile("conflict.pdf", t1),
		remoteFile("remote-only.pdf", t0),
		remoteFolder("Folder"),
		remoteFile("equal.pdf", t0),
	}}
	local := []LocalFile{
		{Name: "conflict.pdf", LastModified: t0},
		{Name: "equal.pdf", LastModified: t0},
	}

	var first []string
	want, err := New(files).Reconcile(context.Background(), local, "", collect(&first))
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		var notified []string
		got, err := New(files).Reconcile(context.Background(), local, "", collect(&notified))
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.Equal(t, first, notified)
	}
	assert.Equal(t, 11, files.listings, "the listing is fetched once per call")
}

func TestReconcile_ListingFailure(t *testing.T) {
	cause := &api.RequestError{Kind: api.KindTransport, Timeout: true, Message: "timeout"}
	files := &fakeFiles{listErr: cause}

	out, err := New(files).Reconcile(context.Background(), []LocalFile{{Name: "a.pdf"}}, "", nil)

	var re *ReconciliationError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, PhaseListing, re.Phase)
	assert.Empty(t, re.Name)
	assert.Equal(t, Outcome{}, out)
	assert.Empty(t, files.uploads)

	var reqErr *api.RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Same(t, cause, reqErr)
}

func TestReconcile_TransferFailureKeepsPartialOutcome(t *testing.T) {
	files := &fakeFiles{
		remote: []*drive.FileInfo{remoteFile("old.pdf", t1)},
		failOn: "second.pdf",
	}

	out, err := New(files).Reconcile(context.Background(), []LocalFile{
		{Name: "first.pdf", LastModified: t0},
		{Name: "old.pdf", LastModified: t0},
		{Name: "second.pdf", LastModified: t0},
		{Name: "third.pdf", LastModified: t0},
	}, "", nil)

	var re *ReconciliationError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, PhaseTransfer, re.Phase)
	assert.Equal(t, "second.pdf", re.Name)
	assert.Contains(t, err.Error(), "transfer")

	assert.Equal(t, 1, out.Uploaded)
	assert.Equal(t, []string{"old.pdf"}, out.Conflicts)
	assert.Len(t, files.uploads, 1)
}

func TestReconciliationError_Format(t *testing.T) {
	err := &ReconciliationError{Phase: PhaseListing, Err: errors.New("boom")}
	assert.Equal(t, "reconcile: listing failed: boom", err.Error())

	err = &ReconciliationError{Phase: PhaseTransfer, Name: "a.pdf", Err: errors.New("boom")}
	assert.Equal(t, `reconcile: transfer of "a.pdf" failed: boom`, err.Error())
}
