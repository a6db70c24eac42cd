package reconcile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/teemow/lexsync/internal/drive"
)

// Downloader is the part of the files adapter Fetch needs.
type Downloader interface {
	Download(ctx context.Context, fileID string) ([]byte, error)
}

// googleAppsPrefix marks provider-native documents, which have no binary
// content to download.
const googleAppsPrefix = "application/vnd.google-apps."

// Fetch downloads files into dir and returns how many were written. Each
// file lands under a ".partial" name first and is renamed once complete,
// with the remote modification time applied. Provider-native documents and
// names that are not plain file names are skipped.
func Fetch(ctx context.Context, dir string, files Downloader, remote []*drive.FileInfo) (int, error) {
	written := 0
	for _, rf := range remote {
		if strings.HasPrefix(rf.MimeType, googleAppsPrefix) || !plainName(rf.Name) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return written, err
		}

		data, err := files.Download(ctx, rf.ID)
		if err != nil {
			return written, &ReconciliationError{Phase: PhaseTransfer, Name: rf.Name, Err: err}
		}

		dst := filepath.Join(dir, rf.Name)
		tmp := dst + ".partial"
		if err := os.WriteFile(tmp, data, 0o600); err != nil {
			return written, fmt.Errorf("writing %s: %w", tmp, err)
		}
		if !rf.ModifiedTime.IsZero() {
			if err := os.Chtimes(tmp, rf.ModifiedTime, rf.ModifiedTime); err != nil {
				_ = os.Remove(tmp)
				return written, fmt.Errorf("setting times on %s: %w", tmp, err)
			}
		}
		if err := os.Rename(tmp, dst); err != nil {
			_ = os.Remove(tmp)
			return written, fmt.Errorf("renaming %s: %w", tmp, err)
		}
		written++
	}
	return written, nil
}

func plainName(name string) bool {
	return name != "" && name != "." && name != ".." &&
		!strings.ContainsAny(name, `/\`) && !isExcluded(name)
}
