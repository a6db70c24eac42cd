package reconcile

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
)

// excludedSuffixes are partial downloads, editor temps and database files
// that must never be uploaded.
var excludedSuffixes = []string{
	".partial", ".tmp", ".swp", ".crdownload",
	".db-wal", ".db-shm", ".db",
}

// isExcluded reports whether a local name is skipped by ScanDir.
func isExcluded(name string) bool {
	if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~") {
		return true
	}
	lower := strings.ToLower(name)
	for _, ext := range excludedSuffixes {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// ScanDir builds local file descriptors from the regular files directly
// inside dir, in directory order. Subdirectories, hidden files and
// temporary files are skipped.
func ScanDir(dir string) ([]LocalFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}

	var files []LocalFile
	for _, entry := range entries {
		if !entry.Type().IsRegular() || isExcluded(entry.Name()) {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}

		files = append(files, LocalFile{
			Name:         entry.Name(),
			LastModified: info.ModTime(),
			Content:      content,
			MimeType:     mime.TypeByExtension(filepath.Ext(entry.Name())),
		})
	}
	return files, nil
}
