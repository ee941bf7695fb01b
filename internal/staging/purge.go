package staging

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// PurgeResult contains statistics about a purge operation.
type PurgeResult struct {
	// FilesRemoved is the number of stale staged files deleted.
	FilesRemoved int
	// BytesRemoved is the total size of the deleted files.
	BytesRemoved int64
}

// PurgeDir removes staged files left behind by an earlier process.
// Only regular files carrying FilePrefix and last modified before
// now-minAge are deleted. A missing directory is not an error.
func PurgeDir(dir string, minAge time.Duration, logger *slog.Logger) (PurgeResult, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	var result PurgeResult
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return result, nil
		}
		return result, err
	}

	cutoff := time.Now().Add(-minAge)
	for _, e := range entries {
		if !e.Type().IsRegular() || !strings.HasPrefix(e.Name(), FilePrefix) {
			continue
		}
		info, infoErr := e.Info()
		if infoErr != nil || info.ModTime().After(cutoff) {
			continue
		}

		path := filepath.Join(dir, e.Name())
		if rmErr := os.Remove(path); rmErr != nil {
			logger.Warn("failed to purge stale staged file", "path", path, "error", rmErr)
			continue
		}
		result.FilesRemoved++
		result.BytesRemoved += info.Size()
	}

	if result.FilesRemoved > 0 {
		logger.Info("purged stale staged files",
			"dir", dir,
			"files", result.FilesRemoved,
			"bytes", result.BytesRemoved)
	}
	return result, nil
}
