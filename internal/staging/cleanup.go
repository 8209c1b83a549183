// Package staging names the scratch entries extraction creates under the temp
// directory and sweeps the ones a crashed run left behind.
package staging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"spines/internal/logging"
)

// ScratchPrefix starts the name of every scratch file or directory.
const ScratchPrefix = "spines-"

// DefaultMaxAge is how long a scratch entry may live before CleanStale
// treats it as abandoned.
const DefaultMaxAge = 6 * time.Hour

// Pattern returns an os.CreateTemp/os.MkdirTemp pattern for kind.
func Pattern(kind, ext string) string {
	return ScratchPrefix + kind + "-*" + ext
}

// IsScratch reports whether name belongs to an extraction scratch entry.
// Sweeps keyed on references must leave these alone; CleanStale owns them.
func IsScratch(name string) bool {
	return strings.HasPrefix(name, ScratchPrefix)
}

// CleanStaleResult contains the outcome of a stale scratch cleanup.
type CleanStaleResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// CleanStale removes scratch entries in dir older than maxAge. Entries
// without the scratch prefix are never touched.
func CleanStale(ctx context.Context, dir string, maxAge time.Duration, logger *slog.Logger) CleanStaleResult {
	result := CleanStaleResult{}
	logger = logging.NewComponentLogger(logger, "staging")

	dir = strings.TrimSpace(dir)
	if dir == "" {
		return result
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, CleanupError{Path: dir, Error: err})
		}
		return result
	}

	now := time.Now()
	cutoff := now.Add(-maxAge)
	for _, entry := range entries {
		if ctx.Err() != nil {
			return result
		}
		if !IsScratch(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.RemoveAll(path); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
			logging.WarnWithContext(logger, "failed to remove stale scratch entry", "scratch_cleanup_failed",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check temp_dir permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
			continue
		}
		result.Removed = append(result.Removed, path)
		logger.Info("removed stale scratch entry",
			logging.String("path", path),
			logging.Duration("age", now.Sub(info.ModTime())),
			logging.String(logging.FieldEventType, "scratch_cleanup"),
		)
	}
	return result
}
