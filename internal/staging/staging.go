// Package staging manages per-task work directories under the configured
// staging root and sweeps abandoned ones.
package staging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"photomatch/internal/config"
	"photomatch/internal/logging"
)

const taskDirPrefix = "task-"

// Root returns the configured staging root directory.
func Root(cfg *config.Config) string {
	return cfg.Paths.StagingDir
}

// Dir returns the staging directory path for a task without creating it.
func Dir(cfg *config.Config, taskID string) string {
	return filepath.Join(cfg.Paths.StagingDir, taskDirPrefix+taskID)
}

// TaskDir creates and returns the staging directory for a task.
func TaskDir(cfg *config.Config, taskID string) (string, error) {
	dir := filepath.Join(cfg.Paths.StagingDir, taskDirPrefix+taskID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create staging directory %q: %w", dir, err)
	}
	return dir, nil
}

// Remove deletes a task's staging directory and everything in it.
func Remove(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return nil
	}
	return os.RemoveAll(dir)
}

// CleanStaleResult contains the outcome of a stale directory cleanup operation.
type CleanStaleResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a directory path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// CleanStale removes task staging directories older than maxAge. Abandoned
// tasks leave their directories behind; this sweep bounds disk usage.
func CleanStale(ctx context.Context, stagingDir string, maxAge time.Duration, logger *slog.Logger) CleanStaleResult {
	result := CleanStaleResult{}

	stagingDir = strings.TrimSpace(stagingDir)
	if stagingDir == "" {
		return result
	}

	entries, err := os.ReadDir(stagingDir)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, CleanupError{Path: stagingDir, Error: err})
		}
		return result
	}

	cutoff := time.Now().Add(-maxAge)

	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), taskDirPrefix) {
			continue
		}

		dirPath := filepath.Join(stagingDir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dirPath, Error: err})
			continue
		}

		if info.ModTime().Before(cutoff) {
			if err := os.RemoveAll(dirPath); err != nil {
				result.Errors = append(result.Errors, CleanupError{Path: dirPath, Error: err})
				if logger != nil {
					logger.Warn("failed to remove stale staging directory",
						logging.String("path", dirPath),
						logging.Error(err),
						logging.String(logging.FieldEventType, "staging_cleanup_failed"),
						logging.String(logging.FieldErrorHint, "check staging_dir permissions"),
					)
				}
			} else {
				result.Removed = append(result.Removed, dirPath)
				if logger != nil {
					logger.Info("removed stale staging directory",
						logging.String("path", dirPath),
						logging.Duration("age", time.Since(info.ModTime())),
						logging.String(logging.FieldEventType, "staging_cleanup"),
					)
				}
			}
		}
	}

	return result
}
