package staging_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"photomatch/internal/staging"
	"photomatch/internal/testsupport"
)

func TestTaskDirCreatesNestedDirectory(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	dir, err := staging.TaskDir(cfg, "abc-123")
	if err != nil {
		t.Fatalf("TaskDir returned error: %v", err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("stat staging dir: %v", err)
	}
	if !info.IsDir() {
		t.Fatal("expected a directory")
	}
	if filepath.Base(dir) != "task-abc-123" {
		t.Fatalf("unexpected directory name: %q", filepath.Base(dir))
	}
}

func TestCleanStaleRemovesOldTaskDirs(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	oldDir, err := staging.TaskDir(cfg, "old")
	if err != nil {
		t.Fatalf("TaskDir: %v", err)
	}
	freshDir, err := staging.TaskDir(cfg, "fresh")
	if err != nil {
		t.Fatalf("TaskDir: %v", err)
	}
	// Unrelated directories must never be swept.
	other := filepath.Join(cfg.Paths.StagingDir, "keepme")
	if err := os.MkdirAll(other, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	past := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(oldDir, past, past); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	if err := os.Chtimes(other, past, past); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	result := staging.CleanStale(context.Background(), cfg.Paths.StagingDir, time.Hour, nil)
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected cleanup errors: %v", result.Errors)
	}
	if len(result.Removed) != 1 || result.Removed[0] != oldDir {
		t.Fatalf("unexpected removals: %v", result.Removed)
	}
	if _, err := os.Stat(freshDir); err != nil {
		t.Fatal("fresh task dir should survive")
	}
	if _, err := os.Stat(other); err != nil {
		t.Fatal("non-task dir should survive")
	}
}

func TestCleanStaleMissingRootIsNoOp(t *testing.T) {
	result := staging.CleanStale(context.Background(), filepath.Join(t.TempDir(), "absent"), time.Hour, nil)
	if len(result.Removed) != 0 || len(result.Errors) != 0 {
		t.Fatalf("expected silent no-op, got %+v", result)
	}
}
