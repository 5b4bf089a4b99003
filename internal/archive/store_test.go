package archive_test

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"photomatch/internal/archive"
	"photomatch/internal/logging"
	"photomatch/internal/testsupport"
)

func stageFiles(t *testing.T, dir string, names map[string]string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir staging: %v", err)
	}
	for name, content := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write staged file: %v", err)
		}
	}
}

func TestFetchStreamsExactlyStagedFiles(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := archive.NewStore(cfg, logging.NewNop())

	dir := filepath.Join(cfg.Paths.StagingDir, "task-one")
	stageFiles(t, dir, map[string]string{
		"P001.png": "image-bytes-1",
		"P002.jpg": "image-bytes-2",
	})

	session := store.Create(dir, []string{"P001.png", "P002.jpg"})

	var buf bytes.Buffer
	if err := store.Fetch(context.Background(), session.ID, &buf); err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}

	reader, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("archive is not a valid zip: %v", err)
	}
	if len(reader.File) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(reader.File))
	}
	names := map[string]bool{}
	for _, f := range reader.File {
		names[f.Name] = true
	}
	if !names["P001.png"] || !names["P002.jpg"] {
		t.Fatalf("unexpected entry names: %v", names)
	}
}

func TestSecondFetchReturnsConsumed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := archive.NewStore(cfg, logging.NewNop())

	dir := filepath.Join(cfg.Paths.StagingDir, "task-two")
	stageFiles(t, dir, map[string]string{"P001.png": "x"})
	session := store.Create(dir, []string{"P001.png"})

	var buf bytes.Buffer
	if err := store.Fetch(context.Background(), session.ID, &buf); err != nil {
		t.Fatalf("first Fetch: %v", err)
	}
	err := store.Fetch(context.Background(), session.ID, &buf)
	if !errors.Is(err, archive.ErrConsumed) {
		t.Fatalf("expected ErrConsumed, got %v", err)
	}
	if _, statErr := os.Stat(dir); !os.IsNotExist(statErr) {
		t.Fatal("expected staging directory removed after consumption")
	}
}

func TestConsumedSessionStaysUntilExpiry(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := archive.NewStore(cfg, logging.NewNop())

	dir := filepath.Join(cfg.Paths.StagingDir, "task-six")
	stageFiles(t, dir, map[string]string{"P001.png": "x"})
	session := store.Create(dir, []string{"P001.png"})

	var buf bytes.Buffer
	if err := store.Fetch(context.Background(), session.ID, &buf); err != nil {
		t.Fatalf("first Fetch: %v", err)
	}

	// The consumed session must keep resolving until its TTL runs out.
	if _, err := store.Peek(session.ID); !errors.Is(err, archive.ErrConsumed) {
		t.Fatalf("Peek after consumption: expected ErrConsumed, got %v", err)
	}
	if err := store.Fetch(context.Background(), session.ID, &buf); !errors.Is(err, archive.ErrConsumed) {
		t.Fatalf("Fetch after consumption: expected ErrConsumed, got %v", err)
	}

	session.ExpiresAt = time.Now().Add(-time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	go store.Run(ctx, time.Millisecond)
	defer cancel()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if err := store.Fetch(context.Background(), session.ID, &buf); errors.Is(err, archive.ErrNotFound) {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("expected sweep to drop the consumed session after expiry")
}

func TestMultiDownloadPolicyKeepsSession(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithSingleDownload(false))
	store := archive.NewStore(cfg, logging.NewNop())

	dir := filepath.Join(cfg.Paths.StagingDir, "task-three")
	stageFiles(t, dir, map[string]string{"P001.png": "x"})
	session := store.Create(dir, []string{"P001.png"})

	for i := 0; i < 2; i++ {
		var buf bytes.Buffer
		if err := store.Fetch(context.Background(), session.ID, &buf); err != nil {
			t.Fatalf("fetch %d: %v", i, err)
		}
	}
}

func TestFetchUnknownSession(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := archive.NewStore(cfg, logging.NewNop())

	err := store.Fetch(context.Background(), "no-such-session", &bytes.Buffer{})
	if !errors.Is(err, archive.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestExpiredSessionRejectedAndCleaned(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Sessions.TTLMinutes = 1
	store := archive.NewStore(cfg, logging.NewNop())

	dir := filepath.Join(cfg.Paths.StagingDir, "task-four")
	stageFiles(t, dir, map[string]string{"P001.png": "x"})
	session := store.Create(dir, []string{"P001.png"})
	session.ExpiresAt = time.Now().Add(-time.Second)

	err := store.Fetch(context.Background(), session.ID, &bytes.Buffer{})
	if !errors.Is(err, archive.ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
	if _, statErr := os.Stat(dir); !os.IsNotExist(statErr) {
		t.Fatal("expected staging directory removed on expiry")
	}
}

func TestPeekDoesNotConsume(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := archive.NewStore(cfg, logging.NewNop())

	dir := filepath.Join(cfg.Paths.StagingDir, "task-five")
	stageFiles(t, dir, map[string]string{"P001.png": "x"})
	session := store.Create(dir, []string{"P001.png"})

	peeked, err := store.Peek(session.ID)
	if err != nil {
		t.Fatalf("Peek returned error: %v", err)
	}
	if peeked.ID != session.ID || len(peeked.Files) != 1 {
		t.Fatalf("unexpected peek result: %+v", peeked)
	}

	var buf bytes.Buffer
	if err := store.Fetch(context.Background(), session.ID, &buf); err != nil {
		t.Fatalf("Fetch after Peek: %v", err)
	}
}
