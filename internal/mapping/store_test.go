package mapping_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"photomatch/internal/logging"
	"photomatch/internal/mapping"
	"photomatch/internal/testsupport"
)

func TestIngestPublishesSnapshot(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenMappingStore(t, cfg)

	outcome := testsupport.IngestWorkbook(t, store, [][]string{
		{"CODICE", "COD.PR"},
		{"ABC123", "P001"},
		{"XYZ789", "P002"},
	})

	if !outcome.Updated {
		t.Fatal("expected first ingestion to report updated")
	}
	snap := store.Current()
	if snap.RowCount != 2 {
		t.Fatalf("expected 2 entries, got %d", snap.RowCount)
	}
	if target, ok := snap.Lookup("ABC123"); !ok || target != "P001" {
		t.Fatalf("unexpected lookup result: %q %v", target, ok)
	}
}

func TestIngestSkipsIncompleteRowsAndTrims(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenMappingStore(t, cfg)

	testsupport.IngestWorkbook(t, store, [][]string{
		{"CODICE", "COD.PR"},
		{"  ABC123  ", "  P001  "},
		{"MISSING-TARGET", ""},
		{"", "P009"},
		{"   ", "P010"},
	})

	snap := store.Current()
	if snap.RowCount != 1 {
		t.Fatalf("expected 1 entry after skipping incomplete rows, got %d", snap.RowCount)
	}
	if target, ok := snap.Lookup("ABC123"); !ok || target != "P001" {
		t.Fatalf("expected trimmed pair, got %q %v", target, ok)
	}
}

func TestIngestDuplicateKeysLastWriteWins(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenMappingStore(t, cfg)

	outcome, err := store.Ingest(context.Background(), testsupport.Workbook(t, [][]string{
		{"CODICE", "COD.PR"},
		{"ABC123", "P001"},
		{"ABC123", "P777"},
	}))
	if err != nil {
		t.Fatalf("Ingest returned error: %v", err)
	}
	if outcome.Snapshot.RowCount != 1 {
		t.Fatalf("expected dedup to 1 entry, got %d", outcome.Snapshot.RowCount)
	}
	if target, _ := outcome.Snapshot.Lookup("ABC123"); target != "P777" {
		t.Fatalf("expected last write to win, got %q", target)
	}
}

func TestReIngestIdenticalBytesIsNoOp(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenMappingStore(t, cfg)

	data := testsupport.Workbook(t, [][]string{
		{"CODICE", "COD.PR"},
		{"ABC123", "P001"},
	})

	first, err := store.Ingest(context.Background(), data)
	if err != nil {
		t.Fatalf("first Ingest: %v", err)
	}
	second, err := store.Ingest(context.Background(), data)
	if err != nil {
		t.Fatalf("second Ingest: %v", err)
	}
	if second.Updated {
		t.Fatal("expected identical bytes to be a no-op")
	}
	if second.Snapshot.ContentHash != first.Snapshot.ContentHash {
		t.Fatal("expected unchanged content hash")
	}
}

func TestIngestCorruptBytesKeepsCurrentSnapshot(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenMappingStore(t, cfg)

	published := testsupport.IngestWorkbook(t, store, [][]string{
		{"CODICE", "COD.PR"},
		{"ABC123", "P001"},
	})

	_, err := store.Ingest(context.Background(), []byte("definitely not a zip"))
	if !errors.Is(err, mapping.ErrCorruptPackage) {
		t.Fatalf("expected ErrCorruptPackage, got %v", err)
	}
	if store.Current().ContentHash != published.Snapshot.ContentHash {
		t.Fatal("expected published snapshot to survive a corrupt upload")
	}
}

func TestIngestEmptyMappingRejected(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenMappingStore(t, cfg)

	_, err := store.Ingest(context.Background(), testsupport.Workbook(t, [][]string{
		{"CODICE", "COD.PR"},
		{"", ""},
	}))
	if !errors.Is(err, mapping.ErrEmptyMapping) {
		t.Fatalf("expected ErrEmptyMapping, got %v", err)
	}
	if !store.Current().Empty() {
		t.Fatal("expected store to stay empty")
	}
}

func TestPersistedSnapshotSurvivesReopen(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	store, err := mapping.Open(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("mapping.Open: %v", err)
	}
	outcome := testsupport.IngestWorkbook(t, store, [][]string{
		{"CODICE", "COD.PR"},
		{"ABC123", "P001"},
	})
	if err := store.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	reopened := testsupport.MustOpenMappingStore(t, cfg)
	snap := reopened.Current()
	if snap.ContentHash != outcome.Snapshot.ContentHash {
		t.Fatalf("expected persisted hash %q, got %q", outcome.Snapshot.ContentHash, snap.ContentHash)
	}
	if target, ok := snap.Lookup("ABC123"); !ok || target != "P001" {
		t.Fatalf("expected persisted entry, got %q %v", target, ok)
	}
}

func TestRefreshFromRemote(t *testing.T) {
	data := testsupport.Workbook(t, [][]string{
		{"CODICE", "COD.PR"},
		{"ABC123", "P001"},
	})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(data)
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithRemoteURL(server.URL))
	store := testsupport.MustOpenMappingStore(t, cfg)

	outcome, err := store.RefreshFromRemote(context.Background())
	if err != nil {
		t.Fatalf("RefreshFromRemote: %v", err)
	}
	if !outcome.Updated || outcome.Snapshot.RowCount != 1 {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}

	// Second refresh sees identical bytes and must be a no-op.
	again, err := store.RefreshFromRemote(context.Background())
	if err != nil {
		t.Fatalf("second RefreshFromRemote: %v", err)
	}
	if again.Updated {
		t.Fatal("expected unchanged remote to report updated=false")
	}
}

func TestRefreshFromRemoteFailureKeepsSnapshot(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithRemoteURL(server.URL))
	store := testsupport.MustOpenMappingStore(t, cfg)
	published := testsupport.IngestWorkbook(t, store, [][]string{
		{"CODICE", "COD.PR"},
		{"ABC123", "P001"},
	})

	_, err := store.RefreshFromRemote(context.Background())
	if !errors.Is(err, mapping.ErrRemoteFetch) {
		t.Fatalf("expected ErrRemoteFetch, got %v", err)
	}
	if store.Current().ContentHash != published.Snapshot.ContentHash {
		t.Fatal("expected published snapshot to survive remote failure")
	}
}

func TestRefreshWithoutRemoteConfigured(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenMappingStore(t, cfg)

	_, err := store.RefreshFromRemote(context.Background())
	if !errors.Is(err, mapping.ErrNoRemoteConfigured) {
		t.Fatalf("expected ErrNoRemoteConfigured, got %v", err)
	}
}
