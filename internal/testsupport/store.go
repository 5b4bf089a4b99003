package testsupport

import (
	"context"
	"testing"

	"photomatch/internal/config"
	"photomatch/internal/logging"
	"photomatch/internal/mapping"
)

// MustOpenMappingStore opens a mapping.Store for tests and registers cleanup.
func MustOpenMappingStore(t testing.TB, cfg *config.Config) *mapping.Store {
	t.Helper()

	store, err := mapping.Open(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("mapping.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// IngestWorkbook builds a workbook from rows and publishes it through the store.
func IngestWorkbook(t testing.TB, store *mapping.Store, rows [][]string) mapping.Outcome {
	t.Helper()

	outcome, err := store.Ingest(context.Background(), Workbook(t, rows))
	if err != nil {
		t.Fatalf("store.Ingest: %v", err)
	}
	return outcome
}

// MappingRows is a convenient two-column table with the standard header.
func MappingRows(pairs map[string]string) [][]string {
	rows := [][]string{{"CODICE", "COD.PR"}}
	for source, target := range pairs {
		rows = append(rows, []string{source, target})
	}
	return rows
}
