package mapping

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"photomatch/internal/logging"
	"photomatch/internal/xlsx"
)

// Outcome describes the result of an ingestion attempt.
type Outcome struct {
	Snapshot *Snapshot
	Updated  bool
	Message  string
}

// Known header labels for the source code column across workbook variants.
// Their presence has no effect on parsing (row 0 is always skipped); they are
// only logged so operators can tell which variant was uploaded.
var headerCandidates = []string{"CODICE", "COD.PR", "C.ART"}

// Ingest parses raw workbook bytes and publishes a new snapshot when the
// content changed. Identical bytes are a no-op that returns the current
// snapshot. On any error the previously published snapshot stays current.
func (s *Store) Ingest(ctx context.Context, data []byte) (Outcome, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	if current := s.Current(); current.ContentHash == hash {
		return Outcome{Snapshot: current, Updated: false, Message: "workbook unchanged"}, nil
	}

	rows, err := xlsx.Parse(data)
	if err != nil {
		return Outcome{}, err
	}

	entries := buildEntries(rows, s.logger)
	if len(entries) == 0 {
		return Outcome{}, ErrEmptyMapping
	}

	snap := &Snapshot{
		Entries:     entries,
		ContentHash: hash,
		RowCount:    len(entries),
		RefreshedAt: time.Now().UTC(),
	}
	if err := s.persist(ctx, snap); err != nil {
		return Outcome{}, err
	}
	s.current.Store(snap)

	s.logger.Info("published mapping snapshot",
		logging.Int("entries", len(entries)),
		logging.String("hash", hash),
	)
	return Outcome{
		Snapshot: snap,
		Updated:  true,
		Message:  fmt.Sprintf("workbook updated: %d mappings", len(entries)),
	}, nil
}

// buildEntries turns parsed rows into a source -> target map. Row 0 is the
// header; pairs come from trimmed columns 0 and 1, and a row contributes only
// when both sides are non-empty. Duplicate source codes keep the last value.
func buildEntries(rows [][]string, logger *slog.Logger) map[string]string {
	if len(rows) > 0 {
		logHeaderVariant(rows[0], logger)
	}

	entries := make(map[string]string)
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		if len(row) < 2 {
			continue
		}
		source := strings.TrimSpace(row[0])
		target := strings.TrimSpace(row[1])
		if source == "" || target == "" {
			continue
		}
		entries[source] = target
	}
	return entries
}

func logHeaderVariant(header []string, logger *slog.Logger) {
	if len(header) == 0 || logger == nil {
		return
	}
	fold := cases.Fold()
	label := fold.String(strings.TrimSpace(header[0]))
	for _, candidate := range headerCandidates {
		if fold.String(candidate) == label {
			logger.Debug("recognized workbook header variant", logging.String("header", header[0]))
			return
		}
	}
}
