package mapping

import (
	"sort"
	"strings"
	"time"
)

// Snapshot is an immutable, atomically published version of the mapping.
// Entries map a source code to its target code.
type Snapshot struct {
	Entries     map[string]string
	ContentHash string
	RowCount    int
	RefreshedAt time.Time
}

// Lookup trims the key and resolves it with an exact, case-sensitive match.
func (s *Snapshot) Lookup(key string) (string, bool) {
	if s == nil || len(s.Entries) == 0 {
		return "", false
	}
	target, ok := s.Entries[strings.TrimSpace(key)]
	return target, ok
}

// Empty reports whether the snapshot holds no mapping pairs.
func (s *Snapshot) Empty() bool {
	return s == nil || len(s.Entries) == 0
}

// Entry is one source -> target pair in presentation order.
type Entry struct {
	SourceCode string `json:"source_code"`
	TargetCode string `json:"target_code"`
}

// SortedEntries returns the snapshot's pairs ordered by source code.
func (s *Snapshot) SortedEntries() []Entry {
	if s == nil || len(s.Entries) == 0 {
		return nil
	}
	entries := make([]Entry, 0, len(s.Entries))
	for source, target := range s.Entries {
		entries = append(entries, Entry{SourceCode: source, TargetCode: target})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].SourceCode < entries[j].SourceCode })
	return entries
}

func emptySnapshot() *Snapshot {
	return &Snapshot{Entries: map[string]string{}}
}
