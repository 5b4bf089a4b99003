// Package match resolves codes and filenames against a mapping snapshot.
//
// Matching is exact and case-sensitive after trimming surrounding whitespace,
// mirroring how ingestion normalizes the workbook; there is no fuzzy or
// partial matching. Filenames match on their base name and the caller
// re-attaches the original extension to the produced name.
package match

import (
	"path/filepath"
	"strings"

	"photomatch/internal/mapping"
)

// Result is the outcome of resolving a single key.
type Result struct {
	Source  string
	Target  string
	Matched bool
}

var imageExtensions = map[string]struct{}{
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"webp": {},
}

// Lookup resolves a trimmed key against the snapshot.
func Lookup(snap *mapping.Snapshot, key string) Result {
	source := strings.TrimSpace(key)
	target, ok := snap.Lookup(source)
	return Result{Source: source, Target: target, Matched: ok}
}

// SplitName separates a filename into its base name and extension. The
// extension is returned lowercase and without the leading dot.
func SplitName(filename string) (base, ext string) {
	name := filepath.Base(filename)
	ext = filepath.Ext(name)
	base = strings.TrimSuffix(name, ext)
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	return base, ext
}

// AllowedImageExt reports whether the extension (without dot) is accepted.
func AllowedImageExt(ext string) bool {
	_, ok := imageExtensions[strings.ToLower(strings.TrimSpace(ext))]
	return ok
}

// ProducedName attaches the original extension to a matched target code.
func ProducedName(target, ext string) string {
	if ext == "" {
		return target
	}
	return target + "." + ext
}
