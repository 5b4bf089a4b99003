package match_test

import (
	"testing"

	"photomatch/internal/mapping"
	"photomatch/internal/match"
)

func snapshot() *mapping.Snapshot {
	return &mapping.Snapshot{Entries: map[string]string{
		"ABC123": "P001",
		"XYZ789": "P002",
	}}
}

func TestLookupExactMatch(t *testing.T) {
	result := match.Lookup(snapshot(), "ABC123")
	if !result.Matched || result.Target != "P001" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestLookupTrimsKey(t *testing.T) {
	result := match.Lookup(snapshot(), "  ABC123  ")
	if !result.Matched || result.Target != "P001" {
		t.Fatalf("expected trimmed key to match, got %+v", result)
	}
}

func TestLookupIsCaseSensitive(t *testing.T) {
	result := match.Lookup(snapshot(), "abc123")
	if result.Matched {
		t.Fatal("expected lowercase key to miss a case-sensitive mapping")
	}
}

func TestLookupMiss(t *testing.T) {
	result := match.Lookup(snapshot(), "NOTFOUND")
	if result.Matched {
		t.Fatalf("expected miss, got %+v", result)
	}
	if result.Source != "NOTFOUND" {
		t.Fatalf("expected source echoed back, got %q", result.Source)
	}
}

func TestSplitName(t *testing.T) {
	cases := []struct {
		filename string
		base     string
		ext      string
	}{
		{"ABC123.png", "ABC123", "png"},
		{"ABC123.JPG", "ABC123", "jpg"},
		{"dir/ABC123.webp", "ABC123", "webp"},
		{"noext", "noext", ""},
		{"dotted.name.jpeg", "dotted.name", "jpeg"},
	}
	for _, tc := range cases {
		base, ext := match.SplitName(tc.filename)
		if base != tc.base || ext != tc.ext {
			t.Fatalf("SplitName(%q) = %q, %q; want %q, %q", tc.filename, base, ext, tc.base, tc.ext)
		}
	}
}

func TestAllowedImageExt(t *testing.T) {
	for _, ext := range []string{"jpg", "jpeg", "png", "webp", "JPG"} {
		if !match.AllowedImageExt(ext) {
			t.Fatalf("expected %q to be allowed", ext)
		}
	}
	for _, ext := range []string{"tif", "gif", "bmp", "", "xlsx"} {
		if match.AllowedImageExt(ext) {
			t.Fatalf("expected %q to be rejected", ext)
		}
	}
}

func TestProducedName(t *testing.T) {
	if got := match.ProducedName("P001", "png"); got != "P001.png" {
		t.Fatalf("unexpected produced name: %q", got)
	}
	if got := match.ProducedName("P001", ""); got != "P001" {
		t.Fatalf("expected bare target for empty extension, got %q", got)
	}
}
