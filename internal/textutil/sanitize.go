// Package textutil sanitizes workbook-sourced strings before they are used
// as filesystem names.
package textutil

import "strings"

// fileNameReplacer replaces filesystem-unsafe characters with safe alternatives.
var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// SanitizeFileName replaces filesystem-unsafe characters in a filename.
// Target codes come straight out of user-maintained spreadsheets, so they are
// not trusted as path components. Slashes, backslashes, colons, and asterisks
// become dashes; other unsafe characters are removed. The result is trimmed
// of leading/trailing whitespace.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	return strings.TrimSpace(fileNameReplacer.Replace(name))
}
