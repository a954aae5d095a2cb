package textutil

import (
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

// separatorReplacer maps file-name word separators to spaces.
var separatorReplacer = strings.NewReplacer("_", " ")

// NormalizeQuery turns a ROM file name into a search query: the extension is
// removed, underscores become spaces, runs of whitespace collapse and case is
// folded.
func NormalizeQuery(fileName string) string {
	name := filepath.Base(strings.TrimSpace(fileName))
	if ext := filepath.Ext(name); isExtension(ext) {
		name = strings.TrimSuffix(name, ext)
	}
	return Fold(separatorReplacer.Replace(name))
}

// NormalizeTitle prepares a catalog title for comparison with NormalizeQuery
// output.
func NormalizeTitle(title string) string {
	return Fold(title)
}

// Fold collapses whitespace and applies Unicode case folding.
func Fold(s string) string {
	collapsed := strings.Join(strings.Fields(s), " ")
	return cases.Fold().String(collapsed)
}

func isExtension(ext string) bool {
	if len(ext) < 2 || len(ext) > 5 {
		return false
	}
	for _, r := range ext[1:] {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
