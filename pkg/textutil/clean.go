// Package textutil normalizes free-form spreadsheet labels into stable
// identifiers usable as lookup keys.
package textutil

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	parenthesized = regexp.MustCompile(`\([^)]*\)`)
	decorations   = regexp.MustCompile(`[*%]`)
	whitespace    = regexp.MustCompile(`\s+`)

	// NFD decomposition strips combining marks (ą -> a, é -> e); letters with
	// a stroke do not decompose and need explicit mapping.
	stroked = strings.NewReplacer(
		"ł", "l", "Ł", "L",
		"ø", "o", "Ø", "O",
		"đ", "d", "Đ", "D",
	)

	foldMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// CleanLabel folds a human-oriented column label to a lowercase snake_case
// key: diacritics removed, parenthesized qualifiers and %/* decorations
// dropped, slashes and whitespace collapsed to underscores.
func CleanLabel(name string) string {
	name = stroked.Replace(name)
	if folded, _, err := transform.String(foldMarks, name); err == nil {
		name = folded
	}

	name = parenthesized.ReplaceAllString(name, "")
	name = decorations.ReplaceAllString(name, "")
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = whitespace.ReplaceAllString(name, "_")

	return strings.ToLower(name)
}
