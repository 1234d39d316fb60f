package facematch

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Letters without a combining-mark decomposition, common in Turkish names.
var foldReplacer = strings.NewReplacer("ı", "i", "İ", "I", "ø", "o", "Ø", "O", "ł", "l", "Ł", "L")

// RemoveDiacritics removes diacritical marks from a string (e.g., "Şükrü" -> "Sukru").
func RemoveDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, foldReplacer.Replace(s))
	return result
}

// NormalizePersonName normalizes a name for comparison (lowercase, no diacritics,
// spaces for dashes and underscores, collapsed whitespace).
func NormalizePersonName(name string) string {
	name = RemoveDiacritics(name)
	name = strings.ToLower(name)
	name = strings.NewReplacer("-", " ", "_", " ").Replace(name)
	return strings.Join(strings.Fields(name), " ")
}

// MatchesNameQuery reports whether every word of query occurs in name,
// ignoring case and diacritics. An empty query matches everything.
func MatchesNameQuery(name, query string) bool {
	normalized := NormalizePersonName(name)
	for part := range strings.FieldsSeq(NormalizePersonName(query)) {
		if !strings.Contains(normalized, part) {
			return false
		}
	}
	return true
}
