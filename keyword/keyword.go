// Text normalization helpers for keyword matching over outbound message
// bodies. Matching needs to be tolerant of casing, stray whitespace,
// composed-vs-decomposed unicode, and accent-stripping evasion (keyword lists
// include accented Portuguese terms like "grátis").
package keyword

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Normalize lower-cases, collapses runs of whitespace to single spaces, and
// recomposes to NFC so composed and decomposed spellings of the same text are
// identical afterwards. Used both for keyword substring matching and as the
// canonical form for content fingerprinting.
func Normalize(text string) string {
	return norm.NFC.String(strings.Join(strings.Fields(strings.ToLower(text)), " "))
}

// Fold returns the normalized text with diacritics stripped, for
// accent-insensitive matching.
func Fold(text string) string {
	return foldDiacritics(Normalize(text))
}

// MatchKeywords returns the subset of keywords found in text, in list order.
// A keyword matches as a substring of the normalized text or of its
// diacritic-folded form, so "gratis" still hits the keyword "grátis".
func MatchKeywords(text string, keywords []string) []string {
	normText := Normalize(text)
	folded := Fold(text)
	var found []string
	for _, kw := range keywords {
		if strings.Contains(normText, Normalize(kw)) || strings.Contains(folded, Fold(kw)) {
			found = append(found, kw)
		}
	}
	return found
}
