package keyword

import (
	"log/slog"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	nonTokenChars = regexp.MustCompile(`[^\pL\pN\s]+`)
	nonSlugChars  = regexp.MustCompile(`[^\pL\pN]+`)
)

// foldDiacritics decomposes, strips combining marks, and recomposes.
func foldDiacritics(text string) string {
	// this transform chain needs to be re-built on every call to prevent a race condition
	normFunc := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(normFunc, text)
	if err != nil {
		slog.Warn("unicode normalization error", "err", err)
		return text
	}
	return folded
}

// Splits free-form text in to tokens, including lower-case, unicode
// normalization, and some unicode folding (diacritics removed).
//
// The intent is for this to work similarly to an NLP tokenizer and enable
// fast matching against a list of known tokens, independent of accenting and
// punctuation tricks.
func TokenizeText(text string) []string {
	bare := strings.ToLower(nonTokenChars.ReplaceAllString(text, " "))
	return strings.Fields(foldDiacritics(bare))
}

// Slugify returns a version of the string with all non-letter, non-digit
// characters removed, and all lower-case.
func Slugify(orig string) string {
	return strings.ToLower(nonSlugChars.ReplaceAllString(orig, ""))
}
