package categorize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldAccents removes combining marks so "café" and "cafe" match. A new
// transformer is built per call; transform chains are not safe for
// concurrent use.
func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// matchText lowercases, folds accents and replaces everything that is not
// a letter or digit with a single space. The result is padded with spaces so
// " keyword " patterns only match whole words.
func matchText(s string) string {
	s = strings.ToLower(foldAccents(s))

	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte(' ')
	lastSpace := true
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastSpace = false
			continue
		}
		if !lastSpace {
			b.WriteByte(' ')
			lastSpace = true
		}
	}
	if !lastSpace {
		b.WriteByte(' ')
	}
	return b.String()
}

// normalizeTag folds a hashtag for set lookup: no '#', lowercase, no accents.
func normalizeTag(tag string) string {
	return strings.ToLower(foldAccents(strings.TrimLeft(strings.TrimSpace(tag), "#")))
}
