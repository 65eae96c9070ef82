package extract

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// segment is a byte range [start, end) of the source text.
type segment struct {
	start, end int
}

// abbreviations that end in a period without ending the sentence
var abbreviations = map[string]bool{
	"e.g": true, "i.e": true, "vs": true, "mr": true, "mrs": true, "ms": true,
	"dr": true, "prof": true, "inc": true, "ltd": true, "jr": true, "sr": true,
	"st": true, "approx": true, "no": true, "fig": true, "u.s": true,
}

// characters that may trail a terminator and still belong to the sentence
const closers = "\"')]”’»"

var (
	asciiMarker = regexp.MustCompile(`^(?:[-*•▪◦–—→>]|\d{1,2}[.)]|[a-zA-Z]\))\s+`)
	emojiMarker = regexp.MustCompile(`^[\x{2705}\x{2714}\x{2611}\x{1F449}\x{1F539}\x{1F538}\x{27A1}\x{1F4A1}\x{1F4CC}]\x{FE0F}?\s*`)
)

// segments splits text into sentence-like units. Boundaries are line
// breaks, sentence terminators followed by whitespace, and inline
// enumeration markers such as "1." or "2)".
func segments(text string) []segment {
	var segs []segment
	start, lastMarker := 0, 0
	cut := func(end, next int) {
		if end > start {
			segs = append(segs, segment{start, end})
		}
		start = next
	}

	n := len(text)
	for i := 0; i < n; {
		r, size := utf8.DecodeRuneInString(text[i:])
		switch {
		case r == '\n':
			cut(i, i+size)
		case r >= '0' && r <= '9':
			if end, num, ok := inlineMarker(text, i); ok && (num == lastMarker+1 || opensList(text[start:i])) {
				lastMarker = num
				cut(i, i)
				i = end
				continue
			}
		case r == '.' || r == '!' || r == '?' || r == '…':
			j := i + size
			for j < n {
				next, nsize := utf8.DecodeRuneInString(text[j:])
				if next == '.' || next == '!' || next == '?' || strings.ContainsRune(closers, next) {
					j += nsize
					continue
				}
				break
			}
			if j == n || isSpaceByte(text[j]) {
				if r == '.' && j == i+size && isAbbreviation(text[start:i], text[j:]) {
					i = j
					continue
				}
				cut(j, j)
			}
			i = j
			continue
		}
		i += size
	}
	cut(n, n)
	return segs
}

// inlineMarker recognises a whitespace-preceded "N." or "N)" (N of one or
// two digits) followed by whitespace, returning the index just past it and N.
func inlineMarker(text string, i int) (int, int, bool) {
	if i > 0 && !isSpaceByte(text[i-1]) {
		return 0, 0, false
	}
	j, num := i, 0
	for j < len(text) && text[j] >= '0' && text[j] <= '9' {
		num = num*10 + int(text[j]-'0')
		j++
	}
	if j-i > 2 || j >= len(text) || (text[j] != '.' && text[j] != ')') {
		return 0, 0, false
	}
	j++
	if j < len(text) && !isSpaceByte(text[j]) {
		return 0, 0, false
	}
	return j, num, true
}

// opensList reports whether a marker may start a list after the given
// prefix of the current segment: nothing but whitespace, or a trailing
// colon or semicolon.
func opensList(prefix string) bool {
	prefix = strings.TrimRightFunc(prefix, unicode.IsSpace)
	return prefix == "" || strings.HasSuffix(prefix, ":") || strings.HasSuffix(prefix, ";")
}

// isAbbreviation looks at the word right before a period. "etc." only
// continues the sentence when the next word starts in lower case.
func isAbbreviation(before, after string) bool {
	k := len(before)
	for k > 0 {
		r, size := utf8.DecodeLastRuneInString(before[:k])
		if !unicode.IsLetter(r) && r != '.' {
			break
		}
		k -= size
	}
	word := strings.ToLower(before[k:])
	if word == "" {
		return false
	}
	if utf8.RuneCountInString(word) == 1 && unicode.IsUpper([]rune(before[k:])[0]) {
		return isInitial(before[:k], before[k:], after)
	}
	if word == "etc" {
		next := strings.TrimLeftFunc(after, unicode.IsSpace)
		r, _ := utf8.DecodeRuneInString(next)
		return next != "" && unicode.IsLower(r)
	}
	return abbreviations[word]
}

// words that commonly open a sentence and so are never the surname after
// an initial
var sentenceStarters = map[string]bool{
	"a": true, "an": true, "the": true, "this": true, "that": true, "these": true,
	"those": true, "it": true, "i": true, "we": true, "you": true, "they": true,
	"he": true, "she": true, "my": true, "our": true, "your": true, "their": true,
	"every": true, "each": true, "all": true, "most": true, "many": true, "some": true,
	"no": true, "never": true, "always": true, "but": true, "and": true, "so": true,
	"if": true, "when": true, "then": true, "there": true, "here": true, "why": true,
	"what": true, "how": true, "now": true, "today": true, "yes": true, "not": true,
}

// isInitial reports whether the capital letter before a period is a name
// initial: "J. R. Smith", "John F. Kennedy". The letter must sit between
// the start of the segment, another capitalized word or an initial, and a
// capitalized word that does not usually start a sentence. "I" is a pronoun.
func isInitial(before, letter, after string) bool {
	if letter == "I" {
		return false
	}
	next := strings.TrimLeftFunc(after, unicode.IsSpace)
	end := strings.IndexFunc(next, func(r rune) bool { return !unicode.IsLetter(r) && r != '\'' && r != '’' })
	if end >= 0 {
		next = next[:end]
	}
	r, _ := utf8.DecodeRuneInString(next)
	if next == "" || !unicode.IsUpper(r) || sentenceStarters[strings.ToLower(next)] {
		return false
	}
	prev := strings.TrimRightFunc(before, unicode.IsSpace)
	if prev == "" {
		return true
	}
	k := len(prev)
	for k > 0 {
		r, size := utf8.DecodeLastRuneInString(prev[:k])
		if !unicode.IsLetter(r) && r != '.' {
			break
		}
		k -= size
	}
	if k == len(prev) {
		return false
	}
	r, _ = utf8.DecodeRuneInString(prev[k:])
	return unicode.IsUpper(r)
}

// trim narrows seg past leading whitespace and list markers and before
// trailing whitespace.
func trim(text string, seg segment) segment {
	for {
		s := text[seg.start:seg.end]
		trimmed := strings.TrimLeftFunc(s, unicode.IsSpace)
		if loc := asciiMarker.FindStringIndex(trimmed); loc != nil {
			trimmed = trimmed[loc[1]:]
		} else if loc := emojiMarker.FindStringIndex(trimmed); loc != nil {
			trimmed = trimmed[loc[1]:]
		}
		if len(trimmed) == len(s) {
			break
		}
		seg.start += len(s) - len(trimmed)
	}
	s := text[seg.start:seg.end]
	seg.end -= len(s) - len(strings.TrimRightFunc(s, unicode.IsSpace))
	return seg
}

func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f' || b == '\v'
}
