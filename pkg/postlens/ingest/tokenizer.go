package ingest

import (
	"strings"
	"unicode"

	"github.com/cognicore/postlens/pkg/postlens/lexicon"
)

// Tokenizer splits post text into lowercase feature tokens.
type Tokenizer struct {
	stopwords map[string]struct{}
	lexicon   *lexicon.Lexicon
}

// NewTokenizer creates a tokenizer with the given stopword list.
func NewTokenizer(stopwords []string) *Tokenizer {
	t := &Tokenizer{stopwords: make(map[string]struct{}, len(stopwords))}
	for _, w := range stopwords {
		t.AddStopword(w)
	}
	return t
}

// SetLexicon makes Tokenize fold variants onto their canonical form.
func (t *Tokenizer) SetLexicon(lex *lexicon.Lexicon) {
	t.lexicon = lex
}

// Tokenize splits text on anything that is not a letter, digit, hyphen or
// apostrophe. Hashtag and mention markers are dropped, the words behind them
// kept. Stopwords, single characters and pure numbers are removed.
func (t *Tokenizer) Tokenize(text string) []string {
	var tokens []string
	var current strings.Builder

	flush := func() {
		if current.Len() == 0 {
			return
		}
		if word := t.processToken(current.String()); word != "" {
			tokens = append(tokens, word)
		}
		current.Reset()
	}

	for _, r := range text {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r) || r == '-':
			current.WriteRune(unicode.ToLower(r))
		case r == '\'' || r == '’':
			current.WriteRune('\'')
		default:
			flush()
		}
	}
	flush()

	return tokens
}

func (t *Tokenizer) processToken(token string) string {
	word := cleanToken(token)
	if len([]rune(word)) <= 1 || isNumericOnly(word) {
		return ""
	}
	if t.lexicon != nil {
		word = t.lexicon.Normalize(word)
	}
	if _, stop := t.stopwords[word]; stop {
		return ""
	}
	return word
}

// cleanToken trims edge punctuation, drops possessive 's and collapses
// repeated hyphens.
func cleanToken(token string) string {
	token = strings.Trim(token, "-'")
	token = strings.TrimSuffix(token, "'s")
	for strings.Contains(token, "--") {
		token = strings.ReplaceAll(token, "--", "-")
	}
	return token
}

// isNumericOnly reports whether s holds only digits and hyphens.
func isNumericOnly(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) && r != '-' {
			return false
		}
	}
	return true
}

// AddStopword adds a word to the stopword list.
func (t *Tokenizer) AddStopword(word string) {
	t.stopwords[strings.ToLower(strings.TrimSpace(word))] = struct{}{}
}
