package ingest

import "strings"

// PhraseParser folds multi-word phrases such as "pull request" into a single
// token ("pull-request") so they act as one categorization feature.
type PhraseParser struct {
	dict   map[string]string // lowercase phrase -> canonical token
	maxLen int
}

// Phrase is a dictionary entry; Variants are alternative spellings of Canonical.
type Phrase struct {
	Canonical string
	Variants  []string
}

// NewPhraseParser builds a parser from the given phrases.
func NewPhraseParser(phrases []Phrase) *PhraseParser {
	p := &PhraseParser{dict: make(map[string]string), maxLen: 1}
	for _, ph := range phrases {
		canonical := canonicalToken(ph.Canonical)
		if canonical == "" {
			continue
		}
		for _, form := range append([]string{ph.Canonical}, ph.Variants...) {
			key := strings.Join(strings.Fields(strings.ToLower(form)), " ")
			if key == "" {
				continue
			}
			p.dict[key] = canonical
			if n := len(strings.Fields(key)); n > p.maxLen {
				p.maxLen = n
			}
		}
	}
	return p
}

// Parse applies greedy longest-match over tokens.
func (p *PhraseParser) Parse(tokens []string) []string {
	if len(p.dict) == 0 {
		return tokens
	}
	result := make([]string, 0, len(tokens))
	for i := 0; i < len(tokens); {
		longest := p.maxLen
		if remaining := len(tokens) - i; longest > remaining {
			longest = remaining
		}

		matched := false
		for n := longest; n >= 1; n-- {
			key := strings.Join(tokens[i:i+n], " ")
			if canonical, ok := p.dict[key]; ok {
				result = append(result, canonical)
				i += n
				matched = true
				break
			}
		}
		if !matched {
			result = append(result, tokens[i])
			i++
		}
	}
	return result
}

// canonicalToken joins the words of a phrase with hyphens.
func canonicalToken(phrase string) string {
	return strings.Join(strings.Fields(strings.ToLower(phrase)), "-")
}
