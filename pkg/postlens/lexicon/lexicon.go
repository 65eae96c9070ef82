// Package lexicon folds word variants onto a canonical form before
// categorization features are built, e.g. "managers" and "managing" onto
// "manage".
package lexicon

import (
	"sort"
	"strings"
)

// Lexicon maps each known variant to its canonical form.
type Lexicon struct {
	// canonical -> variants, canonical first
	groups map[string][]string

	// variant -> canonical
	reverseIndex map[string]string
}

// New creates an empty lexicon.
func New() *Lexicon {
	return &Lexicon{
		groups:       make(map[string][]string),
		reverseIndex: make(map[string]string),
	}
}

// FromMap builds a lexicon from canonical -> variants, the shape used in
// the categorizer config.
func FromMap(m map[string][]string) *Lexicon {
	lex := New()
	canonicals := make([]string, 0, len(m))
	for c := range m {
		canonicals = append(canonicals, c)
	}
	// Map iteration order must not decide which group owns a shared variant.
	sort.Strings(canonicals)
	for _, c := range canonicals {
		lex.AddSynonymGroup(c, m[c])
	}
	return lex
}

// AddSynonymGroup registers canonical and its variants. Re-adding a
// canonical replaces its previous group.
func (l *Lexicon) AddSynonymGroup(canonical string, variants []string) {
	canonical = strings.ToLower(strings.TrimSpace(canonical))
	if canonical == "" {
		return
	}

	if old, exists := l.groups[canonical]; exists {
		for _, v := range old {
			if l.reverseIndex[v] == canonical {
				delete(l.reverseIndex, v)
			}
		}
	}

	normalized := []string{canonical}
	seen := map[string]bool{canonical: true}
	for _, v := range variants {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		normalized = append(normalized, v)
	}

	l.groups[canonical] = normalized
	for _, v := range normalized {
		l.reverseIndex[v] = canonical
	}
}

// Normalize returns the canonical form of token, or token itself (lowercased)
// when it is unknown.
func (l *Lexicon) Normalize(token string) string {
	token = strings.ToLower(token)
	if canonical, ok := l.reverseIndex[token]; ok {
		return canonical
	}
	return token
}

// Variants returns every spelling in token's group, canonical first.
func (l *Lexicon) Variants(token string) []string {
	canonical := l.Normalize(token)
	if group, ok := l.groups[canonical]; ok {
		out := make([]string, len(group))
		copy(out, group)
		return out
	}
	return []string{canonical}
}

// Size returns the number of synonym groups.
func (l *Lexicon) Size() int {
	return len(l.groups)
}
