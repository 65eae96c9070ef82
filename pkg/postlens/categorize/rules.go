package categorize

import (
	"sort"
	"strings"
	"sync"

	ahocorasick "github.com/cloudflare/ahocorasick"

	"github.com/cognicore/postlens/pkg/postlens/category"
)

// Rule lists the hashtags and keyword phrases that signal one category.
type Rule struct {
	Category category.Category
	Hashtags []string
	Keywords []string
}

// RuleMatch is the evidence one category collected from a post.
type RuleMatch struct {
	HashtagHits int
	KeywordHits int
	Matched     []string // "#tag" and keyword strings, sorted
}

// RuleEngine matches every rule keyword in one pass over the text using an
// Aho-Corasick automaton.
type RuleEngine struct {
	mu       sync.Mutex // the matcher keeps per-call state
	matcher  *ahocorasick.Matcher
	patterns []string                       // padded keyword patterns, automaton order
	owners   map[string][]category.Category // pattern -> categories
	hashtags map[string][]category.Category // folded tag -> categories
}

// NewRuleEngine builds the automaton. Keywords that normalize to fewer than
// two characters are ignored.
func NewRuleEngine(rules []Rule) *RuleEngine {
	e := &RuleEngine{
		owners:   make(map[string][]category.Category),
		hashtags: make(map[string][]category.Category),
	}

	for _, rule := range rules {
		for _, kw := range rule.Keywords {
			pattern := matchText(kw)
			if len(strings.TrimSpace(pattern)) < 2 {
				continue
			}
			if _, seen := e.owners[pattern]; !seen {
				e.patterns = append(e.patterns, pattern)
			}
			e.owners[pattern] = appendUnique(e.owners[pattern], rule.Category)
		}
		for _, tag := range rule.Hashtags {
			key := normalizeTag(tag)
			if key == "" {
				continue
			}
			e.hashtags[key] = appendUnique(e.hashtags[key], rule.Category)
		}
	}

	if len(e.patterns) > 0 {
		e.matcher = ahocorasick.NewStringMatcher(e.patterns)
	}
	return e
}

// KeywordCount returns the number of distinct keyword patterns.
func (e *RuleEngine) KeywordCount() int { return len(e.patterns) }

// Match returns per-category evidence for the given text and hashtags.
// Categories without any hit are absent from the result.
func (e *RuleEngine) Match(text string, hashtags []string) map[category.Category]*RuleMatch {
	out := make(map[category.Category]*RuleMatch)
	get := func(c category.Category) *RuleMatch {
		m, ok := out[c]
		if !ok {
			m = &RuleMatch{}
			out[c] = m
		}
		return m
	}

	seenTags := make(map[string]bool, len(hashtags))
	for _, tag := range hashtags {
		key := normalizeTag(tag)
		if key == "" || seenTags[key] {
			continue
		}
		seenTags[key] = true
		for _, c := range e.hashtags[key] {
			m := get(c)
			m.HashtagHits++
			m.Matched = append(m.Matched, "#"+key)
		}
	}

	if e.matcher != nil {
		for _, idx := range e.matchIndexes(matchText(text)) {
			pattern := e.patterns[idx]
			for _, c := range e.owners[pattern] {
				m := get(c)
				m.KeywordHits++
				m.Matched = append(m.Matched, strings.TrimSpace(pattern))
			}
		}
	}

	for _, m := range out {
		sort.Strings(m.Matched)
	}
	return out
}

func (e *RuleEngine) matchIndexes(text string) []int {
	e.mu.Lock()
	hits := e.matcher.Match([]byte(text))
	e.mu.Unlock()

	seen := make(map[int]bool, len(hits))
	unique := make([]int, 0, len(hits))
	for _, idx := range hits {
		if idx < 0 || idx >= len(e.patterns) || seen[idx] {
			continue
		}
		seen[idx] = true
		unique = append(unique, idx)
	}
	sort.Ints(unique)
	return unique
}

func appendUnique(list []category.Category, c category.Category) []category.Category {
	for _, existing := range list {
		if existing == c {
			return list
		}
	}
	return append(list, c)
}
