// Package extract pulls short belief and preference statements out of post
// text. Every span it returns is a verbatim substring of the post.
package extract

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cognicore/postlens/internal/logger"
	"github.com/cognicore/postlens/pkg/postlens/ingest"
	"github.com/cognicore/postlens/pkg/postlens/internalerr"
)

// Kind distinguishes belief spans from preference spans.
type Kind string

const (
	KindBelief     Kind = "belief"
	KindPreference Kind = "preference"
)

const (
	DefaultMinWords     = 4
	DefaultMaxSpanRunes = 280
)

// Span is one extracted statement. Text == post.Text[Start:End].
type Span struct {
	PostID  string
	Text    string
	Kind    Kind
	Start   int
	End     int
	Trigger string
}

var defaultBelief = []string{
	`\bshould(?:n['’]?t)?\b`,
	`\bmust\b`,
	`\bneeds? to\b`,
	`\b(?:have|has) to\b`,
	`\b(?:is|are|it['’]s) (?:so |really |absolutely )?(?:important|essential|critical|crucial|vital) to\b`,
	`\bi (?:truly |strongly |firmly |really )?believe\b`,
	`\bthe key (?:to|is)\b`,
}

var defaultPreference = []string{
	`\bprefer(?:s|red|ring)?\b`,
	`\brather than\b`,
	`\binstead of\b`,
	`\bbetter than\b`,
}

// overPattern finds "X over Y"; overExcludeBefore/After filter the
// temporal and positional uses.
var overPattern = regexp.MustCompile(`(?i)([\p{L}\p{N}][\p{L}\p{N}+#.\-']*) over ([\p{L}\p{N}][\p{L}\p{N}+#.\-']*)`)

var overExcludeAfter = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "again": true, "time": true,
	"years": true, "months": true, "weeks": true, "days": true, "hours": true,
	"here": true, "there": true, "it": true, "this": true, "that": true,
	"my": true, "our": true, "your": true, "his": true, "her": true, "their": true,
	"me": true, "us": true, "them": true, "him": true, "to": true, "with": true,
	"coffee": true, "lunch": true, "dinner": true, "drinks": true, "email": true,
}

var overExcludeBefore = map[string]bool{
	"all": true, "left": true, "over": true, "hand": true, "hands": true,
	"turn": true, "turned": true, "take": true, "took": true, "taken": true,
	"get": true, "got": true, "think": true, "thought": true, "won": true,
	"win": true, "came": true, "come": true, "went": true, "go": true,
	"run": true, "ran": true, "is": true, "was": true, "are": true, "were": true,
	"it's": true, "fell": true, "fall": true, "looked": true, "look": true,
	"spread": true, "pored": true, "argued": true, "fought": true, "stressed": true,
	"worry": true, "worried": true, "jumped": true,
}

// Options configures an Extractor. Extra patterns are case-insensitive
// regular expressions added to the built-in triggers.
type Options struct {
	MinWords           int
	MaxSpanRunes       int
	BeliefPatterns     []string
	PreferencePatterns []string
	Logger             logger.Logger
}

// Extractor is safe for concurrent use.
type Extractor struct {
	belief     []*regexp.Regexp
	preference []*regexp.Regexp
	minWords   int
	maxRunes   int
	log        logger.Logger

	// match classifies a sentence; tests replace it.
	match func(sentence string) (Kind, []int)
}

// New compiles the trigger patterns. An invalid extra pattern is a
// configuration error.
func New(opts Options) (*Extractor, error) {
	e := &Extractor{
		minWords: opts.MinWords,
		maxRunes: opts.MaxSpanRunes,
		log:      opts.Logger,
	}
	if e.minWords <= 0 {
		e.minWords = DefaultMinWords
	}
	if e.maxRunes <= 0 {
		e.maxRunes = DefaultMaxSpanRunes
	}
	if e.log == nil {
		e.log = logger.NewNop()
	}
	e.match = e.classify

	var err error
	if e.belief, err = compile(append(append([]string{}, defaultBelief...), opts.BeliefPatterns...)); err != nil {
		return nil, fmt.Errorf("compile belief patterns: %w", err)
	}
	if e.preference, err = compile(append(append([]string{}, defaultPreference...), opts.PreferencePatterns...)); err != nil {
		return nil, fmt.Errorf("compile preference patterns: %w", err)
	}
	return e, nil
}

func compile(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		if strings.TrimSpace(p) == "" {
			continue
		}
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w: %v", p, internalerr.ErrInvalidConfig, err)
		}
		out = append(out, re)
	}
	return out, nil
}

// Extract returns the belief and preference spans of a post in text order.
func (e *Extractor) Extract(p ingest.Post) []Span {
	return e.ExtractText(p.ID, p.Text)
}

// ExtractText never fails: an internal error yields an empty result.
func (e *Extractor) ExtractText(postID, text string) (spans []Span) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("extraction failed",
				logger.String("post_id", postID),
				logger.String("panic", fmt.Sprint(r)),
			)
			spans = nil
		}
	}()

	seen := make(map[string]bool)
	for _, seg := range segments(text) {
		seg = trim(text, seg)
		if seg.end <= seg.start {
			continue
		}
		sentence := text[seg.start:seg.end]
		if strings.HasSuffix(sentence, ":") {
			continue
		}

		kind, loc := e.match(sentence)
		if loc == nil {
			continue
		}
		if utf8.RuneCountInString(sentence) > e.maxRunes {
			seg = narrow(text, seg, loc)
			sentence = text[seg.start:seg.end]
			loc = e.locate(kind, sentence)
			if loc == nil {
				continue
			}
		}
		if len(strings.Fields(sentence)) < e.minWords {
			continue
		}
		if seen[sentence] {
			continue
		}
		if !strings.Contains(text, sentence) {
			e.log.Warn("span not verbatim, dropped", logger.String("post_id", postID))
			continue
		}
		seen[sentence] = true
		spans = append(spans, Span{
			PostID:  postID,
			Text:    sentence,
			Kind:    kind,
			Start:   seg.start,
			End:     seg.end,
			Trigger: strings.ToLower(sentence[loc[0]:loc[1]]),
		})
	}
	e.log.Debug("spans extracted",
		logger.String("post_id", postID),
		logger.Int("count", len(spans)),
	)
	return spans
}

// classify returns the sentence kind and the location of its first
// trigger. A preference trigger wins over a belief trigger.
func (e *Extractor) classify(sentence string) (Kind, []int) {
	if loc := e.locate(KindPreference, sentence); loc != nil {
		return KindPreference, loc
	}
	if loc := e.locate(KindBelief, sentence); loc != nil {
		return KindBelief, loc
	}
	return "", nil
}

func (e *Extractor) locate(kind Kind, sentence string) []int {
	patterns := e.belief
	if kind == KindPreference {
		patterns = e.preference
		if loc := overTrigger(sentence); loc != nil {
			return earliest(loc, firstMatch(patterns, sentence))
		}
	}
	return firstMatch(patterns, sentence)
}

func firstMatch(patterns []*regexp.Regexp, s string) []int {
	var best []int
	for _, re := range patterns {
		best = earliest(best, re.FindStringIndex(s))
	}
	return best
}

func earliest(a, b []int) []int {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case b[0] < a[0]:
		return b
	}
	return a
}

// overTrigger locates the " over " of a comparative "X over Y".
func overTrigger(s string) []int {
	for _, m := range overPattern.FindAllStringSubmatchIndex(s, -1) {
		before := strings.ToLower(strings.Trim(s[m[2]:m[3]], ".-'"))
		after := strings.ToLower(strings.Trim(s[m[4]:m[5]], ".-'"))
		if overExcludeBefore[before] || overExcludeAfter[after] || isNumber(after) {
			continue
		}
		return []int{m[3] + 1, m[4] - 1}
	}
	return nil
}

func isNumber(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) && r != '.' && r != ',' && r != '%' {
			return false
		}
	}
	return true
}

// clause separators used to narrow over-long sentences
var clauseBreaks = []string{"; ", " — ", " – ", " - ", ", but ", ", and ", ", so "}

// narrow shrinks seg to the clause that holds the trigger at loc
// (relative to seg.start).
func narrow(text string, seg segment, loc []int) segment {
	sentence := text[seg.start:seg.end]
	from, to := 0, len(sentence)
	for _, sep := range clauseBreaks {
		if i := strings.LastIndex(sentence[:loc[0]], sep); i >= 0 && i+len(sep) > from {
			from = i + len(sep)
		}
		if i := strings.Index(sentence[loc[1]:], sep); i >= 0 && loc[1]+i < to {
			to = loc[1] + i
		}
	}
	return trim(text, segment{seg.start + from, seg.start + to})
}
