// Package categorize assigns every post to exactly one category. A keyword
// and hashtag rule table decides first; posts without rule evidence go to a
// nearest-centroid classifier trained from seed texts; posts with no signal
// at all get the configured fallback.
package categorize

import (
	"sort"

	"github.com/cognicore/postlens/internal/logger"
	"github.com/cognicore/postlens/pkg/postlens/category"
	"github.com/cognicore/postlens/pkg/postlens/ingest"
)

// How a decision was reached.
const (
	MethodRules    = "rules"
	MethodCentroid = "centroid"
	MethodFallback = "fallback"
)

// Default weights and thresholds.
const (
	DefaultHashtagWeight = 2.0
	DefaultKeywordWeight = 1.0
	DefaultMinSimilarity = 0.05
)

// Decision is the categorizer's output for one post.
type Decision struct {
	Category category.Category
	Method   string
	Scores   map[category.Category]float64
	Matched  []string
}

// Options configures a Categorizer.
type Options struct {
	Rules         []Rule
	Seeds         map[category.Category][]string
	HashtagWeight float64
	KeywordWeight float64
	MinSimilarity float64

	// Fallback is used when neither rules nor centroids produce a signal.
	// When empty, the lexicographically first category is used.
	Fallback category.Category

	Tokenizer *ingest.Tokenizer
	Phrases   *ingest.PhraseParser
	Logger    logger.Logger
}

// Categorizer is safe for concurrent use.
type Categorizer struct {
	rules         *RuleEngine
	centroids     *Centroids
	tokenizer     *ingest.Tokenizer
	phrases       *ingest.PhraseParser
	hashtagWeight float64
	keywordWeight float64
	minSimilarity float64
	fallback      category.Category
	log           logger.Logger
}

// New builds a Categorizer. Zero weights and thresholds take their defaults.
func New(opts Options) *Categorizer {
	c := &Categorizer{
		rules:         NewRuleEngine(opts.Rules),
		tokenizer:     opts.Tokenizer,
		phrases:       opts.Phrases,
		hashtagWeight: opts.HashtagWeight,
		keywordWeight: opts.KeywordWeight,
		minSimilarity: opts.MinSimilarity,
		fallback:      opts.Fallback,
		log:           opts.Logger,
	}
	if c.tokenizer == nil {
		c.tokenizer = ingest.NewTokenizer(nil)
	}
	if c.phrases == nil {
		c.phrases = ingest.NewPhraseParser(nil)
	}
	if c.hashtagWeight == 0 {
		c.hashtagWeight = DefaultHashtagWeight
	}
	if c.keywordWeight == 0 {
		c.keywordWeight = DefaultKeywordWeight
	}
	if c.minSimilarity == 0 {
		c.minSimilarity = DefaultMinSimilarity
	}
	if !c.fallback.Valid() {
		c.fallback = category.First(category.All())
	}
	if c.log == nil {
		c.log = logger.NewNop()
	}

	seeds := make(map[category.Category][][]string, len(opts.Seeds))
	for cat, texts := range opts.Seeds {
		for _, text := range texts {
			seeds[cat] = append(seeds[cat], c.features(text))
		}
	}
	c.centroids = NewCentroids(seeds)

	c.log.Debug("categorizer initialized",
		logger.Int("keywords", c.rules.KeywordCount()),
		logger.Int("seeded_categories", len(c.centroids.byCategory)),
		logger.String("fallback", string(c.fallback)))
	return c
}

// Categorize always returns one of the five categories. The same post
// always yields the same decision.
func (c *Categorizer) Categorize(p ingest.Post) Decision {
	matches := c.rules.Match(p.Text, p.Hashtags)
	if len(matches) > 0 {
		scores := make(map[category.Category]float64, len(matches))
		for cat, m := range matches {
			scores[cat] = float64(m.HashtagHits)*c.hashtagWeight + float64(m.KeywordHits)*c.keywordWeight
		}
		best := argmax(scores)
		return Decision{
			Category: best,
			Method:   MethodRules,
			Scores:   scores,
			Matched:  uniqueSorted(append([]string(nil), matches[best].Matched...)),
		}
	}

	if !c.centroids.Empty() {
		sims := c.centroids.Similarities(c.features(p.Text))
		best := argmax(sims)
		if best != "" && sims[best] >= c.minSimilarity {
			return Decision{Category: best, Method: MethodCentroid, Scores: sims}
		}
	}

	c.log.Debug("no categorization signal, using fallback",
		logger.String("post_id", p.ID),
		logger.String("category", string(c.fallback)))
	return Decision{Category: c.fallback, Method: MethodFallback}
}

func (c *Categorizer) features(text string) []string {
	return c.phrases.Parse(c.tokenizer.Tokenize(text))
}

// argmax walks categories in lexicographic order and keeps the first
// strictly higher score, so ties go to the lexicographically first name.
func argmax(scores map[category.Category]float64) category.Category {
	var best category.Category
	bestScore := 0.0
	for _, cat := range category.All() {
		s, ok := scores[cat]
		if !ok {
			continue
		}
		if best == "" || s > bestScore {
			best, bestScore = cat, s
		}
	}
	return best
}

func uniqueSorted(in []string) []string {
	sort.Strings(in)
	out := in[:0]
	for i, s := range in {
		if i == 0 || s != in[i-1] {
			out = append(out, s)
		}
	}
	return out
}
