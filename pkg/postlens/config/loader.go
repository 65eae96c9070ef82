package config

import (
	"fmt"
	"sort"
	"time"

	"github.com/cognicore/postlens/internal/logger"
	"github.com/cognicore/postlens/pkg/postlens/categorize"
	"github.com/cognicore/postlens/pkg/postlens/category"
	"github.com/cognicore/postlens/pkg/postlens/engagement"
	"github.com/cognicore/postlens/pkg/postlens/extract"
	"github.com/cognicore/postlens/pkg/postlens/ingest"
	"github.com/cognicore/postlens/pkg/postlens/lexicon"
)

// Loader loads the configuration file and constructs components.
// Override, if set, is applied to the loaded config before validation
// (command-line flags). Without a Logger one is built from the config's
// log level.
type Loader struct {
	ConfigPath string
	Override   func(*Config)
	Logger     logger.Logger
}

// Components holds the configuration and everything built from it.
type Components struct {
	Config      *Config
	Logger      logger.Logger
	GeneratedAt time.Time
	Tokenizer   *ingest.Tokenizer
	Phrases     *ingest.PhraseParser
	Lexicon     *lexicon.Lexicon
	Categorizer *categorize.Categorizer
	Extractor   *extract.Extractor
	Scorer      *engagement.Scorer
}

// Load reads, overrides, validates and builds.
func (l *Loader) Load() (*Components, error) {
	cfg, err := Load(l.ConfigPath)
	if err != nil {
		return nil, err
	}
	if l.Override != nil {
		l.Override(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	generatedAt, err := cfg.GeneratedTime()
	if err != nil {
		return nil, err
	}

	log := l.Logger
	if log == nil {
		if log, err = logger.New(logger.Config{Level: cfg.LogLevel}); err != nil {
			return nil, err
		}
	}
	comp, err := Build(cfg, log)
	if err != nil {
		return nil, err
	}
	comp.GeneratedAt = generatedAt
	return comp, nil
}

// Build constructs the pipeline components from a validated config.
func Build(cfg *Config, log logger.Logger) (*Components, error) {
	if log == nil {
		log = logger.NewNop()
	}
	comp := &Components{Config: cfg, Logger: log}

	comp.Lexicon = lexicon.FromMap(cfg.Categorizer.Synonyms)
	comp.Tokenizer = ingest.NewTokenizer(cfg.Categorizer.Stopwords)
	comp.Tokenizer.SetLexicon(comp.Lexicon)

	phrases := make([]ingest.Phrase, len(cfg.Categorizer.Phrases))
	for i, p := range cfg.Categorizer.Phrases {
		phrases[i] = ingest.Phrase{Canonical: p.Canonical, Variants: p.Variants}
	}
	comp.Phrases = ingest.NewPhraseParser(phrases)

	rules, seeds, err := cfg.Categorizer.rules(comp.Lexicon)
	if err != nil {
		return nil, err
	}
	var fallback category.Category
	if cfg.Categorizer.Fallback != "" {
		if fallback, err = category.Parse(cfg.Categorizer.Fallback); err != nil {
			return nil, fmt.Errorf("categorizer fallback: %w", err)
		}
	}
	comp.Categorizer = categorize.New(categorize.Options{
		Rules:         rules,
		Seeds:         seeds,
		HashtagWeight: cfg.Categorizer.HashtagWeight,
		KeywordWeight: cfg.Categorizer.KeywordWeight,
		MinSimilarity: cfg.Categorizer.MinSimilarity,
		Fallback:      fallback,
		Tokenizer:     comp.Tokenizer,
		Phrases:       comp.Phrases,
		Logger:        log.With(logger.String("stage", "categorize")),
	})

	comp.Extractor, err = extract.New(extract.Options{
		MinWords:           cfg.Extractor.MinWords,
		MaxSpanRunes:       cfg.Extractor.MaxSpanRunes,
		BeliefPatterns:     cfg.Extractor.BeliefPatterns,
		PreferencePatterns: cfg.Extractor.PreferencePatterns,
		Logger:             log.With(logger.String("stage", "extract")),
	})
	if err != nil {
		return nil, fmt.Errorf("build extractor: %w", err)
	}

	denoms, err := cfg.Engagement.Denominators()
	if err != nil {
		return nil, err
	}
	comp.Scorer = engagement.NewScorer(denoms)

	log.Debug("components built",
		logger.Int("synonym_groups", comp.Lexicon.Size()),
		logger.Int("rules", len(rules)),
		logger.Int("seeded_categories", len(seeds)),
	)
	return comp, nil
}

// rules converts the rule map into categorizer rules and seeds, in
// category order. Keywords and hashtags are widened to their synonym groups.
func (c *Categorizer) rules(lex *lexicon.Lexicon) ([]categorize.Rule, map[category.Category][]string, error) {
	names := make([]string, 0, len(c.Rules))
	for name := range c.Rules {
		names = append(names, name)
	}
	sort.Strings(names)

	rules := make([]categorize.Rule, 0, len(names))
	seeds := make(map[category.Category][]string)
	for _, name := range names {
		cat, err := category.Parse(name)
		if err != nil {
			return nil, nil, fmt.Errorf("categorizer rules: %w", err)
		}
		r := c.Rules[name]
		rules = append(rules, categorize.Rule{Category: cat, Hashtags: withVariants(lex, r.Hashtags), Keywords: withVariants(lex, r.Keywords)})
		if len(r.Seeds) > 0 {
			seeds[cat] = r.Seeds
		}
	}
	return rules, seeds, nil
}

func withVariants(lex *lexicon.Lexicon, words []string) []string {
	if lex == nil || lex.Size() == 0 {
		return words
	}
	out := make([]string, 0, len(words))
	seen := make(map[string]bool, len(words))
	for _, w := range words {
		for _, v := range lex.Variants(w) {
			if !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	return out
}

// Denominators converts the engagement section for the scorer.
func (e *Engagement) Denominators() (engagement.Denominators, error) {
	windows, err := e.parseWindows()
	if err != nil {
		return engagement.Denominators{}, err
	}
	d := engagement.Denominators{
		Default: e.DefaultDenominator,
		PerPost: e.PerPost,
		Windows: make([]engagement.Window, len(windows)),
	}
	for i, w := range windows {
		d.Windows[i] = engagement.Window{From: w.from, To: w.to, Denominator: w.denominator}
	}
	return d, nil
}
