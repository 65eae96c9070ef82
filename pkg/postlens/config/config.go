// Package config loads postlens configuration from YAML with environment
// variable overrides and builds the pipeline components from it.
//
// .env files are loaded before overrides are applied, in this order
// (earlier wins, since godotenv never overwrites a set variable):
//
//  1. ENV_FILE, if set (then nothing else is loaded)
//  2. .env.local
//  3. .env
package config

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/postlens/pkg/postlens/ingest"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config is the full postlens configuration.
type Config struct {
	Workers     int    `yaml:"workers" env:"POSTLENS_WORKERS"`
	LogLevel    string `yaml:"log_level" env:"POSTLENS_LOG_LEVEL"`
	DB          string `yaml:"db" env:"POSTLENS_DB"`
	GeneratedAt string `yaml:"generated_at"`
	Dedupe      bool   `yaml:"dedupe"`

	Engagement  Engagement  `yaml:"engagement"`
	Categorizer Categorizer `yaml:"categorizer"`
	Extractor   Extractor   `yaml:"extractor"`
}

// Engagement configures the rate denominators.
type Engagement struct {
	DefaultDenominator *float64           `yaml:"default_denominator" env:"POSTLENS_DEFAULT_DENOMINATOR"`
	Windows            []Window           `yaml:"windows"`
	PerPost            map[string]float64 `yaml:"per_post"`
}

// Window is a denominator for posts published in [From, To). Dates use
// RFC3339 or YYYY-MM-DD; an empty To is open-ended.
type Window struct {
	From        string  `yaml:"from"`
	To          string  `yaml:"to"`
	Denominator float64 `yaml:"denominator"`
}

// Categorizer configures rules, centroid seeds and the token pipeline.
type Categorizer struct {
	HashtagWeight float64             `yaml:"hashtag_weight"`
	KeywordWeight float64             `yaml:"keyword_weight"`
	MinSimilarity float64             `yaml:"min_similarity"`
	Fallback      string              `yaml:"fallback"`
	Stopwords     []string            `yaml:"stopwords"`
	Phrases       []Phrase            `yaml:"phrases"`
	Synonyms      map[string][]string `yaml:"synonyms"`
	Rules         map[string]Rule     `yaml:"rules"`
}

// Phrase is a multi-word feature folded into one token.
type Phrase struct {
	Canonical string   `yaml:"canonical"`
	Variants  []string `yaml:"variants"`
}

// Rule is the signal set of one category.
type Rule struct {
	Hashtags []string `yaml:"hashtags"`
	Keywords []string `yaml:"keywords"`
	Seeds    []string `yaml:"seeds"`
}

// Extractor configures belief/preference extraction.
type Extractor struct {
	MinWords           int      `yaml:"min_words"`
	MaxSpanRunes       int      `yaml:"max_span_runes"`
	BeliefPatterns     []string `yaml:"belief_patterns"`
	PreferencePatterns []string `yaml:"preference_patterns"`
}

// Default returns the built-in configuration.
func Default() *Config {
	var cfg Config
	if err := yaml.Unmarshal(defaultsYAML, &cfg); err != nil {
		panic(fmt.Sprintf("parse embedded defaults: %v", err))
	}
	return &cfg
}

// Load reads the YAML file at path (an empty path means built-in
// defaults only), fills unset values from the defaults, then applies
// environment overrides.
func Load(path string) (*Config, error) {
	if err := loadEnvFiles(); err != nil {
		return nil, fmt.Errorf("load environment files: %w", err)
	}

	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	cfg.SetDefaults()
	applyEnvOverrides(cfg)
	return cfg, nil
}

// SetDefaults fills every unset value from the built-in configuration.
func (c *Config) SetDefaults() {
	d := Default()

	if c.Workers == 0 {
		c.Workers = d.Workers
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}

	if c.Engagement.PerPost == nil {
		c.Engagement.PerPost = map[string]float64{}
	}

	cat := &c.Categorizer
	if cat.HashtagWeight == 0 {
		cat.HashtagWeight = d.Categorizer.HashtagWeight
	}
	if cat.KeywordWeight == 0 {
		cat.KeywordWeight = d.Categorizer.KeywordWeight
	}
	if cat.MinSimilarity == 0 {
		cat.MinSimilarity = d.Categorizer.MinSimilarity
	}
	if cat.Fallback == "" {
		cat.Fallback = d.Categorizer.Fallback
	}
	if len(cat.Stopwords) == 0 {
		cat.Stopwords = d.Categorizer.Stopwords
	}
	if len(cat.Phrases) == 0 {
		cat.Phrases = d.Categorizer.Phrases
	}
	if len(cat.Synonyms) == 0 {
		cat.Synonyms = d.Categorizer.Synonyms
	}
	if len(cat.Rules) == 0 {
		cat.Rules = d.Categorizer.Rules
	}

	if c.Extractor.MinWords == 0 {
		c.Extractor.MinWords = d.Extractor.MinWords
	}
	if c.Extractor.MaxSpanRunes == 0 {
		c.Extractor.MaxSpanRunes = d.Extractor.MaxSpanRunes
	}
}

// GeneratedTime parses GeneratedAt. The zero time means "not configured".
func (c *Config) GeneratedTime() (time.Time, error) {
	if c.GeneratedAt == "" {
		return time.Time{}, nil
	}
	t, err := ingest.ParseTimestamp(c.GeneratedAt)
	if err != nil {
		return time.Time{}, fmt.Errorf("generated_at: %w", err)
	}
	return t, nil
}
