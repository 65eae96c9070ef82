package config

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/cognicore/postlens/pkg/postlens/category"
	"github.com/cognicore/postlens/pkg/postlens/ingest"
	"github.com/cognicore/postlens/pkg/postlens/internalerr"
)

// ValidationError names the offending field. It unwraps to
// internalerr.ErrInvalidConfig.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return internalerr.ErrInvalidConfig }

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Validate reports every problem in c at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Workers < 1 {
		errs = append(errs, invalid("workers", "must be at least 1, got %d", c.Workers))
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, invalid("log_level", "must be one of: debug, info, warn, error"))
	}
	if _, err := c.GeneratedTime(); err != nil {
		errs = append(errs, invalid("generated_at", "%v", err))
	}

	errs = append(errs, c.Engagement.validate()...)
	errs = append(errs, c.Categorizer.validate()...)

	if c.Extractor.MinWords < 0 {
		errs = append(errs, invalid("extractor.min_words", "must not be negative"))
	}
	if c.Extractor.MaxSpanRunes < 0 {
		errs = append(errs, invalid("extractor.max_span_runes", "must not be negative"))
	}

	return errors.Join(errs...)
}

func badDenominator(v float64) bool {
	return v < 0 || math.IsNaN(v) || math.IsInf(v, 0)
}

func (e *Engagement) validate() []error {
	var errs []error
	if e.DefaultDenominator != nil && badDenominator(*e.DefaultDenominator) {
		errs = append(errs, invalid("engagement.default_denominator", "must be a non-negative number"))
	}
	ids := make([]string, 0, len(e.PerPost))
	for id := range e.PerPost {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if badDenominator(e.PerPost[id]) {
			errs = append(errs, invalid("engagement.per_post."+id, "must be a non-negative number"))
		}
	}

	windows, err := e.parseWindows()
	if err != nil {
		return append(errs, err)
	}
	sorted := append([]parsedWindow(nil), windows...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].from.Before(sorted[j].from) })
	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1], sorted[i]
		if prev.to.IsZero() || prev.to.After(cur.from) {
			errs = append(errs, invalid(fmt.Sprintf("engagement.windows[%d]", cur.index), "overlaps window %d", prev.index))
		}
	}
	return errs
}

type parsedWindow struct {
	index       int
	from, to    time.Time
	denominator float64
}

func (e *Engagement) parseWindows() ([]parsedWindow, error) {
	out := make([]parsedWindow, 0, len(e.Windows))
	for i, w := range e.Windows {
		field := fmt.Sprintf("engagement.windows[%d]", i)
		from, err := ingest.ParseTimestamp(w.From)
		if err != nil {
			return nil, invalid(field+".from", "%v", err)
		}
		var to time.Time
		if w.To != "" {
			if to, err = ingest.ParseTimestamp(w.To); err != nil {
				return nil, invalid(field+".to", "%v", err)
			}
			if !to.After(from) {
				return nil, invalid(field, "to must be after from")
			}
		}
		if badDenominator(w.Denominator) {
			return nil, invalid(field+".denominator", "must be a non-negative number")
		}
		out = append(out, parsedWindow{index: i, from: from, to: to, denominator: w.Denominator})
	}
	return out, nil
}

func (c *Categorizer) validate() []error {
	var errs []error
	if c.HashtagWeight < 0 {
		errs = append(errs, invalid("categorizer.hashtag_weight", "must not be negative"))
	}
	if c.KeywordWeight < 0 {
		errs = append(errs, invalid("categorizer.keyword_weight", "must not be negative"))
	}
	if c.MinSimilarity < 0 || c.MinSimilarity > 1 {
		errs = append(errs, invalid("categorizer.min_similarity", "must be between 0 and 1"))
	}
	if c.Fallback != "" {
		if _, err := category.Parse(c.Fallback); err != nil {
			errs = append(errs, invalid("categorizer.fallback", "unknown category %q", c.Fallback))
		}
	}

	names := make([]string, 0, len(c.Rules))
	for name := range c.Rules {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, err := category.Parse(name); err != nil {
			errs = append(errs, invalid("categorizer.rules."+name, "unknown category"))
		}
	}
	return errs
}
