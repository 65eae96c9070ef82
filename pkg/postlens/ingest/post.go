package ingest

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cognicore/postlens/pkg/postlens/internalerr"
)

// Post is a single ingested LinkedIn post. It is not mutated after ingestion.
type Post struct {
	ID        string
	PostedAt  time.Time
	Text      string
	Hashtags  []string
	Reactions int
	Comments  int
	Shares    int

	// Impressions is the per-record engagement denominator, when the export has one.
	Impressions *float64

	// Ordinal is the 0-based ingestion position; used as the stable tie-breaker.
	Ordinal int
}

// Interactions returns reactions + comments + shares.
func (p Post) Interactions() int {
	return p.Reactions + p.Comments + p.Shares
}

// Validate checks that the post has its required fields.
func (p *Post) Validate() error {
	var errs []error
	if strings.TrimSpace(p.ID) == "" {
		errs = append(errs, errors.New("post id is required"))
	}
	if p.PostedAt.IsZero() {
		errs = append(errs, errors.New("post timestamp is required"))
	}
	if strings.TrimSpace(p.Text) == "" {
		errs = append(errs, errors.New("post text is required"))
	}
	if p.Reactions < 0 || p.Comments < 0 || p.Shares < 0 {
		errs = append(errs, errors.New("engagement counts must be non-negative"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", internalerr.ErrInvalidInput, errors.Join(errs...))
	}
	return nil
}

// NormalizeHashtags strips '#', drops blanks and case-insensitive duplicates
// (first spelling wins) and returns the set sorted case-insensitively.
func NormalizeHashtags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(tag), "#"))
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, tag)
	}
	sort.SliceStable(out, func(i, j int) bool {
		li, lj := strings.ToLower(out[i]), strings.ToLower(out[j])
		if li != lj {
			return li < lj
		}
		return out[i] < out[j]
	})
	return out
}
