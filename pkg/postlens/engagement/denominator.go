package engagement

import (
	"fmt"
	"time"

	"github.com/cognicore/postlens/pkg/postlens/ingest"
	"github.com/cognicore/postlens/pkg/postlens/internalerr"
)

// Where a post's denominator came from.
const (
	SourceRecord  = "record"
	SourcePost    = "post"
	SourceWindow  = "window"
	SourceDefault = "default"
)

// Window applies Denominator to posts published in [From, To). A zero To
// leaves the window open-ended.
type Window struct {
	From        time.Time
	To          time.Time
	Denominator float64
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	if t.Before(w.From) {
		return false
	}
	return w.To.IsZero() || t.Before(w.To)
}

// Denominators resolves the reference audience size for each post. Lookup
// order: the record's own impressions, a per-post override, the first
// matching window, then Default.
type Denominators struct {
	Default *float64
	Windows []Window
	PerPost map[string]float64
}

// Resolve returns the denominator for p and its source.
func (d Denominators) Resolve(p ingest.Post) (float64, string, error) {
	if p.Impressions != nil {
		return *p.Impressions, SourceRecord, nil
	}
	if v, ok := d.PerPost[p.ID]; ok {
		return v, SourcePost, nil
	}
	for _, w := range d.Windows {
		if w.Contains(p.PostedAt) {
			return w.Denominator, SourceWindow, nil
		}
	}
	if d.Default != nil {
		return *d.Default, SourceDefault, nil
	}
	return 0, "", fmt.Errorf("post %s (%s): %w", p.ID, p.PostedAt.Format("2006-01-02"), internalerr.ErrMissingDenominator)
}
