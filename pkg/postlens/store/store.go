// Package store records pipeline runs. Runs are append-only snapshots of
// what a run produced; nothing is updated in place.
package store

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/cognicore/postlens/pkg/postlens/internalerr"
)

// Store is the run ledger.
type Store interface {
	Close() error

	// SaveRun records r. Saving an ID twice is an error.
	SaveRun(ctx context.Context, r Run) error
	// GetRun returns internalerr.ErrNotFound for unknown IDs.
	GetRun(ctx context.Context, id string) (Run, error)
	// ListRuns returns summaries newest first; limit <= 0 means all.
	ListRuns(ctx context.Context, limit int) ([]RunSummary, error)
}

// Run is one pipeline execution.
type Run struct {
	ID          string // ULID
	StartedAt   time.Time
	FinishedAt  time.Time
	GeneratedAt time.Time
	Input       string
	OutputDir   string
	Rejected    int
	Posts       []PostRecord
}

// PostRecord is the outcome for one ingested post.
type PostRecord struct {
	Ordinal  int
	PostID   string
	PostedAt time.Time
	Category string
	Method   string
	Rate     *float64 // nil when the post could not be scored
	RateErr  string
	Spans    []SpanRecord
}

// SpanRecord is an extracted belief or preference.
type SpanRecord struct {
	Kind    string
	Text    string
	Start   int
	End     int
	Trigger string
}

// RunSummary is the listing view of a run.
type RunSummary struct {
	ID          string         `json:"id"`
	StartedAt   time.Time      `json:"started_at"`
	GeneratedAt time.Time      `json:"generated_at"`
	Input       string         `json:"input"`
	Posts       int            `json:"posts"`
	Unscored    int            `json:"unscored"`
	Rejected    int            `json:"rejected"`
	Categories  map[string]int `json:"categories"`
}

// Summary computes r's listing view.
func (r Run) Summary() RunSummary {
	s := RunSummary{
		ID:          r.ID,
		StartedAt:   r.StartedAt,
		GeneratedAt: r.GeneratedAt,
		Input:       r.Input,
		Posts:       len(r.Posts),
		Rejected:    r.Rejected,
		Categories:  make(map[string]int),
	}
	for _, p := range r.Posts {
		if p.Rate == nil {
			s.Unscored++
		}
		s.Categories[p.Category]++
	}
	return s
}

// ValidateID checks that id is a well-formed ULID.
func ValidateID(id string) error {
	if _, err := ulid.ParseStrict(id); err != nil {
		return fmt.Errorf("run id %q: %w", id, internalerr.ErrInvalidInput)
	}
	return nil
}

// SortPosts orders a run's posts by ordinal.
func SortPosts(posts []PostRecord) {
	sort.SliceStable(posts, func(i, j int) bool { return posts[i].Ordinal < posts[j].Ordinal })
}
