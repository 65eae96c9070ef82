package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/cognicore/postlens/pkg/postlens/internalerr"
	"github.com/cognicore/postlens/pkg/postlens/store"
)

// Store is an in-memory implementation of store.Store for tests.
type Store struct {
	mu   sync.RWMutex
	runs map[string]store.Run
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{runs: make(map[string]store.Run)}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// SaveRun implements store.Store.
func (s *Store) SaveRun(ctx context.Context, r store.Run) error {
	if err := store.ValidateID(r.ID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[r.ID]; ok {
		return fmt.Errorf("run %s already recorded: %w", r.ID, internalerr.ErrInvalidInput)
	}
	s.runs[r.ID] = copyRun(r)
	return nil
}

// GetRun implements store.Store.
func (s *Store) GetRun(ctx context.Context, id string) (store.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.runs[id]
	if !ok {
		return store.Run{}, fmt.Errorf("run %s: %w", id, internalerr.ErrNotFound)
	}
	return copyRun(r), nil
}

// ListRuns implements store.Store.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]store.RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.runs))
	for id := range s.runs {
		ids = append(ids, id)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}

	out := make([]store.RunSummary, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.runs[id].Summary())
	}
	return out, nil
}

func copyRun(r store.Run) store.Run {
	posts := make([]store.PostRecord, len(r.Posts))
	for i, p := range r.Posts {
		if p.Rate != nil {
			rate := *p.Rate
			p.Rate = &rate
		}
		p.Spans = append([]store.SpanRecord(nil), p.Spans...)
		posts[i] = p
	}
	r.Posts = posts
	return r
}
