package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/cognicore/postlens/pkg/postlens/internalerr"
	"github.com/cognicore/postlens/pkg/postlens/store"
)

func runAt(ts time.Time) store.Run {
	rate := 1.5
	return store.Run{
		ID:          ulid.MustNew(ulid.Timestamp(ts), ulid.DefaultEntropy()).String(),
		StartedAt:   ts,
		GeneratedAt: ts,
		Posts: []store.PostRecord{
			{Ordinal: 0, PostID: "a", Category: "tool_preferences", Rate: &rate,
				Spans: []store.SpanRecord{{Kind: "preference", Text: "I prefer Go."}}},
			{Ordinal: 1, PostID: "b", Category: "personal_stories"},
		},
	}
}

func TestSaveAndGetRun(t *testing.T) {
	ctx := context.Background()
	s := New()
	defer s.Close()

	r := runAt(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	if err := s.SaveRun(ctx, r); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	got, err := s.GetRun(ctx, r.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if len(got.Posts) != 2 || len(got.Posts[0].Spans) != 1 {
		t.Fatalf("unexpected run %+v", got)
	}

	// Returned runs are copies.
	*got.Posts[0].Rate = 99
	again, _ := s.GetRun(ctx, r.ID)
	if *again.Posts[0].Rate != 1.5 {
		t.Error("mutating a returned run changed the stored one")
	}
}

func TestSaveRunRejectsDuplicatesAndBadIDs(t *testing.T) {
	ctx := context.Background()
	s := New()

	r := runAt(time.Now())
	if err := s.SaveRun(ctx, r); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveRun(ctx, r); !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Errorf("duplicate save: got %v, want ErrInvalidInput", err)
	}

	r.ID = "not-a-ulid"
	if err := s.SaveRun(ctx, r); !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Errorf("bad id: got %v, want ErrInvalidInput", err)
	}
}

func TestGetRunNotFound(t *testing.T) {
	_, err := New().GetRun(context.Background(), ulid.Make().String())
	if !errors.Is(err, internalerr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := New()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 3; i++ {
		r := runAt(base.Add(time.Duration(i) * time.Hour))
		ids = append(ids, r.ID)
		if err := s.SaveRun(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	all, err := s.ListRuns(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || all[0].ID != ids[2] || all[2].ID != ids[0] {
		t.Fatalf("unexpected order %+v", all)
	}
	if all[0].Unscored != 1 || all[0].Categories["tool_preferences"] != 1 {
		t.Errorf("unexpected summary %+v", all[0])
	}

	limited, _ := s.ListRuns(ctx, 2)
	if len(limited) != 2 {
		t.Errorf("limit ignored: %d runs", len(limited))
	}
}
