package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/cognicore/postlens/pkg/postlens/internalerr"
	"github.com/cognicore/postlens/pkg/postlens/store"
)

func openTestStore(t *testing.T, path string) store.Store {
	t.Helper()
	st, err := OpenSQLite(context.Background(), path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	return st
}

func sampleRun(ts time.Time) store.Run {
	rate := 25.103
	return store.Run{
		ID:          ulid.MustNew(ulid.Timestamp(ts), ulid.DefaultEntropy()).String(),
		StartedAt:   ts,
		FinishedAt:  ts.Add(2 * time.Second),
		GeneratedAt: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		Input:       "posts.jsonl",
		OutputDir:   "archive",
		Rejected:    1,
		Posts: []store.PostRecord{
			{
				Ordinal:  0,
				PostID:   "p1",
				PostedAt: time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC),
				Category: "controversial_takes",
				Method:   "rules",
				Rate:     &rate,
				Spans: []store.SpanRecord{
					{Kind: "belief", Text: "You should cancel half of them.", Start: 43, End: 74, Trigger: "should"},
					{Kind: "preference", Text: "I prefer async updates over meetings.", Start: 75, End: 112, Trigger: "prefer"},
				},
			},
			{
				Ordinal:  1,
				PostID:   "p2",
				PostedAt: time.Date(2024, 3, 6, 8, 0, 0, 0, time.UTC),
				Category: "personal_stories",
				Method:   "fallback",
				RateErr:  "missing engagement denominator",
			},
		},
	}
}

func TestSaveAndGetRun(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t, filepath.Join(t.TempDir(), "runs.db"))
	defer st.Close()

	r := sampleRun(time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC))
	if err := st.SaveRun(ctx, r); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	got, err := st.GetRun(ctx, r.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Input != "posts.jsonl" || got.OutputDir != "archive" || got.Rejected != 1 {
		t.Errorf("run fields not preserved: %+v", got)
	}
	if !got.StartedAt.Equal(r.StartedAt) || !got.GeneratedAt.Equal(r.GeneratedAt) {
		t.Errorf("times not preserved: started %v generated %v", got.StartedAt, got.GeneratedAt)
	}
	if len(got.Posts) != 2 {
		t.Fatalf("expected 2 posts, got %d", len(got.Posts))
	}

	p1 := got.Posts[0]
	if p1.Rate == nil || *p1.Rate != 25.103 {
		t.Errorf("rate not preserved: %v", p1.Rate)
	}
	if len(p1.Spans) != 2 || p1.Spans[1].Kind != "preference" || p1.Spans[0].End != 74 {
		t.Errorf("spans not preserved: %+v", p1.Spans)
	}

	p2 := got.Posts[1]
	if p2.Rate != nil || p2.RateErr == "" {
		t.Errorf("unscored post not preserved: %+v", p2)
	}
	if len(p2.Spans) != 0 {
		t.Errorf("unexpected spans on p2: %+v", p2.Spans)
	}
}

func TestGetRunNotFound(t *testing.T) {
	st := openTestStore(t, filepath.Join(t.TempDir(), "runs.db"))
	defer st.Close()

	_, err := st.GetRun(context.Background(), ulid.Make().String())
	if !errors.Is(err, internalerr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveRunTwice(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t, filepath.Join(t.TempDir(), "runs.db"))
	defer st.Close()

	r := sampleRun(time.Now())
	if err := st.SaveRun(ctx, r); err != nil {
		t.Fatal(err)
	}
	if err := st.SaveRun(ctx, r); !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput on duplicate run, got %v", err)
	}
}

func TestSaveRunInvalidID(t *testing.T) {
	st := openTestStore(t, filepath.Join(t.TempDir(), "runs.db"))
	defer st.Close()

	r := sampleRun(time.Now())
	r.ID = "run-1"
	if err := st.SaveRun(context.Background(), r); !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestListRuns(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t, filepath.Join(t.TempDir(), "runs.db"))
	defer st.Close()

	base := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 3; i++ {
		r := sampleRun(base.Add(time.Duration(i) * time.Minute))
		ids = append(ids, r.ID)
		if err := st.SaveRun(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	runs, err := st.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(runs))
	}
	if runs[0].ID != ids[2] || runs[2].ID != ids[0] {
		t.Errorf("runs not newest first: %s %s %s", runs[0].ID, runs[1].ID, runs[2].ID)
	}

	s := runs[0]
	if s.Posts != 2 || s.Unscored != 1 || s.Rejected != 1 {
		t.Errorf("unexpected summary %+v", s)
	}
	if s.Categories["controversial_takes"] != 1 || s.Categories["personal_stories"] != 1 {
		t.Errorf("unexpected categories %v", s.Categories)
	}

	limited, err := st.ListRuns(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 1 || limited[0].ID != ids[2] {
		t.Errorf("limit not applied: %+v", limited)
	}
}

func TestRunsSurviveReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "runs.db")

	st := openTestStore(t, path)
	r := sampleRun(time.Now())
	if err := st.SaveRun(ctx, r); err != nil {
		t.Fatal(err)
	}
	if err := st.Close(); err != nil {
		t.Fatal(err)
	}

	st = openTestStore(t, path)
	defer st.Close()
	if _, err := st.GetRun(ctx, r.ID); err != nil {
		t.Fatalf("run lost after reopen: %v", err)
	}
}

func TestListRunsEmpty(t *testing.T) {
	st := openTestStore(t, filepath.Join(t.TempDir(), "runs.db"))
	defer st.Close()

	runs, err := st.ListRuns(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 0 {
		t.Fatalf("expected no runs, got %d", len(runs))
	}
}
