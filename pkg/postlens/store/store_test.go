package store

import (
	"errors"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/cognicore/postlens/pkg/postlens/internalerr"
)

func TestValidateID(t *testing.T) {
	if err := ValidateID(ulid.Make().String()); err != nil {
		t.Fatalf("valid ulid rejected: %v", err)
	}
	for _, id := range []string{"", "run-1", "01ARZ3NDEKTSV4RRFFQ69G5FA"} {
		if err := ValidateID(id); !errors.Is(err, internalerr.ErrInvalidInput) {
			t.Errorf("ValidateID(%q) = %v, want ErrInvalidInput", id, err)
		}
	}
}

func TestRunSummary(t *testing.T) {
	rate := 25.103
	r := Run{
		ID:        "01ARZ3NDEKTSV4RRFFQ69G5FAV",
		StartedAt: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		Rejected:  2,
		Posts: []PostRecord{
			{Ordinal: 0, Category: "controversial_takes", Rate: &rate},
			{Ordinal: 1, Category: "controversial_takes"},
			{Ordinal: 2, Category: "tool_preferences", Rate: &rate},
		},
	}
	s := r.Summary()
	if s.Posts != 3 || s.Unscored != 1 || s.Rejected != 2 {
		t.Errorf("unexpected counts %+v", s)
	}
	if s.Categories["controversial_takes"] != 2 || s.Categories["tool_preferences"] != 1 {
		t.Errorf("unexpected category counts %v", s.Categories)
	}
}

func TestSortPosts(t *testing.T) {
	posts := []PostRecord{{Ordinal: 2}, {Ordinal: 0}, {Ordinal: 1}}
	SortPosts(posts)
	for i, p := range posts {
		if p.Ordinal != i {
			t.Fatalf("position %d has ordinal %d", i, p.Ordinal)
		}
	}
}
