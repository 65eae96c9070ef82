package lexicon

import "testing"

func TestNormalize(t *testing.T) {
	lex := New()
	lex.AddSynonymGroup("manage", []string{"managers", "Managing", "management"})

	cases := map[string]string{
		"managers":   "manage",
		"MANAGING":   "manage",
		"manage":     "manage",
		"leadership": "leadership",
	}
	for in, want := range cases {
		if got := lex.Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestVariantsCanonicalFirst(t *testing.T) {
	lex := New()
	lex.AddSynonymGroup("ship", []string{"shipping", "shipped", "shipping"})

	got := lex.Variants("shipped")
	if len(got) != 3 {
		t.Fatalf("expected 3 variants, got %v", got)
	}
	if got[0] != "ship" {
		t.Errorf("canonical should come first, got %v", got)
	}
}

func TestVariantsUnknown(t *testing.T) {
	lex := New()
	got := lex.Variants("Unknown")
	if len(got) != 1 || got[0] != "unknown" {
		t.Errorf("unknown token should map to itself, got %v", got)
	}
}

func TestReaddReplacesGroup(t *testing.T) {
	lex := New()
	lex.AddSynonymGroup("tool", []string{"tools", "tooling"})
	lex.AddSynonymGroup("tool", []string{"tools"})

	if lex.Normalize("tooling") != "tooling" {
		t.Error("stale variant should be removed after re-adding group")
	}
	if lex.Size() != 1 {
		t.Errorf("Size = %d, want 1", lex.Size())
	}
}

func TestFromMapDeterministic(t *testing.T) {
	m := map[string][]string{
		"alpha": {"shared"},
		"beta":  {"shared"},
	}
	for i := 0; i < 20; i++ {
		if got := FromMap(m).Normalize("shared"); got != "beta" {
			t.Fatalf("iteration %d: shared variant owned by %q, want beta (last in sorted order)", i, got)
		}
	}
}

func TestEmptyCanonicalIgnored(t *testing.T) {
	lex := New()
	lex.AddSynonymGroup("  ", []string{"x"})
	if lex.Size() != 0 {
		t.Error("empty canonical should be ignored")
	}
}
