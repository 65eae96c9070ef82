// Package category defines the fixed set of thematic buckets every post is
// assigned to.
package category

import (
	"fmt"
	"strings"

	"github.com/cognicore/postlens/pkg/postlens/internalerr"
)

// Category is one of the five thematic buckets.
type Category string

const (
	ControversialTakes   Category = "controversial_takes"
	ManagementPhilosophy Category = "management_philosophy"
	PersonalStories      Category = "personal_stories"
	TechnicalBeliefs     Category = "technical_beliefs"
	ToolPreferences      Category = "tool_preferences"
)

// all is kept in lexicographic order; tie-breaking relies on it.
var all = []Category{
	ControversialTakes,
	ManagementPhilosophy,
	PersonalStories,
	TechnicalBeliefs,
	ToolPreferences,
}

var titles = map[Category]string{
	ControversialTakes:   "Controversial Takes",
	ManagementPhilosophy: "Management Philosophy",
	PersonalStories:      "Personal Stories",
	TechnicalBeliefs:     "Technical Beliefs",
	ToolPreferences:      "Tool Preferences",
}

// All returns the categories in lexicographic order.
func All() []Category {
	out := make([]Category, len(all))
	copy(out, all)
	return out
}

// Parse converts a name such as "tool_preferences" into a Category.
// Matching ignores surrounding whitespace and case.
func Parse(name string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(name)))
	if !c.Valid() {
		return "", fmt.Errorf("unknown category %q: %w", name, internalerr.ErrInvalidInput)
	}
	return c, nil
}

// Valid reports whether c is one of the five categories.
func (c Category) Valid() bool {
	_, ok := titles[c]
	return ok
}

// Title returns the human readable document heading.
func (c Category) Title() string {
	if t, ok := titles[c]; ok {
		return t
	}
	return string(c)
}

func (c Category) String() string { return string(c) }

// First returns the lexicographically smallest category among candidates.
// It returns "" when candidates is empty.
func First(candidates []Category) Category {
	var best Category
	for _, c := range candidates {
		if best == "" || c < best {
			best = c
		}
	}
	return best
}
