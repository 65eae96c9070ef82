// Package archive renders the per-category Markdown documents.
package archive

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/cognicore/postlens/pkg/postlens/category"
	"github.com/cognicore/postlens/pkg/postlens/engagement"
	"github.com/cognicore/postlens/pkg/postlens/ingest"
)

// Entry is one post as it appears in a category document.
type Entry struct {
	Post        ingest.Post
	Score       engagement.Score
	Beliefs     []string
	Preferences []string
}

// Document is the archive of one category. Entries are expected in
// display order (see Sort).
type Document struct {
	Category    category.Category
	GeneratedAt time.Time
	Entries     []Entry
}

// Sort orders entries by descending rate, ties by ingestion order, with
// unscored entries last.
func (d *Document) Sort() {
	d.Entries = engagement.Rank(d.Entries, func(e Entry) engagement.Key {
		return engagement.Key{Rate: e.Score.Rate, Ordinal: e.Post.Ordinal, Scored: e.Score.OK()}
	})
}

// Render produces the Markdown bytes for d. Output depends only on d.
func Render(d Document) []byte {
	var b bytes.Buffer

	fmt.Fprintf(&b, "# %s\n\n", d.Category.Title())
	fmt.Fprintf(&b, "*Extracted from %d LinkedIn posts*\n\n", len(d.Entries))
	fmt.Fprintf(&b, "**Category**: %s\n", d.Category)
	fmt.Fprintf(&b, "**Generated**: %s\n\n", d.GeneratedAt.UTC().Format(time.RFC3339))
	b.WriteString("---\n")

	for i, e := range d.Entries {
		b.WriteString("\n")
		fmt.Fprintf(&b, "## Post %d: %s\n\n", i+1, e.Post.PostedAt.UTC().Format("2006-01-02"))
		b.WriteString(engagementLine(e))
		b.WriteString("\n")
		if len(e.Post.Hashtags) > 0 {
			tags := make([]string, len(e.Post.Hashtags))
			for j, t := range e.Post.Hashtags {
				tags[j] = "#" + t
			}
			fmt.Fprintf(&b, "**Tags**: %s\n", strings.Join(tags, ", "))
		}
		b.WriteString("\n**Content**:\n\n")
		b.WriteString(strings.TrimSpace(e.Post.Text))
		b.WriteString("\n")
		writeList(&b, "Extracted Beliefs", e.Beliefs)
		writeList(&b, "Extracted Preferences", e.Preferences)
		b.WriteString("\n---\n")
	}
	return b.Bytes()
}

func engagementLine(e Entry) string {
	counts := fmt.Sprintf("%d reactions, %d comments, %d shares", e.Post.Reactions, e.Post.Comments, e.Post.Shares)
	if !e.Score.OK() {
		return fmt.Sprintf("**Engagement**: rate unavailable (%s)", counts)
	}
	return fmt.Sprintf("**Engagement**: %s rate (%s)", engagement.FormatRate(e.Score.Rate), counts)
}

func writeList(b *bytes.Buffer, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "\n**%s**:\n", heading)
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
}
