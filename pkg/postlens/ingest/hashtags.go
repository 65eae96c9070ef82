package ingest

import "regexp"

// inline #tags; a tag must start with a letter so "#1" list markers are skipped
var inlineTag = regexp.MustCompile(`(?:^|[^\p{L}\p{N}_&#])#(\p{L}[\p{L}\p{N}_]*)`)

// InlineHashtags returns the #tags written inside the post text, in order of
// appearance.
func InlineHashtags(text string) []string {
	matches := inlineTag.FindAllStringSubmatch(text, -1)
	tags := make([]string, 0, len(matches))
	for _, m := range matches {
		tags = append(tags, m[1])
	}
	return tags
}
