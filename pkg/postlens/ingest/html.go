package ingest

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var (
	markupHint     = regexp.MustCompile(`<[a-zA-Z/!][^>]*>|&[a-zA-Z]+;|&#[0-9]+;`)
	trailingSpaces = regexp.MustCompile(`[ \t]+\n`)
	extraNewlines  = regexp.MustCompile(`\n{3,}`)
)

// block-level elements that end a line in the exported text
var lineBreakers = map[string]bool{
	"br": true, "p": true, "div": true, "li": true,
	"ul": true, "ol": true, "h1": true, "h2": true, "h3": true,
}

// PlainText converts exported post bodies, which may carry HTML fragments
// and entities, into plain text. Text without markup is returned with only
// line endings normalized.
func PlainText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	if !markupHint.MatchString(s) {
		return strings.TrimSpace(s)
	}

	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}

	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			buf.WriteString(n.Data)
		case html.ElementNode:
			if n.Data == "script" || n.Data == "style" {
				return
			}
			if n.Data == "li" {
				buf.WriteString("- ")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && lineBreakers[n.Data] {
			buf.WriteByte('\n')
		}
	}
	walk(doc)

	out := strings.ReplaceAll(buf.String(), "\u00a0", " ")
	out = trailingSpaces.ReplaceAllString(out, "\n")
	out = extraNewlines.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}
