// Package richtext turns the HTML the recipe API returns for summaries and
// instructions into plain text and numbered steps for the app.
package richtext

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	xhtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// strict drops every tag. The space keeps "<p>a</p><p>b</p>" from becoming "ab".
var strict = bluemonday.StrictPolicy().AddSpaceWhenStrippingTag(true)

var (
	whitespace = regexp.MustCompile(`\s+`)
	// A period ends a sentence only when followed by whitespace or the end
	// of the text, so "1.5 cups" stays in one piece.
	sentenceEnd = regexp.MustCompile(`\.(\s+|$)`)
)

// PlainText strips tags, decodes entities and collapses whitespace.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	out := html.UnescapeString(strict.Sanitize(s))
	return strings.TrimSpace(whitespace.ReplaceAllString(out, " "))
}

// Steps splits recipe instructions into steps.
//
// Instructions that come as an HTML list yield one step per <li>. Anything
// else is flattened to text and split into sentences. Empty instructions
// give an empty, non-nil slice.
func Steps(instructions string) []string {
	steps := []string{}
	if strings.TrimSpace(instructions) == "" {
		return steps
	}

	if items := listItems(instructions); len(items) > 0 {
		return items
	}

	for _, s := range sentenceEnd.Split(PlainText(instructions), -1) {
		if s = strings.TrimSpace(s); s != "" {
			steps = append(steps, s)
		}
	}
	return steps
}

// listItems returns the plain text of every <li>, or nil if the input has
// no list or isn't parseable.
func listItems(s string) []string {
	doc, err := xhtml.Parse(strings.NewReader(s))
	if err != nil {
		return nil
	}

	var items []string
	var walk func(n *xhtml.Node)
	walk = func(n *xhtml.Node) {
		if n.Type == xhtml.ElementNode && n.DataAtom == atom.Li {
			var b strings.Builder
			collectText(n, &b)
			if text := strings.TrimSpace(whitespace.ReplaceAllString(b.String(), " ")); text != "" {
				items = append(items, text)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return items
}

func collectText(n *xhtml.Node, b *strings.Builder) {
	if n.Type == xhtml.TextNode {
		b.WriteString(n.Data)
		b.WriteByte(' ')
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, b)
	}
}
