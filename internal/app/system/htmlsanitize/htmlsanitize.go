// Package htmlsanitize cleans rich-text content (activity and waypoint
// descriptions) before it is stored or rendered. It allows a useful
// authoring subset of HTML (formatting, lists, tables, images, links)
// and strips anything executable.
package htmlsanitize

import (
	"html"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// policy is built once; bluemonday policies are safe for concurrent use.
var policy = buildPolicy()

func buildPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()

	// Extra inline formatting beyond the UGC defaults.
	p.AllowElements("u", "s", "sub", "sup", "mark", "hr")

	// Tables, including the attributes rich-text editors emit.
	p.AllowElements("table", "thead", "tbody", "tfoot", "tr", "th", "td")
	p.AllowAttrs("colspan", "rowspan").OnElements("td", "th")
	p.AllowAttrs("class", "style").OnElements("table", "thead", "tbody", "tr", "th", "td")

	return p
}

// Sanitize returns s with disallowed tags and attributes removed.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	return policy.Sanitize(s)
}

// SanitizeToHTML sanitizes s and returns it as template.HTML so it can
// be embedded without re-escaping.
func SanitizeToHTML(s string) template.HTML {
	return template.HTML(Sanitize(s))
}

// IsPlainText reports whether s looks like plain text rather than HTML.
// The heuristic is the presence of both '<' and '>'; a lone comparison
// operator does not count as markup.
func IsPlainText(s string) bool {
	return !(strings.Contains(s, "<") && strings.Contains(s, ">"))
}

// PlainTextToHTML escapes s and converts newlines to <br>, wrapping the
// result in a paragraph. Empty input stays empty.
func PlainTextToHTML(s string) string {
	if s == "" {
		return ""
	}
	escaped := html.EscapeString(s)
	escaped = strings.ReplaceAll(escaped, "\n", "<br>")
	return "<p>" + escaped + "</p>"
}

// PrepareForDisplay renders either plain text (escaped, newline-aware)
// or sanitized HTML, depending on what s looks like.
func PrepareForDisplay(s string) template.HTML {
	if s == "" {
		return ""
	}
	if IsPlainText(s) {
		return template.HTML(PlainTextToHTML(s))
	}
	return SanitizeToHTML(s)
}
