package meta

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// strict drops every tag and keeps text only.
var strict = bluemonday.StrictPolicy()

// Clean strips markup from scraped or upstream text, decodes entities,
// collapses whitespace and truncates to max runes (0 means no limit).
func Clean(s string, max int) string {
	if s == "" {
		return ""
	}
	s = html.UnescapeString(strict.Sanitize(s))
	s = strings.Join(strings.Fields(s), " ")
	return Truncate(s, max)
}

// Truncate cuts s to at most max runes, adding an ellipsis when cut.
func Truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return strings.TrimSpace(string(r[:max-1])) + "…"
}

func unescapeEntities(s string) string {
	if !strings.Contains(s, "&") {
		return s
	}
	return html.UnescapeString(s)
}
