package repair

import "strings"

// DefaultSnippetLength is the number of runes kept by Snippet by default.
const DefaultSnippetLength = 160

// Snippet collapses runs of whitespace in s to single spaces and truncates
// the result to limit runes, marking the cut with an ellipsis.
func Snippet(s string, limit int) string {
	if limit <= 0 {
		limit = DefaultSnippetLength
	}
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "…"
}
