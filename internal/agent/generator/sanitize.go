package generator

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// citationPattern matches bracketed markers such as [1], [2, 3],
// [citation needed] and the [+1234 chars] suffix news APIs append.
var citationPattern = regexp.MustCompile(`(?i)\[\s*(?:\d+(?:\s*[,-]\s*\d+)*|citation needed|\+\s*\d+\s*chars?)\s*\]`)

// sanitizeGrounding strips citation markers, collapses whitespace and caps
// the text at limit runes.
func sanitizeGrounding(text string, limit int) string {
	text = citationPattern.ReplaceAllString(text, " ")
	text = strings.Join(strings.Fields(text), " ")
	return truncateRunes(text, limit)
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}

// summarize shortens context to limit characters, marking the cut with "..."
func summarize(context string, limit int) string {
	context = strings.TrimSpace(context)
	if limit <= 0 || utf8.RuneCountInString(context) <= limit {
		return context
	}
	return strings.TrimRight(truncateRunes(context, limit), " ") + "..."
}
