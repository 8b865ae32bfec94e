package util

import (
	"regexp"
	"strings"
)

// DefaultSanitizeLimit is the rune limit applied by Sanitize when callers pass
// a non-positive limit.
const DefaultSanitizeLimit = 2000

var spaceBeforeNewline = regexp.MustCompile(`\s+\n`)

// Sanitize collapses any whitespace run that ends in a line break into the
// line break alone, trims the result and truncates it to limit runes with a
// trailing "..." marker.
func Sanitize(text string, limit int) string {
	if limit <= 0 {
		limit = DefaultSanitizeLimit
	}
	trimmed := strings.TrimSpace(spaceBeforeNewline.ReplaceAllString(text, "\n"))
	runes := []rune(trimmed)
	if len(runes) > limit {
		return string(runes[:limit]) + "..."
	}
	return trimmed
}
