package utils

import "strings"

// Truncate shortens s to limit runes, appending an ellipsis when truncated.
func Truncate(s string, limit int) string {
	s = strings.TrimSpace(s)
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}

// OneLine collapses every run of whitespace, including newlines, into a single space.
func OneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
