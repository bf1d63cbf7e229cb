package analysis

import (
	"regexp"
	"strings"
)

// Search reports whether query occurs in text, ignoring case.
func Search(text, query string) bool {
	if text == "" || query == "" {
		return false
	}
	return strings.Contains(strings.ToLower(text), strings.ToLower(query))
}

// Highlight wraps every case-insensitive occurrence of query in <mark> tags.
// The query is matched literally.
func Highlight(text, query string) string {
	if text == "" || query == "" {
		return text
	}
	re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(query))
	return re.ReplaceAllString(text, "<mark>$0</mark>")
}
