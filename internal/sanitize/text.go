// Package sanitize scrubs user supplied event text before it is stored.
package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strictPolicy = bluemonday.StrictPolicy()
	ugcPolicy    = bluemonday.UGCPolicy()
)

// Text strips every tag and returns plain text. bluemonday escapes what it
// keeps, so entities are decoded again; "Rock & Roll" is stored as typed.
// Titles, locations, names.
func Text(input string) string {
	return strings.TrimSpace(html.UnescapeString(strictPolicy.Sanitize(input)))
}

// HTML keeps basic formatting and drops scripts, handlers and styles.
// Input without markup is plain text and is stored byte for byte.
// Descriptions.
func HTML(input string) string {
	in := strings.TrimSpace(input)
	if !strings.ContainsRune(in, '<') {
		return in
	}
	return strings.TrimSpace(ugcPolicy.Sanitize(in))
}
