// Package htmlsanitize cleans user-entered text before it is stored.
//
// Folder names, descriptions, and session titles are plain text. Anything
// that looks like markup is stripped with bluemonday's strict policy and the
// result is unescaped back to literal characters.
package htmlsanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// PlainText removes all tags (and the contents of script/style elements)
// from s and returns trimmed literal text.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	if IsPlainText(s) {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}

// IsPlainText reports whether s contains no tag-like content.
func IsPlainText(s string) bool {
	return !strings.Contains(s, "<")
}
