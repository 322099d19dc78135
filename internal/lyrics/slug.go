// Package lyrics fetches song lyrics from the remote lyrics site.
package lyrics

import (
	"regexp"
	"strings"
	"unicode"
)

var nonSlugChars = regexp.MustCompile(`[^\w\s-]`)

// Slug turns an artist or title into the URL token used by the lyrics site:
// characters outside [A-Za-z0-9_-] and whitespace are dropped, whitespace is
// removed and the result lower-cased.
func Slug(s string) string {
	s = nonSlugChars.ReplaceAllString(s, "")
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	return strings.ToLower(s)
}
