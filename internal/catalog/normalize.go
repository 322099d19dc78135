package catalog

import (
	"regexp"
	"strings"
	"unicode"
)

// SourceSuffix is appended to artist names by the lyrics site export.
const SourceSuffix = " Lyrics"

var parentheticalRegex = regexp.MustCompile(`\([^)]*\)`)

var spaceRunRegex = regexp.MustCompile(`\s{2,}`)

// NormalizeArtist keeps only the primary credited artist:
// the source suffix and any parenthetical aside are removed, the name is cut
// at the first '&' or ',', and surrounding whitespace is trimmed.
func NormalizeArtist(name string) string {
	name = strings.TrimRightFunc(name, unicode.IsSpace)
	name = strings.TrimSuffix(name, SourceSuffix)
	name = stripParentheticals(name)
	if i := strings.IndexAny(name, "&,"); i >= 0 {
		name = name[:i]
	}
	return trimSpace(name)
}

// NormalizeTitle removes parenthetical asides and trims whitespace.
func NormalizeTitle(title string) string {
	return trimSpace(stripParentheticals(title))
}

func stripParentheticals(s string) string {
	if !strings.Contains(s, "(") {
		return s
	}
	return parentheticalRegex.ReplaceAllString(s, "")
}

// trimSpace trims and collapses the double spaces left behind by removed asides.
func trimSpace(s string) string {
	return strings.TrimSpace(spaceRunRegex.ReplaceAllString(s, " "))
}
