package textutil

import (
	"regexp"
	"strings"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

func NormalizeName(name string) string {
	name = strings.ToLower(name)
	name = strings.Trim(name, " \n\t")
	name = whitespaceRegex.ReplaceAllString(name, "")
	return name
}

// MatchName reports whether the normalized name contains any of the
// matchers. Matchers are expected to be normalized already.
func MatchName(name string, matchers []string) bool {
	name = NormalizeName(name)
	for _, m := range matchers {
		if strings.Contains(name, m) {
			return true
		}
	}
	return false
}

// CollapseWhitespace trims the string and squashes inner runs of
// whitespace into single spaces, keeping word boundaries intact.
func CollapseWhitespace(s string) string {
	s = strings.Trim(s, " \t\n")
	return whitespaceRegex.ReplaceAllString(s, " ")
}
