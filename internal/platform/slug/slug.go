package slug

import (
	"regexp"
	"strings"
)

const maxLen = 48

var nonAlphaNum = regexp.MustCompile(`[^a-z0-9]+`)

// Make turns input into a lowercase dash-separated file name stem, cut at a
// word boundary when longer than maxLen. Input with nothing usable yields
// fallback.
func Make(input, fallback string) string {
	s := strings.ToLower(strings.TrimSpace(input))
	s = nonAlphaNum.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > maxLen {
		s = s[:maxLen]
		if i := strings.LastIndex(s, "-"); i > 0 {
			s = s[:i]
		}
	}
	if s == "" {
		return fallback
	}
	return s
}
