package matching

import (
	"regexp"
	"strings"
)

// MatchBodyContains reports whether the body contains the substring.
// An empty criterion always matches.
func MatchBodyContains(body []byte, contains string) bool {
	if contains == "" {
		return true
	}
	return strings.Contains(string(body), contains)
}

// MatchBodyEquals reports whether the body exactly equals expected.
func MatchBodyEquals(body []byte, expected string) bool {
	if expected == "" {
		return true
	}
	return string(body) == expected
}

// MatchBodyPattern reports whether the body matches an RE2 pattern.
// Invalid patterns never match; scenario validation rejects them before
// they reach matching.
func MatchBodyPattern(body []byte, pattern string) bool {
	if pattern == "" {
		return true
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false
	}
	return re.Match(body)
}
