package matching

import "net/http"

// MatchHeaders reports whether every expected header holds. Names are
// case-insensitive per the HTTP spec; values are case-sensitive exact
// matches. An empty expectation always matches.
func MatchHeaders(expected map[string]string, headers http.Header) bool {
	for name, value := range expected {
		if headers.Get(name) != value {
			return false
		}
	}
	return true
}

// HeadersExist reports whether every named header is present, with any
// value.
func HeadersExist(names []string, headers http.Header) bool {
	for _, name := range names {
		if len(headers.Values(name)) == 0 {
			return false
		}
	}
	return true
}
