package matching

import "net/url"

// MatchQueryParams reports whether every expected query parameter holds.
// Names and values are both case-sensitive.
func MatchQueryParams(expected map[string]string, params url.Values) bool {
	for name, value := range expected {
		if params.Get(name) != value {
			return false
		}
	}
	return true
}

// QueryParamsExist reports whether every named query parameter is
// present, regardless of value.
func QueryParamsExist(names []string, params url.Values) bool {
	for _, name := range names {
		if _, ok := params[name]; !ok {
			return false
		}
	}
	return true
}
