package matching

import "strings"

// MatchPath matches a request path against a pattern with named
// parameter segments, e.g. /users/{id}. A parameter segment matches any
// single non-empty segment and never spans a slash. On success the
// captured parameter values are returned.
func MatchPath(pattern, path string) (map[string]string, bool) {
	if pattern == path {
		return nil, true
	}

	patternParts := splitSegments(pattern)
	pathParts := splitSegments(path)
	if len(patternParts) != len(pathParts) {
		return nil, false
	}

	var params map[string]string
	for i, part := range patternParts {
		if strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}") {
			if pathParts[i] == "" {
				return nil, false
			}
			if params == nil {
				params = make(map[string]string)
			}
			params[part[1:len(part)-1]] = pathParts[i]
			continue
		}
		if part != pathParts[i] {
			return nil, false
		}
	}
	return params, true
}

func splitSegments(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}
