package matching

import (
	"encoding/json"
	"reflect"

	"github.com/ohler55/ojg/jp"
)

// MatchJSONPath reports whether every JSONPath condition holds against
// the body. A condition maps a JSONPath expression to either an expected
// value or a presence check of the form {"exists": true|false}. A body
// that is not valid JSON matches nothing (it is a miss, not an error).
func MatchJSONPath(conditions map[string]any, body []byte) bool {
	if len(conditions) == 0 {
		return true
	}

	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		return false
	}

	for path, expected := range conditions {
		if !matchOnePath(path, expected, data) {
			return false
		}
	}
	return true
}

func matchOnePath(path string, expected, data any) bool {
	expr, err := jp.ParseString(path)
	if err != nil {
		return false
	}
	results := expr.Get(data)

	if wantExists, ok := existenceCheck(expected); ok {
		return wantExists == (len(results) > 0)
	}

	// Wildcard paths can return several values; any equal value matches.
	for _, result := range results {
		if valuesEqual(result, expected) {
			return true
		}
	}
	return false
}

// existenceCheck recognizes the single-key form {"exists": bool}.
func existenceCheck(expected any) (bool, bool) {
	m, ok := expected.(map[string]any)
	if !ok || len(m) != 1 {
		return false, false
	}
	v, ok := m["exists"].(bool)
	return v, ok
}

// valuesEqual compares a JSONPath result with an expected value,
// normalizing numeric types so a YAML int matches a JSON float.
func valuesEqual(actual, expected any) bool {
	if af, aok := toFloat(actual); aok {
		if ef, eok := toFloat(expected); eok {
			return af == ef
		}
		return false
	}
	return reflect.DeepEqual(actual, expected)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
