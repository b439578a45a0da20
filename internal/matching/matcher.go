// Package matching decides which mock route, if any, serves an incoming
// request. Matching is first-match-wins: scenarios are tried in
// configuration order and routes within a scenario in declaration order,
// so operators can reason about rules top to bottom. Specificity never
// reorders candidates.
package matching

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/stubkit/stubkit/pkg/logging"
	"github.com/stubkit/stubkit/pkg/scenario"
)

// Result identifies the mock route selected for a request.
type Result struct {
	Scenario   *scenario.Scenario
	Route      *scenario.Route
	PathParams map[string]string
}

// Matcher evaluates requests against a scenario set.
type Matcher struct {
	evaluator *Evaluator
	logger    *slog.Logger
}

// NewMatcher creates a matcher. A nil logger disables logging.
func NewMatcher(logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Matcher{
		evaluator: NewEvaluator(),
		logger:    logger,
	}
}

// Match returns the first route across active scenarios whose method,
// path pattern, and every declared predicate all hold. The second return
// is false when nothing matched, which is a miss rather than an error.
func (m *Matcher) Match(set *scenario.Set, r *http.Request, body []byte) (*Result, bool) {
	for _, sc := range set.Active() {
		for _, route := range sc.Routes {
			params, ok := m.matchRoute(route, r, body)
			if !ok {
				continue
			}
			return &Result{Scenario: sc, Route: route, PathParams: params}, true
		}
	}
	return nil, false
}

func (m *Matcher) matchRoute(route *scenario.Route, r *http.Request, body []byte) (map[string]string, bool) {
	if !methodMatches(route.Method, r.Method) {
		return nil, false
	}

	params, ok := MatchPath(route.Path, r.URL.Path)
	if !ok {
		return nil, false
	}

	match := route.Match
	if match == nil {
		return params, true
	}

	if !MatchHeaders(match.Headers, r.Header) {
		return nil, false
	}
	if !HeadersExist(match.HeaderExists, r.Header) {
		return nil, false
	}

	query := r.URL.Query()
	if !MatchQueryParams(match.QueryParams, query) {
		return nil, false
	}
	if !QueryParamsExist(match.QueryExists, query) {
		return nil, false
	}

	if !MatchBodyEquals(body, match.BodyEquals) {
		return nil, false
	}
	if !MatchBodyContains(body, match.BodyContains) {
		return nil, false
	}
	if !MatchBodyPattern(body, match.BodyPattern) {
		return nil, false
	}
	if !MatchJSONPath(match.BodyJSONPath, body) {
		return nil, false
	}

	if match.When != "" {
		ok, err := m.evaluator.Eval(match.When, r, params)
		if err != nil {
			m.logger.Warn("when expression failed, treating as no match",
				"route", route.Method+" "+route.Path,
				"error", err,
			)
			return nil, false
		}
		if !ok {
			return nil, false
		}
	}

	return params, true
}

// methodMatches compares a route method against the request method.
// "ANY" matches everything; a HEAD request also matches a GET route.
func methodMatches(routeMethod, requestMethod string) bool {
	routeMethod = strings.ToUpper(routeMethod)
	if routeMethod == "ANY" || routeMethod == requestMethod {
		return true
	}
	return requestMethod == http.MethodHead && routeMethod == http.MethodGet
}
