package matching

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stubkit/stubkit/pkg/scenario"
)

func mustSet(t *testing.T, scenarios ...*scenario.Scenario) *scenario.Set {
	t.Helper()
	set, err := scenario.NewSet(scenarios)
	require.NoError(t, err)
	return set
}

func route(method, path string, match *scenario.Matcher) *scenario.Route {
	return &scenario.Route{
		Method:   method,
		Path:     path,
		Match:    match,
		Response: &scenario.Response{StatusCode: 200, Body: path},
	}
}

func TestMatcherFirstMatchWins(t *testing.T) {
	// The second route is more specific, but the first one declared
	// still wins.
	generic := route("GET", "/users/{id}", nil)
	specific := route("GET", "/users/42", nil)
	set := mustSet(t, &scenario.Scenario{
		Name:   "users",
		Routes: []*scenario.Route{generic, specific},
	})

	m := NewMatcher(nil)
	res, ok := m.Match(set, httptest.NewRequest("GET", "/users/42", nil), nil)
	require.True(t, ok)
	assert.Same(t, generic, res.Route)
	assert.Equal(t, "42", res.PathParams["id"])
}

func TestMatcherScenarioOrder(t *testing.T) {
	first := route("GET", "/shared", nil)
	second := route("GET", "/shared", nil)
	set := mustSet(t,
		&scenario.Scenario{Name: "first", Routes: []*scenario.Route{first}},
		&scenario.Scenario{Name: "second", Routes: []*scenario.Route{second}},
	)

	m := NewMatcher(nil)
	res, ok := m.Match(set, httptest.NewRequest("GET", "/shared", nil), nil)
	require.True(t, ok)
	assert.Equal(t, "first", res.Scenario.Name)

	// Disabling the first scenario lets the second one take over.
	require.True(t, set.SetEnabled("first", false))
	res, ok = m.Match(set, httptest.NewRequest("GET", "/shared", nil), nil)
	require.True(t, ok)
	assert.Equal(t, "second", res.Scenario.Name)
}

func TestMatcherPredicates(t *testing.T) {
	newReq := func(target, body string, headers map[string]string) *stdRequest {
		return &stdRequest{target: target, body: body, headers: headers}
	}

	cases := []struct {
		name  string
		match *scenario.Matcher
		req   *stdRequest
		want  bool
	}{
		{
			name:  "empty predicate list always matches",
			match: &scenario.Matcher{},
			req:   newReq("/orders", "", nil),
			want:  true,
		},
		{
			name:  "header equality case-insensitive name",
			match: &scenario.Matcher{Headers: map[string]string{"x-tenant": "acme"}},
			req:   newReq("/orders", "", map[string]string{"X-Tenant": "acme"}),
			want:  true,
		},
		{
			name:  "header value case-sensitive",
			match: &scenario.Matcher{Headers: map[string]string{"X-Tenant": "ACME"}},
			req:   newReq("/orders", "", map[string]string{"X-Tenant": "acme"}),
			want:  false,
		},
		{
			name:  "header presence",
			match: &scenario.Matcher{HeaderExists: []string{"Authorization"}},
			req:   newReq("/orders", "", map[string]string{"Authorization": "Bearer x"}),
			want:  true,
		},
		{
			name:  "header presence missing",
			match: &scenario.Matcher{HeaderExists: []string{"Authorization"}},
			req:   newReq("/orders", "", nil),
			want:  false,
		},
		{
			name:  "query equality",
			match: &scenario.Matcher{QueryParams: map[string]string{"page": "2"}},
			req:   newReq("/orders?page=2", "", nil),
			want:  true,
		},
		{
			name:  "query mismatch",
			match: &scenario.Matcher{QueryParams: map[string]string{"page": "2"}},
			req:   newReq("/orders?page=3", "", nil),
			want:  false,
		},
		{
			name:  "query presence",
			match: &scenario.Matcher{QueryExists: []string{"debug"}},
			req:   newReq("/orders?debug", "", nil),
			want:  true,
		},
		{
			name:  "body contains",
			match: &scenario.Matcher{BodyContains: "widget"},
			req:   newReq("/orders", `{"item":"widget"}`, nil),
			want:  true,
		},
		{
			name:  "body equals",
			match: &scenario.Matcher{BodyEquals: "exact"},
			req:   newReq("/orders", "exact", nil),
			want:  true,
		},
		{
			name:  "body pattern",
			match: &scenario.Matcher{BodyPattern: `"sku":\s*"[A-Z]{3}-\d+"`},
			req:   newReq("/orders", `{"sku": "ABC-123"}`, nil),
			want:  true,
		},
		{
			name:  "jsonpath value",
			match: &scenario.Matcher{BodyJSONPath: map[string]any{"$.user.role": "admin"}},
			req:   newReq("/orders", `{"user":{"role":"admin"}}`, nil),
			want:  true,
		},
		{
			name:  "jsonpath numeric normalization",
			match: &scenario.Matcher{BodyJSONPath: map[string]any{"$.count": 3}},
			req:   newReq("/orders", `{"count":3}`, nil),
			want:  true,
		},
		{
			name:  "jsonpath exists true",
			match: &scenario.Matcher{BodyJSONPath: map[string]any{"$.token": map[string]any{"exists": true}}},
			req:   newReq("/orders", `{"token":"x"}`, nil),
			want:  true,
		},
		{
			name:  "jsonpath exists false",
			match: &scenario.Matcher{BodyJSONPath: map[string]any{"$.token": map[string]any{"exists": false}}},
			req:   newReq("/orders", `{"other":1}`, nil),
			want:  true,
		},
		{
			name:  "jsonpath on invalid json misses",
			match: &scenario.Matcher{BodyJSONPath: map[string]any{"$.a": 1}},
			req:   newReq("/orders", "not json", nil),
			want:  false,
		},
		{
			name:  "when expression true",
			match: &scenario.Matcher{When: `method == "POST" && query["dry"] == "1"`},
			req:   newReq("/orders?dry=1", "", nil),
			want:  true,
		},
		{
			name:  "when expression false",
			match: &scenario.Matcher{When: `headers["X-Env"] == "prod"`},
			req:   newReq("/orders", "", map[string]string{"X-Env": "staging"}),
			want:  false,
		},
		{
			name:  "broken when expression misses",
			match: &scenario.Matcher{When: `method ==`},
			req:   newReq("/orders", "", nil),
			want:  false,
		},
	}

	m := NewMatcher(nil)
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			set := mustSet(t, &scenario.Scenario{
				Name:   "s",
				Routes: []*scenario.Route{route("POST", "/orders", tt.match)},
			})
			r := httptest.NewRequest("POST", tt.req.target, strings.NewReader(tt.req.body))
			for k, v := range tt.req.headers {
				r.Header.Set(k, v)
			}

			_, ok := m.Match(set, r, []byte(tt.req.body))
			assert.Equal(t, tt.want, ok)
		})
	}
}

type stdRequest struct {
	target  string
	body    string
	headers map[string]string
}

func TestMatcherMethod(t *testing.T) {
	set := mustSet(t, &scenario.Scenario{
		Name: "s",
		Routes: []*scenario.Route{
			route("ANY", "/anything", nil),
			route("GET", "/read", nil),
		},
	})
	m := NewMatcher(nil)

	_, ok := m.Match(set, httptest.NewRequest("DELETE", "/anything", nil), nil)
	assert.True(t, ok)

	// HEAD falls back to GET routes.
	_, ok = m.Match(set, httptest.NewRequest("HEAD", "/read", nil), nil)
	assert.True(t, ok)

	_, ok = m.Match(set, httptest.NewRequest("POST", "/read", nil), nil)
	assert.False(t, ok)
}

func TestMatcherMiss(t *testing.T) {
	set := mustSet(t, &scenario.Scenario{
		Name:   "s",
		Routes: []*scenario.Route{route("GET", "/known", nil)},
	})
	m := NewMatcher(nil)
	res, ok := m.Match(set, httptest.NewRequest("GET", "/unknown", nil), nil)
	assert.False(t, ok)
	assert.Nil(t, res)
}
