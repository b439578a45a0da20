package template

import (
	mathrand "math/rand/v2"
	"net/http"

	"github.com/stubkit/stubkit/pkg/scenario"
)

// Context holds the data one render draws on: the request's path and
// query parameters, a seeded random source for this render, and a
// read-write handle into the owning scenario's state.
type Context struct {
	Method     string
	Path       string
	PathParams map[string]string
	Query      map[string]string
	Headers    map[string]string

	// Body is the buffered request body, for request.body variables.
	Body []byte

	// Rand is the per-render random source. Seeded contexts make random
	// and fake-data helpers deterministic, which tests rely on. Nil
	// falls back to the global source.
	Rand *mathrand.Rand

	// State is the owning scenario's state, used by counter and state
	// helpers. Nil when the render has no scenario.
	State *scenario.State
}

// NewContext builds a render context from a request and its extracted
// path parameters.
func NewContext(r *http.Request, pathParams map[string]string) *Context {
	query := make(map[string]string)
	for name := range r.URL.Query() {
		query[name] = r.URL.Query().Get(name)
	}
	headers := make(map[string]string, len(r.Header))
	for name := range r.Header {
		headers[name] = r.Header.Get(name)
	}
	if pathParams == nil {
		pathParams = map[string]string{}
	}
	return &Context{
		Method:     r.Method,
		Path:       r.URL.Path,
		PathParams: pathParams,
		Query:      query,
		Headers:    headers,
	}
}

// WithBody attaches the buffered request body.
func (c *Context) WithBody(body []byte) *Context {
	c.Body = body
	return c
}

// header returns a request header by name, "" when absent.
func (c *Context) header(name string) string {
	return c.Headers[http.CanonicalHeaderKey(name)]
}

// WithSeed attaches a deterministic random source.
func (c *Context) WithSeed(seed uint64) *Context {
	c.Rand = mathrand.New(mathrand.NewPCG(seed, seed))
	return c
}

// WithState attaches a scenario state handle.
func (c *Context) WithState(s *scenario.State) *Context {
	c.State = s
	return c
}

// intN returns a random int in [0, n) from the context's source.
func (c *Context) intN(n int) int {
	if n <= 0 {
		return 0
	}
	if c.Rand != nil {
		return c.Rand.IntN(n)
	}
	return mathrand.IntN(n)
}

// float64n returns a random float64 in [0, 1).
func (c *Context) float64n() float64 {
	if c.Rand != nil {
		return c.Rand.Float64()
	}
	return mathrand.Float64()
}
