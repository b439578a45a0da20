package plugin

import (
	"context"
	"net/http"
	"sort"
)

// RequestContext is the mutable, request-scoped state shared by reference
// across all hooks and the handler for one request. It exists from
// PreRequest to PostResponse and is visible to exactly one in-flight
// request, so access needs no locking as long as hooks do not leak it to
// goroutines that outlive the request.
type RequestContext struct {
	// Request is the inbound HTTP request. PreRequest hooks may replace it
	// (e.g. to rewrite the path) before routing happens.
	Request *http.Request

	// PathParams holds named segments extracted during routing, e.g.
	// {"id": "42"} for route /users/{id} and path /users/42. Empty until
	// the router has run.
	PathParams map[string]string

	// Response is the in-progress response, nil until a hook or the
	// handler produces one.
	Response *Response

	// Route is the matched route pattern ("" when routing missed),
	// populated for PostRoute and later hooks.
	Route string

	// Scenario is the name of the mock scenario that produced the
	// response, when the mock engine handled the request.
	Scenario string

	values map[string]any
}

// NewRequestContext creates a context for one inbound request.
func NewRequestContext(r *http.Request) *RequestContext {
	return &RequestContext{
		Request:    r,
		PathParams: make(map[string]string),
		values:     make(map[string]any),
	}
}

// Context returns the request's context.Context, which is cancelled when
// the client disconnects or the dispatcher's timeout ceiling fires.
func (c *RequestContext) Context() context.Context {
	return c.Request.Context()
}

// Get returns a value from the cross-plugin key-value store.
func (c *RequestContext) Get(key string) (any, bool) {
	v, ok := c.values[key]
	return v, ok
}

// GetString returns a string value from the key-value store, or "" when
// the key is absent or not a string.
func (c *RequestContext) GetString(key string) string {
	if v, ok := c.values[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Set stores a value in the cross-plugin key-value store.
func (c *RequestContext) Set(key string, value any) {
	c.values[key] = value
}

// Keys returns the stored keys in sorted order.
func (c *RequestContext) Keys() []string {
	keys := make([]string, 0, len(c.values))
	for k := range c.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
