// Package router resolves inbound method+path pairs against an ordered
// route table. Patterns use named segments (/users/{id}); a static
// segment always outranks a parameter segment at the same position, so
// /users/me wins over /users/{id} for the literal path.
package router

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/stubkit/stubkit/pkg/plugin"
)

// Handler produces a response for a matched route by setting it on the
// request context. Returning ErrMiss tells the dispatcher the handler
// declined the request so a fallback handler (or 404) can take over.
type Handler interface {
	Handle(rc *plugin.RequestContext) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(rc *plugin.RequestContext) error

// Handle calls f(rc).
func (f HandlerFunc) Handle(rc *plugin.RequestContext) error { return f(rc) }

// ErrMiss signals that a handler declined a request it was routed. It is
// control flow, not a failure; the dispatcher falls through to the next
// handler or synthesizes a 404.
var ErrMiss = errors.New("handler declined request")

// segment is one parsed element of a route pattern.
type segment struct {
	literal string
	param   string // non-empty for {name} segments
}

// Route is one entry in the route table.
type Route struct {
	Method  string
	Pattern string
	Handler Handler

	segments []segment
}

// Match is a successful resolution: the route plus the values captured by
// its parameter segments.
type Match struct {
	Route  *Route
	Params map[string]string
}

// Table is an immutable set of routes. Build one with NewTable and Add,
// then install it on a Router; never mutate a table that is already
// serving traffic.
type Table struct {
	byMethod map[string][]*Route
}

// NewTable creates an empty route table.
func NewTable() *Table {
	return &Table{byMethod: make(map[string][]*Route)}
}

// Add registers a route. The pattern must be unique for the method;
// registration order does not affect matching precedence.
func (t *Table) Add(method, pattern string, h Handler) error {
	if h == nil {
		return fmt.Errorf("route %s %s: nil handler", method, pattern)
	}
	segs, err := parsePattern(pattern)
	if err != nil {
		return fmt.Errorf("route %s %s: %w", method, pattern, err)
	}

	method = strings.ToUpper(method)
	for _, existing := range t.byMethod[method] {
		if existing.Pattern == pattern {
			return fmt.Errorf("route %s %s already registered", method, pattern)
		}
	}

	t.byMethod[method] = append(t.byMethod[method], &Route{
		Method:   method,
		Pattern:  pattern,
		Handler:  h,
		segments: segs,
	})
	return nil
}

// Len returns the number of registered routes.
func (t *Table) Len() int {
	n := 0
	for _, routes := range t.byMethod {
		n += len(routes)
	}
	return n
}

func parsePattern(pattern string) ([]segment, error) {
	if pattern == "" || pattern[0] != '/' {
		return nil, errors.New("pattern must start with /")
	}
	parts := splitPath(pattern)
	segs := make([]segment, len(parts))
	seen := make(map[string]bool)
	for i, p := range parts {
		if strings.HasPrefix(p, "{") && strings.HasSuffix(p, "}") {
			name := p[1 : len(p)-1]
			if name == "" {
				return nil, errors.New("empty parameter name")
			}
			if seen[name] {
				return nil, fmt.Errorf("duplicate parameter %q", name)
			}
			seen[name] = true
			segs[i] = segment{param: name}
			continue
		}
		if strings.ContainsAny(p, "{}") {
			return nil, fmt.Errorf("malformed segment %q", p)
		}
		segs[i] = segment{literal: p}
	}
	return segs, nil
}

// splitPath splits a path into segments, treating "/" as zero segments
// and ignoring a trailing slash.
func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// Resolve finds the route for method+path. HEAD requests with no HEAD
// route fall back to GET routes, matching net/http semantics. The second
// return is false when no route matches.
func (t *Table) Resolve(method, path string) (*Match, bool) {
	method = strings.ToUpper(method)
	parts := splitPath(path)

	if m, ok := t.resolveMethod(method, parts); ok {
		return m, true
	}
	if method == http.MethodHead {
		return t.resolveMethod(http.MethodGet, parts)
	}
	return nil, false
}

func (t *Table) resolveMethod(method string, parts []string) (*Match, bool) {
	var best *Match
	for _, route := range t.byMethod[method] {
		params, ok := matchSegments(route.segments, parts)
		if !ok {
			continue
		}
		candidate := &Match{Route: route, Params: params}
		if best == nil || moreSpecific(route.segments, best.Route.segments) {
			best = candidate
		}
	}
	return best, best != nil
}

// matchSegments matches pattern segments against path parts. A parameter
// segment matches any single non-empty part; it never spans a slash.
func matchSegments(segs []segment, parts []string) (map[string]string, bool) {
	if len(segs) != len(parts) {
		return nil, false
	}
	var params map[string]string
	for i, seg := range segs {
		if seg.param != "" {
			if parts[i] == "" {
				return nil, false
			}
			if params == nil {
				params = make(map[string]string)
			}
			params[seg.param] = parts[i]
			continue
		}
		if seg.literal != parts[i] {
			return nil, false
		}
	}
	return params, true
}

// moreSpecific reports whether a outranks b: comparing left to right, the
// first position where one side is static and the other a parameter
// decides. Equal-length candidates that both matched always differ at
// some position unless the patterns are identical, which Add prevents.
func moreSpecific(a, b []segment) bool {
	for i := range a {
		aStatic := a[i].param == ""
		bStatic := b[i].param == ""
		if aStatic != bStatic {
			return aStatic
		}
	}
	return false
}

// Router serves resolutions from an atomically swappable table, so a
// configuration reload replaces the whole table in one step and in-flight
// requests keep the table they started with.
type Router struct {
	table atomic.Pointer[Table]
}

// New creates a router serving the given table.
func New(t *Table) *Router {
	r := &Router{}
	r.table.Store(t)
	return r
}

// Resolve resolves against the currently installed table.
func (r *Router) Resolve(method, path string) (*Match, bool) {
	return r.table.Load().Resolve(method, path)
}

// Swap atomically installs a new table, returning the previous one.
func (r *Router) Swap(t *Table) *Table {
	return r.table.Swap(t)
}

// Table returns the currently installed table.
func (r *Router) Table() *Table {
	return r.table.Load()
}
