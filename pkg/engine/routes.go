package engine

import (
	"net/http"
	"strings"

	"github.com/stubkit/stubkit/pkg/router"
	"github.com/stubkit/stubkit/pkg/scenario"
)

// anyMethods is the expansion of an "ANY" mock route into route table
// entries.
var anyMethods = []string{
	http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch,
	http.MethodDelete, http.MethodHead, http.MethodOptions,
}

// Routes builds a route table entry for every mock route in the current
// scenario set, all pointing at this engine. Disabled scenarios are
// included: their requests still route here and fall through as misses,
// so toggling a scenario needs no table rebuild. Duplicate method+path
// pairs across scenarios collapse into one entry.
func (e *Engine) Routes() (*router.Table, error) {
	tbl := router.NewTable()
	seen := make(map[string]bool)

	add := func(method, path string) error {
		key := method + " " + path
		if seen[key] {
			return nil
		}
		seen[key] = true
		return tbl.Add(method, path, e)
	}

	for _, sc := range e.Set().All() {
		for _, route := range sc.Routes {
			method := strings.ToUpper(route.Method)
			if method == "ANY" {
				for _, m := range anyMethods {
					if err := add(m, route.Path); err != nil {
						return nil, err
					}
				}
				continue
			}
			if err := add(method, route.Path); err != nil {
				return nil, err
			}
		}
	}
	return tbl, nil
}

// Reload installs a new scenario set and rebuilds the route table on the
// given router in one step.
func (e *Engine) Reload(set *scenario.Set, rt *router.Router) error {
	previous := e.Set()
	e.Swap(set)
	tbl, err := e.Routes()
	if err != nil {
		e.Swap(previous)
		return err
	}
	rt.Swap(tbl)
	return nil
}
