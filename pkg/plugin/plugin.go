// Package plugin defines the plugin contract for the stubkit request
// pipeline: the closed set of lifecycle hooks, the three-way hook result,
// the per-request context shared across hooks, and the registry that owns
// plugin registrations.
//
// A plugin declares the hooks it is interested in via Hooks() and
// implements one capability interface per declared hook. The registry
// checks the declared set against the implemented interfaces at
// registration time, so a missing callback is an immediate registration
// error rather than a silent no-op at request time.
package plugin

import "context"

// Plugin is implemented by every pipeline plugin. Callbacks for the
// declared hooks are provided through the capability interfaces below.
type Plugin interface {
	// Name returns the unique plugin name. Registering a second plugin
	// with the same name fails.
	Name() string

	// Version returns the plugin version string, informational only.
	Version() string

	// Hooks returns the lifecycle hooks this plugin wants to receive.
	Hooks() []Hook
}

// StartupHandler is required of plugins declaring OnStartup. It runs with
// the process-wide context and may only succeed or fail; there is no Halt
// at startup.
type StartupHandler interface {
	OnStartup(ctx context.Context) error
}

// ShutdownHandler is required of plugins declaring OnShutdown.
type ShutdownHandler interface {
	OnShutdown(ctx context.Context) error
}

// PreRequestHandler runs before routing.
type PreRequestHandler interface {
	PreRequest(*RequestContext) Result
}

// PostRouteHandler runs after routing, whether or not a route matched.
type PostRouteHandler interface {
	PostRoute(*RequestContext) Result
}

// PreHandlerHandler runs after PostRoute and before the handler. A Halt
// here skips the handler entirely.
type PreHandlerHandler interface {
	PreHandler(*RequestContext) Result
}

// PostHandlerHandler runs after the handler has produced a response.
type PostHandlerHandler interface {
	PostHandler(*RequestContext) Result
}

// PreResponseHandler runs immediately before the response is written.
type PreResponseHandler interface {
	PreResponse(*RequestContext) Result
}

// PostResponseHandler runs after the response has been written. It cannot
// alter the response any more; Halt only skips later PostResponse plugins.
type PostResponseHandler interface {
	PostResponse(*RequestContext) Result
}

// ErrorHandler runs when any stage fails. It receives the failure reason
// and may set a custom response on the context; the dispatcher then
// proceeds to PreResponse/PostResponse as normal.
type ErrorHandler interface {
	OnError(*RequestContext, error) Result
}

// Info describes a registered plugin for listings and the admin surface.
type Info struct {
	Name    string   `json:"name"`
	Version string   `json:"version"`
	Enabled bool     `json:"enabled"`
	Hooks   []string `json:"hooks"`
}
