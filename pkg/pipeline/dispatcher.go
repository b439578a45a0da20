// Package pipeline drives a request through the plugin lifecycle hooks,
// the router, and the resolved handler. The dispatcher is the only
// component that writes responses to the wire, so every request produces
// exactly one response (or none, when the client disconnected).
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/stubkit/stubkit/pkg/logging"
	"github.com/stubkit/stubkit/pkg/plugin"
	"github.com/stubkit/stubkit/pkg/router"
)

// Options configures a Dispatcher.
type Options struct {
	// Timeout is the per-request ceiling. Requests still in
	// PreHandler/Handler/PostHandler when it fires are aborted with a
	// 504. Zero disables the ceiling.
	Timeout time.Duration

	// Fallback handles requests the routed handler declined with
	// router.ErrMiss, e.g. a static file server behind the mock engine.
	// Nil means misses become 404s.
	Fallback router.Handler

	// Logger defaults to a no-op logger when nil.
	Logger *slog.Logger
}

// Dispatcher implements http.Handler over a plugin registry and a router.
type Dispatcher struct {
	registry *plugin.Registry
	router   *router.Router
	fallback router.Handler
	timeout  time.Duration
	logger   *slog.Logger
}

// New creates a dispatcher.
func New(reg *plugin.Registry, rt *router.Router, opts Options) *Dispatcher {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	return &Dispatcher{
		registry: reg,
		router:   rt,
		fallback: opts.Fallback,
		timeout:  opts.Timeout,
		logger:   logger,
	}
}

// ServeHTTP runs the full hook pipeline for one request.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if d.timeout > 0 {
		ctx, cancel := context.WithTimeout(r.Context(), d.timeout)
		defer cancel()
		r = r.WithContext(ctx)
	}
	d.run(plugin.NewRequestContext(r), w)
}

func (d *Dispatcher) run(rc *plugin.RequestContext, w http.ResponseWriter) {
	switch res := d.registry.Dispatch(plugin.PreRequest, rc); res.Action {
	case plugin.ActionFail:
		d.fail(rc, w, &PluginError{Hook: plugin.PreRequest, Err: res.Err})
		return
	case plugin.ActionHalt:
		d.respond(rc, w)
		return
	}

	match, routed := d.router.Resolve(rc.Request.Method, rc.Request.URL.Path)
	if routed {
		rc.Route = match.Route.Pattern
		for k, v := range match.Params {
			rc.PathParams[k] = v
		}
	} else {
		rc.Response = notFoundResponse()
	}

	// PostRoute runs whether or not a route matched, so cross-cutting
	// plugins observe 404s too.
	switch res := d.registry.Dispatch(plugin.PostRoute, rc); res.Action {
	case plugin.ActionFail:
		d.fail(rc, w, &PluginError{Hook: plugin.PostRoute, Err: res.Err})
		return
	case plugin.ActionHalt:
		d.respond(rc, w)
		return
	}

	if !routed {
		d.respond(rc, w)
		return
	}

	if d.aborted(rc, w) {
		return
	}

	switch res := d.registry.Dispatch(plugin.PreHandler, rc); res.Action {
	case plugin.ActionFail:
		d.fail(rc, w, &PluginError{Hook: plugin.PreHandler, Err: res.Err})
		return
	case plugin.ActionHalt:
		d.respond(rc, w)
		return
	}

	if err := d.handle(match.Route.Handler, rc); err != nil {
		switch {
		case errors.Is(err, context.Canceled):
			d.fail(rc, w, ErrClientDisconnected)
		case errors.Is(err, context.DeadlineExceeded):
			d.fail(rc, w, ErrTimeout)
		default:
			d.fail(rc, w, err)
		}
		return
	}

	if d.aborted(rc, w) {
		return
	}

	if res := d.registry.Dispatch(plugin.PostHandler, rc); res.Action == plugin.ActionFail {
		d.fail(rc, w, &PluginError{Hook: plugin.PostHandler, Err: res.Err})
		return
	}

	d.respond(rc, w)
}

// handle invokes the routed handler, falling through to the fallback
// handler on a miss. A miss with no fallback (or a fallback that also
// misses) yields a 404 response, not an error.
func (d *Dispatcher) handle(h router.Handler, rc *plugin.RequestContext) error {
	err := h.Handle(rc)
	if err == nil {
		return nil
	}
	if !errors.Is(err, router.ErrMiss) {
		return err
	}
	if d.fallback != nil {
		err = d.fallback.Handle(rc)
		if err == nil {
			return nil
		}
		if !errors.Is(err, router.ErrMiss) {
			return err
		}
	}
	rc.Response = notFoundResponse()
	return nil
}

// aborted checks the request context between stages and finalizes the
// request if its deadline fired or the client went away.
func (d *Dispatcher) aborted(rc *plugin.RequestContext, w http.ResponseWriter) bool {
	switch rc.Context().Err() {
	case context.DeadlineExceeded:
		d.fail(rc, w, ErrTimeout)
		return true
	case context.Canceled:
		d.fail(rc, w, ErrClientDisconnected)
		return true
	}
	return false
}

// fail surfaces cause to OnError plugins, synthesizes a response from the
// error kind if no plugin set one, and sends it. ClientDisconnected skips
// the response path entirely.
func (d *Dispatcher) fail(rc *plugin.RequestContext, w http.ResponseWriter, cause error) {
	d.logger.Error("request failed",
		"method", rc.Request.Method,
		"path", rc.Request.URL.Path,
		"error", cause,
	)
	d.registry.DispatchError(rc, cause)
	if errors.Is(cause, ErrClientDisconnected) {
		return
	}
	if rc.Response == nil {
		rc.Response = synthesize(cause)
	}
	d.respond(rc, w)
}

// respond runs PreResponse, writes the response, then runs PostResponse.
// Failures this late cannot restart the pipeline; they go to OnError and
// the request still completes with whatever response exists.
func (d *Dispatcher) respond(rc *plugin.RequestContext, w http.ResponseWriter) {
	if res := d.registry.Dispatch(plugin.PreResponse, rc); res.Action == plugin.ActionFail {
		cause := &PluginError{Hook: plugin.PreResponse, Err: res.Err}
		d.logger.Error("pre_response plugin failed", "error", cause)
		d.registry.DispatchError(rc, cause)
		if rc.Response == nil {
			rc.Response = synthesize(cause)
		}
	}

	if rc.Response == nil {
		// A pre-stage Halt with no response set still completes.
		rc.Response = plugin.NewResponse(http.StatusNoContent)
	}

	if rc.Context().Err() == context.Canceled {
		d.registry.DispatchError(rc, ErrClientDisconnected)
		return
	}

	if err := rc.Response.WriteTo(w); err != nil {
		d.logger.Debug("response write failed",
			"method", rc.Request.Method,
			"path", rc.Request.URL.Path,
			"error", err,
		)
	}

	if res := d.registry.Dispatch(plugin.PostResponse, rc); res.Action == plugin.ActionFail {
		cause := &PluginError{Hook: plugin.PostResponse, Err: res.Err}
		d.logger.Error("post_response plugin failed", "error", cause)
		d.registry.DispatchError(rc, cause)
	}
}
