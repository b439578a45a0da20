package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stubkit/stubkit/pkg/plugin"
	"github.com/stubkit/stubkit/pkg/router"
)

// tracePlugin records every per-request hook it sees and can return a
// canned result for chosen hooks.
type tracePlugin struct {
	name    string
	hooks   []plugin.Hook
	trace   *[]string
	results map[plugin.Hook]plugin.Result
	respond map[plugin.Hook]*plugin.Response
	errs    *[]error
}

func (p *tracePlugin) Name() string         { return p.name }
func (p *tracePlugin) Version() string      { return "1.0.0" }
func (p *tracePlugin) Hooks() []plugin.Hook { return p.hooks }

func (p *tracePlugin) at(h plugin.Hook, rc *plugin.RequestContext) plugin.Result {
	*p.trace = append(*p.trace, fmt.Sprintf("%s:%s", p.name, h))
	if resp, ok := p.respond[h]; ok {
		rc.Response = resp
	}
	if res, ok := p.results[h]; ok {
		return res
	}
	return plugin.Continue()
}

func (p *tracePlugin) PreRequest(rc *plugin.RequestContext) plugin.Result {
	return p.at(plugin.PreRequest, rc)
}
func (p *tracePlugin) PostRoute(rc *plugin.RequestContext) plugin.Result {
	return p.at(plugin.PostRoute, rc)
}
func (p *tracePlugin) PreHandler(rc *plugin.RequestContext) plugin.Result {
	return p.at(plugin.PreHandler, rc)
}
func (p *tracePlugin) PostHandler(rc *plugin.RequestContext) plugin.Result {
	return p.at(plugin.PostHandler, rc)
}
func (p *tracePlugin) PreResponse(rc *plugin.RequestContext) plugin.Result {
	return p.at(plugin.PreResponse, rc)
}
func (p *tracePlugin) PostResponse(rc *plugin.RequestContext) plugin.Result {
	return p.at(plugin.PostResponse, rc)
}
func (p *tracePlugin) OnError(rc *plugin.RequestContext, err error) plugin.Result {
	*p.trace = append(*p.trace, p.name+":on_error")
	if p.errs != nil {
		*p.errs = append(*p.errs, err)
	}
	if resp, ok := p.respond[plugin.OnError]; ok {
		rc.Response = resp
	}
	return plugin.Continue()
}

// captureStatusPlugin records the status code visible at PreResponse.
type captureStatusPlugin struct {
	status *int
}

func (p *captureStatusPlugin) Name() string         { return "capture" }
func (p *captureStatusPlugin) Version() string      { return "1.0.0" }
func (p *captureStatusPlugin) Hooks() []plugin.Hook { return []plugin.Hook{plugin.PreResponse} }

func (p *captureStatusPlugin) PreResponse(rc *plugin.RequestContext) plugin.Result {
	if rc.Response != nil {
		*p.status = rc.Response.StatusCode
	}
	return plugin.Continue()
}

var allRequestHooks = []plugin.Hook{
	plugin.PreRequest, plugin.PostRoute, plugin.PreHandler,
	plugin.PostHandler, plugin.PreResponse, plugin.PostResponse,
	plugin.OnError,
}

func okHandler(status int, body string) router.Handler {
	return router.HandlerFunc(func(rc *plugin.RequestContext) error {
		rc.Response = plugin.Text(status, body)
		return nil
	})
}

func newDispatcher(t *testing.T, tbl *router.Table, plugins []plugin.Plugin, opts Options) *Dispatcher {
	t.Helper()
	reg := plugin.NewRegistry()
	for _, p := range plugins {
		require.NoError(t, reg.Register(context.Background(), p))
	}
	return New(reg, router.New(tbl), opts)
}

func TestDispatcherFullFlow(t *testing.T) {
	var trace []string
	tbl := router.NewTable()
	require.NoError(t, tbl.Add("GET", "/things/{id}", router.HandlerFunc(func(rc *plugin.RequestContext) error {
		trace = append(trace, "handler")
		rc.Response = plugin.Text(200, "thing "+rc.PathParams["id"])
		return nil
	})))

	d := newDispatcher(t, tbl, []plugin.Plugin{
		&tracePlugin{name: "p", hooks: allRequestHooks, trace: &trace},
	}, Options{})

	rec := httptest.NewRecorder()
	d.ServeHTTP(rec, httptest.NewRequest("GET", "/things/42", nil))

	assert.Equal(t, 200, rec.Code)
	assert.Equal(t, "thing 42", rec.Body.String())
	assert.Equal(t, []string{
		"p:pre_request", "p:post_route", "p:pre_handler",
		"handler",
		"p:post_handler", "p:pre_response", "p:post_response",
	}, trace)
}

func TestDispatcherNotFoundStillRunsCrossCuttingHooks(t *testing.T) {
	var trace []string
	d := newDispatcher(t, router.NewTable(), []plugin.Plugin{
		&tracePlugin{name: "p", hooks: allRequestHooks, trace: &trace},
	}, Options{})

	rec := httptest.NewRecorder()
	d.ServeHTTP(rec, httptest.NewRequest("GET", "/nonexistent", nil))

	assert.Equal(t, 404, rec.Code)
	assert.JSONEq(t, `{"error":"Not Found","status":404}`, rec.Body.String())

	// PostRoute/PreResponse/PostResponse observe the 404; the handler
	// stages never run.
	assert.Equal(t, []string{
		"p:pre_request", "p:post_route", "p:pre_response", "p:post_response",
	}, trace)

	postResponses := 0
	for _, step := range trace {
		if step == "p:post_response" {
			postResponses++
		}
	}
	assert.Equal(t, 1, postResponses)
}

func TestDispatcherPreHandlerHalt(t *testing.T) {
	var trace []string
	handlerRan := false
	tbl := router.NewTable()
	require.NoError(t, tbl.Add("GET", "/secure", router.HandlerFunc(func(rc *plugin.RequestContext) error {
		handlerRan = true
		rc.Response = plugin.Text(200, "secret")
		return nil
	})))

	var seenStatus int
	auth := &tracePlugin{
		name:    "auth",
		hooks:   []plugin.Hook{plugin.PreHandler},
		trace:   &trace,
		results: map[plugin.Hook]plugin.Result{plugin.PreHandler: plugin.Halt()},
		respond: map[plugin.Hook]*plugin.Response{plugin.PreHandler: plugin.Text(401, "unauthorized")},
	}
	observer := &tracePlugin{name: "obs", hooks: []plugin.Hook{plugin.PreResponse}, trace: &trace}

	reg := plugin.NewRegistry()
	require.NoError(t, reg.Register(context.Background(), auth))
	require.NoError(t, reg.Register(context.Background(), observer))
	require.NoError(t, reg.Register(context.Background(), &captureStatusPlugin{status: &seenStatus}))
	d := New(reg, router.New(tbl), Options{})

	rec := httptest.NewRecorder()
	d.ServeHTTP(rec, httptest.NewRequest("GET", "/secure", nil))

	assert.False(t, handlerRan)
	assert.Equal(t, 401, rec.Code)
	assert.Equal(t, "unauthorized", rec.Body.String())
	// PreResponse observed the exact response the auth plugin set.
	assert.Equal(t, 401, seenStatus)
	assert.Equal(t, []string{"auth:pre_handler", "obs:pre_response"}, trace)
}

func TestDispatcherPreRequestHaltWithoutResponse(t *testing.T) {
	var trace []string
	d := newDispatcher(t, router.NewTable(), []plugin.Plugin{
		&tracePlugin{
			name: "gate", hooks: []plugin.Hook{plugin.PreRequest}, trace: &trace,
			results: map[plugin.Hook]plugin.Result{plugin.PreRequest: plugin.Halt()},
		},
	}, Options{})

	rec := httptest.NewRecorder()
	d.ServeHTTP(rec, httptest.NewRequest("GET", "/anything", nil))

	assert.Equal(t, 204, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestDispatcherPluginFail(t *testing.T) {
	t.Run("synthesizes 500 and runs on_error", func(t *testing.T) {
		var trace []string
		var errs []error
		tbl := router.NewTable()
		require.NoError(t, tbl.Add("GET", "/x", okHandler(200, "ok")))

		d := newDispatcher(t, tbl, []plugin.Plugin{
			&tracePlugin{
				name: "bad", hooks: []plugin.Hook{plugin.PreHandler, plugin.OnError},
				trace: &trace, errs: &errs,
				results: map[plugin.Hook]plugin.Result{
					plugin.PreHandler: plugin.Fail(errors.New("backend gone")),
				},
			},
		}, Options{})

		rec := httptest.NewRecorder()
		d.ServeHTTP(rec, httptest.NewRequest("GET", "/x", nil))

		assert.Equal(t, 500, rec.Code)
		require.Len(t, errs, 1)
		var pe *PluginError
		require.ErrorAs(t, errs[0], &pe)
		assert.Equal(t, plugin.PreHandler, pe.Hook)
		assert.Contains(t, errs[0].Error(), "backend gone")
	})

	t.Run("on_error plugin may set custom response", func(t *testing.T) {
		var trace []string
		tbl := router.NewTable()
		require.NoError(t, tbl.Add("GET", "/x", okHandler(200, "ok")))

		d := newDispatcher(t, tbl, []plugin.Plugin{
			&tracePlugin{
				name: "bad", hooks: []plugin.Hook{plugin.PreHandler},
				trace: &trace,
				results: map[plugin.Hook]plugin.Result{
					plugin.PreHandler: plugin.Fail(errors.New("nope")),
				},
			},
			&tracePlugin{
				name: "shaper", hooks: []plugin.Hook{plugin.OnError},
				trace: &trace,
				respond: map[plugin.Hook]*plugin.Response{
					plugin.OnError: plugin.Text(503, "try later"),
				},
			},
		}, Options{})

		rec := httptest.NewRecorder()
		d.ServeHTTP(rec, httptest.NewRequest("GET", "/x", nil))

		assert.Equal(t, 503, rec.Code)
		assert.Equal(t, "try later", rec.Body.String())
	})
}

func TestDispatcherHandlerError(t *testing.T) {
	var errs []error
	var trace []string
	tbl := router.NewTable()
	require.NoError(t, tbl.Add("GET", "/broken", router.HandlerFunc(func(*plugin.RequestContext) error {
		return errors.New("template exploded")
	})))

	d := newDispatcher(t, tbl, []plugin.Plugin{
		&tracePlugin{name: "p", hooks: []plugin.Hook{plugin.OnError}, trace: &trace, errs: &errs},
	}, Options{})

	rec := httptest.NewRecorder()
	d.ServeHTTP(rec, httptest.NewRequest("GET", "/broken", nil))

	assert.Equal(t, 500, rec.Code)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "template exploded")
}

func TestDispatcherTimeout(t *testing.T) {
	var errs []error
	var trace []string
	tbl := router.NewTable()
	require.NoError(t, tbl.Add("GET", "/slow", router.HandlerFunc(func(rc *plugin.RequestContext) error {
		select {
		case <-rc.Context().Done():
			return rc.Context().Err()
		case <-time.After(5 * time.Second):
			rc.Response = plugin.Text(200, "too late")
			return nil
		}
	})))

	d := newDispatcher(t, tbl, []plugin.Plugin{
		&tracePlugin{name: "p", hooks: []plugin.Hook{plugin.OnError}, trace: &trace, errs: &errs},
	}, Options{Timeout: 20 * time.Millisecond})

	rec := httptest.NewRecorder()
	d.ServeHTTP(rec, httptest.NewRequest("GET", "/slow", nil))

	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrTimeout)
}

func TestDispatcherHandlerMiss(t *testing.T) {
	miss := router.HandlerFunc(func(*plugin.RequestContext) error { return router.ErrMiss })

	t.Run("miss without fallback yields 404", func(t *testing.T) {
		tbl := router.NewTable()
		require.NoError(t, tbl.Add("GET", "/maybe", miss))
		d := newDispatcher(t, tbl, nil, Options{})

		rec := httptest.NewRecorder()
		d.ServeHTTP(rec, httptest.NewRequest("GET", "/maybe", nil))
		assert.Equal(t, 404, rec.Code)
	})

	t.Run("miss falls through to fallback", func(t *testing.T) {
		tbl := router.NewTable()
		require.NoError(t, tbl.Add("GET", "/maybe", miss))
		d := newDispatcher(t, tbl, nil, Options{Fallback: okHandler(200, "static file")})

		rec := httptest.NewRecorder()
		d.ServeHTTP(rec, httptest.NewRequest("GET", "/maybe", nil))
		assert.Equal(t, 200, rec.Code)
		assert.Equal(t, "static file", rec.Body.String())
	})
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, 504, StatusFor(ErrTimeout))
	assert.Equal(t, 504, StatusFor(fmt.Errorf("wrapped: %w", context.DeadlineExceeded)))
	assert.Equal(t, 500, StatusFor(errors.New("anything else")))
}
