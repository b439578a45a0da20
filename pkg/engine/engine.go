// Package engine composes the mock matcher, the template renderer, and
// per-scenario state into a single request handler. Each request moves
// through matching, rendering, and an optional cooperative delay before
// the response is handed back to the pipeline; an unmatched request is a
// miss, not an error.
package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	mathrand "math/rand/v2"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/stubkit/stubkit/internal/matching"
	"github.com/stubkit/stubkit/pkg/logging"
	"github.com/stubkit/stubkit/pkg/plugin"
	"github.com/stubkit/stubkit/pkg/router"
	"github.com/stubkit/stubkit/pkg/scenario"
	"github.com/stubkit/stubkit/pkg/template"
)

// maxBodyBytes caps how much of a request body is buffered for matching.
const maxBodyBytes = 10 << 20

// Options configures an Engine.
type Options struct {
	// Logger defaults to a no-op logger when nil.
	Logger *slog.Logger

	// BaseDir anchors bodyFile resolution. Empty means the process
	// working directory.
	BaseDir string

	// DefaultDelayMs applies to every matched route that does not
	// specify its own delay.
	DefaultDelayMs int
}

// Engine serves mock responses for a scenario set. The set is swapped
// atomically on reload; scenario state survives a reload so counters
// keep their values across config edits.
type Engine struct {
	set          atomic.Pointer[scenario.Set]
	matcher      *matching.Matcher
	renderer     *template.Engine
	states       *scenario.StateTable
	logger       *slog.Logger
	baseDir      string
	defaultDelay time.Duration

	// seed produces the per-render random seed. Tests replace it for
	// deterministic output.
	seed func() uint64
}

// New creates an engine serving the given scenario set.
func New(set *scenario.Set, opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	e := &Engine{
		matcher:      matching.NewMatcher(logger),
		renderer:     template.New(),
		states:       scenario.NewStateTable(),
		logger:       logger,
		baseDir:      opts.BaseDir,
		defaultDelay: time.Duration(opts.DefaultDelayMs) * time.Millisecond,
		seed:         mathrand.Uint64,
	}
	e.set.Store(set)
	return e
}

// Set returns the currently installed scenario set.
func (e *Engine) Set() *scenario.Set {
	return e.set.Load()
}

// Swap atomically installs a new scenario set. In-flight requests keep
// the set they matched against; scenario state is preserved.
func (e *Engine) Swap(set *scenario.Set) {
	e.set.Store(set)
}

// States exposes the per-scenario state table, e.g. for an admin reset.
func (e *Engine) States() *scenario.StateTable {
	return e.states
}

// Handle implements router.Handler. It returns router.ErrMiss when no
// mock route matches, a render or read failure as an error, and
// otherwise sets the response on the context.
func (e *Engine) Handle(rc *plugin.RequestContext) error {
	body, err := e.readBody(rc.Request)
	if err != nil {
		return fmt.Errorf("read request body: %w", err)
	}

	result, ok := e.matcher.Match(e.Set(), rc.Request, body)
	if !ok {
		return router.ErrMiss
	}
	rc.Scenario = result.Scenario.Name
	for k, v := range result.PathParams {
		rc.PathParams[k] = v
	}

	resp, err := e.respond(rc, result, body)
	if err != nil {
		return fmt.Errorf("scenario %q: %w", result.Scenario.Name, err)
	}

	if err := e.delay(rc, result.Route); err != nil {
		return err
	}

	rc.Response = resp
	return nil
}

// readBody buffers the request body for matching and rendering, then
// restores it so later stages can read it again.
func (e *Engine) readBody(r *http.Request) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))
	return body, nil
}

// respond builds the response for a matched route, rendering body and
// headers when the route's template flag is set.
func (e *Engine) respond(rc *plugin.RequestContext, result *matching.Result, reqBody []byte) (*plugin.Response, error) {
	spec := result.Route.Response

	body, err := e.loadBody(spec)
	if err != nil {
		return nil, err
	}
	headers := spec.Headers

	if spec.Template {
		ctx := template.NewContext(rc.Request, result.PathParams).
			WithSeed(e.seed()).
			WithState(e.states.ForScenario(result.Scenario.Name)).
			WithBody(reqBody)

		body, err = e.renderer.Render(body, ctx)
		if err != nil {
			return nil, err
		}
		headers, err = e.renderer.RenderHeaders(headers, ctx)
		if err != nil {
			return nil, err
		}
	}

	resp := plugin.NewResponse(spec.StatusCode)
	for name, value := range headers {
		resp.Headers.Set(name, value)
	}
	if resp.Headers.Get("Content-Type") == "" && body != "" {
		resp.Headers.Set("Content-Type", sniffContentType(body))
	}
	if rc.Request.Method != http.MethodHead {
		resp.Body = []byte(body)
	}
	return resp, nil
}

// loadBody returns the inline body or the contents of bodyFile.
func (e *Engine) loadBody(spec *scenario.Response) (string, error) {
	if spec.BodyFile == "" {
		return spec.Body, nil
	}
	path, ok := safeBodyFilePath(spec.BodyFile)
	if !ok {
		return "", fmt.Errorf("bodyFile %q: path escapes base directory", spec.BodyFile)
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(e.baseDir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("bodyFile: %w", err)
	}
	return string(data), nil
}

// safeBodyFilePath cleans a config-sourced file path and rejects
// traversal out of the base directory. Absolute paths are allowed since
// the path comes from the operator's own config, not the request.
func safeBodyFilePath(path string) (string, bool) {
	if path == "" || strings.ContainsRune(path, '\\') {
		return "", false
	}
	clean := filepath.Clean(path)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", false
	}
	return clean, true
}

// delay suspends the request for the route's delay (or the engine
// default). It is cooperative: cancellation wakes the request
// immediately and nothing else blocks on it.
func (e *Engine) delay(rc *plugin.RequestContext, route *scenario.Route) error {
	d := e.defaultDelay
	if route.Response.DelayMs > 0 {
		d = time.Duration(route.Response.DelayMs) * time.Millisecond
	}
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-rc.Context().Done():
		return rc.Context().Err()
	}
}

// sniffContentType guesses a Content-Type for bodies whose route did not
// declare one.
func sniffContentType(body string) string {
	trimmed := strings.TrimSpace(body)
	if json.Valid([]byte(trimmed)) && (strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[")) {
		return "application/json"
	}
	return http.DetectContentType([]byte(body))
}
