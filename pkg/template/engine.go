// Package template renders mock response bodies and headers. Templates
// embed {{expression}} placeholders: request variables (path.id,
// query.page), generators (uuid, timestamp, random.int), deterministic
// fake data (fake.name, fake.email), encoders (base64, urlencode, json),
// and stateful counters backed by the owning scenario's state.
//
// Rendering is strict. An unknown helper or a helper called with wrong
// arguments fails the render; the error propagates to the mock engine as
// a handler failure instead of producing garbled output.
package template

import (
	"regexp"
	"strconv"
	"strings"
)

// exprRegex matches {{expression}} placeholders with optional padding.
var exprRegex = regexp.MustCompile(`\{\{\s*([^}]+?)\s*\}\}`)

// Call patterns for parenthesized helpers.
var (
	randomIntPattern    = regexp.MustCompile(`^random\.int\((-?\d+),\s*(-?\d+)\)$`)
	randomFloatPattern  = regexp.MustCompile(`^random\.float\(([0-9.-]+),\s*([0-9.-]+)(?:,\s*(\d+))?\)$`)
	randomStringPattern = regexp.MustCompile(`^random\.string\((\d+)\)$`)
	counterPattern      = regexp.MustCompile(`^counter\("([^"]+)"(?:,\s*(-?\d+))?\)$`)
	timestampPattern    = regexp.MustCompile(`^timestamp\("([^"]*)"\)$`)
	callPattern         = regexp.MustCompile(`^([a-z][\w.]*)\((.*)\)$`)
)

// Engine renders templates. It is stateless and safe for concurrent use;
// all per-render state lives in the Context.
type Engine struct{}

// New creates a template engine.
func New() *Engine {
	return &Engine{}
}

// Render evaluates every {{expression}} in tmpl against ctx. The first
// failing expression aborts the render.
func (e *Engine) Render(tmpl string, ctx *Context) (string, error) {
	locs := exprRegex.FindAllStringSubmatchIndex(tmpl, -1)
	if locs == nil {
		return tmpl, nil
	}

	var b strings.Builder
	b.Grow(len(tmpl))
	last := 0
	for _, loc := range locs {
		b.WriteString(tmpl[last:loc[0]])
		expr := strings.TrimSpace(tmpl[loc[2]:loc[3]])
		value, err := e.evaluate(expr, ctx)
		if err != nil {
			return "", err
		}
		b.WriteString(value)
		last = loc[1]
	}
	b.WriteString(tmpl[last:])
	return b.String(), nil
}

// RenderHeaders renders every header value in place, returning a new map.
func (e *Engine) RenderHeaders(headers map[string]string, ctx *Context) (map[string]string, error) {
	if len(headers) == 0 {
		return headers, nil
	}
	out := make(map[string]string, len(headers))
	for name, value := range headers {
		rendered, err := e.Render(value, ctx)
		if err != nil {
			return nil, err
		}
		out[name] = rendered
	}
	return out, nil
}

func (e *Engine) evaluate(expr string, ctx *Context) (string, error) {
	// Zero-argument helpers and request variables.
	switch expr {
	case "uuid":
		return helperUUID(ctx), nil
	case "timestamp", "timestamp.unix":
		return helperTimestampUnix(), nil
	case "timestamp.unix_ms":
		return helperTimestampUnixMilli(), nil
	case "timestamp.iso", "timestamp.rfc3339":
		return helperTimestampRFC3339(), nil
	case "random.int":
		return helperRandomInt(ctx, 0, 100)
	case "random.float":
		return helperRandomFloat(ctx, 0, 1, 2)
	case "random.string":
		return helperRandomString(ctx, 16), nil
	case "random.bool":
		return strconv.FormatBool(ctx.intN(2) == 1), nil
	case "request.method":
		return ctx.Method, nil
	case "request.path":
		return ctx.Path, nil
	case "request.body":
		return string(ctx.Body), nil
	}

	// Dotted variable lookups.
	if name, ok := strings.CutPrefix(expr, "request.header."); ok {
		// Absent headers render empty, like absent query parameters.
		return ctx.header(name), nil
	}
	if field, ok := strings.CutPrefix(expr, "request.body."); ok {
		return helperBodyField(expr, field, ctx)
	}
	if name, ok := strings.CutPrefix(expr, "path."); ok {
		value, found := ctx.PathParams[name]
		if !found {
			return "", badArguments(expr, "unknown path parameter "+strconv.Quote(name))
		}
		return value, nil
	}
	if name, ok := strings.CutPrefix(expr, "query."); ok {
		// Absent query parameters render empty; callers commonly template
		// optional parameters.
		return ctx.Query[name], nil
	}
	if name, ok := strings.CutPrefix(expr, "state."); ok {
		return helperStateLookup(expr, name, ctx)
	}
	if category, ok := strings.CutPrefix(expr, "fake."); ok {
		return helperFake(expr, category, ctx)
	}

	// Parenthesized helpers.
	if m := randomIntPattern.FindStringSubmatch(expr); m != nil {
		lo, _ := strconv.Atoi(m[1])
		hi, _ := strconv.Atoi(m[2])
		if hi < lo {
			return "", badArguments(expr, "max below min")
		}
		return helperRandomInt(ctx, lo, hi)
	}
	if m := randomFloatPattern.FindStringSubmatch(expr); m != nil {
		return helperRandomFloatArgs(expr, m, ctx)
	}
	if m := randomStringPattern.FindStringSubmatch(expr); m != nil {
		length, _ := strconv.Atoi(m[1])
		if length <= 0 || length > 4096 {
			return "", badArguments(expr, "length out of range")
		}
		return helperRandomString(ctx, length), nil
	}
	if m := counterPattern.FindStringSubmatch(expr); m != nil {
		return helperCounter(expr, m, ctx)
	}
	if m := timestampPattern.FindStringSubmatch(expr); m != nil {
		if m[1] == "" {
			return "", badArguments(expr, "empty format")
		}
		return helperTimestampFormat(m[1]), nil
	}

	if m := callPattern.FindStringSubmatch(expr); m != nil {
		return e.call(expr, m[1], m[2], ctx)
	}

	return "", unknownHelper(expr)
}

// call dispatches generic name(arg) helpers whose argument is a quoted
// literal or a variable reference.
func (e *Engine) call(expr, name, rawArg string, ctx *Context) (string, error) {
	switch name {
	case "base64":
		value, err := e.resolveArg(expr, rawArg, ctx)
		if err != nil {
			return "", err
		}
		return helperBase64(value), nil
	case "urlencode":
		value, err := e.resolveArg(expr, rawArg, ctx)
		if err != nil {
			return "", err
		}
		return helperURLEncode(value), nil
	case "json":
		value, err := e.resolveArgValue(expr, rawArg, ctx)
		if err != nil {
			return "", err
		}
		return helperJSON(expr, value)
	case "random.int", "random.float", "random.string", "counter", "timestamp":
		// A known helper that fell through its call pattern was called
		// with malformed arguments.
		return "", badArguments(expr, "malformed arguments")
	}
	return "", unknownHelper(expr)
}

// resolveArg resolves a helper argument to a string.
func (e *Engine) resolveArg(expr, rawArg string, ctx *Context) (string, error) {
	value, err := e.resolveArgValue(expr, rawArg, ctx)
	if err != nil {
		return "", err
	}
	return stringify(value)
}

// resolveArgValue resolves a helper argument: a double-quoted literal, a
// number, or a variable reference (path.x, query.x, state.x,
// request.method, request.path).
func (e *Engine) resolveArgValue(expr, rawArg string, ctx *Context) (any, error) {
	arg := strings.TrimSpace(rawArg)
	if arg == "" {
		return nil, badArguments(expr, "missing argument")
	}
	if len(arg) >= 2 && arg[0] == '"' && arg[len(arg)-1] == '"' {
		return arg[1 : len(arg)-1], nil
	}
	if n, err := strconv.ParseFloat(arg, 64); err == nil {
		return n, nil
	}

	switch {
	case arg == "request.method":
		return ctx.Method, nil
	case arg == "request.path":
		return ctx.Path, nil
	case arg == "request.body":
		return string(ctx.Body), nil
	case strings.HasPrefix(arg, "request.header."):
		return ctx.header(arg[len("request.header."):]), nil
	case strings.HasPrefix(arg, "path."):
		name := arg[len("path."):]
		value, ok := ctx.PathParams[name]
		if !ok {
			return nil, badArguments(expr, "unknown path parameter "+strconv.Quote(name))
		}
		return value, nil
	case strings.HasPrefix(arg, "query."):
		return ctx.Query[arg[len("query."):]], nil
	case strings.HasPrefix(arg, "state."):
		if ctx.State == nil {
			return nil, badArguments(expr, "no scenario state available")
		}
		value, ok := ctx.State.Get(arg[len("state."):])
		if !ok {
			return nil, badArguments(expr, "unknown state key "+strconv.Quote(arg[len("state."):]))
		}
		return value, nil
	}
	return nil, badArguments(expr, "unresolvable argument "+strconv.Quote(arg))
}
