package matching

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Evaluator evaluates "when" expressions over an incoming request, e.g.
//
//	method == "POST" && headers["X-Tenant"] == "acme"
//
// Compiled programs are cached by expression text; the environment shape
// is fixed, so the expression alone is a sufficient cache key.
type Evaluator struct {
	mu    sync.RWMutex
	cache map[string]*vm.Program
}

// NewEvaluator creates an evaluator with an empty program cache.
func NewEvaluator() *Evaluator {
	return &Evaluator{cache: make(map[string]*vm.Program)}
}

func requestEnv(r *http.Request, pathParams map[string]string) map[string]any {
	headers := make(map[string]string, len(r.Header))
	for name := range r.Header {
		headers[name] = r.Header.Get(name)
	}
	query := make(map[string]string)
	for name := range r.URL.Query() {
		query[name] = r.URL.Query().Get(name)
	}
	if pathParams == nil {
		pathParams = map[string]string{}
	}
	return map[string]any{
		"method":  r.Method,
		"path":    r.URL.Path,
		"headers": headers,
		"query":   query,
		"params":  pathParams,
	}
}

// Eval evaluates the expression against the request. Non-boolean results
// and runtime failures are errors, so a broken predicate is visible
// rather than silently unmatched.
func (e *Evaluator) Eval(expression string, r *http.Request, pathParams map[string]string) (bool, error) {
	program, err := e.compile(expression)
	if err != nil {
		return false, fmt.Errorf("compile %q: %w", expression, err)
	}

	result, err := expr.Run(program, requestEnv(r, pathParams))
	if err != nil {
		return false, fmt.Errorf("eval %q: %w", expression, err)
	}

	b, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("expression %q is not boolean", expression)
	}
	return b, nil
}

func (e *Evaluator) compile(expression string) (*vm.Program, error) {
	e.mu.RLock()
	if program, ok := e.cache[expression]; ok {
		e.mu.RUnlock()
		return program, nil
	}
	e.mu.RUnlock()

	program, err := expr.Compile(expression, expr.Env(map[string]any{
		"method":  "",
		"path":    "",
		"headers": map[string]string{},
		"query":   map[string]string{},
		"params":  map[string]string{},
	}))
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	// Another goroutine may have compiled the same expression.
	if existing, ok := e.cache[expression]; ok {
		e.mu.Unlock()
		return existing, nil
	}
	e.cache[expression] = program
	e.mu.Unlock()
	return program, nil
}
