package template

import (
	"errors"
	"fmt"
)

// Rendering failure kinds. A broken template surfaces as a handler
// failure; mock authors see the error, never garbled output.
var (
	// ErrUnknownHelper means the template references a helper or
	// variable that does not exist.
	ErrUnknownHelper = errors.New("unknown helper")

	// ErrBadArguments means a helper was called with the wrong arity or
	// argument types.
	ErrBadArguments = errors.New("bad arguments")
)

// Error wraps a rendering failure with the offending expression.
type Error struct {
	Expr string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("template expression {{%s}}: %v", e.Expr, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func unknownHelper(expr string) error {
	return &Error{Expr: expr, Err: ErrUnknownHelper}
}

func badArguments(expr, detail string) error {
	return &Error{Expr: expr, Err: fmt.Errorf("%w: %s", ErrBadArguments, detail)}
}
