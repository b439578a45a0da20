package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/stubkit/stubkit/pkg/plugin"
)

// Sentinel conditions surfaced to OnError plugins. Routing and matcher
// misses are deliberately absent: those are control-flow outcomes that
// yield a 404, never errors.
var (
	// ErrTimeout means the dispatcher's ceiling fired while the request
	// was still in PreHandler, the handler, or PostHandler.
	ErrTimeout = errors.New("request timed out")

	// ErrClientDisconnected means the connection closed before a response
	// was produced. No response is sent for it.
	ErrClientDisconnected = errors.New("client disconnected")
)

// PluginError wraps the reason a plugin returned Fail, recording which
// plugin hook stage aborted the request.
type PluginError struct {
	Hook plugin.Hook
	Err  error
}

func (e *PluginError) Error() string {
	return fmt.Sprintf("plugin failed at %s: %v", e.Hook, e.Err)
}

func (e *PluginError) Unwrap() error { return e.Err }

// StatusFor maps an error condition to the response status the
// dispatcher synthesizes when no OnError plugin set one.
func StatusFor(err error) int {
	if errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// synthesize builds the generic error response for err.
func synthesize(err error) *plugin.Response {
	status := StatusFor(err)
	return plugin.JSON(status, map[string]any{
		"error":  http.StatusText(status),
		"status": status,
	})
}

// notFoundResponse is the response synthesized for routing and handler
// misses.
func notFoundResponse() *plugin.Response {
	return plugin.JSON(http.StatusNotFound, map[string]any{
		"error":  "Not Found",
		"status": http.StatusNotFound,
	})
}
