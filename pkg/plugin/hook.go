package plugin

// Hook identifies a point in the request lifecycle where plugins may
// observe or alter processing. OnStartup and OnShutdown are process-wide;
// the remaining hooks fire once per request in the order listed.
type Hook int

// Lifecycle hooks. The set is closed: the dispatcher drives exactly these
// nine points and plugins cannot define new ones.
const (
	OnStartup Hook = iota
	OnShutdown
	PreRequest
	PostRoute
	PreHandler
	PostHandler
	PreResponse
	PostResponse
	OnError
)

// String returns the hook name as used in logs and plugin listings.
func (h Hook) String() string {
	switch h {
	case OnStartup:
		return "on_startup"
	case OnShutdown:
		return "on_shutdown"
	case PreRequest:
		return "pre_request"
	case PostRoute:
		return "post_route"
	case PreHandler:
		return "pre_handler"
	case PostHandler:
		return "post_handler"
	case PreResponse:
		return "pre_response"
	case PostResponse:
		return "post_response"
	case OnError:
		return "on_error"
	default:
		return "unknown"
	}
}

// AllHooks returns every hook in lifecycle order.
func AllHooks() []Hook {
	return []Hook{
		OnStartup, OnShutdown,
		PreRequest, PostRoute, PreHandler,
		PostHandler, PreResponse, PostResponse,
		OnError,
	}
}

// IsRequestHook reports whether the hook fires per-request (as opposed to
// the process-wide OnStartup/OnShutdown).
func (h Hook) IsRequestHook() bool {
	return h != OnStartup && h != OnShutdown
}
