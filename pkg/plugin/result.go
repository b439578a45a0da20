package plugin

// Action is the outcome a hook callback reports to the dispatcher.
type Action int

const (
	// ActionContinue proceeds to the next plugin, then the next stage.
	ActionContinue Action = iota

	// ActionHalt skips the remaining plugins for this hook. For pre-stage
	// hooks (PreRequest, PostRoute, PreHandler) it also skips the stage's
	// primary action: the dispatcher jumps to PreResponse with whatever
	// response the plugin set on the RequestContext.
	ActionHalt

	// ActionFail aborts the request. The dispatcher invokes OnError hooks
	// with the failure reason and synthesizes an error response if none
	// was set.
	ActionFail
)

// String returns the action name.
func (a Action) String() string {
	switch a {
	case ActionContinue:
		return "Continue"
	case ActionHalt:
		return "Halt"
	case ActionFail:
		return "Fail"
	default:
		return "Unknown"
	}
}

// Result is returned by every per-request hook callback. The three-way
// outcome lets an auth plugin short-circuit (Halt with a 401 already set)
// without being conflated with a fatal internal error (Fail), and lets
// observability plugins run unconditionally by always returning Continue.
type Result struct {
	Action Action
	Err    error
}

// Continue reports that processing should proceed normally.
func Continue() Result {
	return Result{Action: ActionContinue}
}

// Halt short-circuits the current hook (and, for pre-stage hooks, the
// stage's primary action). The plugin is expected to have set a response
// on the RequestContext before returning Halt.
func Halt() Result {
	return Result{Action: ActionHalt}
}

// Fail aborts the request with the given reason.
func Fail(err error) Result {
	return Result{Action: ActionFail, Err: err}
}
