package plugin

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrDuplicateName is returned when a plugin is registered under a name
// that is already taken. Re-registering never silently replaces.
var ErrDuplicateName = errors.New("plugin name already registered")

// registration is the registry's record for one plugin. The hook set is
// frozen at registration time.
type registration struct {
	plugin  Plugin
	hooks   map[Hook]bool
	enabled bool
}

// Registry owns plugin registrations and drives hook callbacks in
// registration order.
//
// The registry is read-locked for the duration of each Dispatch call and
// write-locked during Register/Unregister, so a registration in progress
// blocks new dispatches from starting and no request ever observes a
// half-registered plugin set. Hooks must not mutate the registry
// mid-dispatch; doing so would self-deadlock, which surfaces the
// programming error immediately instead of corrupting state.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]*registration
	order  []*registration
}

// NewRegistry creates an empty plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]*registration),
	}
}

// Register adds a plugin. It fails with ErrDuplicateName if the name is
// taken, and with a descriptive error if the plugin declares a hook
// without implementing the matching capability interface. If the plugin
// declares OnStartup, its startup callback runs immediately; a startup
// failure leaves the plugin unregistered.
func (r *Registry) Register(ctx context.Context, p Plugin) error {
	if p == nil {
		return errors.New("cannot register nil plugin")
	}
	name := p.Name()
	if name == "" {
		return errors.New("plugin name cannot be empty")
	}

	reg := &registration{
		plugin:  p,
		hooks:   make(map[Hook]bool, len(p.Hooks())),
		enabled: true,
	}
	for _, h := range p.Hooks() {
		if err := checkCapability(p, h); err != nil {
			return fmt.Errorf("plugin %q: %w", name, err)
		}
		reg.hooks[h] = true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}

	if reg.hooks[OnStartup] {
		if err := p.(StartupHandler).OnStartup(ctx); err != nil {
			return fmt.Errorf("plugin %q startup failed: %w", name, err)
		}
	}

	r.byName[name] = reg
	r.order = append(r.order, reg)
	return nil
}

// checkCapability verifies that p implements the callback interface for h.
func checkCapability(p Plugin, h Hook) error {
	var ok bool
	switch h {
	case OnStartup:
		_, ok = p.(StartupHandler)
	case OnShutdown:
		_, ok = p.(ShutdownHandler)
	case PreRequest:
		_, ok = p.(PreRequestHandler)
	case PostRoute:
		_, ok = p.(PostRouteHandler)
	case PreHandler:
		_, ok = p.(PreHandlerHandler)
	case PostHandler:
		_, ok = p.(PostHandlerHandler)
	case PreResponse:
		_, ok = p.(PreResponseHandler)
	case PostResponse:
		_, ok = p.(PostResponseHandler)
	case OnError:
		_, ok = p.(ErrorHandler)
	default:
		return fmt.Errorf("unknown hook %d", h)
	}
	if !ok {
		return fmt.Errorf("declares %s but does not implement its callback interface", h)
	}
	return nil
}

// Unregister removes a plugin by name, running its shutdown callback if
// declared. Returns an error when no such plugin exists.
func (r *Registry) Unregister(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	reg, ok := r.byName[name]
	if !ok {
		return fmt.Errorf("plugin %q not registered", name)
	}

	delete(r.byName, name)
	for i, other := range r.order {
		if other == reg {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}

	if reg.hooks[OnShutdown] {
		if err := reg.plugin.(ShutdownHandler).OnShutdown(ctx); err != nil {
			return fmt.Errorf("plugin %q shutdown failed: %w", name, err)
		}
	}
	return nil
}

// SetEnabled toggles a plugin without unregistering it. Disabled plugins
// are skipped by Dispatch. Returns false when the name is unknown.
func (r *Registry) SetEnabled(name string, enabled bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.byName[name]
	if !ok {
		return false
	}
	reg.enabled = enabled
	return true
}

// Dispatch invokes every enabled plugin that declared hook, in
// registration order, passing the shared request context. It stops early
// on Halt (returning Halt) or Fail (returning Fail with the reason).
// OnStartup runs at registration, OnShutdown via Shutdown, and OnError
// via DispatchError; none of them go through Dispatch.
func (r *Registry) Dispatch(hook Hook, ctx *RequestContext) Result {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, reg := range r.order {
		if !reg.enabled || !reg.hooks[hook] {
			continue
		}
		res := r.invoke(reg.plugin, hook, ctx)
		switch res.Action {
		case ActionContinue:
			continue
		case ActionHalt, ActionFail:
			return res
		}
	}
	return Continue()
}

func (r *Registry) invoke(p Plugin, hook Hook, ctx *RequestContext) Result {
	switch hook {
	case PreRequest:
		return p.(PreRequestHandler).PreRequest(ctx)
	case PostRoute:
		return p.(PostRouteHandler).PostRoute(ctx)
	case PreHandler:
		return p.(PreHandlerHandler).PreHandler(ctx)
	case PostHandler:
		return p.(PostHandlerHandler).PostHandler(ctx)
	case PreResponse:
		return p.(PreResponseHandler).PreResponse(ctx)
	case PostResponse:
		return p.(PostResponseHandler).PostResponse(ctx)
	default:
		return Continue()
	}
}

// DispatchError invokes every enabled OnError plugin in registration
// order with the failure reason. A Halt stops the remaining OnError
// plugins; a Fail from an OnError plugin is ignored beyond logging by the
// caller, since the request is already failing.
func (r *Registry) DispatchError(ctx *RequestContext, cause error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, reg := range r.order {
		if !reg.enabled || !reg.hooks[OnError] {
			continue
		}
		res := reg.plugin.(ErrorHandler).OnError(ctx, cause)
		if res.Action == ActionHalt {
			return
		}
	}
}

// Shutdown runs the shutdown callback of every plugin that declared
// OnShutdown, in registration order. All callbacks run even if some fail;
// the first error is returned.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var first error
	for _, reg := range r.order {
		if !reg.hooks[OnShutdown] {
			continue
		}
		if err := reg.plugin.(ShutdownHandler).OnShutdown(ctx); err != nil && first == nil {
			first = fmt.Errorf("plugin %q shutdown: %w", reg.plugin.Name(), err)
		}
	}
	return first
}

// Get returns a registered plugin by name.
func (r *Registry) Get(name string) (Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.byName[name]
	if !ok {
		return nil, false
	}
	return reg.plugin, true
}

// List returns Info for every registered plugin in registration order.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]Info, 0, len(r.order))
	for _, reg := range r.order {
		hooks := make([]string, 0, len(reg.hooks))
		for _, h := range AllHooks() {
			if reg.hooks[h] {
				hooks = append(hooks, h.String())
			}
		}
		infos = append(infos, Info{
			Name:    reg.plugin.Name(),
			Version: reg.plugin.Version(),
			Enabled: reg.enabled,
			Hooks:   hooks,
		})
	}
	return infos
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
