package builtin

import (
	"net/http"

	"github.com/stubkit/stubkit/pkg/plugin"
)

// DefaultHealthPath is the path Health answers when none is configured.
const DefaultHealthPath = "/healthz"

// Health short-circuits health probes before routing, so probes work
// regardless of the loaded scenarios. It optionally reports the metrics
// snapshot alongside the status.
type Health struct {
	path    string
	metrics *Metrics
}

// NewHealth creates the health plugin. An empty path uses
// DefaultHealthPath; metrics may be nil.
func NewHealth(path string, metrics *Metrics) *Health {
	if path == "" {
		path = DefaultHealthPath
	}
	return &Health{path: path, metrics: metrics}
}

func (h *Health) Name() string    { return "health" }
func (h *Health) Version() string { return "1.0.0" }

func (h *Health) Hooks() []plugin.Hook {
	return []plugin.Hook{plugin.PreRequest}
}

func (h *Health) PreRequest(rc *plugin.RequestContext) plugin.Result {
	if rc.Request.URL.Path != h.path || rc.Request.Method != http.MethodGet {
		return plugin.Continue()
	}

	body := map[string]any{"status": "ok"}
	if h.metrics != nil {
		body["metrics"] = h.metrics.Snapshot()
	}
	rc.Response = plugin.JSON(http.StatusOK, body)
	return plugin.Halt()
}
