package builtin

import (
	"sync/atomic"

	"github.com/stubkit/stubkit/pkg/plugin"
)

// Metrics counts requests, responses by status class, and pipeline
// errors. Counters are plain atomics owned by the plugin instance;
// register a second instance and it counts independently.
type Metrics struct {
	total     atomic.Int64
	status2xx atomic.Int64
	status3xx atomic.Int64
	status4xx atomic.Int64
	status5xx atomic.Int64
	errors    atomic.Int64
}

// Snapshot is a point-in-time view of the counters.
type Snapshot struct {
	Total     int64 `json:"total"`
	Status2xx int64 `json:"status_2xx"`
	Status3xx int64 `json:"status_3xx"`
	Status4xx int64 `json:"status_4xx"`
	Status5xx int64 `json:"status_5xx"`
	Errors    int64 `json:"errors"`
}

// NewMetrics creates the metrics plugin.
func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) Name() string    { return "metrics" }
func (m *Metrics) Version() string { return "1.0.0" }

func (m *Metrics) Hooks() []plugin.Hook {
	return []plugin.Hook{plugin.PreRequest, plugin.PostResponse, plugin.OnError}
}

func (m *Metrics) PreRequest(*plugin.RequestContext) plugin.Result {
	m.total.Add(1)
	return plugin.Continue()
}

func (m *Metrics) PostResponse(rc *plugin.RequestContext) plugin.Result {
	if rc.Response != nil {
		switch {
		case rc.Response.StatusCode >= 500:
			m.status5xx.Add(1)
		case rc.Response.StatusCode >= 400:
			m.status4xx.Add(1)
		case rc.Response.StatusCode >= 300:
			m.status3xx.Add(1)
		case rc.Response.StatusCode >= 200:
			m.status2xx.Add(1)
		}
	}
	return plugin.Continue()
}

func (m *Metrics) OnError(*plugin.RequestContext, error) plugin.Result {
	m.errors.Add(1)
	return plugin.Continue()
}

// Snapshot returns the current counter values.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		Total:     m.total.Load(),
		Status2xx: m.status2xx.Load(),
		Status3xx: m.status3xx.Load(),
		Status4xx: m.status4xx.Load(),
		Status5xx: m.status5xx.Load(),
		Errors:    m.errors.Load(),
	}
}
