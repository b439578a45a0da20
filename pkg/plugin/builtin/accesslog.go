// Package builtin ships the plugins every stubkit server can register
// out of the box: access logging, request metrics, and a health
// endpoint. They are ordinary plugins with no special pipeline access.
package builtin

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/stubkit/stubkit/pkg/logging"
	"github.com/stubkit/stubkit/pkg/plugin"
)

const (
	ctxKeyStart     = "accesslog.start"
	ctxKeyRequestID = "accesslog.request_id"
)

// AccessLog logs one line per completed request, 404s included, and
// tags every request with an X-Request-Id header.
type AccessLog struct {
	logger *slog.Logger
}

// NewAccessLog creates the access log plugin.
func NewAccessLog(logger *slog.Logger) *AccessLog {
	if logger == nil {
		logger = logging.Nop()
	}
	return &AccessLog{logger: logger}
}

func (a *AccessLog) Name() string    { return "access-log" }
func (a *AccessLog) Version() string { return "1.0.0" }

func (a *AccessLog) Hooks() []plugin.Hook {
	return []plugin.Hook{plugin.PreRequest, plugin.PreResponse, plugin.PostResponse, plugin.OnError}
}

func (a *AccessLog) PreRequest(rc *plugin.RequestContext) plugin.Result {
	rc.Set(ctxKeyStart, time.Now())
	rc.Set(ctxKeyRequestID, uuid.New().String())
	return plugin.Continue()
}

func (a *AccessLog) PreResponse(rc *plugin.RequestContext) plugin.Result {
	if rc.Response != nil {
		rc.Response.SetHeader("X-Request-Id", rc.GetString(ctxKeyRequestID))
	}
	return plugin.Continue()
}

func (a *AccessLog) PostResponse(rc *plugin.RequestContext) plugin.Result {
	status := 0
	if rc.Response != nil {
		status = rc.Response.StatusCode
	}
	a.logger.Info("request",
		"request_id", rc.GetString(ctxKeyRequestID),
		"method", rc.Request.Method,
		"path", rc.Request.URL.Path,
		"status", status,
		"route", rc.Route,
		"scenario", rc.Scenario,
		"duration", a.elapsed(rc),
	)
	return plugin.Continue()
}

func (a *AccessLog) OnError(rc *plugin.RequestContext, err error) plugin.Result {
	a.logger.Warn("request errored",
		"request_id", rc.GetString(ctxKeyRequestID),
		"method", rc.Request.Method,
		"path", rc.Request.URL.Path,
		"duration", a.elapsed(rc),
		"error", err,
	)
	return plugin.Continue()
}

func (a *AccessLog) elapsed(rc *plugin.RequestContext) time.Duration {
	if start, ok := rc.Get(ctxKeyStart); ok {
		if t, ok := start.(time.Time); ok {
			return time.Since(t)
		}
	}
	return 0
}
