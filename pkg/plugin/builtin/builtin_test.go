package builtin

import (
	"bytes"
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stubkit/stubkit/pkg/logging"
	"github.com/stubkit/stubkit/pkg/plugin"
)

func requestCtx(method, target string) *plugin.RequestContext {
	return plugin.NewRequestContext(httptest.NewRequest(method, target, nil))
}

func TestAccessLog(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(logging.Options{Format: "json", Output: &buf})
	a := NewAccessLog(logger)

	rc := requestCtx("GET", "/test/users")
	assert.Equal(t, plugin.ActionContinue, a.PreRequest(rc).Action)

	rc.Response = plugin.Text(200, "ok")
	assert.Equal(t, plugin.ActionContinue, a.PreResponse(rc).Action)
	assert.NotEmpty(t, rc.Response.Headers.Get("X-Request-Id"))

	assert.Equal(t, plugin.ActionContinue, a.PostResponse(rc).Action)
	out := buf.String()
	assert.Contains(t, out, `"path":"/test/users"`)
	assert.Contains(t, out, `"status":200`)
	assert.Contains(t, out, rc.Response.Headers.Get("X-Request-Id"))
}

func TestAccessLogRegistersCleanly(t *testing.T) {
	reg := plugin.NewRegistry()
	require.NoError(t, reg.Register(context.Background(), NewAccessLog(nil)))
	require.NoError(t, reg.Register(context.Background(), NewMetrics()))
	require.NoError(t, reg.Register(context.Background(), NewHealth("", nil)))
	assert.Equal(t, 3, reg.Count())
}

func TestMetrics(t *testing.T) {
	m := NewMetrics()

	for _, status := range []int{200, 201, 301, 404, 500} {
		rc := requestCtx("GET", "/x")
		m.PreRequest(rc)
		rc.Response = plugin.NewResponse(status)
		m.PostResponse(rc)
	}
	m.OnError(requestCtx("GET", "/x"), errors.New("boom"))

	snap := m.Snapshot()
	assert.Equal(t, int64(5), snap.Total)
	assert.Equal(t, int64(2), snap.Status2xx)
	assert.Equal(t, int64(1), snap.Status3xx)
	assert.Equal(t, int64(1), snap.Status4xx)
	assert.Equal(t, int64(1), snap.Status5xx)
	assert.Equal(t, int64(1), snap.Errors)
}

func TestMetricsInstancesIndependent(t *testing.T) {
	a, b := NewMetrics(), NewMetrics()
	a.PreRequest(requestCtx("GET", "/x"))
	assert.Equal(t, int64(1), a.Snapshot().Total)
	assert.Equal(t, int64(0), b.Snapshot().Total)
}

func TestHealth(t *testing.T) {
	t.Run("halts on the health path", func(t *testing.T) {
		h := NewHealth("", nil)
		rc := requestCtx("GET", "/healthz")
		res := h.PreRequest(rc)
		assert.Equal(t, plugin.ActionHalt, res.Action)
		require.NotNil(t, rc.Response)
		assert.Equal(t, 200, rc.Response.StatusCode)
		assert.Contains(t, string(rc.Response.Body), `"status":"ok"`)
	})

	t.Run("ignores other paths and methods", func(t *testing.T) {
		h := NewHealth("", nil)
		assert.Equal(t, plugin.ActionContinue, h.PreRequest(requestCtx("GET", "/other")).Action)
		assert.Equal(t, plugin.ActionContinue, h.PreRequest(requestCtx("POST", "/healthz")).Action)
	})

	t.Run("includes metrics snapshot", func(t *testing.T) {
		m := NewMetrics()
		m.PreRequest(requestCtx("GET", "/x"))
		h := NewHealth("/status", m)

		rc := requestCtx("GET", "/status")
		require.Equal(t, plugin.ActionHalt, h.PreRequest(rc).Action)
		assert.Contains(t, string(rc.Response.Body), `"total":1`)
	})
}
