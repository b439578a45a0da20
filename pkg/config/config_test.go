package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
server:
  host: 0.0.0.0
  port: 9090
  requestTimeoutMs: 5000
  logLevel: debug
mock:
  defaultDelayMs: 10
scenarios:
  - name: users
    routes:
      - method: GET
        path: /test/users
        response:
          statusCode: 200
          body:
            users:
              - id: 1
                name: Test User
  - name: errors
    enabled: false
    routes:
      - method: GET
        path: /test/error
        response:
          statusCode: 500
          body: '{"error":"Test error","code":500}'
`

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, "stubkit.yaml", sampleYAML)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9090", cfg.Addr())
	assert.Equal(t, 5000, cfg.Server.RequestTimeoutMs)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, 10, cfg.Mock.DefaultDelayMs)
	assert.Equal(t, filepath.Dir(path), cfg.Mock.BaseDir)

	require.Len(t, cfg.Scenarios, 2)
	assert.Equal(t, "users", cfg.Scenarios[0].Name)
	assert.True(t, cfg.Scenarios[0].IsEnabled())
	assert.False(t, cfg.Scenarios[1].IsEnabled())

	// The structured body came through as JSON.
	assert.JSONEq(t,
		`{"users":[{"id":1,"name":"Test User"}]}`,
		cfg.Scenarios[0].Routes[0].Response.Body,
	)
}

func TestLoadJSON(t *testing.T) {
	path := writeConfig(t, "stubkit.json", `{
		"scenarios": [{
			"name": "ping",
			"routes": [{
				"method": "GET", "path": "/ping",
				"response": {"statusCode": 200, "body": "pong"}
			}]
		}]
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8080", cfg.Addr())
	require.Len(t, cfg.Scenarios, 1)
	assert.Equal(t, "pong", cfg.Scenarios[0].Routes[0].Response.Body)
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.ErrorIs(t, err, ErrFileNotFound)
	})

	t.Run("empty file", func(t *testing.T) {
		_, err := Load(writeConfig(t, "empty.yaml", "  \n"))
		assert.ErrorIs(t, err, ErrEmptyFile)
	})

	t.Run("broken yaml", func(t *testing.T) {
		_, err := Load(writeConfig(t, "bad.yaml", "scenarios: ["))
		assert.ErrorIs(t, err, ErrInvalidYAML)
	})

	t.Run("broken json", func(t *testing.T) {
		_, err := Load(writeConfig(t, "bad.json", "{nope"))
		assert.ErrorIs(t, err, ErrInvalidJSON)
	})

	t.Run("invalid scenario rejected", func(t *testing.T) {
		_, err := Load(writeConfig(t, "bad-scenario.yaml", `
scenarios:
  - name: broken
    routes:
      - method: GET
        path: /x
        response:
          statusCode: 9999
`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "out of range")
	})

	t.Run("duplicate scenario names rejected", func(t *testing.T) {
		_, err := Load(writeConfig(t, "dup.yaml", `
scenarios:
  - name: same
    routes:
      - {method: GET, path: /a, response: {statusCode: 200}}
  - name: same
    routes:
      - {method: GET, path: /b, response: {statusCode: 200}}
`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate scenario name")
	})
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("STUBKIT_HOST", "10.0.0.1")
	t.Setenv("STUBKIT_PORT", "7070")
	t.Setenv("STUBKIT_LOG_LEVEL", "warn")
	t.Setenv("STUBKIT_REQUEST_TIMEOUT_MS", "2500")

	path := writeConfig(t, "stubkit.yaml", sampleYAML)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.1:7070", cfg.Addr())
	assert.Equal(t, "warn", cfg.Server.LogLevel)
	assert.Equal(t, 2500, cfg.Server.RequestTimeoutMs)
}

func TestApplyEnvInvalidPort(t *testing.T) {
	t.Setenv("STUBKIT_PORT", "not-a-port")
	path := writeConfig(t, "stubkit.yaml", sampleYAML)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STUBKIT_PORT")
}

func TestWatcherReload(t *testing.T) {
	path := writeConfig(t, "stubkit.yaml", sampleYAML)

	reloaded := make(chan *Config, 4)
	w, err := Watch(path, nil, func(cfg *Config) { reloaded <- cfg })
	require.NoError(t, err)
	defer w.Close()

	updated := `
scenarios:
  - name: replaced
    routes:
      - {method: GET, path: /new, response: {statusCode: 200, body: ok}}
`
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))

	select {
	case cfg := <-reloaded:
		require.Len(t, cfg.Scenarios, 1)
		assert.Equal(t, "replaced", cfg.Scenarios[0].Name)
	case <-time.After(3 * time.Second):
		t.Fatal("reload callback never fired")
	}
}

func TestWatcherKeepsPreviousOnBrokenConfig(t *testing.T) {
	path := writeConfig(t, "stubkit.yaml", sampleYAML)

	reloaded := make(chan *Config, 4)
	w, err := Watch(path, nil, func(cfg *Config) { reloaded <- cfg })
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(path, []byte("scenarios: ["), 0o644))

	select {
	case cfg := <-reloaded:
		t.Fatalf("broken config must not trigger the callback, got %+v", cfg)
	case <-time.After(600 * time.Millisecond):
	}
}
