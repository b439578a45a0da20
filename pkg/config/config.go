// Package config loads and validates the stubkit server configuration:
// listener settings plus the mock scenario set, from a YAML or JSON file
// with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/stubkit/stubkit/pkg/scenario"
)

// ServerConfig holds listener and pipeline settings.
type ServerConfig struct {
	Host string `json:"host,omitempty" yaml:"host,omitempty"`
	Port int    `json:"port,omitempty" yaml:"port,omitempty"`

	// RequestTimeoutMs is the dispatcher's per-request ceiling. Zero
	// disables it.
	RequestTimeoutMs int `json:"requestTimeoutMs,omitempty" yaml:"requestTimeoutMs,omitempty"`

	LogLevel  string `json:"logLevel,omitempty" yaml:"logLevel,omitempty"`
	LogFormat string `json:"logFormat,omitempty" yaml:"logFormat,omitempty"`
}

// MockConfig holds mock engine settings.
type MockConfig struct {
	// DefaultDelayMs applies to matched routes without their own delay.
	DefaultDelayMs int `json:"defaultDelayMs,omitempty" yaml:"defaultDelayMs,omitempty"`

	// BaseDir anchors bodyFile references. Defaults to the config file's
	// directory.
	BaseDir string `json:"baseDir,omitempty" yaml:"baseDir,omitempty"`
}

// PluginsConfig controls the builtin plugins. Unknown names in Disabled
// are ignored so configs can predeclare plugins registered at runtime.
type PluginsConfig struct {
	// Disabled lists plugin names to leave out, e.g. "access-log",
	// "metrics", "health".
	Disabled []string `json:"disabled,omitempty" yaml:"disabled,omitempty"`

	// HealthPath overrides the health plugin's probe path.
	HealthPath string `json:"healthPath,omitempty" yaml:"healthPath,omitempty"`
}

// IsDisabled reports whether a plugin name appears in Disabled.
func (p *PluginsConfig) IsDisabled(name string) bool {
	for _, d := range p.Disabled {
		if d == name {
			return true
		}
	}
	return false
}

// Config is the full server configuration.
type Config struct {
	Server    ServerConfig         `json:"server,omitempty" yaml:"server,omitempty"`
	Mock      MockConfig           `json:"mock,omitempty" yaml:"mock,omitempty"`
	Plugins   PluginsConfig        `json:"plugins,omitempty" yaml:"plugins,omitempty"`
	Scenarios []*scenario.Scenario `json:"scenarios" yaml:"scenarios"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:      "127.0.0.1",
			Port:      8080,
			LogLevel:  "info",
			LogFormat: "text",
		},
	}
}

// Validate checks the configuration, including every scenario.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Server.RequestTimeoutMs < 0 {
		return fmt.Errorf("server.requestTimeoutMs must not be negative")
	}
	if c.Mock.DefaultDelayMs < 0 {
		return fmt.Errorf("mock.defaultDelayMs must not be negative")
	}
	if _, err := scenario.NewSet(c.Scenarios); err != nil {
		return err
	}
	return nil
}

// ScenarioSet builds the validated scenario set.
func (c *Config) ScenarioSet() (*scenario.Set, error) {
	return scenario.NewSet(c.Scenarios)
}

// Addr returns the host:port listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// ApplyEnv overrides settings from STUBKIT_* environment variables:
// STUBKIT_HOST, STUBKIT_PORT, STUBKIT_LOG_LEVEL, STUBKIT_LOG_FORMAT,
// STUBKIT_REQUEST_TIMEOUT_MS.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("STUBKIT_HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv("STUBKIT_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("STUBKIT_PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("STUBKIT_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
	if v := os.Getenv("STUBKIT_LOG_FORMAT"); v != "" {
		c.Server.LogFormat = v
	}
	if v := os.Getenv("STUBKIT_REQUEST_TIMEOUT_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("STUBKIT_REQUEST_TIMEOUT_MS: %w", err)
		}
		c.Server.RequestTimeoutMs = ms
	}
	return nil
}
