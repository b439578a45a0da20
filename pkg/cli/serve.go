package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/stubkit/stubkit/pkg/config"
	"github.com/stubkit/stubkit/pkg/logging"
	"github.com/stubkit/stubkit/pkg/server"
)

// serveFlags holds all flags for the serve command.
type serveFlags struct {
	configPath string
	host       string
	port       int
	logLevel   string
	logFormat  string
	watch      bool
	noBuiltins bool
}

var serveFlagVals serveFlags

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the mock server",
	Long: `Start the mock server with the scenarios from a configuration file.

The server runs until interrupted (Ctrl+C) or terminated. With --watch,
scenario changes in the config file are picked up without a restart;
server settings such as host and port still require one.`,
	Example: `  # Serve scenarios from a config file
  stubkit serve --config scenarios.yaml

  # Override the listen address and enable hot reload
  stubkit serve -c scenarios.yaml --port 9090 --watch

  # JSON logs for log collectors
  stubkit serve -c scenarios.yaml --log-format json --log-level debug`,
	RunE: runServe,
}

func init() {
	f := &serveFlagVals
	serveCmd.Flags().StringVarP(&f.configPath, "config", "c", "", "Path to scenario config file (YAML or JSON)")
	serveCmd.Flags().StringVar(&f.host, "host", "", "Host to bind (overrides config)")
	serveCmd.Flags().IntVarP(&f.port, "port", "p", 0, "Port to listen on (overrides config)")
	serveCmd.Flags().StringVar(&f.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	serveCmd.Flags().StringVar(&f.logFormat, "log-format", "", "Log format (text, json)")
	serveCmd.Flags().BoolVarP(&f.watch, "watch", "w", false, "Reload scenarios when the config file changes")
	serveCmd.Flags().BoolVar(&f.noBuiltins, "no-builtins", false, "Disable builtin plugins (access log, metrics, health)")

	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	f := &serveFlagVals

	cfg, err := loadConfig(f.configPath)
	if err != nil {
		return err
	}
	applyServeOverrides(cfg, f)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log := logging.New(logging.Options{
		Level:  cfg.Server.LogLevel,
		Format: cfg.Server.LogFormat,
	})

	opts := []server.Option{server.WithLogger(log)}
	if f.watch {
		if f.configPath == "" {
			return fmt.Errorf("--watch requires --config")
		}
		opts = append(opts, server.WithConfigWatch(f.configPath))
	}
	if f.noBuiltins {
		opts = append(opts, server.WithoutBuiltins())
	}

	srv, err := server.New(cfg, opts...)
	if err != nil {
		return fmt.Errorf("failed to build server: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// loadConfig reads the config file, falling back to defaults when no
// path is given so 'stubkit serve -p 8080' still works for plugins-only
// setups.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		cfg := config.Default()
		if err := cfg.ApplyEnv(); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func applyServeOverrides(cfg *config.Config, f *serveFlags) {
	if f.host != "" {
		cfg.Server.Host = f.host
	}
	if f.port != 0 {
		cfg.Server.Port = f.port
	}
	if f.logLevel != "" {
		cfg.Server.LogLevel = f.logLevel
	}
	if f.logFormat != "" {
		cfg.Server.LogFormat = f.logFormat
	}
}
