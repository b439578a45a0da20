// Package server wires the stubkit components into a runnable HTTP
// server: configuration in, plugin registry + router + mock engine
// assembled, dispatcher serving, with optional config hot reload.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/stubkit/stubkit/pkg/config"
	"github.com/stubkit/stubkit/pkg/engine"
	"github.com/stubkit/stubkit/pkg/logging"
	"github.com/stubkit/stubkit/pkg/pipeline"
	"github.com/stubkit/stubkit/pkg/plugin"
	"github.com/stubkit/stubkit/pkg/plugin/builtin"
	"github.com/stubkit/stubkit/pkg/router"
)

const shutdownGrace = 10 * time.Second

// Option customizes a Server.
type Option func(*Server)

// WithLogger sets the operational logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// WithFallback sets the handler for requests the mock engine declines,
// e.g. a static file server.
func WithFallback(h router.Handler) Option {
	return func(s *Server) { s.fallback = h }
}

// WithoutBuiltins skips registering the access-log, metrics, and health
// plugins, leaving the registry empty for the caller to populate.
func WithoutBuiltins() Option {
	return func(s *Server) { s.skipBuiltins = true }
}

// WithConfigWatch reloads scenarios when the config file at path changes.
func WithConfigWatch(path string) Option {
	return func(s *Server) { s.watchPath = path }
}

// Server owns the assembled pipeline and its HTTP listener.
type Server struct {
	cfg      *config.Config
	log      *slog.Logger
	registry *plugin.Registry
	engine   *engine.Engine
	router   *router.Router
	metrics  *builtin.Metrics

	fallback     router.Handler
	skipBuiltins bool
	watchPath    string

	httpServer *http.Server
	watcher    *config.Watcher

	mu      sync.Mutex
	running bool
}

// New assembles a server from configuration.
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	s := &Server{
		cfg:      cfg,
		log:      logging.Nop(),
		registry: plugin.NewRegistry(),
	}
	for _, opt := range opts {
		opt(s)
	}

	set, err := cfg.ScenarioSet()
	if err != nil {
		return nil, err
	}
	s.engine = engine.New(set, engine.Options{
		Logger:         s.log,
		BaseDir:        cfg.Mock.BaseDir,
		DefaultDelayMs: cfg.Mock.DefaultDelayMs,
	})

	tbl, err := s.engine.Routes()
	if err != nil {
		return nil, err
	}
	s.router = router.New(tbl)

	if !s.skipBuiltins {
		var builtins []plugin.Plugin
		if !cfg.Plugins.IsDisabled("metrics") {
			s.metrics = builtin.NewMetrics()
			builtins = append(builtins, s.metrics)
		}
		if !cfg.Plugins.IsDisabled("access-log") {
			builtins = append(builtins, builtin.NewAccessLog(s.log))
		}
		if !cfg.Plugins.IsDisabled("health") {
			builtins = append(builtins, builtin.NewHealth(cfg.Plugins.HealthPath, s.metrics))
		}
		for _, p := range builtins {
			if err := s.registry.Register(context.Background(), p); err != nil {
				return nil, err
			}
		}
	}

	dispatcher := pipeline.New(s.registry, s.router, pipeline.Options{
		Timeout:  time.Duration(cfg.Server.RequestTimeoutMs) * time.Millisecond,
		Fallback: s.fallback,
		Logger:   s.log,
	})
	s.httpServer = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           dispatcher,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Registry exposes the plugin registry so collaborators (auth, proxy,
// static files) can register before Start.
func (s *Server) Registry() *plugin.Registry {
	return s.registry
}

// Engine exposes the mock engine, e.g. for scenario toggling.
func (s *Server) Engine() *engine.Engine {
	return s.engine
}

// Metrics returns the builtin metrics plugin, nil with WithoutBuiltins.
func (s *Server) Metrics() *builtin.Metrics {
	return s.metrics
}

// Handler returns the fully wired http.Handler, useful in tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start listens and serves until ctx is cancelled or Serve fails. The
// config watcher, when enabled, runs for the lifetime of the server.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.mu.Unlock()

	if s.watchPath != "" {
		watcher, err := config.Watch(s.watchPath, s.log, s.applyConfig)
		if err != nil {
			s.setRunning(false)
			return fmt.Errorf("config watch: %w", err)
		}
		s.watcher = watcher
	}

	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		if s.watcher != nil {
			_ = s.watcher.Close()
			s.watcher = nil
		}
		s.setRunning(false)
		return fmt.Errorf("listen %s: %w", s.httpServer.Addr, err)
	}
	s.log.Info("server listening",
		"addr", listener.Addr().String(),
		"scenarios", s.engine.Set().Len(),
		"plugins", s.registry.Count(),
	)

	serveErr := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	select {
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	case err := <-serveErr:
		return err
	}
}

func (s *Server) setRunning(v bool) {
	s.mu.Lock()
	s.running = v
	s.mu.Unlock()
}

// applyConfig swaps in a reloaded scenario set. Listener settings are
// not reapplied; those need a restart.
func (s *Server) applyConfig(cfg *config.Config) {
	set, err := cfg.ScenarioSet()
	if err != nil {
		s.log.Error("reloaded config rejected", "error", err)
		return
	}
	if err := s.engine.Reload(set, s.router); err != nil {
		s.log.Error("scenario reload failed", "error", err)
		return
	}
	s.log.Info("scenarios reloaded", "count", set.Len())
}

// Shutdown stops the listener, drains in-flight requests, and runs every
// plugin's shutdown hook.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	if s.watcher != nil {
		_ = s.watcher.Close()
	}

	ctx, cancel := context.WithTimeout(ctx, shutdownGrace)
	defer cancel()

	err := s.httpServer.Shutdown(ctx)
	if perr := s.registry.Shutdown(ctx); err == nil {
		err = perr
	}
	s.log.Info("server stopped")
	return err
}
