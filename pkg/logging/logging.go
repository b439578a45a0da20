// Package logging builds the root slog.Logger every component shares.
// Components take a *slog.Logger in their constructor or options struct;
// tests and quiet callers pass Nop().
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Options configures the root logger. The zero value logs info-level
// text to stderr.
type Options struct {
	// Level is the minimum level to emit: debug, info, warn, or error.
	// Unknown values fall back to info.
	Level string

	// Format is "text" or "json". Anything else means text.
	Format string

	// Output defaults to os.Stderr.
	Output io.Writer

	// AddSource adds the file:line of the logging call to each record.
	AddSource bool
}

// New builds a logger from the given options.
func New(opts Options) *slog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	hopts := &slog.HandlerOptions{
		Level:     parseLevel(opts.Level),
		AddSource: opts.AddSource,
	}
	if strings.EqualFold(opts.Format, "json") {
		return slog.New(slog.NewJSONHandler(out, hopts))
	}
	return slog.New(slog.NewTextHandler(out, hopts))
}

// Nop returns a logger that discards everything.
func Nop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
