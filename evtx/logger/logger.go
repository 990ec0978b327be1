// Package logger provides the shared slog.Logger used across the evtx
// package and its CLI front end. It discards all output until Init is
// called, so the library stays silent unless a CLI main() opts in.
package logger

import (
	"io"
	"log/slog"
	"os"
)

// L is the package-wide logger. It discards output until Init is called.
var L *slog.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))

// Options configures Init.
type Options struct {
	Enabled bool       // If false, all logging is discarded.
	Level   slog.Level // Minimum level. Default: LevelInfo.
	Writer  io.Writer  // Default: os.Stderr.
}

// Init configures L. Call from main() before any extraction begins.
func Init(opts Options) {
	if !opts.Enabled {
		L = slog.New(slog.NewTextHandler(io.Discard, nil))
		return
	}
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}
	L = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: opts.Level}))
}

// Debug logs a debug message with optional key-value pairs.
func Debug(msg string, args ...any) { L.Debug(msg, args...) }

// Info logs an info message with optional key-value pairs.
func Info(msg string, args ...any) { L.Info(msg, args...) }

// Warn logs a warning message with optional key-value pairs.
func Warn(msg string, args ...any) { L.Warn(msg, args...) }

// Error logs an error message with optional key-value pairs.
func Error(msg string, args ...any) { L.Error(msg, args...) }
