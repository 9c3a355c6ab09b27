package config

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// loggerKey is used to store the logger in context. Shared with root.go via
// the LoggerKey accessor so the commands package avoids an import cycle.
type loggerKey struct{}

// NewLogger builds the process logger. Verbose lowers the level to debug.
func NewLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// LoggerKey returns the context key for the logger.
func LoggerKey() interface{} {
	return loggerKey{}
}

// GetLogger retrieves the logger from the command context, or a discard
// logger when none was stored.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
