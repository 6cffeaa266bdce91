// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package ctxlog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

type loggerKey struct{}

// LevelVar is the level shared by DefaultLogger and every logger created by this package.
var LevelVar = &slog.LevelVar{}

// DefaultLogger writes pretty, coloured records to stderr so that it does not interleave
// with the progress lines the runner prints on stdout.
var DefaultLogger = slog.New(NewPrettyHandler(&slog.HandlerOptions{
	Level: LevelVar,
},
	WithAutoColour(),
	WithDestinationWriter(os.Stderr),
))

// ErrUnknownLevel is returned by ParseLevel for an unrecognised level name.
var ErrUnknownLevel = errors.New("unknown log level")

func init() {
	LevelVar.Set(levelFromEnv())
}

// New returns a context carrying logger. A nil logger stores DefaultLogger.
func New(ctx context.Context, logger *slog.Logger) context.Context {
	if logger == nil {
		logger = DefaultLogger
	}

	return context.WithValue(ctx, loggerKey{}, logger)
}

// NewForTUI returns a context whose logger writes plain records to w.
// The TUI owns the terminal, so log output is buffered and flushed after it exits.
func NewForTUI(ctx context.Context, w io.Writer) context.Context {
	return New(ctx, slog.New(NewPrettyHandler(&slog.HandlerOptions{
		Level: LevelVar,
	},
		WithDestinationWriter(w),
	)))
}

// Logger returns the logger from the context, or DefaultLogger if there is none.
func Logger(ctx context.Context) *slog.Logger {
	logger, ok := ctx.Value(loggerKey{}).(*slog.Logger)
	if !ok || logger == nil {
		return DefaultLogger
	}

	return logger
}

// With returns a context whose logger carries the additional attributes.
func With(ctx context.Context, args ...any) context.Context {
	return New(ctx, Logger(ctx).With(args...))
}

// Debug logs a debug message with the logger from ctx.
func Debug(ctx context.Context, msg string, args ...any) {
	Logger(ctx).Debug(msg, args...)
}

// Info logs an info message with the logger from ctx.
func Info(ctx context.Context, msg string, args ...any) {
	Logger(ctx).Info(msg, args...)
}

// Warn logs a warning with the logger from ctx.
func Warn(ctx context.Context, msg string, args ...any) {
	Logger(ctx).Warn(msg, args...)
}

// Error logs an error with the logger from ctx.
func Error(ctx context.Context, msg string, args ...any) {
	Logger(ctx).Error(msg, args...)
}

// ParseLevel converts DEBUG, INFO, WARN or ERROR (any case) into a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug, nil
	case "INFO":
		return slog.LevelInfo, nil
	case "WARN", "WARNING":
		return slog.LevelWarn, nil
	case "ERROR":
		return slog.LevelError, nil
	default:
		return slog.LevelWarn, errors.Join(ErrUnknownLevel, errors.New(s))
	}
}

// SetLevel parses s and applies it to LevelVar.
func SetLevel(s string) error {
	l, err := ParseLevel(s)
	if err != nil {
		return err
	}

	LevelVar.Set(l)

	return nil
}

// EnvName returns the name of the environment variable that sets the log level.
func EnvName() string {
	exec, _ := os.Executable()
	exec = filepath.Base(exec)

	if ext := filepath.Ext(exec); ext == ".exe" {
		exec = exec[:len(exec)-len(ext)]
	}

	return strings.ToUpper(exec) + "_LOG_LEVEL"
}

func levelFromEnv() slog.Level {
	l, err := ParseLevel(os.Getenv(EnvName()))
	if err != nil {
		return slog.LevelWarn
	}

	return l
}
