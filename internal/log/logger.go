package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
	"time"
)

// Logger is the structured logger used across the planner and its tools.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
	Enabled(level slog.Level) bool
}

// logger wraps slog.Logger
type logger struct {
	slog *slog.Logger
}

var defaultLogger atomic.Value

func init() {
	defaultLogger.Store(holder{NewTextLogger(os.Stderr, slog.LevelInfo)})
}

// holder keeps the stored concrete type stable for atomic.Value.
type holder struct{ l Logger }

// SetDefault sets the default logger
func SetDefault(l Logger) {
	defaultLogger.Store(holder{l})
}

// Default returns the default logger
func Default() Logger {
	return defaultLogger.Load().(holder).l
}

// Discard returns a logger that drops every record.
func Discard() Logger {
	return New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// New creates a new logger with the given handler
func New(handler slog.Handler) Logger {
	return &logger{slog: slog.New(handler)}
}

// NewTextLogger creates a new text logger
func NewTextLogger(w io.Writer, level slog.Level) Logger {
	return New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// NewJSONLogger creates a new JSON logger
func NewJSONLogger(w io.Writer, level slog.Level) Logger {
	return New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

func (l *logger) Debug(msg string, args ...any) {
	l.slog.Debug(msg, args...)
}

func (l *logger) Info(msg string, args ...any) {
	l.slog.Info(msg, args...)
}

func (l *logger) Warn(msg string, args ...any) {
	l.slog.Warn(msg, args...)
}

func (l *logger) Error(msg string, args ...any) {
	l.slog.Error(msg, args...)
}

func (l *logger) With(args ...any) Logger {
	return &logger{slog: l.slog.With(args...)}
}

func (l *logger) Enabled(level slog.Level) bool {
	return l.slog.Enabled(context.Background(), level)
}

// Helper functions for structured logging

// String returns a string attribute
func String(key, value string) slog.Attr {
	return slog.String(key, value)
}

// Int returns an int attribute
func Int(key string, value int) slog.Attr {
	return slog.Int(key, value)
}

// Bool returns a bool attribute
func Bool(key string, value bool) slog.Attr {
	return slog.Bool(key, value)
}

// Duration returns a duration attribute
func Duration(key string, value time.Duration) slog.Attr {
	return slog.Duration(key, value)
}

// Err returns the attribute used for errors.
func Err(err error) slog.Attr {
	return slog.Any("error", err)
}

// Package-level convenience functions

func Debug(msg string, args ...any) {
	Default().Debug(msg, args...)
}

func Info(msg string, args ...any) {
	Default().Info(msg, args...)
}

func Warn(msg string, args ...any) {
	Default().Warn(msg, args...)
}

func Error(msg string, args ...any) {
	Default().Error(msg, args...)
}
