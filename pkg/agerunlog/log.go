// Package agerunlog is an append-only diagnostic sink for structured
// runtime error records. It wraps log/slog with an explicit-instance Log
// type, so a System owns its log directly rather than through a package
// singleton.
package agerunlog

import (
	"io"
	"log/slog"
	"strings"
)

// ErrorKind enumerates the structured error records the runtime can log.
type ErrorKind string

const (
	ParseError          ErrorKind = "parse_error"
	PathUnresolved       ErrorKind = "path_unresolved"
	TypeMismatch         ErrorKind = "type_mismatch"
	DivisionByZero       ErrorKind = "division_by_zero"
	AssignTargetForbidden ErrorKind = "assign_target_forbidden"
	ContainerCopy        ErrorKind = "container_copy"
	UnknownAgent         ErrorKind = "unknown_agent"
	UnknownMethod        ErrorKind = "unknown_method"
	VersionConflict      ErrorKind = "version_conflict"
	PersistenceError     ErrorKind = "persistence_error"
	Bootstrap            ErrorKind = "bootstrap"
)

// RuntimeError is the structured error value every evaluator and
// persistence routine returns on failure. It carries enough context for a
// caller to branch on Kind via errors.As and for the log record to include
// precise attributes.
type RuntimeError struct {
	Kind ErrorKind
	// Context is free-form (line number, path, instruction name, agent id
	// ...); attached to the log record as slog attributes.
	Context map[string]any
	Err     error
}

func (e *RuntimeError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *RuntimeError) Unwrap() error { return e.Err }

// New constructs a RuntimeError. kv is a flat key/value sequence
// (key1, val1, key2, val2, ...), mirroring slog's variadic attribute style.
func New(kind ErrorKind, wrapped error, kv ...any) *RuntimeError {
	ctx := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		if k, ok := kv[i].(string); ok {
			ctx[k] = kv[i+1]
		}
	}
	return &RuntimeError{Kind: kind, Context: ctx, Err: wrapped}
}

// Log is the runtime's diagnostic sink. The zero value is not usable; use
// NewLog.
type Log struct {
	logger *slog.Logger
}

// NewLog constructs a Log writing to w at the given minimum level.
func NewLog(w io.Writer, level slog.Level) *Log {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return &Log{logger: slog.New(handler)}
}

// NewDiscard returns a Log that drops every record; useful for tests that
// don't want log noise but still need a *Log to construct a System.
func NewDiscard() *Log {
	return &Log{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// Error records a structured error. kind and the free-form attrs are
// attached to the slog record so operators can filter/alert on Kind.
func (l *Log) Error(kind ErrorKind, msg string, attrs ...slog.Attr) {
	args := make([]any, 0, len(attrs)*2+2)
	args = append(args, "kind", string(kind))
	for _, a := range attrs {
		args = append(args, a.Key, a.Value.Any())
	}
	l.logger.Error(msg, args...)
}

// RecordError is a convenience wrapper for the common case of logging a
// *RuntimeError directly.
func (l *Log) RecordError(rerr *RuntimeError, msg string) {
	attrs := make([]slog.Attr, 0, len(rerr.Context))
	for k, v := range rerr.Context {
		attrs = append(attrs, slog.Any(k, v))
	}
	l.Error(rerr.Kind, msg, attrs...)
}

// Debug/Info/Warn mirror slog's leveled logging for non-error diagnostics
// (e.g. "method registered", "agent spawned").
func (l *Log) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }
func (l *Log) Info(msg string, args ...any)  { l.logger.Info(msg, args...) }
func (l *Log) Warn(msg string, args ...any)  { l.logger.Warn(msg, args...) }

// ParseLevel converts a string log level name to slog.Level, defaulting to
// Warn for an unrecognized string.
func ParseLevel(levelStr string) (slog.Level, error) {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelWarn, nil
	}
}
