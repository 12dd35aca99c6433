package engine

import (
	"log/slog"
	"strings"
)

// Scope is the logging context passed down through a run.
//
// Each pass derives a child scope instead of mutating shared indentation
// state, so nested passes log with their full path ("products/definitions/
// custom") and never leak into each other.
type Scope struct {
	logger *slog.Logger
	path   []string
}

// NewScope creates a root scope. A nil logger discards everything.
func NewScope(logger *slog.Logger) Scope {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return Scope{logger: logger}
}

// Child returns a scope one level below s.
func (s Scope) Child(name string) Scope {
	path := make([]string, len(s.path), len(s.path)+1)
	copy(path, s.path)
	return Scope{logger: s.logger, path: append(path, name)}
}

// Path returns the slash-joined scope path.
func (s Scope) Path() string {
	return strings.Join(s.path, "/")
}

// Depth returns the nesting level, zero for the root.
func (s Scope) Depth() int {
	return len(s.path)
}

// Logger returns the underlying logger annotated with the scope path.
func (s Scope) Logger() *slog.Logger {
	if s.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	if len(s.path) == 0 {
		return s.logger
	}
	return s.logger.With("scope", s.Path())
}

func (s Scope) Debug(msg string, args ...any) { s.Logger().Debug(msg, args...) }
func (s Scope) Info(msg string, args ...any)  { s.Logger().Info(msg, args...) }
func (s Scope) Warn(msg string, args ...any)  { s.Logger().Warn(msg, args...) }
func (s Scope) Error(msg string, args ...any) { s.Logger().Error(msg, args...) }
