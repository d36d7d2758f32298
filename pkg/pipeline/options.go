package pipeline

import (
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/clapper/pkg/domain"
)

// Option defines a functional option for configuring the Executor.
type Option func(*Executor)

// WithLogger configures the structured logger. Stage lifecycle messages and
// task output go through it.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		e.Logger = logger
	}
}

// WithHooks configures lifecycle hooks.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Executor) {
		e.Hooks = hooks
	}
}

// WithEcho copies raw task output to w (verbose mode).
func WithEcho(w io.Writer) Option {
	return func(e *Executor) {
		e.Echo = w
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Executor) {
		e.now = now
	}
}

// WithOutputLogger sets the logger task output lines are written to.
// Defaults to the main logger.
func WithOutputLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		e.OutputLogger = logger
	}
}
