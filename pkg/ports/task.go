package ports

import (
	"context"
	"io"
	"log/slog"
)

// RunContext is handed to every task. It replaces ambient globals: the run
// identity, the run log and the state sink travel explicitly.
type RunContext struct {
	RunID string

	// Logger writes to the console and the run log.
	Logger *slog.Logger

	// Output receives the task's combined stdout/stderr.
	Output io.Writer

	// State is read-only from a task's point of view.
	State StateSink
}

// Task is the capability behind a stage.
//
// Run blocks until the task finishes. It returns the exit code of the
// external work; 0 means success. A non-nil error means the task could not be
// run or was interrupted; the exit code is still meaningful in that case
// (e.g. 127 for a missing executable). Returning an error wrapping
// domain.ErrMetadataUnavailable turns the stage into SKIPPED.
type Task interface {
	// Describe returns a one-line description of what Run would do, used for dry runs.
	Describe() string
	Run(ctx context.Context, rc RunContext) (int, error)
}

// TaskFunc adapts a function to the Task interface.
type TaskFunc struct {
	Description string
	Fn          func(ctx context.Context, rc RunContext) (int, error)
}

func (f TaskFunc) Describe() string { return f.Description }

func (f TaskFunc) Run(ctx context.Context, rc RunContext) (int, error) {
	return f.Fn(ctx, rc)
}
