package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Process exit codes used by the runner itself.
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitTimeout     = 124
	ExitInterrupted = 130
)

// ErrUnknownStage is returned when configuration names a stage that does not exist.
var ErrUnknownStage = errors.New("unknown stage")

// ErrMetadataUnavailable is returned by a task when a runtime identifier it
// needs (e.g. the EC2 instance id) cannot be resolved. The stage is skipped.
var ErrMetadataUnavailable = errors.New("environment metadata unavailable")

// UsageError reports bad command line input.
type UsageError struct {
	Msg string
	Err error
}

func (e *UsageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("usage: %s: %v", e.Msg, e.Err)
	}
	return "usage: " + e.Msg
}

func (e *UsageError) Unwrap() error { return e.Err }

// PreflightHardError reports required tools missing from the host.
type PreflightHardError struct {
	Missing []string
}

func (e *PreflightHardError) Error() string {
	return "preflight: required tools not found: " + strings.Join(e.Missing, ", ")
}

// StageExecutionError reports a critical stage that did not succeed.
type StageExecutionError struct {
	Stage    StageName
	Status   Status
	ExitCode int
	Duration time.Duration
	Err      error
}

func (e *StageExecutionError) Error() string {
	msg := fmt.Sprintf("stage %s %s (exit code %d after %s)", e.Stage, e.Status, e.ExitCode, e.Duration.Round(time.Millisecond))
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *StageExecutionError) Unwrap() error { return e.Err }

// ExitCode maps an error returned by the runner to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var stageErr *StageExecutionError
	if errors.As(err, &stageErr) {
		return NormalizeExitCode(stageErr.ExitCode)
	}
	return ExitFailure
}

// NormalizeExitCode clamps an exit code into the 1..255 range so that a
// failure is never reported as success.
func NormalizeExitCode(code int) int {
	if code <= 0 || code > 255 {
		return ExitFailure
	}
	return code
}
