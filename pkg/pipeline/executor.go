package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/clapper/internal/logging"
	"github.com/aretw0/clapper/pkg/domain"
	"github.com/aretw0/clapper/pkg/ports"
)

// Executor runs stages in order and records one outcome per stage.
type Executor struct {
	// State receives every outcome as soon as it is decided.
	State ports.StateSink

	// Logger is used for lifecycle messages. If nil, a no-op logger is used.
	Logger *slog.Logger

	// OutputLogger receives task output, one record per line.
	OutputLogger *slog.Logger

	// Echo, if set, receives a raw copy of task output.
	Echo io.Writer

	Hooks domain.LifecycleHooks

	now func() time.Time
}

// NewExecutor creates an executor writing outcomes to state.
func NewExecutor(state ports.StateSink, opts ...Option) *Executor {
	e := &Executor{
		State: state,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.Logger == nil {
		e.Logger = logging.NewNop()
	}
	if e.OutputLogger == nil {
		e.OutputLogger = e.Logger
	}
	return e
}

// Run executes stages in order under settings.
//
// A stage ends SKIPPED when settings skip it, DRY_RUN in dry-run mode, and
// otherwise SUCCESS, FAILED or TIMEOUT depending on its task. A failed
// critical stage, an interrupted run or an internal error (task panic,
// state sink failure) aborts the loop: no later stage is considered and the
// Result carries a nonzero exit code.
func (e *Executor) Run(ctx context.Context, settings Settings, stages []StageDescriptor) Result {
	res := Result{Outcomes: []domain.StageOutcome{}}

	if err := validate(stages); err != nil {
		return e.abortInternal(ctx, res, domain.ExitFailure, fmt.Errorf("invalid pipeline: %w", err))
	}

	// Outcomes are recorded even after the run context is cancelled.
	recordCtx := context.WithoutCancel(ctx)

	for _, d := range stages {
		if err := ctx.Err(); err != nil {
			return e.abortInternal(ctx, res, domain.ExitInterrupted, fmt.Errorf("run interrupted before %s: %w", d.Name, err))
		}

		outcome, runErr := e.runStage(ctx, settings, d)

		if err := e.State.Append(recordCtx, outcome); err != nil {
			res.Outcomes = append(res.Outcomes, outcome)
			return e.abortInternal(ctx, res, domain.ExitFailure, fmt.Errorf("failed to record %s: %w", d.Name, err))
		}
		res.Outcomes = append(res.Outcomes, outcome)

		if err := e.fireOutcome(ctx, &outcome); err != nil {
			return e.abortInternal(ctx, res, domain.ExitFailure, err)
		}

		if !outcome.Status.IsFailure() {
			continue
		}
		interrupted := outcome.ExitCode == domain.ExitInterrupted && ctx.Err() != nil
		if d.Critical || interrupted || isInternal(runErr) {
			return e.abort(ctx, res, outcome, runErr)
		}
		e.Logger.WarnContext(ctx, "non-critical stage failed, continuing",
			"stage", d.Name,
			"status", outcome.Status,
			"exit_code", outcome.ExitCode,
			"err", runErr,
		)
	}

	return res
}

func (e *Executor) runStage(ctx context.Context, settings Settings, d StageDescriptor) (domain.StageOutcome, error) {
	outcome := domain.StageOutcome{Stage: d.Name}

	if err := e.fireStart(ctx, &domain.StageEvent{
		Timestamp: e.now(),
		RunID:     settings.RunID(),
		Stage:     d.Name,
		DryRun:    settings.DryRun(),
	}); err != nil {
		outcome.Status = domain.StatusFailed
		outcome.ExitCode = domain.ExitFailure
		outcome.Timestamp = e.now()
		return outcome, err
	}

	switch {
	case settings.Skipped(d.Name):
		e.Logger.InfoContext(ctx, "skipping stage", "stage", d.Name)
		outcome.Status = domain.StatusSkipped
		outcome.Timestamp = e.now()
		return outcome, nil

	case settings.DryRun():
		e.Logger.InfoContext(ctx, "[DRY RUN] would run stage", "stage", d.Name, "cmd", d.Task.Describe())
		outcome.Status = domain.StatusDryRun
		outcome.Timestamp = e.now()
		return outcome, nil
	}

	return e.attempt(ctx, settings, d)
}

func (e *Executor) attempt(ctx context.Context, settings Settings, d StageDescriptor) (domain.StageOutcome, error) {
	e.Logger.InfoContext(ctx, "starting stage", "stage", d.Name)

	runCtx := ctx
	if d.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}

	lines := logging.NewLineWriter(e.OutputLogger.With("stage", d.Name), slog.LevelInfo)
	var out io.Writer = lines
	if e.Echo != nil {
		out = io.MultiWriter(lines, e.Echo)
	}
	rc := ports.RunContext{
		RunID:  settings.RunID(),
		Logger: e.Logger.With("stage", d.Name),
		Output: out,
		State:  e.State,
	}

	start := e.now()
	code, err := safeRun(runCtx, d.Task, rc)
	end := e.now()
	lines.Flush()

	outcome := domain.StageOutcome{
		Stage:     d.Name,
		Duration:  end.Sub(start),
		Timestamp: end,
		ExitCode:  code,
	}

	switch {
	// An interrupt wins over whatever error the task derived from it.
	case ctx.Err() != nil:
		outcome.Status = domain.StatusFailed
		outcome.ExitCode = domain.ExitInterrupted
		return outcome, fmt.Errorf("stage %s interrupted: %w", d.Name, ctx.Err())

	case errors.Is(err, domain.ErrMetadataUnavailable):
		e.Logger.WarnContext(ctx, "environment metadata unavailable, skipping stage", "stage", d.Name, "err", err)
		outcome.Status = domain.StatusSkipped
		outcome.Duration = 0
		outcome.ExitCode = 0
		return outcome, nil

	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		outcome.Status = domain.StatusTimeout
		outcome.ExitCode = domain.ExitTimeout
		return outcome, fmt.Errorf("stage %s exceeded timeout of %s", d.Name, d.Timeout)

	case err != nil:
		outcome.Status = domain.StatusFailed
		outcome.ExitCode = domain.NormalizeExitCode(code)
		return outcome, err

	case code != 0:
		outcome.Status = domain.StatusFailed
		return outcome, nil
	}

	outcome.Status = domain.StatusSuccess
	logging.Success(ctx, e.Logger, "stage completed", "stage", d.Name, "duration", outcome.Duration.Round(time.Millisecond))
	return outcome, nil
}

// internalError marks failures of the runner itself rather than of a task.
type internalError struct {
	err error
}

func (e *internalError) Error() string { return e.err.Error() }
func (e *internalError) Unwrap() error { return e.err }

func isInternal(err error) bool {
	var ie *internalError
	return errors.As(err, &ie)
}

func safeRun(ctx context.Context, task ports.Task, rc ports.RunContext) (code int, err error) {
	defer func() {
		if r := recover(); r != nil {
			code = domain.ExitFailure
			err = &internalError{err: fmt.Errorf("task panicked: %v", r)}
		}
	}()
	return task.Run(ctx, rc)
}

func (e *Executor) fireStart(ctx context.Context, ev *domain.StageEvent) (err error) {
	if e.Hooks.OnStageStart == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = &internalError{err: fmt.Errorf("stage start hook panicked: %v", r)}
		}
	}()
	e.Hooks.OnStageStart(ctx, ev)
	return nil
}

func (e *Executor) fireOutcome(ctx context.Context, o *domain.StageOutcome) (err error) {
	if e.Hooks.OnStageOutcome == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = &internalError{err: fmt.Errorf("stage outcome hook panicked: %v", r)}
		}
	}()
	e.Hooks.OnStageOutcome(ctx, o)
	return nil
}
