package pipeline

import (
	"context"
	"time"

	"github.com/aretw0/clapper/pkg/domain"
)

// abort stops the run on a failed outcome. It logs the failure, dumps the
// recorded state to the log and sets the exit code.
func (e *Executor) abort(ctx context.Context, res Result, failed domain.StageOutcome, cause error) Result {
	code := domain.NormalizeExitCode(failed.ExitCode)

	e.Logger.ErrorContext(ctx, "stage failed, aborting run",
		"stage", failed.Stage,
		"status", failed.Status,
		"exit_code", code,
		"duration", failed.Duration.Round(time.Millisecond),
		"err", cause,
	)
	e.dumpState(ctx, res.Outcomes)

	res.Failed = &failed
	res.ExitCode = code
	res.Err = &domain.StageExecutionError{
		Stage:    failed.Stage,
		Status:   failed.Status,
		ExitCode: code,
		Duration: failed.Duration,
		Err:      cause,
	}
	return res
}

// abortInternal stops the run on an error of the runner itself.
func (e *Executor) abortInternal(ctx context.Context, res Result, code int, err error) Result {
	e.Logger.ErrorContext(ctx, "internal error, aborting run", "err", err)
	e.dumpState(ctx, res.Outcomes)

	res.ExitCode = code
	res.Err = err
	return res
}

// dumpState writes the run state as stored by the sink. If the sink cannot
// be read back, the in-memory outcomes are dumped instead.
func (e *Executor) dumpState(ctx context.Context, fallback []domain.StageOutcome) {
	outcomes, err := e.State.Outcomes(context.WithoutCancel(ctx))
	if err != nil {
		e.Logger.WarnContext(ctx, "failed to read back run state", "err", err)
		outcomes = fallback
	}

	e.Logger.InfoContext(ctx, "run state", "outcomes", len(outcomes))
	for _, o := range outcomes {
		e.Logger.InfoContext(ctx, "  "+domain.FormatOutcome(o))
	}
}
