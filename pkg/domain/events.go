package domain

import (
	"context"
	"time"
)

// StageEvent describes a stage about to run.
type StageEvent struct {
	Timestamp time.Time
	RunID     string
	Stage     StageName
	DryRun    bool
}

// LifecycleHooks defines callbacks for runner observability.
// Hooks must not block; they run on the executor goroutine.
type LifecycleHooks struct {
	OnStageStart   func(context.Context, *StageEvent)
	OnStageOutcome func(context.Context, *StageOutcome)
}

// Merge returns hooks that call h first and then other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnStageStart: func(ctx context.Context, e *StageEvent) {
			if h.OnStageStart != nil {
				h.OnStageStart(ctx, e)
			}
			if other.OnStageStart != nil {
				other.OnStageStart(ctx, e)
			}
		},
		OnStageOutcome: func(ctx context.Context, o *StageOutcome) {
			if h.OnStageOutcome != nil {
				h.OnStageOutcome(ctx, o)
			}
			if other.OnStageOutcome != nil {
				other.OnStageOutcome(ctx, o)
			}
		},
	}
}
