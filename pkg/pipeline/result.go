package pipeline

import "github.com/aretw0/clapper/pkg/domain"

// Result is what a run produced.
type Result struct {
	// Outcomes in stage order, as appended to the state sink.
	Outcomes []domain.StageOutcome

	// ExitCode is 0 unless the run was aborted.
	ExitCode int

	// Failed is the outcome that aborted the run, if any.
	Failed *domain.StageOutcome

	// Err explains the abort.
	Err error
}

// OK reports whether the run finished without an abort.
func (r Result) OK() bool {
	return r.ExitCode == domain.ExitOK
}
