package memory

import (
	"context"
	"sync"

	"github.com/aretw0/clapper/pkg/domain"
)

// StateSink implements ports.StateSink in memory.
// Safe for concurrent use.
type StateSink struct {
	mu       sync.RWMutex
	outcomes []domain.StageOutcome

	// FailOn makes Append fail for the given stage. Used to exercise sink errors.
	FailOn map[domain.StageName]error
}

// NewStateSink creates an empty in-memory sink.
func NewStateSink() *StateSink {
	return &StateSink{}
}

// Append records the outcome.
func (s *StateSink) Append(ctx context.Context, outcome domain.StageOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err, ok := s.FailOn[outcome.Stage]; ok {
		return err
	}
	s.outcomes = append(s.outcomes, outcome)
	return nil
}

// Outcomes returns a copy so callers can't mutate recorded outcomes.
func (s *StateSink) Outcomes(ctx context.Context) ([]domain.StageOutcome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.StageOutcome, len(s.outcomes))
	copy(out, s.outcomes)
	return out, nil
}

// Lines returns the recorded outcomes in state line format.
func (s *StateSink) Lines() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lines := make([]string, 0, len(s.outcomes))
	for _, o := range s.outcomes {
		lines = append(lines, domain.FormatOutcome(o))
	}
	return lines
}

func (s *StateSink) Close() error { return nil }
