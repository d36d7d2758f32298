package ports

import (
	"context"
	"errors"

	"github.com/aretw0/clapper/pkg/domain"
)

// StateSink defines the interface for recording stage outcomes.
// Implementations are append-only: a recorded outcome is never rewritten.
type StateSink interface {
	// Append durably records one outcome after all previous ones.
	Append(ctx context.Context, outcome domain.StageOutcome) error

	// Outcomes returns every outcome recorded so far, in append order.
	Outcomes(ctx context.Context) ([]domain.StageOutcome, error)

	// Close releases the underlying resources.
	Close() error
}

// TeeStateSink writes to a primary sink and mirrors every outcome to
// secondary sinks. Only primary errors fail an Append; mirror errors are
// passed to onMirrorErr. Outcomes are always read from the primary.
func TeeStateSink(primary StateSink, onMirrorErr func(error), mirrors ...StateSink) StateSink {
	if onMirrorErr == nil {
		onMirrorErr = func(error) {}
	}
	return &teeSink{primary: primary, mirrors: mirrors, onMirrorErr: onMirrorErr}
}

type teeSink struct {
	primary     StateSink
	mirrors     []StateSink
	onMirrorErr func(error)
}

func (t *teeSink) Append(ctx context.Context, outcome domain.StageOutcome) error {
	if err := t.primary.Append(ctx, outcome); err != nil {
		return err
	}
	for _, m := range t.mirrors {
		if err := m.Append(ctx, outcome); err != nil {
			t.onMirrorErr(err)
		}
	}
	return nil
}

func (t *teeSink) Outcomes(ctx context.Context) ([]domain.StageOutcome, error) {
	return t.primary.Outcomes(ctx)
}

func (t *teeSink) Close() error {
	errs := []error{t.primary.Close()}
	for _, m := range t.mirrors {
		errs = append(errs, m.Close())
	}
	return errors.Join(errs...)
}
