package pipeline

import (
	"fmt"
	"time"

	"github.com/aretw0/clapper/pkg/domain"
	"github.com/aretw0/clapper/pkg/ports"
)

// StageDescriptor is the static definition of a stage.
type StageDescriptor struct {
	Name domain.StageName

	// Critical stages abort the run when they fail or time out.
	Critical bool

	// Timeout bounds a single attempt. Zero means no limit.
	Timeout time.Duration

	Task ports.Task
}

// Order is the fixed position of the stage in the chain.
func (d StageDescriptor) Order() int {
	return d.Name.Order()
}

// Settings is the read-only view of the run configuration the executor needs.
type Settings interface {
	RunID() string
	DryRun() bool
	Skipped(stage domain.StageName) bool
}

func validate(stages []StageDescriptor) error {
	last := 0
	for _, d := range stages {
		if !d.Name.Valid() {
			return fmt.Errorf("%w: %q", domain.ErrUnknownStage, d.Name)
		}
		if d.Order() <= last {
			return fmt.Errorf("stage %s is out of order or duplicated", d.Name)
		}
		if d.Task == nil {
			return fmt.Errorf("stage %s has no task", d.Name)
		}
		last = d.Order()
	}
	return nil
}
