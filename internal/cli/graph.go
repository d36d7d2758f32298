package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/aretw0/clapper/internal/config"
	"github.com/aretw0/clapper/internal/presentation/graph"
	"github.com/aretw0/clapper/internal/tasks"
)

// GraphOptions selects the pipeline to draw and, optionally, a run to overlay.
type GraphOptions struct {
	// Pipeline is the definition file; Explicit makes a missing file an error.
	Pipeline string
	Explicit bool

	StageTimeout time.Duration

	// Overlay colors the stages with the outcomes of the run picked by Status.
	Overlay bool
	Status  StatusOptions

	Stdout io.Writer
}

// Graph writes the stage chain as a Mermaid flowchart.
func Graph(ctx context.Context, opts GraphOptions) error {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}

	pipe, err := config.LoadPipeline(opts.Pipeline, opts.Explicit)
	if err != nil {
		return err
	}
	stages := tasks.Descriptors(pipe, tasks.Options{StageTimeout: opts.StageTimeout})

	var overlay *graph.Overlay
	if opts.Overlay {
		_, outcomes, _, err := loadRun(ctx, opts.Status)
		if err != nil {
			return err
		}
		overlay = &graph.Overlay{Outcomes: outcomes}
	}

	_, err = fmt.Fprint(opts.Stdout, graph.GenerateMermaid(stages, overlay))
	return err
}
