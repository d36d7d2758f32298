// Package tasks turns the pipeline definition into runnable stages.
package tasks

import (
	"context"
	"time"

	"github.com/aretw0/clapper/internal/config"
	"github.com/aretw0/clapper/pkg/adapters/process"
	"github.com/aretw0/clapper/pkg/domain"
	"github.com/aretw0/clapper/pkg/pipeline"
)

// Options carries what the stage tasks need at run time.
type Options struct {
	RunID        string
	ManifestPath string

	// StageTimeout applies to stages without their own timeout.
	StageTimeout time.Duration

	Runner   *process.Runner
	Metadata *Metadata
}

// Descriptors builds one descriptor per stage, in stage order.
func Descriptors(p *config.Pipeline, o Options) []pipeline.StageDescriptor {
	if o.Runner == nil {
		o.Runner = process.NewRunner(process.WithBaseDir(p.Workdir))
	}
	if o.Metadata == nil {
		o.Metadata = NewMetadata()
	}

	resolvers := []process.TaskOption{
		process.WithResolver(config.PlaceholderRunID, func(context.Context) (string, error) {
			return o.RunID, nil
		}),
		process.WithResolver(config.PlaceholderTitle, func(context.Context) (string, error) {
			m, err := ReadManifest(o.ManifestPath)
			if err != nil {
				return "", err
			}
			return m.Title, nil
		}),
		process.WithResolver(config.PlaceholderInstanceID, o.Metadata.InstanceID),
	}

	stages := domain.Stages()
	out := make([]pipeline.StageDescriptor, 0, len(stages))
	for _, name := range stages {
		spec := p.Stage(name)
		out = append(out, pipeline.StageDescriptor{
			Name:     name,
			Critical: spec.IsCritical(),
			Timeout:  spec.TimeoutOr(o.StageTimeout),
			Task:     process.NewTask(o.Runner, commands(spec), resolvers...),
		})
	}
	return out
}

// Credentials returns the soft dependencies of every stage.
func Credentials(p *config.Pipeline) map[domain.StageName][]string {
	out := make(map[domain.StageName][]string)
	for _, name := range domain.Stages() {
		if vars := p.Stage(name).Credentials; len(vars) > 0 {
			out[name] = vars
		}
	}
	return out
}

func commands(spec config.StageSpec) []process.Command {
	out := make([]process.Command, len(spec.Commands))
	for i, c := range spec.Commands {
		out[i] = process.Command{
			Name: c.Command,
			Args: c.Args,
			Dir:  spec.Dir,
			Env:  c.Env,
		}
	}
	return out
}
