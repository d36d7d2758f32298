package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aretw0/clapper/pkg/domain"
	"gopkg.in/yaml.v3"
)

// Placeholders substituted into command arguments at run time.
const (
	PlaceholderTitle      = "{{title}}"
	PlaceholderInstanceID = "{{instance_id}}"
	PlaceholderRunID      = "{{run_id}}"
)

// CommandSpec is one external command.
type CommandSpec struct {
	Command string            `yaml:"command" json:"command"`
	Args    []string          `yaml:"args" json:"args"`
	Env     map[string]string `yaml:"env" json:"env"`
}

func (c CommandSpec) String() string {
	return strings.TrimSpace(c.Command + " " + strings.Join(c.Args, " "))
}

// StageSpec configures the external task behind a stage.
type StageSpec struct {
	// Commands run in order; the first nonzero exit fails the stage.
	Commands []CommandSpec `yaml:"commands" json:"commands"`
	// Dir overrides the pipeline working directory.
	Dir string `yaml:"dir" json:"dir"`
	// Timeout is a Go duration string; empty means the run default.
	Timeout string `yaml:"timeout" json:"timeout"`
	// Critical defaults to true: a failure stops the run.
	Critical *bool `yaml:"critical" json:"critical"`
	// Credentials are soft dependencies: if any is unset the stage is skipped.
	Credentials []string `yaml:"credentials" json:"credentials"`

	timeout time.Duration
}

// IsCritical reports whether a failure of this stage aborts the run.
func (s StageSpec) IsCritical() bool {
	return s.Critical == nil || *s.Critical
}

// TimeoutOr returns the stage timeout, or fallback when none is configured.
func (s StageSpec) TimeoutOr(fallback time.Duration) time.Duration {
	if s.timeout > 0 {
		return s.timeout
	}
	return fallback
}

// PreflightSpec lists the hard dependencies.
type PreflightSpec struct {
	Require []string `yaml:"require" json:"require"`
}

// Pipeline is the on-disk pipeline definition.
type Pipeline struct {
	Workdir   string               `yaml:"workdir" json:"workdir"`
	Preflight PreflightSpec        `yaml:"preflight" json:"preflight"`
	Stages    map[string]StageSpec `yaml:"stages" json:"stages"`

	stages map[domain.StageName]StageSpec
}

// Stage returns the spec of a stage (zero value if the pipeline has none).
func (p *Pipeline) Stage(name domain.StageName) StageSpec {
	return p.stages[name]
}

// DefaultPipeline is the built-in definition, matching the stock scripts.
func DefaultPipeline() *Pipeline {
	py := func(script string, args ...string) CommandSpec {
		return CommandSpec{Command: "python3", Args: append([]string{script}, args...)}
	}
	p := &Pipeline{
		Preflight: PreflightSpec{Require: []string{"python3", "ffmpeg"}},
		Stages: map[string]StageSpec{
			string(domain.StageScriptGeneration): {
				Commands: []CommandSpec{py("generate_brief.py")},
			},
			string(domain.StageVideoCreation): {
				Commands: []CommandSpec{
					py("generate_images.py"),
					py("generate_voice.py"),
					py("edit_video.py"),
				},
			},
			string(domain.StageYoutubeUpload): {
				Commands:    []CommandSpec{py("upload_youtube.py", "--title", PlaceholderTitle)},
				Credentials: []string{"YOUTUBE_CLIENT_ID", "YOUTUBE_CLIENT_SECRET", "YOUTUBE_REFRESH_TOKEN"},
			},
			string(domain.StageEc2Shutdown): {
				Commands: []CommandSpec{{
					Command: "aws",
					Args:    []string{"ec2", "stop-instances", "--instance-ids", PlaceholderInstanceID},
				}},
			},
		},
	}
	if err := p.normalize(); err != nil {
		panic(err)
	}
	return p
}

// LoadPipeline reads a pipeline file (YAML or JSON by extension) and layers
// it over the defaults. A missing file yields the defaults unless required.
func LoadPipeline(path string, required bool) (*Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !required {
			return DefaultPipeline(), nil
		}
		return nil, fmt.Errorf("failed to read pipeline config: %w", err)
	}

	var file Pipeline
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := json.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	} else {
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	merged := DefaultPipeline()
	merged.overlay(&file)
	if err := merged.normalize(); err != nil {
		return nil, fmt.Errorf("invalid pipeline %s: %w", path, err)
	}
	return merged, nil
}

func (p *Pipeline) overlay(o *Pipeline) {
	if o.Workdir != "" {
		p.Workdir = o.Workdir
	}
	if o.Preflight.Require != nil {
		p.Preflight.Require = o.Preflight.Require
	}
	for name, spec := range o.Stages {
		base := p.Stages[name]
		if spec.Commands != nil {
			base.Commands = spec.Commands
		}
		if spec.Dir != "" {
			base.Dir = spec.Dir
		}
		if spec.Timeout != "" {
			base.Timeout = spec.Timeout
		}
		if spec.Critical != nil {
			base.Critical = spec.Critical
		}
		if spec.Credentials != nil {
			base.Credentials = spec.Credentials
		}
		p.Stages[name] = base
	}
}

func (p *Pipeline) normalize() error {
	p.stages = make(map[domain.StageName]StageSpec, len(p.Stages))
	for raw, spec := range p.Stages {
		name, err := domain.ParseStageName(raw)
		if err != nil {
			return err
		}
		if spec.Timeout != "" {
			d, err := time.ParseDuration(spec.Timeout)
			if err != nil || d < 0 {
				return fmt.Errorf("stage %s: invalid timeout %q", name, spec.Timeout)
			}
			spec.timeout = d
		}
		for i, c := range spec.Commands {
			if strings.TrimSpace(c.Command) == "" {
				return fmt.Errorf("stage %s: command %d is empty", name, i+1)
			}
		}
		if spec.Dir == "" {
			spec.Dir = p.Workdir
		}
		p.stages[name] = spec
	}
	return nil
}
