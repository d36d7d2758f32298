// Package preflight validates the host before any stage runs.
//
// Dependencies come in two classes. Hard dependencies are tools the pipeline
// cannot function without; a missing one aborts the run before anything is
// recorded. Soft dependencies are credentials needed by a single stage; a
// missing one degrades that stage to SKIPPED.
package preflight

import (
	"context"
	"log/slog"
	"os"
	"os/exec"
	"sort"

	"github.com/aretw0/clapper/pkg/domain"
)

// HardCheck is the result of looking up one required tool.
type HardCheck struct {
	Name      string
	Satisfied bool
	Path      string
}

// SoftCheck is the result of checking a stage's credentials.
type SoftCheck struct {
	Stage     domain.StageName
	Vars      []string
	Missing   []string
	Satisfied bool
}

// Result is the outcome of a preflight run.
type Result struct {
	Hard []HardCheck
	Soft []SoftCheck
}

// ForcedSkips lists the stages whose soft dependencies are unsatisfied, in stage order.
func (r Result) ForcedSkips() []domain.StageName {
	var out []domain.StageName
	for _, s := range r.Soft {
		if !s.Satisfied {
			out = append(out, s.Stage)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order() < out[j].Order() })
	return out
}

// Validator runs preflight checks.
type Validator struct {
	// Require lists hard tool dependencies.
	Require []string
	// Credentials lists soft dependencies per stage.
	Credentials map[domain.StageName][]string

	lookPath func(string) (string, error)
	getenv   func(string) (string, bool)
	logger   *slog.Logger
}

// Option configures a Validator.
type Option func(*Validator)

// WithLookPath overrides the executable lookup (exec.LookPath).
func WithLookPath(fn func(string) (string, error)) Option {
	return func(v *Validator) {
		v.lookPath = fn
	}
}

// WithEnv overrides the environment lookup (os.LookupEnv).
func WithEnv(fn func(string) (string, bool)) Option {
	return func(v *Validator) {
		v.getenv = fn
	}
}

// WithLogger sets the logger used for soft-dependency warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Validator) {
		v.logger = logger
	}
}

// New creates a Validator.
func New(require []string, credentials map[domain.StageName][]string, opts ...Option) *Validator {
	v := &Validator{
		Require:     require,
		Credentials: credentials,
		lookPath:    exec.LookPath,
		getenv:      os.LookupEnv,
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Run performs every check. skipped reports stages the operator already
// skipped; their soft dependencies are not evaluated. A missing hard
// dependency returns *domain.PreflightHardError together with the result.
func (v *Validator) Run(ctx context.Context, skipped func(domain.StageName) bool) (Result, error) {
	var res Result
	var missing []string

	for _, tool := range v.Require {
		path, err := v.lookPath(tool)
		check := HardCheck{Name: tool, Satisfied: err == nil, Path: path}
		res.Hard = append(res.Hard, check)
		if !check.Satisfied {
			missing = append(missing, tool)
			continue
		}
		v.logger.DebugContext(ctx, "preflight tool found", "tool", tool, "path", path)
	}
	if len(missing) > 0 {
		return res, &domain.PreflightHardError{Missing: missing}
	}

	for _, stage := range domain.Stages() {
		vars := v.Credentials[stage]
		if len(vars) == 0 || (skipped != nil && skipped(stage)) {
			continue
		}
		check := SoftCheck{Stage: stage, Vars: vars}
		for _, name := range vars {
			if val, ok := v.getenv(name); !ok || val == "" {
				check.Missing = append(check.Missing, name)
			}
		}
		check.Satisfied = len(check.Missing) == 0
		res.Soft = append(res.Soft, check)

		if !check.Satisfied {
			v.logger.WarnContext(ctx, "credentials missing, stage will be skipped",
				"stage", stage, "missing", check.Missing)
		}
	}

	return res, nil
}
