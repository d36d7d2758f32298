package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sort"
	"time"

	"github.com/aretw0/clapper/pkg/domain"
)

// ExitNotFound is reported when the executable cannot be started.
const ExitNotFound = 127

// DefaultGracePeriod bounds how long Run waits for output pipes after the
// process group has been killed.
const DefaultGracePeriod = 5 * time.Second

// Command is one external process invocation.
type Command struct {
	Name string
	Args []string
	Dir  string
	Env  map[string]string
}

// Runner executes local processes.
// Each child gets its own process group so a timeout kills the whole tree
// (e.g. python spawning ffmpeg), not just the direct child.
type Runner struct {
	baseDir     string
	env         map[string]string
	gracePeriod time.Duration
}

// RunnerOption configures the runner.
type RunnerOption func(*Runner)

// WithBaseDir sets the working directory for commands that do not set one.
func WithBaseDir(dir string) RunnerOption {
	return func(r *Runner) {
		r.baseDir = dir
	}
}

// WithEnv adds variables to the environment of every command.
// A command's own Env wins on conflict.
func WithEnv(env map[string]string) RunnerOption {
	return func(r *Runner) {
		r.env = env
	}
}

// WithGracePeriod sets how long to wait for I/O after a kill.
func WithGracePeriod(d time.Duration) RunnerOption {
	return func(r *Runner) {
		r.gracePeriod = d
	}
}

// NewRunner creates a new Process Runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{gracePeriod: DefaultGracePeriod}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run starts the command, streams its combined stdout/stderr to out and
// waits for it. A process that ran and exited nonzero is not an error: its
// exit code is returned with a nil error. Errors are returned when the
// process could not be started (ExitNotFound) or when ctx ended first
// (domain.ExitTimeout for deadlines, domain.ExitInterrupted otherwise).
func (r *Runner) Run(ctx context.Context, c Command, out io.Writer) (int, error) {
	if err := ctx.Err(); err != nil {
		return contextExitCode(err), err
	}
	if out == nil {
		out = io.Discard
	}

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	if cmd.Dir == "" {
		cmd.Dir = r.baseDir
	}
	if len(r.env) > 0 || len(c.Env) > 0 {
		cmd.Env = append(cmd.Environ(), envList(r.env)...)
		cmd.Env = append(cmd.Env, envList(c.Env)...)
	}
	cmd.Stdout = out
	cmd.Stderr = out
	configureProcessGroup(cmd)
	cmd.Cancel = func() error {
		return killProcessGroup(cmd)
	}
	cmd.WaitDelay = r.gracePeriod

	if err := cmd.Start(); err != nil {
		return ExitNotFound, fmt.Errorf("failed to start %s: %w", c.Name, err)
	}

	err := cmd.Wait()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return contextExitCode(ctxErr), ctxErr
	}
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitCode(exitErr), nil
	}
	return domain.ExitFailure, fmt.Errorf("%s: %w", c.Name, err)
}

func contextExitCode(err error) int {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.ExitTimeout
	}
	return domain.ExitInterrupted
}

func envList(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+env[k])
	}
	return out
}
