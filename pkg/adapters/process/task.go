package process

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/clapper/pkg/domain"
	"github.com/aretw0/clapper/pkg/ports"
)

// Resolver supplies the value of a placeholder when the task runs.
type Resolver func(ctx context.Context) (string, error)

func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Task implements ports.Task as a sequence of commands.
// Commands run in order and the first nonzero exit code ends the task.
type Task struct {
	runner    *Runner
	commands  []Command
	resolvers map[string]Resolver
}

// TaskOption configures a Task.
type TaskOption func(*Task)

// WithResolver registers the resolver for a placeholder such as "{{title}}".
// Resolvers are only called when a command argument uses the placeholder.
func WithResolver(placeholder string, fn Resolver) TaskOption {
	return func(t *Task) {
		t.resolvers[placeholder] = fn
	}
}

// NewTask creates a task running commands with runner.
func NewTask(runner *Runner, commands []Command, opts ...TaskOption) *Task {
	t := &Task{
		runner:    runner,
		commands:  commands,
		resolvers: make(map[string]Resolver),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Describe lists the commands, placeholders unexpanded.
func (t *Task) Describe() string {
	parts := make([]string, len(t.commands))
	for i, c := range t.commands {
		parts[i] = c.String()
	}
	return strings.Join(parts, " && ")
}

// Run resolves placeholders, then runs each command with its output sent to
// rc.Output. Resolver errors are returned as-is (wrapped), so a
// domain.ErrMetadataUnavailable from a resolver reaches the executor.
func (t *Task) Run(ctx context.Context, rc ports.RunContext) (int, error) {
	commands, err := t.expand(ctx)
	if err != nil {
		return domain.ExitFailure, err
	}

	for _, c := range commands {
		if rc.Logger != nil {
			rc.Logger.DebugContext(ctx, "exec", "cmd", c.String(), "dir", c.Dir)
		}
		code, err := t.runner.Run(ctx, c, rc.Output)
		if err != nil || code != 0 {
			return code, err
		}
	}
	return 0, nil
}

func (t *Task) expand(ctx context.Context) ([]Command, error) {
	values := make(map[string]string)
	out := make([]Command, len(t.commands))
	for i, c := range t.commands {
		args := make([]string, len(c.Args))
		for j, arg := range c.Args {
			expanded, err := t.substitute(ctx, arg, values)
			if err != nil {
				return nil, err
			}
			args[j] = expanded
		}
		c.Args = args
		out[i] = c
	}
	return out, nil
}

func (t *Task) substitute(ctx context.Context, arg string, values map[string]string) (string, error) {
	for placeholder, resolve := range t.resolvers {
		if !strings.Contains(arg, placeholder) {
			continue
		}
		v, ok := values[placeholder]
		if !ok {
			var err error
			v, err = resolve(ctx)
			if err != nil {
				return "", fmt.Errorf("resolve %s: %w", placeholder, err)
			}
			values[placeholder] = v
		}
		arg = strings.ReplaceAll(arg, placeholder, v)
	}
	return arg, nil
}
