package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/aretw0/clapper/internal/config"
	"github.com/aretw0/clapper/internal/logging"
	"github.com/aretw0/clapper/internal/metrics"
	"github.com/aretw0/clapper/internal/preflight"
	"github.com/aretw0/clapper/internal/tasks"
	"github.com/aretw0/clapper/pkg/adapters/file"
	"github.com/aretw0/clapper/pkg/adapters/process"
	"github.com/aretw0/clapper/pkg/adapters/redis"
	"github.com/aretw0/clapper/pkg/domain"
	"github.com/aretw0/clapper/pkg/pipeline"
	"github.com/aretw0/clapper/pkg/ports"
	"github.com/aretw0/clapper/pkg/report"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

// DefaultDotEnv is loaded from the working directory before resolution.
const DefaultDotEnv = ".env"

// redisPingTimeout bounds the connectivity check of the mirror sink.
const redisPingTimeout = 3 * time.Second

// RunOptions contains everything the run command needs from the outside.
// Zero values select the real host.
type RunOptions struct {
	// Flags holds the explicitly set flags by name.
	Flags map[string]string

	// DotEnv is loaded (without overriding set variables) when non-empty.
	DotEnv string

	Env      func(string) (string, bool)
	LookPath func(string) (string, error)
	Now      func() time.Time

	Stdout io.Writer
	Stderr io.Writer

	// Styled forces the summary style; nil detects a terminal.
	Styled *bool

	// Tasks replaces the task of the given stages.
	Tasks map[domain.StageName]ports.Task

	// Metadata replaces the instance metadata resolver.
	Metadata *tasks.Metadata
}

func (o *RunOptions) defaults() {
	if o.Env == nil {
		o.Env = os.LookupEnv
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
}

// Execute performs one pipeline run and returns the process exit code.
// A non-nil error accompanies every nonzero code; a *domain.UsageError means
// the caller should print usage.
func Execute(ctx context.Context, opts RunOptions) (int, error) {
	opts.defaults()

	if opts.DotEnv != "" {
		if err := godotenv.Load(opts.DotEnv); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return domain.ExitFailure, &domain.UsageError{Msg: "failed to load " + opts.DotEnv, Err: err}
		}
	}

	cfg, err := config.Resolve(config.Sources{Env: opts.Env, Flags: opts.Flags, Now: opts.Now()})
	if err != nil {
		return domain.ExitFailure, err
	}

	consoleLevel := slog.LevelInfo
	if cfg.Verbose() {
		consoleLevel = slog.LevelDebug
	}
	console := logging.NewConsoleHandler(opts.Stderr, consoleLevel)

	pipelinePath, explicit := cfg.PipelineFile()
	pipe, err := config.LoadPipeline(pipelinePath, explicit)
	if err != nil {
		slog.New(console).Error("invalid pipeline configuration", "err", err)
		return domain.ExitFailure, err
	}

	// Run log
	if err := os.MkdirAll(cfg.LogDir(), 0755); err != nil {
		return domain.ExitFailure, fmt.Errorf("failed to create log directory: %w", err)
	}
	logFile, err := os.OpenFile(cfg.LogPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return domain.ExitFailure, fmt.Errorf("failed to open run log: %w", err)
	}
	defer logFile.Close()

	runLog := logging.NewRunLogHandler(logFile, slog.LevelInfo)
	logger := slog.New(logging.Fanout(console, runLog))
	runUUID := uuid.NewString()

	logger.InfoContext(ctx, "pipeline run started",
		"run_id", cfg.RunID(),
		"run_uuid", runUUID,
		"dry_run", cfg.DryRun(),
		"log", cfg.LogPath(),
	)

	// Preflight
	lookPath := opts.LookPath
	validatorOpts := []preflight.Option{
		preflight.WithEnv(opts.Env),
		preflight.WithLogger(logger),
	}
	if lookPath != nil {
		validatorOpts = append(validatorOpts, preflight.WithLookPath(lookPath))
	}
	validator := preflight.New(pipe.Preflight.Require, tasks.Credentials(pipe), validatorOpts...)
	checks, err := validator.Run(ctx, cfg.Skipped)
	if err != nil {
		logger.ErrorContext(ctx, "preflight failed, no stage will run", "err", err)
		return domain.ExitFailure, err
	}
	cfg = cfg.WithForcedSkips(checks.ForcedSkips()...)

	// State
	sink, err := openStateSink(ctx, cfg, logger)
	if err != nil {
		logger.ErrorContext(ctx, "failed to open state sink", "err", err)
		return domain.ExitFailure, err
	}
	defer sink.Close()

	// Observability
	hooks := domain.LifecycleHooks{}
	if cfg.Verbose() {
		hooks = hooks.Merge(createDebugHooks(logger))
	}
	var recorder *metrics.Recorder
	if cfg.MetricsFile() != "" {
		recorder = metrics.New()
		hooks = hooks.Merge(recorder.Hooks())
	}

	stages := tasks.Descriptors(pipe, tasks.Options{
		RunID:        cfg.RunID(),
		ManifestPath: cfg.ManifestPath(),
		StageTimeout: cfg.StageTimeout(),
		Metadata:     opts.Metadata,
		Runner: process.NewRunner(
			process.WithBaseDir(pipe.Workdir),
			process.WithEnv(map[string]string{
				"CLAPPER_RUN_ID":   cfg.RunID(),
				"CLAPPER_RUN_UUID": runUUID,
				"CLAPPER_DRY_RUN":  fmt.Sprint(cfg.DryRun()),
			}),
		),
	})
	for i := range stages {
		if t, ok := opts.Tasks[stages[i].Name]; ok {
			stages[i].Task = t
		}
	}

	execOpts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithOutputLogger(slog.New(runLog)),
		pipeline.WithHooks(hooks),
		pipeline.WithClock(opts.Now),
	}
	if cfg.Verbose() {
		execOpts = append(execOpts, pipeline.WithEcho(opts.Stderr))
	}
	res := pipeline.NewExecutor(sink, execOpts...).Run(ctx, cfg, stages)
	finishedAt := opts.Now()

	if res.OK() {
		logging.Success(ctx, logger, "pipeline finished", "run_id", cfg.RunID(), "outcomes", len(res.Outcomes))
	} else {
		logger.ErrorContext(ctx, "pipeline aborted", "run_id", cfg.RunID(), "exit_code", res.ExitCode)
	}

	// Summary
	reporterOpts := []report.Option{}
	if opts.Styled != nil {
		reporterOpts = append(reporterOpts, report.WithStyled(*opts.Styled))
	}
	summary := report.Summary{
		RunID:      cfg.RunID(),
		LogPath:    cfg.LogPath(),
		StatePath:  cfg.StatePath(),
		StartedAt:  cfg.StartedAt(),
		FinishedAt: finishedAt,
		DryRun:     cfg.DryRun(),
		ExitCode:   res.ExitCode,
		Outcomes:   res.Outcomes,
	}
	if err := report.New(opts.Stdout, reporterOpts...).Render(summary); err != nil {
		logger.WarnContext(ctx, "failed to render summary", "err", err)
	}

	if recorder != nil {
		recorder.Finish(res.ExitCode, finishedAt.Unix())
		if err := recorder.WriteFile(cfg.MetricsFile()); err != nil {
			logger.WarnContext(ctx, "failed to write metrics", "path", cfg.MetricsFile(), "err", err)
		}
	}

	return res.ExitCode, res.Err
}

// openStateSink opens the state file and, when configured, a Redis mirror.
// An unreachable mirror is logged and left out; the file is authoritative.
func openStateSink(ctx context.Context, cfg config.RunConfig, logger *slog.Logger) (ports.StateSink, error) {
	primary, err := file.OpenStateSink(cfg.StatePath())
	if err != nil {
		return nil, err
	}

	url := cfg.StateRedisURL()
	if url == "" {
		return primary, nil
	}

	mirror, err := redis.Open(url, cfg.RunID())
	if err != nil {
		logger.WarnContext(ctx, "state mirror disabled", "err", err)
		return primary, nil
	}
	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := mirror.Ping(pingCtx); err != nil {
		_ = mirror.Close()
		logger.WarnContext(ctx, "state mirror unreachable", "err", err)
		return primary, nil
	}

	logger.DebugContext(ctx, "mirroring state to redis", "key", redis.DefaultPrefix+cfg.RunID())
	return ports.TeeStateSink(primary, func(err error) {
		logger.WarnContext(ctx, "state mirror write failed", "err", err)
	}, mirror), nil
}
