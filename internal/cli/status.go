package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/aretw0/clapper/internal/config"
	"github.com/aretw0/clapper/pkg/adapters/file"
	"github.com/aretw0/clapper/pkg/adapters/redis"
	"github.com/aretw0/clapper/pkg/domain"
	"github.com/aretw0/clapper/pkg/report"
)

// StatusOptions selects which recorded run to show.
type StatusOptions struct {
	LogDir string

	// RunID picks a run; empty means the most recent one.
	RunID string

	// RedisURL reads the mirror instead of the local state files.
	RedisURL string

	Stdout io.Writer
	Styled *bool
}

// ListRuns returns the recorded run ids, oldest first.
func ListRuns(ctx context.Context, opts StatusOptions) ([]string, error) {
	if opts.RedisURL != "" {
		sink, err := redis.Open(opts.RedisURL, "")
		if err != nil {
			return nil, err
		}
		defer sink.Close()
		return sink.Runs(ctx)
	}

	matches, err := filepath.Glob(filepath.Join(opts.LogDir, "pipeline_*.state"))
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		if id, ok := config.RunIDFromStatePath(m); ok {
			ids = append(ids, id)
		}
	}
	// Run ids are UTC timestamps, so lexical order is chronological.
	sort.Strings(ids)
	return ids, nil
}

// Status renders the recorded outcomes of one run.
func Status(ctx context.Context, opts StatusOptions) error {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}

	runID, outcomes, statePath, err := loadRun(ctx, opts)
	if err != nil {
		return err
	}

	summary := report.Summary{
		RunID:     runID,
		LogPath:   config.LogPathFor(opts.LogDir, runID),
		StatePath: statePath,
		Outcomes:  outcomes,
		Replay:    true,
	}
	if started, err := time.Parse(config.RunIDLayout, runID); err == nil {
		summary.StartedAt = started
		summary.FinishedAt = started
	}
	if n := len(outcomes); n > 0 {
		summary.FinishedAt = outcomes[n-1].Timestamp
		summary.DryRun = dryRunOnly(outcomes)
	}

	var reporterOpts []report.Option
	if opts.Styled != nil {
		reporterOpts = append(reporterOpts, report.WithStyled(*opts.Styled))
	}
	return report.New(opts.Stdout, reporterOpts...).Render(summary)
}

// loadRun reads the outcomes of the selected run, or of the latest one.
func loadRun(ctx context.Context, opts StatusOptions) (runID string, outcomes []domain.StageOutcome, source string, err error) {
	runID = opts.RunID
	if runID == "" {
		ids, err := ListRuns(ctx, opts)
		if err != nil {
			return "", nil, "", err
		}
		if len(ids) == 0 {
			return "", nil, "", fmt.Errorf("no recorded runs")
		}
		runID = ids[len(ids)-1]
	}

	if opts.RedisURL != "" {
		sink, err := redis.Open(opts.RedisURL, runID)
		if err != nil {
			return "", nil, "", err
		}
		defer sink.Close()
		outcomes, err = sink.Outcomes(ctx)
		return runID, outcomes, redis.DefaultPrefix + runID, err
	}

	source = config.StatePathFor(opts.LogDir, runID)
	if _, err := os.Stat(source); err != nil {
		return "", nil, "", fmt.Errorf("run %s: %w", runID, err)
	}
	outcomes, err = file.ReadOutcomes(source)
	return runID, outcomes, source, err
}

// dryRunOnly reports whether the outcomes come from a dry run.
func dryRunOnly(outcomes []domain.StageOutcome) bool {
	dry := false
	for _, o := range outcomes {
		switch o.Status {
		case domain.StatusDryRun:
			dry = true
		case domain.StatusSkipped:
		default:
			return false
		}
	}
	return dry
}
