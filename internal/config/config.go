package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/aretw0/clapper/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// RunIDLayout formats the run start time into the run identifier.
const RunIDLayout = "20060102T150405Z"

// options is the decode target of the merged layers.
type options struct {
	DryRun               bool          `mapstructure:"dry_run"`
	SkipScriptGeneration bool          `mapstructure:"skip_script_generation"`
	SkipVideoCreation    bool          `mapstructure:"skip_video_creation"`
	SkipYoutubeUpload    bool          `mapstructure:"skip_youtube_upload"`
	SkipEc2Shutdown      bool          `mapstructure:"skip_ec2_shutdown"`
	Verbose              bool          `mapstructure:"verbose"`
	LogDir               string        `mapstructure:"log_dir"`
	Pipeline             string        `mapstructure:"pipeline"`
	StageTimeout         time.Duration `mapstructure:"stage_timeout"`
	Manifest             string        `mapstructure:"manifest"`
	StateRedisURL        string        `mapstructure:"state_redis_url"`
	MetricsFile          string        `mapstructure:"metrics_file"`
}

// RunConfig is the resolved, immutable configuration of one run.
// Fields are read through accessors; the With* methods return modified copies.
type RunConfig struct {
	opts          options
	skip          map[domain.StageName]bool
	forced        map[domain.StageName]bool
	pipelineIsSet bool
	runID         string
	startedAt     time.Time
}

// Sources are the inputs to Resolve.
type Sources struct {
	// Env looks up an environment variable.
	Env func(string) (string, bool)
	// Flags holds the explicitly set flags by flag name, as strings.
	Flags map[string]string
	// Now is the run start time. Zero means time.Now().
	Now time.Time
}

// Resolve merges defaults, environment and explicit flags into a RunConfig.
// Bad values are reported as *domain.UsageError.
func Resolve(src Sources) (RunConfig, error) {
	merged := Defaults()
	pipelineIsSet := false

	for _, o := range Options {
		if src.Env == nil {
			break
		}
		if v, ok := src.Env(o.Env); ok && v != "" {
			merged[o.Key] = v
			if o.Key == "pipeline" {
				pipelineIsSet = true
			}
		}
	}
	for name, v := range src.Flags {
		o, ok := LookupFlag(name)
		if !ok {
			return RunConfig{}, &domain.UsageError{Msg: fmt.Sprintf("unknown flag: --%s", name)}
		}
		merged[o.Key] = v
		if o.Key == "pipeline" {
			pipelineIsSet = true
		}
	}

	var opts options
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			stringToBoolHook,
			mapstructure.StringToTimeDurationHookFunc(),
		),
		ErrorUnused: true,
		Result:      &opts,
	})
	if err != nil {
		return RunConfig{}, err
	}
	if err := dec.Decode(merged); err != nil {
		return RunConfig{}, &domain.UsageError{Msg: "invalid option value", Err: err}
	}
	if err := opts.validate(); err != nil {
		return RunConfig{}, &domain.UsageError{Msg: "invalid option value", Err: err}
	}

	now := src.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	return RunConfig{
		opts: opts,
		skip: map[domain.StageName]bool{
			domain.StageScriptGeneration: opts.SkipScriptGeneration,
			domain.StageVideoCreation:    opts.SkipVideoCreation,
			domain.StageYoutubeUpload:    opts.SkipYoutubeUpload,
			domain.StageEc2Shutdown:      opts.SkipEc2Shutdown,
		},
		forced:        map[domain.StageName]bool{},
		pipelineIsSet: pipelineIsSet,
		runID:         now.Format(RunIDLayout),
		startedAt:     now,
	}, nil
}

func (o options) validate() error {
	var errs []error
	if strings.TrimSpace(o.LogDir) == "" {
		errs = append(errs, errors.New("log-dir cannot be empty"))
	}
	if o.StageTimeout < 0 {
		errs = append(errs, errors.New("stage-timeout cannot be negative"))
	}
	if o.Pipeline == "" {
		errs = append(errs, errors.New("pipeline cannot be empty"))
	}
	return errors.Join(errs...)
}

// stringToBoolHook accepts the usual spellings of booleans found in env files.
func stringToBoolHook(f reflect.Type, t reflect.Type, data any) (any, error) {
	if f.Kind() != reflect.String || t.Kind() != reflect.Bool {
		return data, nil
	}
	return ParseBool(data.(string))
}

// ParseBool parses 1/0, true/false, yes/no and on/off, case-insensitively.
func ParseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off", "":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", raw)
}

// DryRun reports whether stages are only simulated.
func (c RunConfig) DryRun() bool { return c.opts.DryRun }

// Verbose reports whether detailed tracing is enabled.
func (c RunConfig) Verbose() bool { return c.opts.Verbose }

// Skipped reports whether a stage must be recorded as SKIPPED, either by
// request or because preflight forced it.
func (c RunConfig) Skipped(stage domain.StageName) bool {
	return c.skip[stage] || c.forced[stage]
}

// Forced reports whether the stage was skipped by preflight rather than by the operator.
func (c RunConfig) Forced(stage domain.StageName) bool {
	return c.forced[stage] && !c.skip[stage]
}

// WithForcedSkips returns a copy with the given stages force-skipped.
func (c RunConfig) WithForcedSkips(stages ...domain.StageName) RunConfig {
	forced := make(map[domain.StageName]bool, len(c.forced)+len(stages))
	for k, v := range c.forced {
		forced[k] = v
	}
	for _, s := range stages {
		forced[s] = true
	}
	c.forced = forced
	return c
}

// RunID identifies the run by its UTC start time.
func (c RunConfig) RunID() string { return c.runID }

// StartedAt is the run start time.
func (c RunConfig) StartedAt() time.Time { return c.startedAt }

// LogDir is the directory holding the run log and state files.
func (c RunConfig) LogDir() string { return c.opts.LogDir }

// LogPath is the run log location.
func (c RunConfig) LogPath() string {
	return LogPathFor(c.opts.LogDir, c.runID)
}

// LogPathFor returns where the run log of runID lives under logDir.
func LogPathFor(logDir, runID string) string {
	return filepath.Join(logDir, "pipeline_"+runID+".log")
}

// StatePath is the state sink location.
func (c RunConfig) StatePath() string {
	return StatePathFor(c.opts.LogDir, c.runID)
}

// StatePathFor returns where the state of runID lives under logDir.
func StatePathFor(logDir, runID string) string {
	return filepath.Join(logDir, "pipeline_"+runID+".state")
}

// RunIDFromStatePath extracts the run id from a state file name.
func RunIDFromStatePath(path string) (string, bool) {
	base := filepath.Base(path)
	if !strings.HasPrefix(base, "pipeline_") || !strings.HasSuffix(base, ".state") {
		return "", false
	}
	return strings.TrimSuffix(strings.TrimPrefix(base, "pipeline_"), ".state"), true
}

// PipelineFile is the pipeline definition path and whether the operator chose it.
func (c RunConfig) PipelineFile() (string, bool) { return c.opts.Pipeline, c.pipelineIsSet }

// StageTimeout is the default per-stage timeout; zero means none.
func (c RunConfig) StageTimeout() time.Duration { return c.opts.StageTimeout }

// ManifestPath is the brief manifest handed from scriptGeneration to youtubeUpload.
func (c RunConfig) ManifestPath() string { return c.opts.Manifest }

// StateRedisURL is the optional outcome mirror.
func (c RunConfig) StateRedisURL() string { return c.opts.StateRedisURL }

// MetricsFile is the optional Prometheus textfile path.
func (c RunConfig) MetricsFile() string { return c.opts.MetricsFile }
