package config

import "time"

// Kind is the value type of an option.
type Kind int

const (
	KindBool Kind = iota
	KindString
	KindDuration
)

// Option describes one run option: its key in the decoded map, its flag, the
// environment variable that overrides the default, and the default itself.
type Option struct {
	Key     string
	Flag    string
	Env     string
	Kind    Kind
	Default any
	Usage   string
}

// Options is the full set of recognized run options, in help order.
// Resolution order is default < environment variable < explicit flag.
var Options = []Option{
	{Key: "dry_run", Flag: "dry-run", Env: "DRY_RUN", Kind: KindBool, Default: false,
		Usage: "simulate every stage without invoking external tasks"},
	{Key: "skip_script_generation", Flag: "skip-script-generation", Env: "SKIP_SCRIPT_GENERATION", Kind: KindBool, Default: false,
		Usage: "record the scriptGeneration stage as SKIPPED"},
	{Key: "skip_video_creation", Flag: "skip-video-creation", Env: "SKIP_VIDEO_CREATION", Kind: KindBool, Default: false,
		Usage: "record the videoCreation stage as SKIPPED"},
	{Key: "skip_youtube_upload", Flag: "skip-youtube-upload", Env: "SKIP_YOUTUBE_UPLOAD", Kind: KindBool, Default: false,
		Usage: "record the youtubeUpload stage as SKIPPED"},
	{Key: "skip_ec2_shutdown", Flag: "skip-ec2-shutdown", Env: "SKIP_EC2_SHUTDOWN", Kind: KindBool, Default: false,
		Usage: "record the ec2Shutdown stage as SKIPPED"},
	{Key: "verbose", Flag: "verbose", Env: "VERBOSE", Kind: KindBool, Default: false,
		Usage: "enable detailed tracing on the console"},
	{Key: "log_dir", Flag: "log-dir", Env: "LOG_DIR", Kind: KindString, Default: "logs",
		Usage: "directory for the run log and state files"},
	{Key: "pipeline", Flag: "pipeline", Env: "PIPELINE_FILE", Kind: KindString, Default: DefaultPipelineFile,
		Usage: "pipeline definition (YAML or JSON); built-in stages are used when the default file is absent"},
	{Key: "stage_timeout", Flag: "stage-timeout", Env: "STAGE_TIMEOUT", Kind: KindDuration, Default: time.Duration(0),
		Usage: "kill a stage's task after this long (0 disables); per-stage timeouts in the pipeline file win"},
	{Key: "manifest", Flag: "manifest", Env: "MANIFEST_PATH", Kind: KindString, Default: "/tmp/brief.json",
		Usage: "brief manifest written by scriptGeneration and read by youtubeUpload"},
	{Key: "state_redis_url", Flag: "state-redis-url", Env: "STATE_REDIS_URL", Kind: KindString, Default: "",
		Usage: "mirror stage outcomes to this redis:// URL"},
	{Key: "metrics_file", Flag: "metrics-file", Env: "METRICS_FILE", Kind: KindString, Default: "",
		Usage: "write Prometheus metrics in textfile format to this path"},
}

// DefaultPipelineFile is looked up in the working directory.
const DefaultPipelineFile = "pipeline.yaml"

// Defaults returns the built-in default of every option.
func Defaults() map[string]any {
	out := make(map[string]any, len(Options))
	for _, o := range Options {
		out[o.Key] = o.Default
	}
	return out
}

// LookupFlag finds an option by flag name.
func LookupFlag(flag string) (Option, bool) {
	for _, o := range Options {
		if o.Flag == flag {
			return o, true
		}
	}
	return Option{}, false
}
