package main

import (
	"github.com/aretw0/clapper/internal/cli"
	"github.com/aretw0/clapper/internal/config"
	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph [run-id]",
	Short: "Print the stage chain as a Mermaid flowchart",
	Long: `Draws the stages of the pipeline definition in order. Critical stages are
rectangles, best-effort ones are rounded. With --overlay (or a run id) the
recorded outcomes of that run color the stages.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		pipelinePath, _ := flags.GetString("pipeline")
		timeout, _ := flags.GetDuration("stage-timeout")
		logDir, _ := flags.GetString("log-dir")
		redisURL, _ := flags.GetString("state-redis-url")
		overlay, _ := flags.GetBool("overlay")

		opts := cli.GraphOptions{
			Pipeline:     pipelinePath,
			Explicit:     flags.Changed("pipeline"),
			StageTimeout: timeout,
			Overlay:      overlay || len(args) == 1,
			Status: cli.StatusOptions{
				LogDir:   logDir,
				RedisURL: redisURL,
			},
			Stdout: cmd.OutOrStdout(),
		}
		if len(args) == 1 {
			opts.Status.RunID = args[0]
		}
		return cli.Graph(cmd.Context(), opts)
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)

	defaults := config.Defaults()
	graphCmd.Flags().String("pipeline", config.DefaultPipelineFile, "pipeline definition file")
	graphCmd.Flags().Duration("stage-timeout", 0, "default per-stage timeout to annotate")
	graphCmd.Flags().String("log-dir", defaults["log_dir"].(string), "directory holding the state files")
	graphCmd.Flags().String("state-redis-url", "", "read outcomes from the Redis mirror")
	graphCmd.Flags().Bool("overlay", false, "color stages with the latest run's outcomes")
}
