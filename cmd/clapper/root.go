package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aretw0/clapper/internal/cli"
	"github.com/aretw0/clapper/internal/config"
	"github.com/aretw0/clapper/pkg/domain"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// exitCode is set by the command that ran.
var exitCode int

var rootCmd = &cobra.Command{
	Use:   "clapper",
	Short: "Clapper runs the content pipeline stage by stage",
	Long: `Clapper drives the content pipeline: scriptGeneration, videoCreation,
youtubeUpload and ec2Shutdown, in that order. Every stage outcome is appended
to logs/pipeline_<run>.state and the first failure of a critical stage stops
the run with that stage's exit code.

Every flag can also be set through the environment variable named in its
help text; an explicit flag wins over the environment.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	Args:          noArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := make(map[string]string)
		cmd.Flags().Visit(func(f *pflag.Flag) {
			if f.Name != "help" {
				flags[f.Name] = f.Value.String()
			}
		})

		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()

		code, err := cli.Execute(sigCtx, cli.RunOptions{
			Flags:  flags,
			DotEnv: cli.DefaultDotEnv,
			Stdout: cmd.OutOrStdout(),
			Stderr: cmd.ErrOrStderr(),
		})
		exitCode = code
		if sig := sigCtx.Signal(); sig != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Interrupted by %s\n", sig)
		}
		return err
	},
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	exitCode = domain.ExitOK
	cmd, err := rootCmd.ExecuteC()
	return resolveExit(cmd.ErrOrStderr(), cmd, err, exitCode)
}

// resolveExit reports err and picks the exit code. A failure never exits 0.
func resolveExit(w io.Writer, cmd *cobra.Command, err error, code int) int {
	if err == nil {
		return code
	}

	var usage *domain.UsageError
	var stageErr *domain.StageExecutionError
	switch {
	case errors.As(err, &usage):
		fmt.Fprintf(w, "Error: %v\n\n%s", err, cmd.UsageString())
		return domain.ExitFailure
	case errors.As(err, &stageErr):
		// Already logged and summarized.
		if code == domain.ExitOK {
			code = stageErr.ExitCode
		}
	default:
		fmt.Fprintf(w, "Error: %v\n", err)
	}
	return domain.NormalizeExitCode(code)
}

// noArgs rejects positional arguments as bad usage, like unknown flags.
func noArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.NoArgs(cmd, args); err != nil {
		return &domain.UsageError{Msg: err.Error()}
	}
	return nil
}

func init() {
	flags := rootCmd.Flags()
	for _, o := range config.Options {
		usage := fmt.Sprintf("%s [$%s]", o.Usage, o.Env)
		switch o.Kind {
		case config.KindBool:
			flags.Bool(o.Flag, o.Default.(bool), usage)
		case config.KindDuration:
			flags.Duration(o.Flag, o.Default.(time.Duration), usage)
		default:
			flags.String(o.Flag, o.Default.(string), usage)
		}
	}
	flags.SortFlags = false

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &domain.UsageError{Msg: err.Error()}
	})
}
