package main

import (
	"fmt"

	"github.com/aretw0/clapper/internal/cli"
	"github.com/aretw0/clapper/internal/config"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status [run-id]",
	Short: "Show the recorded outcomes of a run",
	Long:  `Reads a run's state back (the latest run when no id is given) and prints the summary table.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logDir, _ := cmd.Flags().GetString("log-dir")
		redisURL, _ := cmd.Flags().GetString("state-redis-url")
		list, _ := cmd.Flags().GetBool("list")

		opts := cli.StatusOptions{
			LogDir:   logDir,
			RedisURL: redisURL,
			Stdout:   cmd.OutOrStdout(),
		}
		if len(args) == 1 {
			opts.RunID = args[0]
		}

		if list {
			ids, err := cli.ListRuns(cmd.Context(), opts)
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		}
		return cli.Status(cmd.Context(), opts)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)

	logDir := config.Defaults()["log_dir"].(string)
	statusCmd.Flags().String("log-dir", logDir, "directory holding the state files")
	statusCmd.Flags().String("state-redis-url", "", "read the Redis mirror instead of the state files")
	statusCmd.Flags().BoolP("list", "l", false, "list recorded run ids instead")
}
