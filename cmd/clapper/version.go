package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/aretw0/clapper"
	"github.com/aretw0/clapper/internal/presentation/tui"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of clapper",
	Run: func(cmd *cobra.Command, args []string) {
		if f, ok := cmd.OutOrStdout().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			tui.PrintBanner(f, clapper.Version)
			return
		}
		fmt.Fprintf(cmd.OutOrStdout(), "clapper version %s\n", strings.TrimSpace(clapper.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
