package cmd

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Version is overridable at link time.
var Version = "devel"

// versionCmd prints the build version
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of den.",
	Args:  cobra.ExactArgs(0),
	Run: func(cmd *cobra.Command, args []string) {
		version := Version
		if info, ok := debug.ReadBuildInfo(); ok && version == "devel" && info.Main.Version != "" {
			version = info.Main.Version
		}
		fmt.Fprintln(cmd.OutOrStdout(), "den", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
