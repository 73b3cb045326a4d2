package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/denshell/den/core/shell"
)

// builtinsCmd lists the shell's builtin commands
var builtinsCmd = &cobra.Command{
	Use:   "builtins",
	Short: "Show the builtin commands of the shell.",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, name := range shell.Builtins() {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(builtinsCmd)
}
