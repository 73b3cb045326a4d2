package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// runCmd executes a script file.
var runCmd = &cobra.Command{
	Use:   "run SCRIPT [ARG]...",
	Short: "Run a script file, passing any remaining arguments to it.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		s := newShell(cmd, cfg)
		result := s.Scripts().Execute(args[0], args[1:])
		if result.ErrorMessage != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "den: %s: %s\n", args[0], result.ErrorMessage)
		}
		if result.ExitCode != 0 {
			os.Exit(result.ExitCode)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
