package cmd

import (
	"fmt"
	"io/ioutil"

	"github.com/spf13/cobra"

	"github.com/denshell/den/core/interp"
)

// validateCmd checks scripts for syntax errors without running them.
var validateCmd = &cobra.Command{
	Use:   "validate SCRIPT...",
	Short: "Check scripts for unbalanced quotes and constructs.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		var failed bool
		for _, path := range args {
			contents, err := ioutil.ReadFile(path)
			if err != nil {
				return err
			}
			if err := interp.ValidateScript(string(contents)); err != nil {
				errorColor.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", path, err)
				failed = true
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", path)
		}
		if failed {
			return fmt.Errorf("validation failed")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
