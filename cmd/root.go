package cmd

import (
	"os/user"

	"github.com/spf13/cobra"

	"github.com/denshell/den/core/config"
	"github.com/denshell/den/core/shell"
)

var cfgPath string

func loadConfig() (*config.Configuration, error) {
	cfg, err := config.LoadOrDefault(cfgPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newShell builds a shell wired to the command's streams and configured
// limits.
func newShell(cmd *cobra.Command, cfg *config.Configuration) *shell.Shell {
	s := shell.NewShell(shell.Options{
		Stdin:   cmd.InOrStdin(),
		Stdout:  cmd.OutOrStdout(),
		Stderr:  cmd.ErrOrStderr(),
		NoExec:  cfg.NoExec,
		ErrExit: cfg.ErrExit,
		Limits:  cfg.EngineLimits(),
	})

	username := "den"
	if u, err := user.Current(); err == nil {
		username = u.Username
	}
	s.Init(username)
	if cfg.Prompt != "" {
		s.Env().Setenv(shell.EnvPrompt, cfg.Prompt)
	}
	return s
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "den",
	Short: "Den scripting shell",
	Long:  `A scripting shell with functions, typed parameters and control flow.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return replCmd.RunE(cmd, args)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", ".", "config path")
}
