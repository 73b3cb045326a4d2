package cmd

import (
	"errors"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/abiosoft/readline"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/denshell/den/core/config"
	"github.com/denshell/den/core/interp"
	"github.com/denshell/den/core/shell"
)

var errorColor = color.New(color.FgRed)

// replCmd runs the interactive shell.
var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Run the interactive shell.",
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		s := newShell(cmd, cfg)
		return runRepl(cmd, cfg, s)
	},
}

func runRepl(cmd *cobra.Command, cfg *config.Configuration, s *shell.Shell) error {
	rlCfg := &readline.Config{
		Stdin:  readline.NewCancelableStdin(os.Stdin),
		Stdout: cmd.OutOrStdout(),
		Stderr: cmd.ErrOrStderr(),
	}
	if cfg.HistoryFile != "" {
		rlCfg.HistoryFile = filepath.Join(s.Env().Getenv(shell.EnvHome), cfg.HistoryFile)
	}
	if err := rlCfg.Init(); err != nil {
		return err
	}

	rl, err := readline.NewEx(rlCfg)
	if err != nil {
		return err
	}
	defer rl.Close()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)
	go func() {
		for range sigs {
			s.Stop()
		}
	}()

	var pending []string
	for {
		if len(pending) == 0 {
			rl.SetPrompt(s.Prompt())
		} else {
			rl.SetPrompt("> ")
		}

		line, err := rl.Readline()
		switch {
		case err == io.EOF:
			return nil // Input closed, quit.

		case err == readline.ErrInterrupt:
			pending = nil
			continue

		case err != nil:
			return err
		}

		pending = append(pending, line)
		text := strings.Join(pending, "\n")

		// Keep reading with a continuation prompt until every construct
		// and quote is closed.
		if err := interp.ValidateScript(text); err != nil {
			if errors.Is(err, interp.ErrUnbalanced) {
				continue
			}
			errorColor.Fprintf(cmd.ErrOrStderr(), "den: %v\n", err)
			pending = nil
			continue
		}
		pending = nil

		if strings.TrimSpace(text) == "" {
			continue
		}

		if _, err := s.Engine().Execute(text); err != nil {
			switch {
			case errors.Is(err, interp.ErrExitRequested):
				code, _ := s.ExitRequested()
				os.Exit(code)
			case errors.Is(err, interp.ErrStopped):
				s.ResetStop()
				errorColor.Fprintln(cmd.ErrOrStderr(), "interrupted")
			default:
				errorColor.Fprintf(cmd.ErrOrStderr(), "den: %v\n", err)
			}
		}
	}
}

func init() {
	rootCmd.AddCommand(replCmd)
}
