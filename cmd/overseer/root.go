package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/overseer/pkg/cli"
	"mercator-hq/overseer/pkg/config"
	"mercator-hq/overseer/pkg/telemetry/logging"
)

// globalFlags are the persistent flags shared by every subcommand.
type globalFlags struct {
	cfgFile string
	verbose bool
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "overseer",
		Short: "Overseer - AI action governance engine",
		Long: `Overseer governs the actions AI agents propose to take.

Every action is evaluated against guardrails and scored for risk. Low-risk
actions are auto-approved, blocked actions are rejected, and everything in
between is escalated to a human reviewer with a priority and a deadline.
Every decision and review lands in an append-only audit trail.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&flags.cfgFile, "config", "c", "", "config file path (defaults and OVERSEER_* env vars when empty)")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "verbose output")

	root.AddCommand(
		newRunCmd(flags),
		newVersionCmd(),
		newGuardrailCmd(flags),
		newAuditCmd(flags),
		newConfigCmd(flags),
	)
	return root
}

// Execute runs the command tree with args and returns the exit code.
func Execute(args []string) int {
	root := newRootCmd()
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(root.ErrOrStderr(), "Error:", err)
		return cli.ExitCode(err)
	}
	return cli.ExitOK
}

// loadConfig loads the file named by --config with environment overrides.
func loadConfig(flags *globalFlags) (*config.Config, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(flags.cfgFile)
	if err != nil {
		return nil, cli.NewConfigError(flags.cfgFile, err)
	}
	return cfg, nil
}

// offlineLogger is the logger for commands that do not serve traffic: warnings
// and errors only, unless --verbose.
func offlineLogger(cfg *config.Config, flags *globalFlags, w io.Writer) *slog.Logger {
	lc := cfg.Telemetry.Logging
	lc.Format = "text"
	lc.Level = "warn"
	if flags.verbose {
		lc.Level = "debug"
	}
	logger, err := logging.New(lc, w)
	if err != nil {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	}
	return logger
}
