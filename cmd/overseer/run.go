package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/overseer/pkg/cli"
	"mercator-hq/overseer/pkg/config"
	"mercator-hq/overseer/pkg/server"
	"mercator-hq/overseer/pkg/telemetry/health"
	"mercator-hq/overseer/pkg/telemetry/logging"
)

type runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

func newRunCmd(global *globalFlags) *cobra.Command {
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the governance server",
		Long: `Start the Overseer governance server with the specified configuration.

The server exposes the governance API under /api, health checks, build
information at /version and Prometheus metrics. It shuts down gracefully on
SIGINT or SIGTERM, flushing queued audit records first.

Examples:
  # Start with defaults
  overseer run

  # Start with custom config
  overseer run --config /etc/overseer/config.yaml

  # Override listen address
  overseer run --listen 0.0.0.0:8080

  # Validate config without starting server
  overseer run --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd, global, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.listenAddress, "listen", "l", "", "override listen address")
	cmd.Flags().StringVar(&flags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "validate config without starting server")
	return cmd
}

func runServer(cmd *cobra.Command, global *globalFlags, flags *runFlags) error {
	cfg, err := loadConfig(global)
	if err != nil {
		return err
	}

	if flags.listenAddress != "" {
		cfg.Server.ListenAddress = flags.listenAddress
	}
	if flags.logLevel != "" {
		cfg.Telemetry.Logging.Level = flags.logLevel
	}
	if err := config.Validate(cfg); err != nil {
		return cli.NewConfigError(global.cfgFile, err)
	}

	logger, err := logging.New(cfg.Telemetry.Logging, os.Stderr)
	if err != nil {
		return cli.NewConfigError(global.cfgFile, err)
	}
	slog.SetDefault(logger)

	out := cmd.OutOrStdout()
	if flags.dryRun {
		fmt.Fprintln(out, "✓ Configuration valid")
		return nil
	}

	srv, err := server.New(cfg, logger, health.NewVersionInfo(Version, GitCommit, BuildDate))
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	printBanner(cmd, global, cfg)

	ctx, stop := cli.SignalContext(cmd.Context())
	defer stop()

	if err := srv.Start(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}
	fmt.Fprintln(out, "✓ Server stopped")
	return nil
}

func printBanner(cmd *cobra.Command, global *globalFlags, cfg *config.Config) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Overseer v%s\n", Version)
	if global.cfgFile != "" {
		fmt.Fprintf(out, "Configuration: %s\n", global.cfgFile)
	}
	fmt.Fprintf(out, "✓ Audit trail: %s\n", cfg.Audit.Backend)
	if cfg.Store.Enabled {
		fmt.Fprintf(out, "✓ Snapshot store: %s\n", cfg.Store.Path)
	}
	if cfg.Guardrails.SourcePath != "" {
		fmt.Fprintf(out, "✓ Guardrail source: %s (watch=%t)\n", cfg.Guardrails.SourcePath, cfg.Guardrails.Watch)
	}
	fmt.Fprintf(out, "✓ API: http://%s/api\n", cfg.Server.ListenAddress)
	if cfg.Telemetry.Health.Enabled {
		fmt.Fprintf(out, "✓ Health endpoint: http://%s%s\n", cfg.Server.ListenAddress, cfg.Telemetry.Health.LivenessPath)
	}
	if cfg.Telemetry.Metrics.Enabled {
		fmt.Fprintf(out, "✓ Metrics endpoint: http://%s%s\n", cfg.Server.ListenAddress, cfg.Telemetry.Metrics.Path)
	}
	fmt.Fprintln(out, "\nPress Ctrl+C to stop")
}
