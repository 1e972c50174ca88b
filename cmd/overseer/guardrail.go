package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"mercator-hq/overseer/pkg/cli"
	"mercator-hq/overseer/pkg/governance"
	"mercator-hq/overseer/pkg/governance/compiler"
	"mercator-hq/overseer/pkg/governance/guardrail"
	"mercator-hq/overseer/pkg/governance/store"
	"mercator-hq/overseer/pkg/server"
)

type guardrailFlags struct {
	category string
	format   string
}

func newGuardrailCmd(global *globalFlags) *cobra.Command {
	flags := &guardrailFlags{}
	var compileCategory string

	cmd := &cobra.Command{
		Use:   "guardrail",
		Short: "Inspect guardrails",
		Long: `Inspect the guardrails the server evaluates.

Subcommands:
  list     - List the guardrails a server with this configuration starts with
  compile  - Show the predicate a natural-language condition compiles to`,
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List guardrails",
		Long: `List the guardrails a server with this configuration starts with: the
snapshot store contents (when enabled), the built-ins and the file source.

Examples:
  overseer guardrail list
  overseer guardrail list --category data-access --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listGuardrails(cmd, global, flags)
		},
	}
	list.Flags().StringVar(&flags.category, "category", "", "filter by category")
	list.Flags().StringVar(&flags.format, "format", "text", "output format: text, json, csv")

	compile := &cobra.Command{
		Use:   "compile CONDITION...",
		Short: "Compile a condition to a predicate",
		Long: `Compile a natural-language condition the way guardrail creation does and
print the resulting predicate as JSON.

Examples:
  overseer guardrail compile "block production deploys" --category action
  overseer guardrail compile "token usage above 90%" --category resource`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return compileCondition(cmd, strings.Join(args, " "), compileCategory)
		},
	}
	compile.Flags().StringVar(&compileCategory, "category", string(guardrail.CategoryAction), "guardrail category used for the fallback predicate")

	cmd.AddCommand(list, compile)
	return cmd
}

func listGuardrails(cmd *cobra.Command, global *globalFlags, flags *guardrailFlags) error {
	format, err := cli.ParseFormat(flags.format)
	if err != nil {
		return err
	}
	category := guardrail.Category(flags.category)
	if category != "" && !category.IsValid() {
		return cli.NewUsageError("unknown category %q", flags.category)
	}

	cfg, err := loadConfig(global)
	if err != nil {
		return err
	}
	logger := offlineLogger(cfg, global, cmd.ErrOrStderr())

	var snaps *store.Snapshots
	if cfg.Store.Enabled {
		if snaps, err = server.OpenSnapshots(cfg.Store, logger); err != nil {
			return cli.NewCommandError("guardrail list", err)
		}
		defer snaps.Close()
	}

	svc := governance.New(server.GovernanceConfig(cfg), governance.WithLogger(logger))
	if _, err := server.InitRegistries(cmd.Context(), cfg, svc, snaps, logger); err != nil {
		return cli.NewCommandError("guardrail list", err)
	}

	items := svc.ListGuardrails(category)
	table := &cli.Table{
		Headers: []string{"id", "name", "category", "severity", "enabled", "predicate"},
		Items:   items,
	}
	for _, g := range items {
		predType := ""
		if g.Predicate != nil {
			predType = string(g.Predicate.Type)
		}
		table.Rows = append(table.Rows, []string{
			g.ID, g.Name, string(g.Category), string(g.Severity), strconv.FormatBool(g.Enabled), predType,
		})
	}
	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), table)
}

func compileCondition(cmd *cobra.Command, condition, category string) error {
	if !guardrail.Category(category).IsValid() {
		return cli.NewUsageError("unknown category %q", category)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "strategy: %s\n", compiler.Explain(condition, category))

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(compiler.Compile(condition, category))
}
