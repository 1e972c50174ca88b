package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"mercator-hq/overseer/pkg/cli"
	"mercator-hq/overseer/pkg/config"
)

func newConfigCmd(global *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Validate and inspect configuration",
	}

	validate := &cobra.Command{
		Use:   "validate",
		Short: "Validate a configuration file",
		Long: `Load the configuration named by --config, apply defaults and OVERSEER_*
environment overrides, and report every invalid field.

Examples:
  overseer config validate --config /etc/overseer/config.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateConfig(cmd, global)
		},
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Long: `Print the configuration after defaults and environment overrides, as YAML.
API key values are masked.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd, global)
		},
	}

	cmd.AddCommand(validate, show)
	return cmd
}

func validateConfig(cmd *cobra.Command, global *globalFlags) error {
	_, err := loadConfig(global)
	if err != nil {
		var valErr config.ValidationError
		if errors.As(err, &valErr) {
			out := cmd.ErrOrStderr()
			fmt.Fprintf(out, "✗ %d invalid field(s):\n", len(valErr.Errors))
			for _, fe := range valErr.Errors {
				fmt.Fprintf(out, "  - %s\n", fe.Error())
			}
		}
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "✓ Configuration valid")
	return nil
}

func showConfig(cmd *cobra.Command, global *globalFlags) error {
	cfg, err := loadConfig(global)
	if err != nil {
		return err
	}

	masked := *cfg
	masked.Security.Authentication.Keys = make([]config.APIKeyConfig, len(cfg.Security.Authentication.Keys))
	for i, k := range cfg.Security.Authentication.Keys {
		k.Key = maskKey(k.Key)
		masked.Security.Authentication.Keys[i] = k
	}

	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(&masked); err != nil {
		return cli.NewCommandError("config show", err)
	}
	return enc.Close()
}

func maskKey(key string) string {
	if len(key) <= 4 {
		return "***"
	}
	return key[:4] + "***"
}
