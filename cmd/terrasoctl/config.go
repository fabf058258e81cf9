package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/techmatters/terraso-go/pkg/config"
)

var configCmd = &cobra.Command{
	Use:     "config",
	Aliases: []string{"configuration"},
	Short:   "Inspect the Terraso configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show configuration attributes and their sources",
	Long: `Show configuration attributes and their sources.

The values displayed reflect the current configuration file and environment,
which may differ from what a running server loaded. Secrets are omitted.

Config file location: /etc/terraso/terraso.yml (or TERRASO_CONFIG_PATH)

Example:
  terrasoctl config show
  terrasoctl config show --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if asJSON {
			out, err := cfg.FormatJSON()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		}
		fmt.Fprint(cmd.OutOrStdout(), cfg.FormatText())
		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file and environment",
	Long: `Validate the configuration file and environment.

A running server reloads terraso.yml when it changes, so validating before
editing the live file avoids a bad reload.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Config file: %s\n", cfg.ConfigFilePath())
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("configuration validation failed: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Configuration is valid.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
	configShowCmd.Flags().Bool("json", false, "print JSON instead of text")
}
