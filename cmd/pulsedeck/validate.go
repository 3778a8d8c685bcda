package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/pulsedeck/config"
)

// validateCmd validates a config file without starting the plugin.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate a PulseDeck configuration file without starting the plugin.

This command parses the YAML, expands environment variables, and validates
all fields. It's useful for CI/CD pipelines or pre-deployment checks.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  pulsedeck validate -c config.yaml`,
	SilenceUsage: true,
	RunE:         runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = validateCmd.MarkFlagRequired("config")
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	status := "disabled"
	if cfg.StatusPort > 0 {
		status = fmt.Sprintf("127.0.0.1:%d", cfg.StatusPort)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Config is valid!\n")
	fmt.Fprintf(out, "  Poll interval:   %s\n", cfg.PollInterval.Duration())
	fmt.Fprintf(out, "  Alert interval:  %s\n", cfg.AlertInterval.Duration())
	fmt.Fprintf(out, "  Check timeout:   %s\n", cfg.CheckTimeout.Duration())
	fmt.Fprintf(out, "  Status server:   %s\n", status)
	fmt.Fprintf(out, "  Endpoints:       %d\n", len(cfg.Endpoints))

	return nil
}
