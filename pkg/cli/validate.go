package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/stubkit/stubkit/pkg/config"
)

// validateFlags holds all flags for the validate command.
type validateFlags struct {
	configPath string
	verbose    bool
}

var validateFlagVals validateFlags

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file without starting the server",
	Long: `Validate a configuration file without starting any services.

This command checks:
  - YAML/JSON syntax
  - Server settings (listen address, timeouts, log level)
  - Scenario definitions (methods, path patterns, match conditions)
  - Response definitions (status codes, body vs. bodyFile, delays)`,
	Example: `  # Validate a scenario file
  stubkit validate -c scenarios.yaml

  # List every scenario and route that passed validation
  stubkit validate -c scenarios.yaml --verbose`,
	RunE: runValidate,
}

func init() {
	f := &validateFlagVals
	validateCmd.Flags().StringVarP(&f.configPath, "config", "c", "", "Path to scenario config file (YAML or JSON)")
	validateCmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "Show scenarios and routes that passed validation")

	_ = validateCmd.MarkFlagRequired("config")

	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, _ []string) error {
	f := &validateFlagVals

	if _, err := os.Stat(f.configPath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s", f.configPath)
	}

	cfg, err := config.Load(f.configPath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	// Building the set catches cross-scenario problems like duplicate
	// names that per-scenario validation cannot see.
	set, err := cfg.ScenarioSet()
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	routes := 0
	for _, sc := range set.All() {
		routes += len(sc.Routes)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: OK (%d scenarios, %d routes)\n", f.configPath, set.Len(), routes)

	if f.verbose {
		for _, sc := range set.All() {
			state := "enabled"
			if !sc.IsEnabled() {
				state = "disabled"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "  scenario %q (%s)\n", sc.Name, state)
			for _, rt := range sc.Routes {
				fmt.Fprintf(cmd.OutOrStdout(), "    %-7s %s\n", rt.Method, rt.Path)
			}
		}
	}
	return nil
}
