package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version is injected during build
	Version = "dev"
	// Commit is injected during build
	Commit = "none"
	// BuildDate is injected during build
	BuildDate = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "stubkit",
	Short: "stubkit is an extensible HTTP mock server",
	Long: `stubkit serves mock HTTP responses from declarative scenario files and
routes every request through a plugin hook pipeline.

Scenarios describe routes, match conditions, and templated responses in
YAML or JSON. Plugins can observe or rewrite requests and responses at
nine lifecycle hooks without touching the core engine.`,
	// No Run function here means 'stubkit' with no args prints help.
	SilenceUsage:  true,
	SilenceErrors: true, // Errors are reported once in Execute()
}

// Execute runs the root command. Called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
