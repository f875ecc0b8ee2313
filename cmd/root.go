package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/opencustomize/opencustomize/internal/infrastructure/log"
	"github.com/opencustomize/opencustomize/internal/version"
)

var logCleanup func()

var RootCmd = &cobra.Command{
	Use:     "opencustomize",
	Version: version.Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		debug := os.Getenv("OATMPL_DEBUG") == "true"

		cleanup, err := log.Init(".opencustomize", debug)
		if err != nil {
			fmt.Fprintln(os.Stderr, "log initialization failed:", err)
			return fmt.Errorf("log initialization failed: %w", err)
		}
		logCleanup = cleanup
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCleanup != nil {
			logCleanup()
		}
	},
	Short: "opencustomize resolves and customizes OpenAPI generator templates",
	Long: `opencustomize selects, per template, which of six precedence-ordered
sources wins, folds the applicable stack of YAML customizations over it, and
materializes a working directory the external code generator can run
against.`,
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
