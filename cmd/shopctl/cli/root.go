// Package cli implements shopctl, the operations CLI for shopdesk.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/shopdesk/internal/app"
)

// NewRootCommand builds the shopctl command tree. Config is loaded lazily so
// that --help works without an environment.
func NewRootCommand() *cobra.Command {
	var envFile string
	root := &cobra.Command{
		Use:           "shopctl",
		Short:         "Operations tooling for shopdesk",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file merged into the environment")

	loadConfig := func() (*app.Config, error) {
		return app.LoadConfig(envFile)
	}
	root.AddCommand(newMigrateCommand(loadConfig))
	root.AddCommand(newJobsCommand(loadConfig))
	return root
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
