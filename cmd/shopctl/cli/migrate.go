package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/shopdesk/internal/app"
	"github.com/odyssey-erp/shopdesk/internal/platform/db"
	"github.com/odyssey-erp/shopdesk/internal/platform/docstore"
)

func newMigrateCommand(loadConfig func() (*app.Config, error)) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create missing collections, indexes and bookkeeping tables",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if dryRun {
				for _, stmt := range docstore.Statements() {
					fmt.Fprintf(out, "%s;\n\n", stmt)
				}
				return nil
			}
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			pool, err := db.New(cmd.Context(), db.Options{DSN: cfg.PGDSN, MaxConns: 2, ConnectTimeout: 10 * time.Second})
			if err != nil {
				return err
			}
			defer pool.Close()
			if err := docstore.EnsureSchema(cmd.Context(), pool); err != nil {
				return err
			}
			fmt.Fprintf(out, "schema up to date (%d statements)\n", len(docstore.Statements()))
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the DDL instead of applying it")
	return cmd
}
