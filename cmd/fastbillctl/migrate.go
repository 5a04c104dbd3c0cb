package main

import (
	"context"
	"fmt"

	"github.com/smallbiznis/fastbillsync/internal/migration"
	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the host store schema",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd.Context(), func(_ context.Context, rt *runtime) error {
				cfg := rt.cfg
				cfg.DBAutoMigrate = true
				if err := migration.Migrate(rt.db, cfg, rt.log); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "schema up to date (%s)\n", cfg.DBType)
				return nil
			})
		},
	})
	return cmd
}
