package main

import (
	"context"

	"github.com/spf13/cobra"
)

func newTemplatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "templates",
		Short: "List the FastBill invoice templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *runtime) error {
				manager, err := rt.manager()
				if err != nil {
					return err
				}
				templates, err := manager.ListTemplates(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), templates)
			})
		},
	}
}
