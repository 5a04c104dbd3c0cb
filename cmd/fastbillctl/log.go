package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newLogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Read or clear the FastBill debug log",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the debug log",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withRuntime(cmd.Context(), func(ctx context.Context, rt *runtime) error {
					text, err := rt.integration.DebugLog().Read(ctx)
					if err != nil {
						return err
					}
					fmt.Fprint(cmd.OutOrStdout(), text)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Delete the debug log",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withRuntime(cmd.Context(), func(ctx context.Context, rt *runtime) error {
					return rt.integration.DebugLog().Clear(ctx)
				})
			},
		},
	)
	return cmd
}
