package main

import (
	"context"
	"fmt"

	invoicedomain "github.com/smallbiznis/fastbillsync/internal/invoice/domain"
	"github.com/spf13/cobra"
)

func newInvoiceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invoice",
		Short: "Manage the FastBill invoice of an order",
	}
	cmd.AddCommand(
		newInvoiceCreateCmd(),
		newInvoiceLinkCmd(),
		newInvoiceResendCmd(),
		newInvoiceGetCmd(),
	)
	return cmd
}

func newInvoiceCreateCmd() *cobra.Command {
	var advance bool
	cmd := &cobra.Command{
		Use:   "create <order-id>",
		Short: "Create the invoice for an order",
		Long: `Create the FastBill invoice for an order, ignoring the auto-invoice
setting. Fails when the order already has an invoice.`,
		Example: `  fastbillctl invoice create 1042
  fastbillctl invoice create 1042 --advance`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := invoicedomain.TemplateDirect
			if advance {
				kind = invoicedomain.TemplateAdvance
			}
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *runtime) error {
				manager, err := rt.manager()
				if err != nil {
					return err
				}
				order, err := rt.order(ctx, args[0])
				if err != nil {
					return err
				}
				if err := manager.CreateInvoice(ctx, order, kind); err != nil {
					return err
				}
				invoiceID, err := manager.StoredInvoiceID(ctx, order.ID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "order #%d: FastBill invoice %d\n", order.ID, invoiceID)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&advance, "advance", false, "use the advance payment template")
	return cmd
}

func newInvoiceLinkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "link <order-id>",
		Short: "Fetch and store the invoice document URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *runtime) error {
				manager, err := rt.manager()
				if err != nil {
					return err
				}
				order, err := rt.order(ctx, args[0])
				if err != nil {
					return err
				}
				url, err := manager.FetchDocumentURL(ctx, order)
				if err != nil {
					return err
				}
				if url == "" {
					return fmt.Errorf("order #%d: FastBill reports no document URL", order.ID)
				}
				fmt.Fprintln(cmd.OutOrStdout(), url)
				return nil
			})
		},
	}
}

func newInvoiceResendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resend <order-id>",
		Short: "Send the invoice to the buyer by email",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *runtime) error {
				manager, err := rt.manager()
				if err != nil {
					return err
				}
				order, err := rt.order(ctx, args[0])
				if err != nil {
					return err
				}
				if err := manager.SendInvoiceByEmail(ctx, order); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "order #%d: invoice mailed to %s\n", order.ID, order.Buyer.Email)
				return nil
			})
		},
	}
}

func newInvoiceGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <order-id>",
		Short: "Show the FastBill invoice of an order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *runtime) error {
				manager, err := rt.manager()
				if err != nil {
					return err
				}
				id, err := parseOrderID(args[0])
				if err != nil {
					return err
				}
				invoiceID, err := manager.StoredInvoiceID(ctx, id)
				if err != nil {
					return err
				}
				if invoiceID <= 0 {
					return invoicedomain.ErrNoInvoice
				}
				inv, err := manager.GetInvoice(ctx, invoiceID)
				if err != nil {
					return err
				}
				if inv == nil {
					return fmt.Errorf("FastBill has no invoice %d", invoiceID)
				}
				return printJSON(cmd.OutOrStdout(), inv)
			})
		},
	}
}
