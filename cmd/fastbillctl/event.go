package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/fastbillsync/internal/events"
	"github.com/spf13/cobra"
)

func newEventCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "event",
		Short: "Replay a host event through the integration",
		Long: `Dispatch a host event exactly as the store would. Handler failures are
written to the logs and the debug log, not returned.`,
	}

	var from, to string
	status := &cobra.Command{
		Use:     "status <order-id>",
		Short:   "Dispatch order.status_changed",
		Example: `  fastbillctl event status 1042 --from pending --to publish`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseOrderID(args[0])
			if err != nil {
				return err
			}
			return dispatch(cmd, events.Event{Name: events.OrderStatusChange, OrderID: id, OldStatus: from, NewStatus: to})
		},
	}
	status.Flags().StringVar(&from, "from", "", "previous order status")
	status.Flags().StringVar(&to, "to", "", "new order status")
	_ = status.MarkFlagRequired("to")

	var (
		parent      int64
		amount      string
		transaction string
	)
	recurring := &cobra.Command{
		Use:     "recurring <renewal-order-id>",
		Short:   "Dispatch recurring_payment.recorded",
		Example: `  fastbillctl event recurring 1077 --parent 1042 --amount 19.90 --transaction ch_3P`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseOrderID(args[0])
			if err != nil {
				return err
			}
			ev := events.Event{
				Name:          events.RecurringPayment,
				OrderID:       id,
				ParentOrderID: parent,
				TransactionID: strings.TrimSpace(transaction),
			}
			if strings.TrimSpace(amount) != "" {
				if ev.Amount, err = decimal.NewFromString(strings.TrimSpace(amount)); err != nil {
					return fmt.Errorf("invalid amount %q: %w", amount, err)
				}
			}
			return dispatch(cmd, ev)
		},
	}
	recurring.Flags().Int64Var(&parent, "parent", 0, "original subscription order id")
	recurring.Flags().StringVar(&amount, "amount", "", "amount paid for the renewal")
	recurring.Flags().StringVar(&transaction, "transaction", "", "payment gateway transaction id")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "inserted <order-id>",
			Short: "Dispatch order.inserted",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseOrderID(args[0])
				if err != nil {
					return err
				}
				return dispatch(cmd, events.Event{Name: events.OrderInserted, OrderID: id})
			},
		},
		status,
		recurring,
	)
	return cmd
}

func dispatch(cmd *cobra.Command, ev events.Event) error {
	return withRuntime(cmd.Context(), func(ctx context.Context, rt *runtime) error {
		if err := rt.dispatcher.Dispatch(ctx, ev); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s dispatched for order #%d (%d handlers)\n", ev.Name, ev.OrderID, rt.dispatcher.Bound(ev.Name))
		return nil
	})
}
