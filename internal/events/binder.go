package events

import (
	"context"
	"errors"
	"fmt"
	"strings"

	invoicedomain "github.com/smallbiznis/fastbillsync/internal/invoice/domain"
	obslogger "github.com/smallbiznis/fastbillsync/internal/observability/logger"
	orderdomain "github.com/smallbiznis/fastbillsync/internal/order/domain"
	settingsdomain "github.com/smallbiznis/fastbillsync/internal/settings/domain"
	"go.uber.org/zap"
)

type BinderParams struct {
	Manager  invoicedomain.Manager
	Orders   orderdomain.Store
	Settings settingsdomain.Settings
	Log      *zap.Logger
}

// Binder maps host events onto invoice lifecycle steps. It reads the settings
// snapshot it was built with and nothing else.
type Binder struct {
	manager  invoicedomain.Manager
	orders   orderdomain.Store
	settings settingsdomain.Settings
	log      *zap.Logger
}

func NewBinder(p BinderParams) *Binder {
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Binder{
		manager:  p.Manager,
		orders:   p.Orders,
		settings: p.Settings,
		log:      log.Named("events.binder"),
	}
}

func (b *Binder) Bindings() map[string][]Handler {
	return map[string][]Handler{
		OrderInserted:     {b.OrderInserted},
		OrderStatusChange: {b.StatusChanged},
		RecurringPayment:  {b.RecurringPayment},
	}
}

// OrderInserted invoices orders paid through an advance payment gateway as
// soon as they are placed.
func (b *Binder) OrderInserted(ctx context.Context, ev Event) error {
	order, err := b.orders.GetOrder(ctx, ev.OrderID)
	if err != nil {
		return err
	}
	if !b.settings.IsAdvanceGateway(order.Gateway) {
		return nil
	}
	if !b.settings.AutoInvoice {
		b.skip(ctx, ev, "auto invoice disabled")
		return nil
	}

	if err := b.manager.CreateInvoice(ctx, order, invoicedomain.TemplateAdvance); err != nil {
		return benign(err)
	}
	if b.settings.SendByEmail {
		return benign(b.manager.SendInvoiceByEmail(ctx, order))
	}
	return nil
}

func (b *Binder) StatusChanged(ctx context.Context, ev Event) error {
	status := orderdomain.ParseStatus(ev.NewStatus)
	if status == orderdomain.ParseStatus(ev.OldStatus) {
		return nil
	}

	switch status {
	case orderdomain.StatusPublished, orderdomain.StatusRefunded,
		orderdomain.StatusAbandoned, orderdomain.StatusRevoked:
	default:
		return nil
	}

	order, err := b.orders.GetOrder(ctx, ev.OrderID)
	if err != nil {
		return err
	}

	switch status {
	case orderdomain.StatusRefunded:
		return b.manager.CancelInvoice(ctx, order)
	case orderdomain.StatusAbandoned, orderdomain.StatusRevoked:
		return b.manager.DeleteInvoice(ctx, order)
	default:
		return b.published(ctx, ev, order)
	}
}

func (b *Binder) published(ctx context.Context, ev Event, order *orderdomain.Order) error {
	advance := b.settings.IsAdvanceGateway(order.Gateway)
	complete := b.settings.CompletePolicy()

	var errs []error
	if !advance {
		if b.settings.AutoInvoice {
			errs = append(errs, benign(b.manager.CreateInvoice(ctx, order, invoicedomain.TemplateDirect)))
		} else {
			b.skip(ctx, ev, "auto invoice disabled")
		}
	}
	if b.settings.AutoPayment && complete {
		errs = append(errs, b.manager.CreatePayment(ctx, order))
	}
	if !advance && b.settings.SendByEmail && complete {
		errs = append(errs, benign(b.manager.SendInvoiceByEmail(ctx, order)))
	}
	return errors.Join(errs...)
}

// RecurringPayment invoices a subscription renewal. By default it applies
// the same gates as publication; RecurringUnconditional creates, pays and
// mails regardless.
func (b *Binder) RecurringPayment(ctx context.Context, ev Event) error {
	order, err := b.orders.GetOrder(ctx, ev.OrderID)
	if err != nil {
		return err
	}

	unconditional := b.settings.RecurringUnconditional
	complete := b.settings.CompletePolicy()

	var errs []error
	if note := renewalNote(ev, order); note != "" {
		errs = append(errs, b.orders.AddNote(ctx, order.ID, note))
	}
	if unconditional || b.settings.AutoInvoice {
		errs = append(errs, benign(b.manager.CreateInvoice(ctx, order, invoicedomain.TemplateDirect)))
	} else {
		b.skip(ctx, ev, "auto invoice disabled")
	}
	if unconditional || (b.settings.AutoPayment && complete) {
		errs = append(errs, b.manager.CreatePayment(ctx, order))
	}
	if unconditional || (b.settings.SendByEmail && complete) {
		errs = append(errs, benign(b.manager.SendInvoiceByEmail(ctx, order)))
	}
	return errors.Join(errs...)
}

// renewalNote records what the host reported for a renewal payment. It is
// empty when the event carries neither an amount nor a transaction id.
func renewalNote(ev Event, order *orderdomain.Order) string {
	transaction := strings.TrimSpace(ev.TransactionID)
	if ev.Amount.IsZero() && transaction == "" {
		return ""
	}

	note := fmt.Sprintf("Renewal payment: %s %s", ev.Amount.StringFixed(2), strings.ToUpper(order.Currency))
	if transaction != "" {
		note += ", transaction " + transaction
	}
	if ev.ParentOrderID > 0 {
		note += fmt.Sprintf(", subscription order #%d", ev.ParentOrderID)
	}
	return note
}

func (b *Binder) skip(ctx context.Context, ev Event, reason string) {
	obslogger.WithContext(ctx, b.log).Debug("lifecycle step skipped",
		zap.String("event", ev.Name),
		zap.Int64("order_id", ev.OrderID),
		zap.String("reason", reason),
	)
}

// benign drops the outcomes that mean there was nothing to do.
func benign(err error) error {
	switch {
	case errors.Is(err, invoicedomain.ErrNoBillableItems),
		errors.Is(err, invoicedomain.ErrInvoiceExists),
		errors.Is(err, invoicedomain.ErrNoInvoice):
		return nil
	default:
		return err
	}
}
