package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/smallbiznis/fastbillsync/internal/cache"
	"github.com/smallbiznis/fastbillsync/internal/clock"
	customerdomain "github.com/smallbiznis/fastbillsync/internal/customer/domain"
	"github.com/smallbiznis/fastbillsync/internal/debuglog"
	"github.com/smallbiznis/fastbillsync/internal/fastbill"
	"github.com/smallbiznis/fastbillsync/internal/fastbill/wire"
	"github.com/smallbiznis/fastbillsync/internal/invoice/domain"
	obslogger "github.com/smallbiznis/fastbillsync/internal/observability/logger"
	orderdomain "github.com/smallbiznis/fastbillsync/internal/order/domain"
	settingsdomain "github.com/smallbiznis/fastbillsync/internal/settings/domain"
	"go.uber.org/zap"
)

const (
	invoiceDateLayout       = "2006-01-02 15:04:05"
	DefaultTemplateCacheTTL = 15 * time.Minute
	templatesKey            = "templates"
)

type Params struct {
	Client   fastbill.Caller
	Resolver customerdomain.Resolver
	Store    orderdomain.Store
	Catalog  orderdomain.Catalog
	Emails   orderdomain.EmailValidator
	Debug    *debuglog.Logger
	Log      *zap.Logger
	Clock    clock.Clock
	Settings settingsdomain.Settings

	TemplateCacheTTL time.Duration
}

type Service struct {
	client   fastbill.Caller
	resolver customerdomain.Resolver
	store    orderdomain.Store
	catalog  orderdomain.Catalog
	emails   orderdomain.EmailValidator
	debug    *debuglog.Logger
	log      *zap.Logger
	clock    clock.Clock
	settings settingsdomain.Settings

	templates   *cache.TTLCache[string, []domain.Template]
	templateTTL time.Duration
}

func New(p Params) *Service {
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}
	debug := p.Debug
	if debug == nil {
		debug = debuglog.Nop()
	}
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	ttl := p.TemplateCacheTTL
	if ttl <= 0 {
		ttl = DefaultTemplateCacheTTL
	}

	return &Service{
		client:      p.Client,
		resolver:    p.Resolver,
		store:       p.Store,
		catalog:     p.Catalog,
		emails:      p.Emails,
		debug:       debug,
		log:         log.Named("invoice.service"),
		clock:       clk,
		settings:    p.Settings,
		templates:   cache.NewTTLCache[string, []domain.Template](clk),
		templateTTL: ttl,
	}
}

var _ domain.Manager = (*Service)(nil)

func (s *Service) CreateInvoice(ctx context.Context, order *orderdomain.Order, kind domain.TemplateKind) error {
	if order == nil {
		return orderdomain.ErrNotFound
	}
	s.debug.Add(ctx, fmt.Sprintf("START - Creating invoice for order #%d", order.ID))
	defer s.debug.Add(ctx, fmt.Sprintf("END - Creating invoice for order #%d", order.ID))

	existing, err := s.StoredInvoiceID(ctx, order.ID)
	if err != nil {
		return err
	}
	if existing > 0 {
		s.debug.Add(ctx, fmt.Sprintf("Order #%d already has FastBill invoice %d", order.ID, existing))
		return domain.ErrInvoiceExists
	}

	items, err := s.buildItems(ctx, order)
	if err != nil {
		s.debug.Add(ctx, "Unable to build invoice items: "+err.Error())
		return err
	}
	if len(items) == 0 {
		s.debug.Add(ctx, fmt.Sprintf("Order #%d has no billable items, no invoice created", order.ID))
		return domain.ErrNoBillableItems
	}

	customerID, err := s.resolver.Resolve(ctx, order)
	if err != nil {
		s.debug.Add(ctx, err.Error())
		return err
	}

	req := wire.NewRequest("invoice.create").WithData(
		wire.Int("CUSTOMER_ID", customerID),
		wire.OptionalText("TEMPLATE_ID", s.templateID(kind)),
		wire.Text("INVOICE_DATE", s.invoiceDate(order).Format(invoiceDateLayout)),
		wire.Text("CURRENCY_CODE", s.currency(order)),
		itemsElement(items),
	)

	payload, err := s.client.Call(ctx, req)
	if err != nil {
		s.logRemoteError(ctx, "There was an error adding the invoice to FastBill:", err)
		return err
	}

	invoiceID, err := strconv.ParseInt(payload.Value("INVOICE_ID"), 10, 64)
	if err != nil || invoiceID <= 0 {
		s.debug.Add(ctx, "FastBill did not return an invoice id for order #"+strconv.FormatInt(order.ID, 10))
		return domain.ErrMissingInvoiceID
	}

	if err := s.store.SetMeta(ctx, order.ID, orderdomain.MetaInvoiceID, strconv.FormatInt(invoiceID, 10)); err != nil {
		return fmt.Errorf("store invoice id: %w", err)
	}
	s.addNote(ctx, order.ID, "FastBill Invoice ID: "+strconv.FormatInt(invoiceID, 10))

	obslogger.WithContext(ctx, s.log).Info("invoice created",
		zap.Int64("order_id", order.ID),
		zap.Int64("invoice_id", invoiceID),
		zap.String("kind", string(kind)),
		zap.Int("items", len(items)),
	)

	if s.settings.OnlineInvoice {
		s.refreshDocumentURL(ctx, order.ID, invoiceID)
	}

	if s.settings.CompletePolicy() {
		// Failures are already in the debug log; the draft stays usable.
		_ = s.CompleteInvoice(ctx, order, invoiceID)
	}
	return nil
}

func (s *Service) CompleteInvoice(ctx context.Context, order *orderdomain.Order, invoiceID int64) error {
	if order == nil || invoiceID <= 0 {
		return nil
	}
	s.debug.Add(ctx, "START - Complete invoice in FastBill for invoice ID: "+strconv.FormatInt(invoiceID, 10))

	payload, err := s.client.Call(ctx, wire.NewRequest("invoice.complete").WithData(wire.Int("INVOICE_ID", invoiceID)))
	if err != nil {
		s.logRemoteError(ctx, "There was an error completing invoice in FastBill:", err)
		return err
	}

	s.debug.Add(ctx, fmt.Sprintf("END - Complete invoice for order #%d", order.ID))
	if number := payload.Value("INVOICE_NUMBER"); number != "" {
		s.addNote(ctx, order.ID, "FastBill Invoice Number: "+number)
	}
	if s.settings.OnlineInvoice {
		s.refreshDocumentURL(ctx, order.ID, invoiceID)
	}
	return nil
}

func (s *Service) CreatePayment(ctx context.Context, order *orderdomain.Order) error {
	return s.invoiceAction(ctx, order, "invoice.setpaid", "Creating payment", "There was an error creating a payment in FastBill:", false)
}

func (s *Service) CancelInvoice(ctx context.Context, order *orderdomain.Order) error {
	return s.invoiceAction(ctx, order, "invoice.cancel", "Canceling invoice", "There was an error canceling the invoice in FastBill:", true)
}

func (s *Service) DeleteInvoice(ctx context.Context, order *orderdomain.Order) error {
	return s.invoiceAction(ctx, order, "invoice.delete", "Deleting invoice", "There was an error deleting the invoice in FastBill:", true)
}

// invoiceAction sends a DATA/INVOICE_ID request for the stored invoice. With
// clearMeta set, a success removes the invoice metadata from the order.
func (s *Service) invoiceAction(ctx context.Context, order *orderdomain.Order, service, action, failure string, clearMeta bool) error {
	if order == nil {
		return nil
	}
	invoiceID, err := s.StoredInvoiceID(ctx, order.ID)
	if err != nil {
		return err
	}
	if invoiceID <= 0 {
		return nil
	}

	s.debug.Add(ctx, fmt.Sprintf("START - %s in FastBill for invoice ID: %d", action, invoiceID))
	if _, err := s.client.Call(ctx, wire.NewRequest(service).WithData(wire.Int("INVOICE_ID", invoiceID))); err != nil {
		s.logRemoteError(ctx, failure, err)
		return err
	}
	s.debug.Add(ctx, fmt.Sprintf("END - %s for order #%d", action, order.ID))

	if !clearMeta {
		return nil
	}
	switch service {
	case "invoice.cancel":
		s.addNote(ctx, order.ID, fmt.Sprintf("FastBill invoice %d canceled", invoiceID))
	case "invoice.delete":
		s.addNote(ctx, order.ID, fmt.Sprintf("FastBill invoice %d deleted", invoiceID))
	}
	for _, key := range []string{orderdomain.MetaInvoiceID, orderdomain.MetaDocumentURL} {
		if err := s.store.DeleteMeta(ctx, order.ID, key); err != nil {
			return fmt.Errorf("clear %s: %w", key, err)
		}
	}
	return nil
}

func (s *Service) SendInvoiceByEmail(ctx context.Context, order *orderdomain.Order) error {
	if order == nil {
		return domain.ErrNoInvoice
	}
	invoiceID, err := s.StoredInvoiceID(ctx, order.ID)
	if err != nil {
		return err
	}
	if invoiceID <= 0 {
		return domain.ErrNoInvoice
	}
	email := strings.TrimSpace(order.Buyer.Email)
	if email == "" || s.emails == nil || !s.emails.ValidEmail(email) {
		s.debug.Add(ctx, fmt.Sprintf("Invalid email address for order #%d, invoice not sent", order.ID))
		return domain.ErrInvalidEmail
	}

	s.debug.Add(ctx, "START - Sending invoice by email for invoice ID: "+strconv.FormatInt(invoiceID, 10))
	req := wire.NewRequest("invoice.sendbyemail").WithData(
		wire.Int("INVOICE_ID", invoiceID),
		wire.Elem("RECIPIENT", wire.Text("TO", email)),
		wire.OptionalText("SUBJECT", RenderPlaceholders(s.settings.EmailSubject, order, invoiceID)),
		wire.OptionalText("MESSAGE", RenderPlaceholders(s.settings.EmailMessage, order, invoiceID)),
		wire.Text("RECEIPT_CONFIRMATION", "1"),
	)
	if _, err := s.client.Call(ctx, req); err != nil {
		s.logRemoteError(ctx, "There was an error sending the invoice by email:", err)
		return err
	}
	s.debug.Add(ctx, fmt.Sprintf("END - Sending invoice by email for order #%d", order.ID))
	return nil
}

func (s *Service) StoredInvoiceID(ctx context.Context, orderID int64) (int64, error) {
	raw, err := s.store.GetMeta(ctx, orderID, orderdomain.MetaInvoiceID)
	if err != nil {
		return 0, err
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, nil
	}
	return id, nil
}

func (s *Service) templateID(kind domain.TemplateKind) string {
	if kind == domain.TemplateAdvance {
		return s.settings.TemplateAdvance
	}
	return s.settings.TemplateDirect
}

func (s *Service) invoiceDate(order *orderdomain.Order) time.Time {
	if order.CreatedAt.IsZero() {
		return s.clock.Now()
	}
	return order.CreatedAt
}

func (s *Service) currency(order *orderdomain.Order) string {
	if c := strings.ToUpper(strings.TrimSpace(order.Currency)); c != "" {
		return c
	}
	return s.settings.Currency
}

func (s *Service) addNote(ctx context.Context, orderID int64, note string) {
	if err := s.store.AddNote(ctx, orderID, note); err != nil {
		obslogger.WithContext(ctx, s.log).Warn("add order note failed", zap.Int64("order_id", orderID), zap.Error(err))
	}
}

func (s *Service) logRemoteError(ctx context.Context, prefix string, err error) {
	var apiErr *fastbill.APIError
	if errors.As(err, &apiErr) {
		s.debug.Add(ctx, prefix+"\nError: "+apiErr.Message())
		return
	}
	s.debug.Add(ctx, err.Error())
}
