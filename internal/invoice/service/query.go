package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/fastbillsync/internal/fastbill/wire"
	"github.com/smallbiznis/fastbillsync/internal/invoice/domain"
	obslogger "github.com/smallbiznis/fastbillsync/internal/observability/logger"
	orderdomain "github.com/smallbiznis/fastbillsync/internal/order/domain"
	"go.uber.org/zap"
)

func (s *Service) GetInvoice(ctx context.Context, invoiceID int64) (*domain.RemoteInvoice, error) {
	if invoiceID <= 0 {
		return nil, nil
	}

	payload, err := s.client.Call(ctx, wire.NewRequest("invoice.get").WithFilter(wire.Int("INVOICE_ID", invoiceID)))
	if err != nil {
		s.logRemoteError(ctx, "There was an error fetching the invoice from FastBill:", err)
		return nil, err
	}

	entry := payload.Find("INVOICES", "INVOICE")
	if entry == nil {
		return nil, nil
	}
	return toRemoteInvoice(entry), nil
}

func toRemoteInvoice(node *wire.Node) *domain.RemoteInvoice {
	id, _ := strconv.ParseInt(node.Value("INVOICE_ID"), 10, 64)
	inv := &domain.RemoteInvoice{
		ID:           id,
		Number:       node.Value("INVOICE_NUMBER"),
		Type:         node.Value("TYPE"),
		DocumentURL:  node.Value("DOCUMENT_URL"),
		CurrencyCode: node.Value("CURRENCY_CODE"),
		Items:        []domain.Item{},
	}

	switch {
	case node.Value("IS_CANCELED") == "1":
		inv.Status = domain.StatusCanceled
	case strings.EqualFold(inv.Type, "draft"):
		inv.Status = domain.StatusDraft
	case inv.Number != "":
		inv.Status = domain.StatusComplete
	default:
		inv.Status = domain.StatusDraft
	}

	for _, item := range node.Find("ITEMS").All("ITEM") {
		unit, _ := decimal.NewFromString(item.Value("UNIT_PRICE"))
		quantity, err := strconv.ParseInt(item.Value("QUANTITY"), 10, 64)
		if err != nil {
			// FastBill reports quantities as decimals.
			if q, qerr := decimal.NewFromString(item.Value("QUANTITY")); qerr == nil {
				quantity = q.IntPart()
			}
		}
		line := domain.Item{
			Description: item.Value("DESCRIPTION"),
			UnitPrice:   unit,
			Quantity:    quantity,
		}
		if raw := item.Value("VAT_PERCENT"); raw != "" {
			if vat, err := decimal.NewFromString(raw); err == nil {
				line.VATPercent = &vat
			}
		}
		inv.Items = append(inv.Items, line)
	}
	return inv
}

// ListTemplates serves template.get from a short lived cache. Failures are
// not cached.
func (s *Service) ListTemplates(ctx context.Context) ([]domain.Template, error) {
	if cached, ok := s.templates.Get(templatesKey); ok {
		return cached, nil
	}

	payload, err := s.client.Call(ctx, wire.NewRequest("template.get").WithFilter())
	if err != nil {
		s.logRemoteError(ctx, "There was an error listing templates in FastBill:", err)
		return nil, err
	}

	templates := []domain.Template{}
	for _, node := range payload.Find("TEMPLATES").All("TEMPLATE") {
		id := node.Value("TEMPLATE_ID")
		if id == "" {
			continue
		}
		templates = append(templates, domain.Template{ID: id, Name: node.Value("TEMPLATE_NAME")})
	}
	s.templates.Set(templatesKey, templates, s.templateTTL)
	return templates, nil
}

func (s *Service) FetchDocumentURL(ctx context.Context, order *orderdomain.Order) (string, error) {
	if order == nil {
		return "", domain.ErrNoInvoice
	}
	invoiceID, err := s.StoredInvoiceID(ctx, order.ID)
	if err != nil {
		return "", err
	}
	if invoiceID <= 0 {
		return "", domain.ErrNoInvoice
	}
	return s.fetchDocumentURL(ctx, order.ID, invoiceID)
}

func (s *Service) DocumentURL(ctx context.Context, orderID int64) (string, error) {
	if !s.settings.OnlineInvoice {
		return "", nil
	}
	return s.store.GetMeta(ctx, orderID, orderdomain.MetaDocumentURL)
}

func (s *Service) fetchDocumentURL(ctx context.Context, orderID, invoiceID int64) (string, error) {
	inv, err := s.GetInvoice(ctx, invoiceID)
	if err != nil {
		return "", err
	}
	if inv == nil || inv.DocumentURL == "" {
		s.debug.Add(ctx, "No document URL available for invoice ID: "+strconv.FormatInt(invoiceID, 10))
		return "", nil
	}
	if err := s.store.SetMeta(ctx, orderID, orderdomain.MetaDocumentURL, inv.DocumentURL); err != nil {
		return "", err
	}
	return inv.DocumentURL, nil
}

// refreshDocumentURL is the best-effort variant used inside lifecycle steps.
func (s *Service) refreshDocumentURL(ctx context.Context, orderID, invoiceID int64) {
	if _, err := s.fetchDocumentURL(ctx, orderID, invoiceID); err != nil {
		obslogger.WithContext(ctx, s.log).Warn("fetch document url failed",
			zap.Int64("order_id", orderID),
			zap.Int64("invoice_id", invoiceID),
			zap.Error(err),
		)
	}
}
