package domain

import (
	"context"
	"errors"

	orderdomain "github.com/smallbiznis/fastbillsync/internal/order/domain"
)

var (
	ErrNoBillableItems     = errors.New("no_billable_items")
	ErrInvoiceExists       = errors.New("invoice_exists")
	ErrMissingInvoiceID    = errors.New("missing_invoice_id")
	ErrNoInvoice           = errors.New("no_invoice")
	ErrInvalidEmail        = errors.New("invalid_email")
	ErrInvalidTemplateKind = errors.New("invalid_template_kind")
)

// Manager drives the FastBill invoice of an order through its lifecycle.
// Every remote failure is written to the debug log before it is returned.
type Manager interface {
	CreateInvoice(ctx context.Context, order *orderdomain.Order, kind TemplateKind) error
	// CompleteInvoice does nothing for a non-positive invoiceID.
	CompleteInvoice(ctx context.Context, order *orderdomain.Order, invoiceID int64) error
	CreatePayment(ctx context.Context, order *orderdomain.Order) error
	CancelInvoice(ctx context.Context, order *orderdomain.Order) error
	DeleteInvoice(ctx context.Context, order *orderdomain.Order) error
	// SendInvoiceByEmail returns ErrNoInvoice or ErrInvalidEmail without
	// calling the API.
	SendInvoiceByEmail(ctx context.Context, order *orderdomain.Order) error
	// GetInvoice returns nil, nil for a non-positive id or an empty result.
	GetInvoice(ctx context.Context, invoiceID int64) (*RemoteInvoice, error)
	ListTemplates(ctx context.Context) ([]Template, error)
	// FetchDocumentURL reads the stored invoice and persists its document
	// URL. It returns "" when FastBill reports none.
	FetchDocumentURL(ctx context.Context, order *orderdomain.Order) (string, error)
	StoredInvoiceID(ctx context.Context, orderID int64) (int64, error)
	// DocumentURL returns the stored URL, or "" when online invoices are off.
	DocumentURL(ctx context.Context, orderID int64) (string, error)
}
