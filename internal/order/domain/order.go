package domain

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Metadata keys written back onto an order.
const (
	MetaInvoiceID   = "_fastbill_invoice_id"
	MetaDocumentURL = "_fastbill_document_url"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusPublished Status = "publish"
	StatusRefunded  Status = "refunded"
	StatusAbandoned Status = "abandoned"
	StatusRevoked   Status = "revoked"
	StatusFailed    Status = "failed"
)

// ParseStatus maps host status spellings onto Status. Unknown values are
// returned lowercased so they never match a handled transition.
func ParseStatus(raw string) Status {
	value := strings.ToLower(strings.TrimSpace(raw))
	switch value {
	case "publish", "published", "complete", "completed":
		return StatusPublished
	default:
		return Status(value)
	}
}

type Address struct {
	Line1   string `json:"line1,omitempty"`
	Line2   string `json:"line2,omitempty"`
	City    string `json:"city,omitempty"`
	Zip     string `json:"zip,omitempty"`
	State   string `json:"state,omitempty"`
	Country string `json:"country,omitempty"`
}

// Buyer is the purchaser as captured at checkout. The business fields are
// only filled when the store collects them.
type Buyer struct {
	FirstName    string  `json:"first_name,omitempty"`
	LastName     string  `json:"last_name,omitempty"`
	Email        string  `json:"email"`
	Address      Address `json:"address"`
	VATNumber    string  `json:"vat_number,omitempty"`
	Organization string  `json:"organization,omitempty"`
	Salutation   string  `json:"salutation,omitempty"`
	Phone        string  `json:"phone,omitempty"`
	Fax          string  `json:"fax,omitempty"`
	Mobile       string  `json:"mobile,omitempty"`
}

func (b Buyer) FullName() string {
	return strings.TrimSpace(b.FirstName + " " + b.LastName)
}

// CountryOr returns the buyer's upper-cased country code, or fallback when
// the buyer left it empty.
func (b Buyer) CountryOr(fallback string) string {
	if country := strings.ToUpper(strings.TrimSpace(b.Address.Country)); country != "" {
		return country
	}
	return strings.ToUpper(strings.TrimSpace(fallback))
}

type LineItem struct {
	ProductID int64
	// PriceID selects a price option of a variable priced product.
	PriceID   *int64
	Name      string
	Quantity  int64
	Subtotal  decimal.Decimal
	Discount  decimal.Decimal
	IsRenewal bool
}

// NetPrice is the line total after the item discount, never below zero.
func (i LineItem) NetPrice() decimal.Decimal {
	net := i.Subtotal.Sub(i.Discount)
	if net.IsNegative() {
		return decimal.Zero
	}
	return net
}

type Order struct {
	ID           int64
	Buyer        Buyer
	Items        []LineItem
	DiscountCode string
	Currency     string
	CreatedAt    time.Time
	Gateway      string
	Status       Status
}

// HasDiscount reports whether a discount code was redeemed. Hosts store
// "none" when no code was used.
func (o Order) HasDiscount() bool {
	code := strings.TrimSpace(o.DiscountCode)
	return code != "" && !strings.EqualFold(code, "none")
}

// Store is the slice of the host order store the integration reads and writes.
type Store interface {
	GetOrder(ctx context.Context, id int64) (*Order, error)
	// GetMeta returns "" when the key is not set.
	GetMeta(ctx context.Context, orderID int64, key string) (string, error)
	SetMeta(ctx context.Context, orderID int64, key, value string) error
	DeleteMeta(ctx context.Context, orderID int64, key string) error
	AddNote(ctx context.Context, orderID int64, note string) error
}

// Catalog resolves product presentation and tax data.
type Catalog interface {
	ProductTitle(ctx context.Context, productID int64) (string, error)
	PriceOptionName(ctx context.Context, productID, priceID int64) (string, error)
	// TaxRate returns the rate as a fraction, 0.19 for 19%.
	TaxRate(ctx context.Context, country, state string) (decimal.Decimal, error)
}

type EmailValidator interface {
	ValidEmail(email string) bool
}
