package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// TemplateKind selects which configured template an invoice uses.
type TemplateKind string

const (
	TemplateDirect  TemplateKind = "direct"
	TemplateAdvance TemplateKind = "advance"
)

func ParseTemplateKind(raw string) (TemplateKind, error) {
	switch TemplateKind(strings.ToLower(strings.TrimSpace(raw))) {
	case "", TemplateDirect:
		return TemplateDirect, nil
	case TemplateAdvance:
		return TemplateAdvance, nil
	default:
		return "", ErrInvalidTemplateKind
	}
}

type Status string

const (
	StatusDraft    Status = "draft"
	StatusComplete Status = "complete"
	StatusCanceled Status = "canceled"
	StatusDeleted  Status = "deleted"
)

// Item is one invoice line.
type Item struct {
	Description string          `json:"description"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int64           `json:"quantity"`
	// VATPercent is nil when tax collection is off.
	VATPercent *decimal.Decimal `json:"vat_percent,omitempty"`
}

// RemoteInvoice is an invoice as reported by FastBill.
type RemoteInvoice struct {
	ID           int64  `json:"id"`
	Number       string `json:"number,omitempty"`
	Type         string `json:"type,omitempty"`
	Status       Status `json:"status,omitempty"`
	DocumentURL  string `json:"document_url,omitempty"`
	CurrencyCode string `json:"currency_code,omitempty"`
	Items        []Item `json:"items"`
}

type Template struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
