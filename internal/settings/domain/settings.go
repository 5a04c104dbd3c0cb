package domain

import (
	"context"
	"strings"
)

// Option names of the flat integration settings map.
const (
	KeyAccountEmail           = "fastbill_email"
	KeyAPIKey                 = "fastbill_api_key"
	KeyAutoInvoice            = "fastbill_auto_invoice"
	KeyAutoPayment            = "fastbill_auto_payment"
	KeySendByEmail            = "fastbill_send_by_email"
	KeyOnlineInvoice          = "fastbill_online_invoice"
	KeyDebugLog               = "fastbill_debug_on"
	KeyInvoiceStatus          = "fastbill_invoice_status"
	KeyTemplateDirect         = "fastbill_template_direct"
	KeyTemplateAdvance        = "fastbill_template_advance"
	KeyAdvanceGateways        = "fastbill_advance_gateways"
	KeyCountryCode            = "fastbill_country_code"
	KeyExtendedCustomerFields = "fastbill_extended_customer_fields"
	KeyRenewalDiscounts       = "fastbill_renewal_discounts"
	KeyRecurringUnconditional = "fastbill_recurring_unconditional"
	KeyEmailSubject           = "fastbill_email_subject"
	KeyEmailMessage           = "fastbill_email_message"
	KeyCurrency               = "currency"
	KeyTaxEnabled             = "tax_enabled"
)

const (
	DefaultCountryCode = "DE"
	DefaultCurrency    = "EUR"
)

type InvoiceStatusPolicy string

const (
	InvoiceStatusDraft    InvoiceStatusPolicy = "draft"
	InvoiceStatusComplete InvoiceStatusPolicy = "complete"
)

// Settings is the typed view over the flat option map. Components receive a
// copy at construction and never re-read the source.
type Settings struct {
	AccountEmail string
	APIKey       string

	AutoInvoice   bool
	AutoPayment   bool
	SendByEmail   bool
	OnlineInvoice bool
	DebugLog      bool

	InvoiceStatus   InvoiceStatusPolicy
	TemplateDirect  string
	TemplateAdvance string
	AdvanceGateways []string
	CountryCode     string
	Currency        string
	TaxEnabled      bool

	ExtendedCustomerFields bool
	RenewalDiscounts       bool
	RecurringUnconditional bool

	EmailSubject string
	EmailMessage string
}

// Source yields the raw option map from the host settings store.
type Source interface {
	Load(ctx context.Context) (map[string]string, error)
}

func Parse(values map[string]string) Settings {
	get := func(key string) string {
		return strings.TrimSpace(values[key])
	}

	s := Settings{
		AccountEmail:           get(KeyAccountEmail),
		APIKey:                 get(KeyAPIKey),
		AutoInvoice:            parseBool(get(KeyAutoInvoice)),
		AutoPayment:            parseBool(get(KeyAutoPayment)),
		SendByEmail:            parseBool(get(KeySendByEmail)),
		OnlineInvoice:          parseBool(get(KeyOnlineInvoice)),
		DebugLog:               parseBool(get(KeyDebugLog)),
		InvoiceStatus:          parsePolicy(get(KeyInvoiceStatus)),
		TemplateDirect:         get(KeyTemplateDirect),
		TemplateAdvance:        get(KeyTemplateAdvance),
		AdvanceGateways:        parseList(get(KeyAdvanceGateways)),
		CountryCode:            strings.ToUpper(get(KeyCountryCode)),
		Currency:               strings.ToUpper(get(KeyCurrency)),
		TaxEnabled:             parseBool(get(KeyTaxEnabled)),
		ExtendedCustomerFields: parseBool(get(KeyExtendedCustomerFields)),
		RenewalDiscounts:       parseBool(get(KeyRenewalDiscounts)),
		RecurringUnconditional: parseBool(get(KeyRecurringUnconditional)),
		EmailSubject:           get(KeyEmailSubject),
		EmailMessage:           get(KeyEmailMessage),
	}
	if s.CountryCode == "" {
		s.CountryCode = DefaultCountryCode
	}
	if s.Currency == "" {
		s.Currency = DefaultCurrency
	}
	return s
}

func (s Settings) HasCredentials() bool {
	return s.AccountEmail != "" && s.APIKey != ""
}

func (s Settings) CompletePolicy() bool {
	return s.InvoiceStatus == InvoiceStatusComplete
}

func (s Settings) IsAdvanceGateway(gateway string) bool {
	gateway = strings.ToLower(strings.TrimSpace(gateway))
	if gateway == "" {
		return false
	}
	for _, candidate := range s.AdvanceGateways {
		if candidate == gateway {
			return true
		}
	}
	return false
}

func parseBool(raw string) bool {
	switch strings.ToLower(raw) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func parsePolicy(raw string) InvoiceStatusPolicy {
	if strings.EqualFold(raw, string(InvoiceStatusComplete)) {
		return InvoiceStatusComplete
	}
	return InvoiceStatusDraft
}

func parseList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
