package domain

import (
	"strings"

	orderdomain "github.com/smallbiznis/fastbillsync/internal/order/domain"
)

// FallbackName fills required name fields the buyer left empty.
const FallbackName = "unknown"

type CustomerType string

const (
	CustomerTypeBusiness CustomerType = "business"
	CustomerTypeConsumer CustomerType = "consumer"
)

// RemoteCustomer is the customer record as submitted to FastBill. It is never
// persisted locally.
type RemoteCustomer struct {
	ID          int64
	Type        CustomerType
	FirstName   string
	LastName    string
	Email       string
	Address     string
	Address2    string
	Zipcode     string
	City        string
	CountryCode string
	VATID       string

	// Extended fields, only sent when enabled.
	Organization string
	Salutation   string
	Phone        string
	Fax          string
	Mobile       string
}

// FromBuyer maps the buyer of an order onto a RemoteCustomer.
func FromBuyer(buyer orderdomain.Buyer, defaultCountry string) RemoteCustomer {
	customer := RemoteCustomer{
		Type:         CustomerTypeConsumer,
		FirstName:    orDefault(buyer.FirstName, FallbackName),
		LastName:     orDefault(buyer.LastName, FallbackName),
		Email:        strings.TrimSpace(buyer.Email),
		Address:      strings.TrimSpace(buyer.Address.Line1),
		Address2:     strings.TrimSpace(buyer.Address.Line2),
		Zipcode:      strings.TrimSpace(buyer.Address.Zip),
		City:         strings.TrimSpace(buyer.Address.City),
		CountryCode:  buyer.CountryOr(defaultCountry),
		VATID:        strings.TrimSpace(buyer.VATNumber),
		Organization: strings.TrimSpace(buyer.Organization),
		Salutation:   NormalizeSalutation(buyer.Salutation),
		Phone:        strings.TrimSpace(buyer.Phone),
		Fax:          strings.TrimSpace(buyer.Fax),
		Mobile:       strings.TrimSpace(buyer.Mobile),
	}
	if customer.Organization != "" {
		customer.Type = CustomerTypeBusiness
	}
	return customer
}

var (
	femaleSalutations = []string{"mrs", "ms", "miss", "frau", "madam", "madame", "mme"}
	maleSalutations   = []string{"mr", "herr", "mister", "sir", "monsieur"}
)

// NormalizeSalutation reduces a free-form salutation to "mrs", "mr" or "".
func NormalizeSalutation(raw string) string {
	tokens := strings.FieldsFunc(strings.ToLower(raw), func(r rune) bool {
		return !(r >= 'a' && r <= 'z')
	})
	if containsAny(tokens, femaleSalutations) {
		return "mrs"
	}
	if containsAny(tokens, maleSalutations) {
		return "mr"
	}
	return ""
}

func containsAny(tokens, candidates []string) bool {
	for _, token := range tokens {
		for _, candidate := range candidates {
			if token == candidate {
				return true
			}
		}
	}
	return false
}

func orDefault(value, fallback string) string {
	if value = strings.TrimSpace(value); value != "" {
		return value
	}
	return fallback
}
