package service

import (
	"html"
	"strconv"
	"strings"

	orderdomain "github.com/smallbiznis/fastbillsync/internal/order/domain"
)

// RenderPlaceholders fills the buyer and invoice placeholders of an email
// subject or message. {fastbill_invoice_id} is left as is when invoiceID is
// not positive.
func RenderPlaceholders(text string, order *orderdomain.Order, invoiceID int64) string {
	if text == "" || order == nil {
		return text
	}
	buyer := order.Buyer

	pairs := []string{
		"{name}", buyer.FirstName,
		"{fullname}", buyer.FirstName + " " + buyer.LastName,
		"{user_email}", buyer.Email,
		"{billing_address}", billingAddress(buyer.Address),
		"{payment_id}", strconv.FormatInt(order.ID, 10),
	}
	if invoiceID > 0 {
		pairs = append(pairs, "{fastbill_invoice_id}", strconv.FormatInt(invoiceID, 10))
	}
	return strings.NewReplacer(pairs...).Replace(text)
}

func billingAddress(a orderdomain.Address) string {
	parts := make([]string, 0, 4)
	for _, part := range []string{a.Line1, a.Line2, a.Zip, a.City} {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, ", ")
}

// InvoiceLinkTag renders the download link placed in purchase emails.
func InvoiceLinkTag(documentURL string) string {
	documentURL = strings.TrimSpace(documentURL)
	if documentURL == "" {
		return ""
	}
	return `<a title="Download Invoice" href="` + html.EscapeString(documentURL) + `">Download Invoice</a>`
}
