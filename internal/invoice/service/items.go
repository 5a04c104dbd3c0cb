package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/fastbillsync/internal/fastbill/wire"
	"github.com/smallbiznis/fastbillsync/internal/invoice/domain"
	obslogger "github.com/smallbiznis/fastbillsync/internal/observability/logger"
	orderdomain "github.com/smallbiznis/fastbillsync/internal/order/domain"
	"go.uber.org/zap"
)

var hundred = decimal.NewFromInt(100)

// buildItems turns the cart into invoice lines. Lines netting to zero or less
// are left out.
func (s *Service) buildItems(ctx context.Context, order *orderdomain.Order) ([]domain.Item, error) {
	var vat *decimal.Decimal
	if s.settings.TaxEnabled {
		rate, err := s.catalog.TaxRate(ctx, order.Buyer.CountryOr(s.settings.CountryCode), order.Buyer.Address.State)
		if err != nil {
			return nil, fmt.Errorf("resolve tax rate: %w", err)
		}
		percent := rate.Mul(hundred)
		vat = &percent
	}

	items := make([]domain.Item, 0, len(order.Items))
	for _, line := range order.Items {
		net := line.NetPrice()
		if !net.IsPositive() {
			continue
		}
		unit, quantity := splitQuantity(net, line.Quantity)
		items = append(items, domain.Item{
			Description: s.describe(ctx, order, line),
			UnitPrice:   unit,
			Quantity:    quantity,
			VATPercent:  vat,
		})
	}
	return items, nil
}

// splitQuantity keeps the cart quantity when the unit price is exact to the
// cent, otherwise bills the whole line as a single unit.
func splitQuantity(net decimal.Decimal, quantity int64) (decimal.Decimal, int64) {
	if quantity <= 1 {
		return net, 1
	}
	q := decimal.NewFromInt(quantity)
	unit := net.Div(q)
	if unit.Equal(unit.Round(2)) && unit.Mul(q).Equal(net) {
		return unit, quantity
	}
	return net, 1
}

func (s *Service) describe(ctx context.Context, order *orderdomain.Order, line orderdomain.LineItem) string {
	log := obslogger.WithContext(ctx, s.log)

	title, err := s.catalog.ProductTitle(ctx, line.ProductID)
	if err != nil || strings.TrimSpace(title) == "" {
		if err != nil {
			log.Warn("product title lookup failed", zap.Int64("product_id", line.ProductID), zap.Error(err))
		}
		title = line.Name
	}

	var b strings.Builder
	b.WriteString(strings.TrimSpace(title))

	if line.PriceID != nil {
		option, err := s.catalog.PriceOptionName(ctx, line.ProductID, *line.PriceID)
		if err != nil {
			log.Warn("price option lookup failed", zap.Int64("product_id", line.ProductID), zap.Error(err))
		} else if option = strings.TrimSpace(option); option != "" {
			b.WriteString(" - " + option)
		}
	}
	if line.IsRenewal && s.settings.RenewalDiscounts {
		b.WriteString(" (Renewal)")
	}
	if order.HasDiscount() {
		b.WriteString(" Discount used: " + strings.TrimSpace(order.DiscountCode))
	}
	return b.String()
}

func itemsElement(items []domain.Item) *wire.Element {
	root := wire.Elem("ITEMS")
	for _, item := range items {
		el := wire.Elem("ITEM",
			wire.Text("DESCRIPTION", item.Description),
			wire.Text("UNIT_PRICE", item.UnitPrice.StringFixed(2)),
			wire.Int("QUANTITY", item.Quantity),
		)
		if item.VATPercent != nil {
			el.Append(wire.Text("VAT_PERCENT", item.VATPercent.String()))
		}
		root.Append(el)
	}
	return root
}
