package service_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/fastbillsync/internal/clock"
	customerservice "github.com/smallbiznis/fastbillsync/internal/customer/service"
	"github.com/smallbiznis/fastbillsync/internal/fastbill/fastbilltest"
	"github.com/smallbiznis/fastbillsync/internal/invoice/service"
	orderdomain "github.com/smallbiznis/fastbillsync/internal/order/domain"
	orderservice "github.com/smallbiznis/fastbillsync/internal/order/service"
	settingsdomain "github.com/smallbiznis/fastbillsync/internal/settings/domain"
	"go.uber.org/zap/zaptest"
)

type memoryStore struct {
	mu    sync.Mutex
	meta  map[string]string
	notes map[int64][]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{meta: map[string]string{}, notes: map[int64][]string{}}
}

func metaKey(orderID int64, key string) string {
	return fmt.Sprintf("%d/%s", orderID, key)
}

func (m *memoryStore) GetOrder(context.Context, int64) (*orderdomain.Order, error) {
	return nil, orderdomain.ErrNotFound
}

func (m *memoryStore) GetMeta(_ context.Context, orderID int64, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.meta[metaKey(orderID, key)], nil
}

func (m *memoryStore) SetMeta(_ context.Context, orderID int64, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.meta[metaKey(orderID, key)] = value
	return nil
}

func (m *memoryStore) DeleteMeta(_ context.Context, orderID int64, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.meta, metaKey(orderID, key))
	return nil
}

func (m *memoryStore) AddNote(_ context.Context, orderID int64, note string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notes[orderID] = append(m.notes[orderID], note)
	return nil
}

func (m *memoryStore) metaCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.meta)
}

type staticCatalog struct {
	titles  map[int64]string
	options map[int64]string
	// rates is keyed by country code; other countries are untaxed.
	rates map[string]decimal.Decimal
}

func (c staticCatalog) ProductTitle(_ context.Context, productID int64) (string, error) {
	return c.titles[productID], nil
}

func (c staticCatalog) PriceOptionName(_ context.Context, _, priceID int64) (string, error) {
	return c.options[priceID], nil
}

func (c staticCatalog) TaxRate(_ context.Context, country, _ string) (decimal.Decimal, error) {
	return c.rates[country], nil
}

type fixture struct {
	srv     *fastbilltest.Server
	store   *memoryStore
	clock   *clock.FakeClock
	manager *service.Service
}

func newFixture(t *testing.T, settings settingsdomain.Settings) *fixture {
	t.Helper()
	if settings.CountryCode == "" {
		settings.CountryCode = settingsdomain.DefaultCountryCode
	}
	if settings.Currency == "" {
		settings.Currency = settingsdomain.DefaultCurrency
	}

	srv := fastbilltest.NewServer(t)
	srv.On("customer.get", fastbilltest.Success(`<CUSTOMERS><CUSTOMER><CUSTOMER_ID>7</CUSTOMER_ID></CUSTOMER></CUSTOMERS>`))
	srv.On("customer.update", fastbilltest.Success(`<CUSTOMER_ID>7</CUSTOMER_ID>`))
	srv.On("customer.create", fastbilltest.Success(`<CUSTOMER_ID>7</CUSTOMER_ID>`))
	srv.On("invoice.create", fastbilltest.Success(`<INVOICE_ID>501</INVOICE_ID>`))
	srv.On("invoice.complete", fastbilltest.Success(`<INVOICE_NUMBER>RE-2024-1</INVOICE_NUMBER>`))

	log := zaptest.NewLogger(t)
	client := srv.Client(nil)
	store := newMemoryStore()
	fake := clock.NewFakeClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))

	manager := service.New(service.Params{
		Client: client,
		Resolver: customerservice.New(customerservice.Params{
			Client:   client,
			Log:      log,
			Settings: settings,
		}),
		Store: store,
		Catalog: staticCatalog{
			titles:  map[int64]string{1: "Ebook", 2: "Course"},
			options: map[int64]string{10: "Gold"},
			rates:   map[string]decimal.Decimal{"DE": decimal.RequireFromString("0.19")},
		},
		Emails:           orderservice.NewEmailValidator(),
		Log:              log,
		Clock:            fake,
		Settings:         settings,
		TemplateCacheTTL: 10 * time.Minute,
	})

	return &fixture{srv: srv, store: store, clock: fake, manager: manager}
}

func newOrder(items ...orderdomain.LineItem) *orderdomain.Order {
	return &orderdomain.Order{
		ID: 1001,
		Buyer: orderdomain.Buyer{
			FirstName: "Ada",
			LastName:  "Lovelace",
			Email:     "ada@example.com",
			Address:   orderdomain.Address{Line1: "Main St 1", Zip: "10115", City: "Berlin", Country: "DE"},
		},
		Items:        items,
		DiscountCode: "none",
		Currency:     "eur",
		CreatedAt:    time.Date(2024, 2, 28, 9, 30, 15, 0, time.UTC),
		Gateway:      "paypal",
		Status:       orderdomain.StatusPending,
	}
}

func line(productID int64, subtotal, discount string) orderdomain.LineItem {
	return orderdomain.LineItem{
		ProductID: productID,
		Name:      fmt.Sprintf("product %d", productID),
		Quantity:  1,
		Subtotal:  decimal.RequireFromString(subtotal),
		Discount:  decimal.RequireFromString(discount),
	}
}
