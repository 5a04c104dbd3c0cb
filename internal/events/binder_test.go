package events_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	customerservice "github.com/smallbiznis/fastbillsync/internal/customer/service"
	"github.com/smallbiznis/fastbillsync/internal/events"
	"github.com/smallbiznis/fastbillsync/internal/fastbill/fastbilltest"
	invoicedomain "github.com/smallbiznis/fastbillsync/internal/invoice/domain"
	invoiceservice "github.com/smallbiznis/fastbillsync/internal/invoice/service"
	orderdomain "github.com/smallbiznis/fastbillsync/internal/order/domain"
	orderservice "github.com/smallbiznis/fastbillsync/internal/order/service"
	settingsdomain "github.com/smallbiznis/fastbillsync/internal/settings/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type recordingManager struct {
	invoicedomain.Manager
	calls []string
	err   map[string]error
}

func (m *recordingManager) record(name string) error {
	m.calls = append(m.calls, name)
	return m.err[name]
}

func (m *recordingManager) CreateInvoice(_ context.Context, _ *orderdomain.Order, kind invoicedomain.TemplateKind) error {
	return m.record("create:" + string(kind))
}

func (m *recordingManager) CreatePayment(context.Context, *orderdomain.Order) error {
	return m.record("payment")
}

func (m *recordingManager) CancelInvoice(context.Context, *orderdomain.Order) error {
	return m.record("cancel")
}

func (m *recordingManager) DeleteInvoice(context.Context, *orderdomain.Order) error {
	return m.record("delete")
}

func (m *recordingManager) SendInvoiceByEmail(context.Context, *orderdomain.Order) error {
	return m.record("email")
}

type orderStore struct {
	orders map[int64]*orderdomain.Order
	meta   map[string]string
	notes  []string
}

func newOrderStore(orders ...*orderdomain.Order) *orderStore {
	s := &orderStore{orders: map[int64]*orderdomain.Order{}, meta: map[string]string{}}
	for _, o := range orders {
		s.orders[o.ID] = o
	}
	return s
}

func (s *orderStore) GetOrder(_ context.Context, id int64) (*orderdomain.Order, error) {
	order, ok := s.orders[id]
	if !ok {
		return nil, orderdomain.ErrNotFound
	}
	return order, nil
}

func (s *orderStore) GetMeta(_ context.Context, orderID int64, key string) (string, error) {
	return s.meta[key], nil
}

func (s *orderStore) SetMeta(_ context.Context, _ int64, key, value string) error {
	s.meta[key] = value
	return nil
}

func (s *orderStore) DeleteMeta(_ context.Context, _ int64, key string) error {
	delete(s.meta, key)
	return nil
}

func (s *orderStore) AddNote(_ context.Context, _ int64, note string) error {
	s.notes = append(s.notes, note)
	return nil
}

func testOrder(gateway string) *orderdomain.Order {
	return &orderdomain.Order{
		ID:        5,
		Gateway:   gateway,
		Currency:  "EUR",
		CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Buyer:     orderdomain.Buyer{FirstName: "Ada", LastName: "L", Email: "ada@example.com"},
		Items: []orderdomain.LineItem{{
			ProductID: 1,
			Name:      "Ebook",
			Quantity:  1,
			Subtotal:  decimal.NewFromInt(100),
		}},
	}
}

func newBinder(t *testing.T, settings settingsdomain.Settings, order *orderdomain.Order) (*events.Dispatcher, *recordingManager) {
	d, manager, _ := newBinderWithStore(t, settings, order)
	return d, manager
}

func newBinderWithStore(t *testing.T, settings settingsdomain.Settings, order *orderdomain.Order) (*events.Dispatcher, *recordingManager, *orderStore) {
	manager := &recordingManager{err: map[string]error{}}
	store := newOrderStore(order)
	binder := events.NewBinder(events.BinderParams{
		Manager:  manager,
		Orders:   store,
		Settings: settings,
		Log:      zaptest.NewLogger(t),
	})
	d := events.NewDispatcher(events.DispatcherParams{Log: zaptest.NewLogger(t)})
	d.Replace(binder.Bindings())
	return d, manager, store
}

func statusEvent(oldStatus, newStatus string) events.Event {
	return events.Event{Name: events.OrderStatusChange, OrderID: 5, OldStatus: oldStatus, NewStatus: newStatus}
}

func TestPublishFlow(t *testing.T) {
	cases := map[string]struct {
		settings settingsdomain.Settings
		gateway  string
		want     []string
	}{
		"all toggles with complete policy": {
			settings: settingsdomain.Settings{AutoInvoice: true, AutoPayment: true, SendByEmail: true, InvoiceStatus: settingsdomain.InvoiceStatusComplete},
			gateway:  "paypal",
			want:     []string{"create:direct", "payment", "email"},
		},
		"draft policy skips payment and email": {
			settings: settingsdomain.Settings{AutoInvoice: true, AutoPayment: true, SendByEmail: true, InvoiceStatus: settingsdomain.InvoiceStatusDraft},
			gateway:  "paypal",
			want:     []string{"create:direct"},
		},
		"advance gateway only records payment": {
			settings: settingsdomain.Settings{AutoInvoice: true, AutoPayment: true, SendByEmail: true, InvoiceStatus: settingsdomain.InvoiceStatusComplete, AdvanceGateways: []string{"banktransfer"}},
			gateway:  "BankTransfer",
			want:     []string{"payment"},
		},
		"auto invoice off": {
			settings: settingsdomain.Settings{InvoiceStatus: settingsdomain.InvoiceStatusComplete},
			gateway:  "paypal",
			want:     nil,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			d, manager := newBinder(t, tc.settings, testOrder(tc.gateway))
			require.NoError(t, d.Dispatch(context.Background(), statusEvent("pending", "publish")))
			assert.Equal(t, tc.want, manager.calls)
		})
	}
}

func TestStatusTransitions(t *testing.T) {
	cases := map[string]struct {
		oldStatus, newStatus string
		want                 []string
	}{
		"refunded":   {"publish", "refunded", []string{"cancel"}},
		"abandoned":  {"pending", "abandoned", []string{"delete"}},
		"revoked":    {"publish", "revoked", []string{"delete"}},
		"unchanged":  {"publish", "complete", nil},
		"unhandled":  {"publish", "failed", nil},
		"to pending": {"abandoned", "pending", nil},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			d, manager := newBinder(t, settingsdomain.Settings{AutoInvoice: true}, testOrder("paypal"))
			require.NoError(t, d.Dispatch(context.Background(), statusEvent(tc.oldStatus, tc.newStatus)))
			assert.Equal(t, tc.want, manager.calls)
		})
	}
}

func TestOrderInserted(t *testing.T) {
	settings := settingsdomain.Settings{AutoInvoice: true, SendByEmail: true, AdvanceGateways: []string{"prepay"}}

	d, manager := newBinder(t, settings, testOrder("prepay"))
	require.NoError(t, d.Dispatch(context.Background(), events.Event{Name: events.OrderInserted, OrderID: 5}))
	assert.Equal(t, []string{"create:advance", "email"}, manager.calls)

	d, manager = newBinder(t, settings, testOrder("stripe"))
	require.NoError(t, d.Dispatch(context.Background(), events.Event{Name: events.OrderInserted, OrderID: 5}))
	assert.Empty(t, manager.calls)
}

func TestOrderInsertedSkipsEmailWhenCreateFails(t *testing.T) {
	settings := settingsdomain.Settings{AutoInvoice: true, SendByEmail: true, AdvanceGateways: []string{"prepay"}}
	d, manager := newBinder(t, settings, testOrder("prepay"))
	manager.err["create:advance"] = assert.AnError

	require.NoError(t, d.Dispatch(context.Background(), events.Event{Name: events.OrderInserted, OrderID: 5}))
	assert.Equal(t, []string{"create:advance"}, manager.calls)
}

func TestRecurringPaymentGates(t *testing.T) {
	ev := events.Event{Name: events.RecurringPayment, OrderID: 5, ParentOrderID: 2, Amount: decimal.NewFromInt(10), TransactionID: "tx-1"}

	d, manager := newBinder(t, settingsdomain.Settings{AutoInvoice: true}, testOrder("paypal"))
	require.NoError(t, d.Dispatch(context.Background(), ev))
	assert.Equal(t, []string{"create:direct"}, manager.calls)

	d, manager = newBinder(t, settingsdomain.Settings{RecurringUnconditional: true, AdvanceGateways: []string{"paypal"}}, testOrder("paypal"))
	require.NoError(t, d.Dispatch(context.Background(), ev))
	assert.Equal(t, []string{"create:direct", "payment", "email"}, manager.calls)
}

func TestRecurringPaymentNotesAmountAndTransaction(t *testing.T) {
	ev := events.Event{
		Name:          events.RecurringPayment,
		OrderID:       5,
		ParentOrderID: 2,
		Amount:        decimal.RequireFromString("19.9"),
		TransactionID: " tx-42 ",
	}

	d, manager, store := newBinderWithStore(t, settingsdomain.Settings{}, testOrder("paypal"))
	require.NoError(t, d.Dispatch(context.Background(), ev))
	assert.Empty(t, manager.calls)
	assert.Equal(t, []string{"Renewal payment: 19.90 EUR, transaction tx-42, subscription order #2"}, store.notes)

	d, _, store = newBinderWithStore(t, settingsdomain.Settings{}, testOrder("paypal"))
	require.NoError(t, d.Dispatch(context.Background(), events.Event{Name: events.RecurringPayment, OrderID: 5, ParentOrderID: 2}))
	assert.Empty(t, store.notes)
}

func TestMissingOrderIsContained(t *testing.T) {
	d, manager := newBinder(t, settingsdomain.Settings{AutoInvoice: true}, testOrder("paypal"))
	ev := statusEvent("pending", "publish")
	ev.OrderID = 404

	assert.NoError(t, d.Dispatch(context.Background(), ev))
	assert.Empty(t, manager.calls)
}

func TestPublishSequenceAgainstFastBill(t *testing.T) {
	srv := fastbilltest.NewServer(t)
	srv.On("customer.get", fastbilltest.Success(`<CUSTOMERS/>`))
	srv.On("customer.create", fastbilltest.Success(`<CUSTOMER_ID>3</CUSTOMER_ID>`))
	srv.On("invoice.create", fastbilltest.Success(`<INVOICE_ID>77</INVOICE_ID>`))
	srv.On("invoice.complete", fastbilltest.Success(`<INVOICE_NUMBER>RE-77</INVOICE_NUMBER>`))

	settings := settingsdomain.Parse(map[string]string{
		settingsdomain.KeyAutoInvoice:     "1",
		settingsdomain.KeyAutoPayment:     "1",
		settingsdomain.KeyInvoiceStatus:   "complete",
		settingsdomain.KeyAdvanceGateways: "prepay",
	})
	log := zaptest.NewLogger(t)
	client := srv.Client(nil)
	store := newOrderStore(testOrder("paypal"))
	manager := invoiceservice.New(invoiceservice.Params{
		Client:   client,
		Resolver: customerservice.New(customerservice.Params{Client: client, Log: log, Settings: settings}),
		Store:    store,
		Catalog:  zeroTaxCatalog{},
		Emails:   orderservice.NewEmailValidator(),
		Log:      log,
		Settings: settings,
	})
	binder := events.NewBinder(events.BinderParams{Manager: manager, Orders: store, Settings: settings, Log: log})
	d := events.NewDispatcher(events.DispatcherParams{Log: log})
	d.Replace(binder.Bindings())

	require.NoError(t, d.Dispatch(context.Background(), statusEvent("pending", "publish")))

	var invoiceCalls []string
	for _, service := range srv.Services() {
		if strings.HasPrefix(service, "invoice.") {
			invoiceCalls = append(invoiceCalls, service)
		}
	}
	assert.Equal(t, []string{"invoice.create", "invoice.complete", "invoice.setpaid"}, invoiceCalls)
	assert.Equal(t, "77", srv.Requests("invoice.setpaid")[0].Data().Value("INVOICE_ID"))
}

type zeroTaxCatalog struct{}

func (zeroTaxCatalog) ProductTitle(context.Context, int64) (string, error) { return "", nil }

func (zeroTaxCatalog) PriceOptionName(context.Context, int64, int64) (string, error) { return "", nil }

func (zeroTaxCatalog) TaxRate(context.Context, string, string) (decimal.Decimal, error) {
	return decimal.Zero, nil
}
