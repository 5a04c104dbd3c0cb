package integration_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/fastbillsync/internal/clock"
	"github.com/smallbiznis/fastbillsync/internal/config"
	"github.com/smallbiznis/fastbillsync/internal/events"
	"github.com/smallbiznis/fastbillsync/internal/fastbill"
	"github.com/smallbiznis/fastbillsync/internal/fastbill/fastbilltest"
	"github.com/smallbiznis/fastbillsync/internal/integration"
	orderdomain "github.com/smallbiznis/fastbillsync/internal/order/domain"
	orderrepository "github.com/smallbiznis/fastbillsync/internal/order/repository"
	orderservice "github.com/smallbiznis/fastbillsync/internal/order/service"
	settingsdomain "github.com/smallbiznis/fastbillsync/internal/settings/domain"
	"github.com/smallbiznis/fastbillsync/internal/settings/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

type env struct {
	srv         *fastbilltest.Server
	options     *repository.OptionStore
	orders      *orderservice.Service
	dispatcher  *events.Dispatcher
	integration *integration.Integration
}

func newEnv(t *testing.T) *env {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(append(orderdomain.Models(), &settingsdomain.Option{})...))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	log := zaptest.NewLogger(t)
	srv := fastbilltest.NewServer(t)
	fake := clock.NewFakeClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	cfg := config.Config{
		LogStore: config.LogStoreDB,
		FastBill: config.FastBillConfig{Endpoint: srv.URL, Timeout: 5 * time.Second, TemplateCacheTTL: time.Minute},
	}

	orders := orderservice.New(orderservice.Params{
		DB:    db,
		Log:   log,
		Repo:  orderrepository.Provide(),
		GenID: node,
		Clock: fake,
	})
	options := repository.NewOptionStore(db)
	dispatcher := events.NewDispatcher(events.DispatcherParams{Log: log})

	in := integration.New(integration.Params{
		Config:     cfg,
		Source:     options,
		Options:    options,
		Factory:    fastbill.NewFactory(fastbill.Params{Config: cfg, Log: log}),
		Orders:     orders,
		Catalog:    orders,
		Emails:     orderservice.NewEmailValidator(),
		Dispatcher: dispatcher,
		Clock:      fake,
		Log:        log,
	})

	return &env{srv: srv, options: options, orders: orders, dispatcher: dispatcher, integration: in}
}

func (e *env) set(t *testing.T, values map[string]string) {
	t.Helper()
	for key, value := range values {
		require.NoError(t, e.options.SetOption(context.Background(), key, value))
	}
}

func TestMissingCredentialsRegistersNoBindings(t *testing.T) {
	e := newEnv(t)
	e.set(t, map[string]string{settingsdomain.KeyAutoInvoice: "1"})

	err := e.integration.Apply(context.Background())

	assert.ErrorIs(t, err, fastbill.ErrMissingCredentials)
	for _, name := range events.Names() {
		assert.Zero(t, e.dispatcher.Bound(name))
	}
	_, err = e.integration.Manager()
	assert.ErrorIs(t, err, integration.ErrNotConfigured)
	assert.NotNil(t, e.integration.DebugLog())

	assert.NoError(t, e.dispatcher.Dispatch(context.Background(), events.Event{Name: events.OrderStatusChange, OrderID: 1, NewStatus: "publish"}))
	assert.Empty(t, e.srv.Services())
}

func TestPublishedOrderIsInvoiced(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.set(t, map[string]string{
		settingsdomain.KeyAccountEmail:  fastbilltest.Email,
		settingsdomain.KeyAPIKey:        fastbilltest.APIKey,
		settingsdomain.KeyAutoInvoice:   "1",
		settingsdomain.KeyDebugLog:      "1",
		settingsdomain.KeyInvoiceStatus: "complete",
	})
	e.srv.On("customer.get", fastbilltest.Success("<CUSTOMERS/>"))
	e.srv.On("customer.create", fastbilltest.Success("<CUSTOMER_ID>12</CUSTOMER_ID>"))
	e.srv.On("invoice.create", fastbilltest.Success("<INVOICE_ID>900</INVOICE_ID>"))
	e.srv.On("invoice.complete", fastbilltest.Success("<INVOICE_NUMBER>2024-900</INVOICE_NUMBER>"))

	require.NoError(t, e.orders.CreateOrder(ctx, &orderdomain.Order{
		ID:        31,
		Status:    orderdomain.StatusPending,
		Gateway:   "stripe",
		Currency:  "EUR",
		CreatedAt: time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC),
		Buyer:     orderdomain.Buyer{FirstName: "Max", LastName: "M", Email: "max@example.com"},
		Items: []orderdomain.LineItem{
			{ProductID: 1, Name: "Plugin", Quantity: 1, Subtotal: decimal.NewFromInt(49)},
		},
	}))

	require.NoError(t, e.integration.Apply(ctx))
	require.NoError(t, e.dispatcher.Dispatch(ctx, events.Event{
		Name:      events.OrderStatusChange,
		OrderID:   31,
		OldStatus: "pending",
		NewStatus: "publish",
	}))

	invoiceID, err := e.orders.GetMeta(ctx, 31, orderdomain.MetaInvoiceID)
	require.NoError(t, err)
	assert.Equal(t, "900", invoiceID)

	notes, err := e.orders.ListNotes(ctx, 31)
	require.NoError(t, err)
	assert.Equal(t, []string{"FastBill Invoice ID: 900", "FastBill Invoice Number: 2024-900"}, notes)

	logged, err := e.integration.DebugLog().Read(ctx)
	require.NoError(t, err)
	assert.Contains(t, logged, "START - Creating invoice for order #31")
	assert.Contains(t, logged, "END - Creating invoice for order #31")
	assert.Contains(t, logged, "Log Date: Fri, 01 Mar 2024 12:00:00 +0000")

	request := e.srv.Requests("invoice.create")[0]
	assert.Equal(t, fastbilltest.Email, request.Email)
}

func TestApplyValuesRebuildsAndDisables(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	require.NoError(t, e.integration.ApplyValues(ctx, map[string]string{
		settingsdomain.KeyAccountEmail: "a@example.com",
		settingsdomain.KeyAPIKey:       "k",
	}))
	assert.Equal(t, 1, e.dispatcher.Bound(events.OrderInserted))
	_, err := e.integration.Manager()
	assert.NoError(t, err)

	require.Error(t, e.integration.ApplyValues(ctx, map[string]string{}))
	assert.Zero(t, e.dispatcher.Bound(events.OrderInserted))
	_, err = e.integration.Manager()
	assert.ErrorIs(t, err, integration.ErrNotConfigured)
}
