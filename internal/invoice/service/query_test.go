package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/fastbillsync/internal/fastbill/fastbilltest"
	"github.com/smallbiznis/fastbillsync/internal/invoice/domain"
	orderdomain "github.com/smallbiznis/fastbillsync/internal/order/domain"
	settingsdomain "github.com/smallbiznis/fastbillsync/internal/settings/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const templatesBody = `<TEMPLATES>
	<TEMPLATE><TEMPLATE_ID>1</TEMPLATE_ID><TEMPLATE_NAME>Standard</TEMPLATE_NAME></TEMPLATE>
	<TEMPLATE><TEMPLATE_ID>2</TEMPLATE_ID><TEMPLATE_NAME>Advance</TEMPLATE_NAME></TEMPLATE>
</TEMPLATES>`

func TestListTemplatesCachesWithinWindow(t *testing.T) {
	f := newFixture(t, settingsdomain.Settings{})
	f.srv.On("template.get", fastbilltest.Success(templatesBody))
	ctx := context.Background()

	first, err := f.manager.ListTemplates(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.Template{{ID: "1", Name: "Standard"}, {ID: "2", Name: "Advance"}}, first)

	f.clock.Advance(9 * time.Minute)
	second, err := f.manager.ListTemplates(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Len(t, f.srv.Requests("template.get"), 1)

	f.clock.Advance(2 * time.Minute)
	_, err = f.manager.ListTemplates(ctx)
	require.NoError(t, err)
	assert.Len(t, f.srv.Requests("template.get"), 2)
}

func TestListTemplatesSendsEmptyFilter(t *testing.T) {
	f := newFixture(t, settingsdomain.Settings{})
	_, err := f.manager.ListTemplates(context.Background())
	require.NoError(t, err)

	req := f.srv.Requests("template.get")[0]
	require.NotNil(t, req.Filter())
	assert.Empty(t, req.Filter().Children)
}

func TestListTemplatesDoesNotCacheFailures(t *testing.T) {
	f := newFixture(t, settingsdomain.Settings{})
	f.srv.On("template.get", fastbilltest.Failure("unauthorized"))
	ctx := context.Background()

	templates, err := f.manager.ListTemplates(ctx)
	assert.Error(t, err)
	assert.Empty(t, templates)

	f.srv.On("template.get", fastbilltest.Success(templatesBody))
	templates, err = f.manager.ListTemplates(ctx)
	require.NoError(t, err)
	assert.Len(t, templates, 2)
}

func TestGetInvoice(t *testing.T) {
	f := newFixture(t, settingsdomain.Settings{})
	f.srv.On("invoice.get", fastbilltest.Success(`<INVOICES><INVOICE>
		<INVOICE_ID>501</INVOICE_ID><INVOICE_NUMBER>RE-1</INVOICE_NUMBER><TYPE>outgoing</TYPE>
		<CURRENCY_CODE>EUR</CURRENCY_CODE><DOCUMENT_URL>https://doc</DOCUMENT_URL>
		<ITEMS><ITEM><DESCRIPTION>Ebook</DESCRIPTION><UNIT_PRICE>10.00</UNIT_PRICE><QUANTITY>2.00</QUANTITY><VAT_PERCENT>19.00</VAT_PERCENT></ITEM></ITEMS>
	</INVOICE></INVOICES>`))

	inv, err := f.manager.GetInvoice(context.Background(), 501)
	require.NoError(t, err)
	require.NotNil(t, inv)

	assert.Equal(t, int64(501), inv.ID)
	assert.Equal(t, "RE-1", inv.Number)
	assert.Equal(t, domain.StatusComplete, inv.Status)
	assert.Equal(t, "https://doc", inv.DocumentURL)
	require.Len(t, inv.Items, 1)
	assert.Equal(t, int64(2), inv.Items[0].Quantity)
	assert.Equal(t, "19", inv.Items[0].VATPercent.String())
	assert.Equal(t, "501", f.srv.Requests("invoice.get")[0].Filter().Value("INVOICE_ID"))
}

func TestGetInvoiceAbsent(t *testing.T) {
	f := newFixture(t, settingsdomain.Settings{})

	inv, err := f.manager.GetInvoice(context.Background(), 0)
	assert.NoError(t, err)
	assert.Nil(t, inv)
	assert.Empty(t, f.srv.Services())

	f.srv.On("invoice.get", fastbilltest.Success("<INVOICES/>"))
	inv, err = f.manager.GetInvoice(context.Background(), 5)
	assert.NoError(t, err)
	assert.Nil(t, inv)

	f.srv.On("invoice.get", fastbilltest.Failure("no access"))
	inv, err = f.manager.GetInvoice(context.Background(), 5)
	assert.Error(t, err)
	assert.Nil(t, inv)
}

func TestFetchDocumentURL(t *testing.T) {
	f := newFixture(t, settingsdomain.Settings{})
	order := newOrder()
	ctx := context.Background()

	_, err := f.manager.FetchDocumentURL(ctx, order)
	assert.ErrorIs(t, err, domain.ErrNoInvoice)

	require.NoError(t, f.store.SetMeta(ctx, order.ID, orderdomain.MetaInvoiceID, "501"))
	f.srv.On("invoice.get", fastbilltest.Success(`<INVOICES><INVOICE><INVOICE_ID>501</INVOICE_ID></INVOICE></INVOICES>`))
	url, err := f.manager.FetchDocumentURL(ctx, order)
	require.NoError(t, err)
	assert.Empty(t, url)

	f.srv.On("invoice.get", fastbilltest.Success(`<INVOICES><INVOICE><INVOICE_ID>501</INVOICE_ID><DOCUMENT_URL>https://doc/501</DOCUMENT_URL></INVOICE></INVOICES>`))
	url, err = f.manager.FetchDocumentURL(ctx, order)
	require.NoError(t, err)
	assert.Equal(t, "https://doc/501", url)
	stored, _ := f.store.GetMeta(ctx, order.ID, orderdomain.MetaDocumentURL)
	assert.Equal(t, "https://doc/501", stored)
}

func TestDocumentURLRequiresOnlineInvoice(t *testing.T) {
	ctx := context.Background()
	order := newOrder()

	off := newFixture(t, settingsdomain.Settings{})
	require.NoError(t, off.store.SetMeta(ctx, order.ID, orderdomain.MetaDocumentURL, "https://doc"))
	url, err := off.manager.DocumentURL(ctx, order.ID)
	require.NoError(t, err)
	assert.Empty(t, url)

	on := newFixture(t, settingsdomain.Settings{OnlineInvoice: true})
	require.NoError(t, on.store.SetMeta(ctx, order.ID, orderdomain.MetaDocumentURL, "https://doc"))
	url, err = on.manager.DocumentURL(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://doc", url)
}
