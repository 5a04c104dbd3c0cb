package service_test

import (
	"context"
	"testing"

	"github.com/smallbiznis/fastbillsync/internal/customer/domain"
	"github.com/smallbiznis/fastbillsync/internal/customer/service"
	"github.com/smallbiznis/fastbillsync/internal/fastbill"
	"github.com/smallbiznis/fastbillsync/internal/fastbill/fastbilltest"
	orderdomain "github.com/smallbiznis/fastbillsync/internal/order/domain"
	settingsdomain "github.com/smallbiznis/fastbillsync/internal/settings/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newResolver(t *testing.T, srv *fastbilltest.Server, settings settingsdomain.Settings) *service.Service {
	t.Helper()
	if settings.CountryCode == "" {
		settings.CountryCode = settingsdomain.DefaultCountryCode
	}
	return service.New(service.Params{
		Client:   srv.Client(nil),
		Log:      zaptest.NewLogger(t),
		Settings: settings,
	})
}

func testOrder() *orderdomain.Order {
	return &orderdomain.Order{
		ID: 42,
		Buyer: orderdomain.Buyer{
			FirstName: "Ada",
			LastName:  "Lovelace",
			Email:     "ada@example.com",
			Address: orderdomain.Address{
				Line1:   "1 Analytical St",
				Zip:     "10115",
				City:    "Berlin",
				Country: "",
			},
			VATNumber:    "DE123",
			Organization: "Engines Ltd",
			Salutation:   "Frau Dr.",
			Phone:        "+49 30 1",
		},
	}
}

func TestLookupReturnsMatchingCustomer(t *testing.T) {
	srv := fastbilltest.NewServer(t)
	srv.On("customer.get", fastbilltest.Success(`<CUSTOMERS>
		<CUSTOMER><CUSTOMER_ID>5</CUSTOMER_ID><EMAIL>other@example.com</EMAIL></CUSTOMER>
		<CUSTOMER><CUSTOMER_ID>9</CUSTOMER_ID><EMAIL>ADA@example.com</EMAIL></CUSTOMER>
	</CUSTOMERS>`))

	id, ok := newResolver(t, srv, settingsdomain.Settings{}).Lookup(context.Background(), "ada@example.com")

	assert.True(t, ok)
	assert.Equal(t, int64(9), id)
	reqs := srv.Requests("customer.get")
	require.Len(t, reqs, 1)
	assert.Equal(t, "ada@example.com", reqs[0].Filter().Value("TERM"))
}

func TestLookupAcceptsEntriesWithoutEmail(t *testing.T) {
	srv := fastbilltest.NewServer(t)
	srv.On("customer.get", fastbilltest.Success(`<CUSTOMERS><CUSTOMER><CUSTOMER_ID>3</CUSTOMER_ID></CUSTOMER></CUSTOMERS>`))

	id, ok := newResolver(t, srv, settingsdomain.Settings{}).Lookup(context.Background(), "ada@example.com")
	assert.True(t, ok)
	assert.Equal(t, int64(3), id)
}

func TestLookupTreatsFailuresAsNotFound(t *testing.T) {
	cases := map[string]string{
		"no entries": fastbilltest.Success("<CUSTOMERS/>"),
		"api error":  fastbilltest.Failure("invalid term"),
		"malformed":  "<FBAPI><RESPONSE>",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			srv := fastbilltest.NewServer(t)
			srv.On("customer.get", body)

			id, ok := newResolver(t, srv, settingsdomain.Settings{}).Lookup(context.Background(), "ada@example.com")
			assert.False(t, ok)
			assert.Zero(t, id)
		})
	}
}

func TestResolveUpdatesExistingCustomer(t *testing.T) {
	srv := fastbilltest.NewServer(t)
	srv.On("customer.get", fastbilltest.Success(`<CUSTOMERS><CUSTOMER><CUSTOMER_ID>17</CUSTOMER_ID><EMAIL>ada@example.com</EMAIL></CUSTOMER></CUSTOMERS>`))
	srv.On("customer.update", fastbilltest.Success(`<CUSTOMER_ID>17</CUSTOMER_ID>`))

	id, err := newResolver(t, srv, settingsdomain.Settings{}).Resolve(context.Background(), testOrder())
	require.NoError(t, err)

	assert.Equal(t, int64(17), id)
	assert.Equal(t, []string{"customer.get", "customer.update"}, srv.Services())
	data := srv.Requests("customer.update")[0].Data()
	assert.Equal(t, "17", data.Value("CUSTOMER_ID"))
}

func TestCreateOrUpdateBuildsConsumerRecord(t *testing.T) {
	srv := fastbilltest.NewServer(t)
	srv.On("customer.create", fastbilltest.Success(`<CUSTOMER_ID>21</CUSTOMER_ID>`))

	order := testOrder()
	order.Buyer.FirstName = ""
	id, err := newResolver(t, srv, settingsdomain.Settings{}).CreateOrUpdate(context.Background(), order, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(21), id)

	data := srv.Requests("customer.create")[0].Data()
	assert.Nil(t, data.Child("CUSTOMER_ID"))
	assert.Equal(t, "consumer", data.Value("CUSTOMER_TYPE"))
	assert.Equal(t, "unknown", data.Value("FIRST_NAME"))
	assert.Equal(t, "Lovelace", data.Value("LAST_NAME"))
	assert.Equal(t, "ada@example.com", data.Value("EMAIL"))
	assert.Equal(t, "DE", data.Value("COUNTRY_CODE"))
	assert.Equal(t, "DE123", data.Value("VAT_ID"))
	assert.Equal(t, "Berlin", data.Value("CITY"))
	assert.Nil(t, data.Child("ORGANIZATION"))
	assert.Nil(t, data.Child("PHONE"))
	assert.Nil(t, data.Child("ADDRESS_2"))
}

func TestCreateOrUpdateSendsExtendedFields(t *testing.T) {
	srv := fastbilltest.NewServer(t)
	srv.On("customer.create", fastbilltest.Success(`<CUSTOMER_ID>21</CUSTOMER_ID>`))

	settings := settingsdomain.Settings{ExtendedCustomerFields: true, CountryCode: "AT"}
	_, err := newResolver(t, srv, settings).CreateOrUpdate(context.Background(), testOrder(), 0)
	require.NoError(t, err)

	data := srv.Requests("customer.create")[0].Data()
	assert.Equal(t, "business", data.Value("CUSTOMER_TYPE"))
	assert.Equal(t, "Engines Ltd", data.Value("ORGANIZATION"))
	assert.Equal(t, "mrs", data.Value("SALUTATION"))
	assert.Equal(t, "+49 30 1", data.Value("PHONE"))
	assert.Equal(t, "AT", data.Value("COUNTRY_CODE"))
	assert.Nil(t, data.Child("FAX"))
}

func TestCreateOrUpdateFailures(t *testing.T) {
	cases := map[string]string{
		"api error":  fastbilltest.Failure("EMAIL invalid"),
		"missing id": fastbilltest.Success(`<STATUS>ok</STATUS>`),
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			srv := fastbilltest.NewServer(t)
			srv.On("customer.create", body)

			_, err := newResolver(t, srv, settingsdomain.Settings{}).CreateOrUpdate(context.Background(), testOrder(), 0)

			var createErr *domain.CustomerCreateError
			require.ErrorAs(t, err, &createErr)
			assert.Equal(t, "ada@example.com", createErr.Email)
		})
	}
}

func TestCreateOrUpdateWrapsAPIError(t *testing.T) {
	srv := fastbilltest.NewServer(t)
	srv.On("customer.create", fastbilltest.Failure("EMAIL invalid"))

	_, err := newResolver(t, srv, settingsdomain.Settings{}).CreateOrUpdate(context.Background(), testOrder(), 0)

	var apiErr *fastbill.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "EMAIL invalid", apiErr.Message())
}
