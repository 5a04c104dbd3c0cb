package service

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/smallbiznis/fastbillsync/internal/customer/domain"
	"github.com/smallbiznis/fastbillsync/internal/debuglog"
	"github.com/smallbiznis/fastbillsync/internal/fastbill"
	"github.com/smallbiznis/fastbillsync/internal/fastbill/wire"
	obslogger "github.com/smallbiznis/fastbillsync/internal/observability/logger"
	orderdomain "github.com/smallbiznis/fastbillsync/internal/order/domain"
	settingsdomain "github.com/smallbiznis/fastbillsync/internal/settings/domain"
	"go.uber.org/zap"
)

type Params struct {
	Client   fastbill.Caller
	Debug    *debuglog.Logger
	Log      *zap.Logger
	Settings settingsdomain.Settings
}

type Service struct {
	client   fastbill.Caller
	debug    *debuglog.Logger
	log      *zap.Logger
	country  string
	extended bool
}

func New(p Params) *Service {
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}
	debug := p.Debug
	if debug == nil {
		debug = debuglog.Nop()
	}
	return &Service{
		client:   p.Client,
		debug:    debug,
		log:      log.Named("customer.service"),
		country:  p.Settings.CountryCode,
		extended: p.Settings.ExtendedCustomerFields,
	}
}

var _ domain.Resolver = (*Service)(nil)

func (s *Service) Lookup(ctx context.Context, email string) (int64, bool) {
	email = strings.TrimSpace(email)
	if email == "" {
		return 0, false
	}
	s.debug.Add(ctx, "Checking for client with email: "+email)

	payload, err := s.client.Call(ctx, wire.NewRequest("customer.get").WithFilter(wire.Text("TERM", email)))
	if err != nil {
		var apiErr *fastbill.APIError
		if errors.As(err, &apiErr) {
			s.debug.Add(ctx, "There was an error looking up this customer in FastBill:\nError: "+apiErr.Message())
		} else {
			s.debug.Add(ctx, err.Error())
		}
		return 0, false
	}

	for _, entry := range payload.Find("CUSTOMERS").All("CUSTOMER") {
		found := entry.Value("EMAIL")
		if found != "" && !strings.EqualFold(found, email) {
			continue
		}
		id, err := strconv.ParseInt(entry.Value("CUSTOMER_ID"), 10, 64)
		if err != nil || id <= 0 {
			continue
		}
		return id, true
	}
	return 0, false
}

func (s *Service) CreateOrUpdate(ctx context.Context, order *orderdomain.Order, existingID int64) (int64, error) {
	if order == nil {
		return 0, orderdomain.ErrNotFound
	}
	customer := domain.FromBuyer(order.Buyer, s.country)
	customer.ID = existingID

	service := "customer.create"
	if existingID > 0 {
		service = "customer.update"
		s.debug.Add(ctx, "Updating customer record in FastBill for email: "+customer.Email)
	} else {
		s.debug.Add(ctx, "Creating customer record in FastBill for email: "+customer.Email)
	}

	payload, err := s.client.Call(ctx, wire.NewRequest(service).WithData(s.fields(customer)...))
	if err != nil {
		var apiErr *fastbill.APIError
		if errors.As(err, &apiErr) {
			s.debug.Add(ctx, "There was an error creating this customer in FastBill:\nError: "+apiErr.Message())
		} else {
			s.debug.Add(ctx, err.Error())
		}
		return 0, &domain.CustomerCreateError{Email: customer.Email, Err: err}
	}

	id, err := strconv.ParseInt(payload.Value("CUSTOMER_ID"), 10, 64)
	if err != nil || id <= 0 {
		s.debug.Add(ctx, "Unable to create client: no CUSTOMER_ID in response")
		return 0, &domain.CustomerCreateError{Email: customer.Email, Err: domain.ErrMissingCustomerID}
	}

	obslogger.WithContext(ctx, s.log).Debug("customer resolved",
		zap.String("service", service),
		zap.Int64("customer_id", id),
	)
	return id, nil
}

func (s *Service) Resolve(ctx context.Context, order *orderdomain.Order) (int64, error) {
	if order == nil {
		return 0, orderdomain.ErrNotFound
	}
	existingID, _ := s.Lookup(ctx, order.Buyer.Email)
	return s.CreateOrUpdate(ctx, order, existingID)
}

func (s *Service) fields(c domain.RemoteCustomer) []*wire.Element {
	customerType := domain.CustomerTypeConsumer
	if s.extended {
		customerType = c.Type
	}

	fields := []*wire.Element{}
	if c.ID > 0 {
		fields = append(fields, wire.Int("CUSTOMER_ID", c.ID))
	}
	fields = append(fields, wire.Text("CUSTOMER_TYPE", string(customerType)))
	if s.extended {
		fields = append(fields,
			wire.OptionalText("ORGANIZATION", c.Organization),
			wire.OptionalText("SALUTATION", c.Salutation),
		)
	}
	fields = append(fields,
		wire.Text("FIRST_NAME", c.FirstName),
		wire.Text("LAST_NAME", c.LastName),
		wire.OptionalText("ADDRESS", c.Address),
		wire.OptionalText("ADDRESS_2", c.Address2),
		wire.OptionalText("ZIPCODE", c.Zipcode),
		wire.OptionalText("CITY", c.City),
		wire.Text("COUNTRY_CODE", c.CountryCode),
		wire.Text("EMAIL", c.Email),
		wire.OptionalText("VAT_ID", c.VATID),
	)
	if s.extended {
		fields = append(fields,
			wire.OptionalText("PHONE", c.Phone),
			wire.OptionalText("FAX", c.Fax),
			wire.OptionalText("MOBILE", c.Mobile),
		)
	}
	return fields
}
