package domain

import (
	"context"
	"errors"
	"fmt"

	orderdomain "github.com/smallbiznis/fastbillsync/internal/order/domain"
)

var ErrMissingCustomerID = errors.New("missing_customer_id")

// Resolver finds or creates the FastBill customer of an order's buyer.
type Resolver interface {
	// Lookup reports whether a customer with email exists. Remote failures
	// count as not found.
	Lookup(ctx context.Context, email string) (int64, bool)
	// CreateOrUpdate sends customer.update when existingID is positive and
	// customer.create otherwise.
	CreateOrUpdate(ctx context.Context, order *orderdomain.Order, existingID int64) (int64, error)
	Resolve(ctx context.Context, order *orderdomain.Order) (int64, error)
}

// CustomerCreateError aborts invoice creation.
type CustomerCreateError struct {
	Email string
	Err   error
}

func (e *CustomerCreateError) Error() string {
	return fmt.Sprintf("unable to create customer %q: %v", e.Email, e.Err)
}

func (e *CustomerCreateError) Unwrap() error { return e.Err }
