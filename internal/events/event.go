package events

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// Host lifecycle event names.
const (
	OrderInserted     = "order.inserted"
	OrderStatusChange = "order.status_changed"
	RecurringPayment  = "recurring_payment.recorded"
)

var (
	ErrUnknownEvent   = errors.New("unknown_event")
	ErrInvalidOrderID = errors.New("invalid_order_id")
)

// Names lists every event the integration handles.
func Names() []string {
	return []string{OrderInserted, OrderStatusChange, RecurringPayment}
}

// Event is one host lifecycle notification. For a recurring payment OrderID
// is the renewal order and ParentOrderID the original subscription order.
type Event struct {
	Name          string          `json:"name"`
	OrderID       int64           `json:"order_id"`
	OldStatus     string          `json:"old_status,omitempty"`
	NewStatus     string          `json:"new_status,omitempty"`
	ParentOrderID int64           `json:"parent_order_id,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	TransactionID string          `json:"transaction_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
}

func (e Event) Validate() error {
	switch strings.TrimSpace(e.Name) {
	case OrderInserted, OrderStatusChange, RecurringPayment:
	default:
		return ErrUnknownEvent
	}
	if e.OrderID <= 0 {
		return ErrInvalidOrderID
	}
	return nil
}
