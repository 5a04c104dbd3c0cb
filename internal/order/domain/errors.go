package domain

import "errors"

var (
	ErrNotFound       = errors.New("order_not_found")
	ErrInvalidOrderID = errors.New("invalid_order_id")
)
