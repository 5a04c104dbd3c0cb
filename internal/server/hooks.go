package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/fastbillsync/internal/events"
)

type orderInsertedRequest struct {
	OrderID int64 `json:"order_id"`
}

type orderStatusRequest struct {
	OrderID   int64  `json:"order_id"`
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
}

type recurringPaymentRequest struct {
	OrderID       int64           `json:"order_id"`
	ParentOrderID int64           `json:"parent_order_id"`
	Amount        decimal.Decimal `json:"amount"`
	TransactionID string          `json:"transaction_id"`
}

func (s *Server) OrderInsertedHook(c *gin.Context) {
	var req orderInsertedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	s.dispatch(c, events.Event{Name: events.OrderInserted, OrderID: req.OrderID})
}

func (s *Server) OrderStatusHook(c *gin.Context) {
	var req orderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	s.dispatch(c, events.Event{
		Name:      events.OrderStatusChange,
		OrderID:   req.OrderID,
		OldStatus: req.OldStatus,
		NewStatus: req.NewStatus,
	})
}

func (s *Server) RecurringPaymentHook(c *gin.Context) {
	var req recurringPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	s.dispatch(c, events.Event{
		Name:          events.RecurringPayment,
		OrderID:       req.OrderID,
		ParentOrderID: req.ParentOrderID,
		Amount:        req.Amount,
		TransactionID: req.TransactionID,
	})
}

// dispatch runs the bound handlers inline. Handler failures end up in the
// logs and the debug log; the host only sees malformed events rejected.
func (s *Server) dispatch(c *gin.Context, ev events.Event) {
	if err := s.dispatcher.Dispatch(c.Request.Context(), ev); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted", "event": ev.Name})
}
