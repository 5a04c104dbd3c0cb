package server

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/fastbillsync/internal/order/domain"
)

func parseOrderID(value string) (int64, error) {
	parsed, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || parsed <= 0 {
		return 0, newValidationError("id", "invalid_id", "invalid order id")
	}
	return parsed, nil
}

// loadOrder resolves the :id path parameter.
func (s *Server) loadOrder(c *gin.Context) (*domain.Order, bool) {
	id, err := parseOrderID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return nil, false
	}
	order, err := s.orders.GetOrder(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return nil, false
	}
	return order, true
}
