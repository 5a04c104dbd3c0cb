package server

import (
	"github.com/gin-gonic/gin"
	invoicedomain "github.com/smallbiznis/fastbillsync/internal/invoice/domain"
)

const contextManagerKey = "fastbill_manager"

// RequireManager answers 503 while the integration has no valid settings.
func (s *Server) RequireManager() gin.HandlerFunc {
	return func(c *gin.Context) {
		manager, err := s.backend.Manager()
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.Set(contextManagerKey, manager)
		c.Next()
	}
}

func managerFrom(c *gin.Context) invoicedomain.Manager {
	value, ok := c.Get(contextManagerKey)
	if !ok {
		return nil
	}
	manager, _ := value.(invoicedomain.Manager)
	return manager
}
