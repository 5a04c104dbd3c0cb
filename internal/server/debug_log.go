package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) GetDebugLog(c *gin.Context) {
	text, err := s.backend.DebugLog().Read(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": text})
}

func (s *Server) ClearDebugLog(c *gin.Context) {
	if err := s.backend.DebugLog().Clear(c.Request.Context()); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
