package http

import (
	"github.com/gin-gonic/gin"
)

func RegisterSessionRoutes(r *gin.Engine, h *SessionHandler) {
	sessions := r.Group("/sessions")
	{
		sessions.POST("", h.Start)
		sessions.POST("/:id/complete", h.Complete)
	}
}
