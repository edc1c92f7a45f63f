package http

import (
	"github.com/gin-gonic/gin"
)

// RegisterVerifyRoutes registra el flujo de verificación y el webhook de
// acuses de entrega.
func RegisterVerifyRoutes(r *gin.Engine, h *VerifyHandler, w *WebhookHandler) {
	verify := r.Group("/verify")
	{
		verify.POST("/send", h.Send)
		verify.POST("/check", h.Check)
	}

	// Webhook de recibos: POST /<channel>/status (ej. /sms/status)
	r.POST("/:channel/status", w.Status)
}
