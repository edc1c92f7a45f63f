package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/verify/application"
	"github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/verify/domain"
)

// VerifyHandler encapsula los endpoints HTTP del flujo de verificación
type VerifyHandler struct {
	service *application.VerifyService
}

func NewVerifyHandler(service *application.VerifyService) *VerifyHandler {
	return &VerifyHandler{service: service}
}

// ---------------- Handlers ----------------

// Send endpoint POST /verify/send
func (h *VerifyHandler) Send(c *gin.Context) {
	var req struct {
		To      string `json:"to" binding:"required"`
		Channel string `json:"channel"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Channel == "" {
		req.Channel = "sms"
	}

	result, err := h.service.Send(c.Request.Context(), req.To, req.Channel)
	if err != nil {
		if errors.Is(err, domain.ErrTransportUnavailable) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "verification transport not configured"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if result.RateLimited {
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":       "too many requests, try again later",
			"waitMinutes": result.WaitMinutes,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":      true,
		"status":  "sent",
		"to":      req.To,
		"channel": req.Channel,
	})
}

// Check endpoint POST /verify/check
func (h *VerifyHandler) Check(c *gin.Context) {
	var req struct {
		To   string `json:"to" binding:"required"`
		Code string `json:"code" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.service.Check(c.Request.Context(), req.To, req.Code); err != nil {
		if errors.Is(err, domain.ErrCodeMismatch) {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "verified": false})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "verified": true})
}
