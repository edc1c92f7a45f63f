package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/gateway"
	sessionEvents "github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/session/infra/inbound/events"
)

// SessionHandler expone el libro de sesiones por HTTP. No llama al servicio
// directamente: publica la petición por el gateway de petición/respuesta y
// espera la respuesta correlada, igual que cualquier otro cliente del bus.
type SessionHandler struct {
	requester *gateway.Requester
}

func NewSessionHandler(requester *gateway.Requester) *SessionHandler {
	return &SessionHandler{requester: requester}
}

// Start endpoint POST /sessions
func (h *SessionHandler) Start(c *gin.Context) {
	var req struct {
		UserID string `json:"userId" binding:"required"`
		GameID string `json:"gameId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reply, err := h.requester.Request(c.Request.Context(), sessionEvents.OpStartSession, req)
	if err != nil {
		h.transportError(c, err)
		return
	}
	if !reply.Success {
		c.JSON(http.StatusBadRequest, gin.H{"error": reply.Error})
		return
	}

	c.JSON(http.StatusCreated, json.RawMessage(reply.Data))
}

// Complete endpoint POST /sessions/:id/complete
func (h *SessionHandler) Complete(c *gin.Context) {
	var body map[string]interface{}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	body["sessionId"] = c.Param("id")

	reply, err := h.requester.Request(c.Request.Context(), sessionEvents.OpCompleteSession, body)
	if err != nil {
		h.transportError(c, err)
		return
	}
	if !reply.Success {
		c.JSON(http.StatusBadRequest, gin.H{"error": reply.Error})
		return
	}

	c.JSON(http.StatusOK, json.RawMessage(reply.Data))
}

func (h *SessionHandler) transportError(c *gin.Context, err error) {
	if errors.Is(err, gateway.ErrRequestTimeout) {
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "request timed out"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
