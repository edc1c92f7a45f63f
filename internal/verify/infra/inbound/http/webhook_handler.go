package http

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	sharedEvents "github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/shared/domain/events"
	sharedBus "github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/shared/infra/platform/bus"
)

// WebhookHandler recibe los acuses de entrega de los proveedores.
// El acuse se re-publica al bus como evento terminal (ChannelReceipt) en
// modo mejor-esfuerzo y siempre respondemos 200: el proveedor reintenta si
// no le contestamos y no queremos recibos duplicados.
type WebhookHandler struct {
	publisher sharedBus.EventPublisher
	topic     string
	origin    string
	secret    string // vacío = validación de firma deshabilitada
	log       *zap.Logger
}

func NewWebhookHandler(publisher sharedBus.EventPublisher, topic, origin, secret string, log *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		publisher: publisher,
		topic:     topic,
		origin:    origin,
		secret:    secret,
		log:       log,
	}
}

// Status endpoint POST /:channel/status
func (h *WebhookHandler) Status(c *gin.Context) {
	channel := c.Param("channel")

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	if h.secret != "" && !h.validSignature(body, c.GetHeader("X-Signature")) {
		c.JSON(http.StatusForbidden, gin.H{"error": "invalid signature"})
		return
	}

	env := sharedEvents.Envelope{
		Type:          sharedEvents.ChannelReceipt,
		OriginService: h.origin,
		Target:        []string{channel},
		Payload:       body,
		Timestamp:     time.Now().UTC(),
	}

	if err := h.publisher.Publish(c.Request.Context(), h.topic, env); err != nil {
		// Mejor-esfuerzo: el acuse se pierde pero el proveedor recibe su 200.
		h.log.Warn("⚠️ No se pudo re-publicar el acuse de entrega",
			zap.String("channel", channel), zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *WebhookHandler) validSignature(body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(h.secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
