package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/polkiloo/marketpay/internal/domain/errors"
)

// signatureHeader carries the gateway's HMAC over the raw request body.
const signatureHeader = "X-Gateway-Signature"

// WebhookHandler receives signed gateway notifications.
type WebhookHandler struct {
	facade PaymentFacade
}

// NewWebhookHandler constructs WebhookHandler.
func NewWebhookHandler(facade PaymentFacade) *WebhookHandler {
	return &WebhookHandler{facade: facade}
}

// Receive handles POST /api/webhook/gateway. The raw body is read before any
// decoding so the signature covers exactly the delivered bytes.
func (h *WebhookHandler) Receive(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	err = h.facade.HandleWebhook(c.Request.Context(), body, c.GetHeader(signatureHeader))
	if err != nil {
		switch {
		case errors.Is(err, domainErrors.ErrInvalidSignature):
			c.Status(http.StatusUnauthorized)
		case errors.Is(err, domainErrors.ErrValidation):
			c.Status(http.StatusBadRequest)
		default:
			// Transient failure: a non-2xx makes the gateway redeliver.
			c.Status(http.StatusInternalServerError)
		}
		return
	}

	c.Status(http.StatusOK)
}
