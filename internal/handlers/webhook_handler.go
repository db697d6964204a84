package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v5"

	"ticketd/internal/apperrors"
)

// WebhookAPI is the reconciler contract the webhook endpoint drives.
type WebhookAPI interface {
	HandleEvent(ctx context.Context, gatewayName string, body []byte, signature string) error
}

// WebhookHandler receives gateway webhook deliveries. The body is kept
// raw for signature verification; parsing happens after the signature
// checks out.
type WebhookHandler struct {
	webhooks WebhookAPI
}

func NewWebhookHandler(webhooks WebhookAPI) *WebhookHandler {
	return &WebhookHandler{webhooks: webhooks}
}

func (h *WebhookHandler) Register(e *echo.Echo) {
	e.POST("/payment/webhook/:gateway", h.Receive)
}

func (h *WebhookHandler) Receive(c echo.Context) error {
	gatewayName := c.PathParam("gateway")

	body, err := io.ReadAll(c.Request().Body)
	if err != nil || len(body) == 0 {
		return respondError(c, apperrors.New(apperrors.KindValidation, "empty webhook body"))
	}

	signature := c.Request().Header.Get(fmt.Sprintf("x-%s-signature", gatewayName))

	if err := h.webhooks.HandleEvent(c.Request().Context(), gatewayName, body, signature); err != nil {
		return respondError(c, err)
	}
	// Always 200 once the delivery is authenticated, even when
	// reconciliation failed internally, so the gateway stops retrying.
	return respondOK(c, http.StatusOK, map[string]string{"status": "received"})
}
