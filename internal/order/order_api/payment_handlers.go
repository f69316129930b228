package order_api

import (
	"fmt"
	"io"
	"net/http"

	"ms-marketplace/internal/apperrors"
	"ms-marketplace/internal/utils"
)

// maxWebhookBytes caps webhook bodies; Stripe events are far smaller.
const maxWebhookBytes = 65536

// StripeWebhook handles webhook events from Stripe
func (h *Handler) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	h.Logger.Info("API", "StripeWebhook: received webhook event")

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		h.fail(w, "StripeWebhook", apperrors.Validation("invalid_payload", "Webhook body could not be read"))
		return
	}

	result, err := h.OrderService.HandlePaymentWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		h.fail(w, "StripeWebhook", err)
		return
	}

	h.Logger.Info("API", fmt.Sprintf("StripeWebhook: %s handled as %s", result.EventType, result.Type))
	_ = utils.WriteSuccess(w, http.StatusOK, "webhook processed", map[string]string{
		"type":     string(result.Type),
		"order_id": result.OrderID,
	})
}
