package http

import (
	"io"
	"net/http"

	"citycar-backend/internal/logger"
	"citycar-backend/internal/payment"
	"citycar-backend/internal/service"
)

// Gateway payloads are small; anything larger is not a legitimate event.
const maxWebhookBody = 1 << 20

// WebhookHandler receives payment gateway deliveries. It is the only
// unauthenticated mutating endpoint; the signature check stands in for auth.
type WebhookHandler struct {
	verifier *payment.WebhookVerifier
	webhooks service.WebhookService
}

func NewWebhookHandler(verifier *payment.WebhookVerifier, webhooks service.WebhookService) *WebhookHandler {
	return &WebhookHandler{verifier: verifier, webhooks: webhooks}
}

// HandleEvent verifies the signature over the raw body, reconciles the event
// and acknowledges. A non-2xx response makes the gateway redeliver, so only
// transient processing failures return one.
func (h *WebhookHandler) HandleEvent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		logger.Warn("Unreadable webhook body", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	event, err := h.verifier.VerifyAndParse(body, r.Header.Get("Stripe-Signature"))
	if err != nil {
		logger.Warn("Rejected webhook delivery", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if err := h.webhooks.Reconcile(r.Context(), event); err != nil {
		logger.Error("Webhook reconciliation failed", "event", event.ID, "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"received": true})
}
