package stripewebhooks

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"payment-bot/internal/app/payments"
	stripeinfra "payment-bot/internal/infra/stripe"
)

// handleCheckoutSession reconciles the session's payment. The event itself is
// only a hint: settlement is always re-read from Stripe by the engine.
// Transient failures answer 500 so Stripe redelivers.
func (h *Handler) handleCheckoutSession(c *gin.Context, event *stripeinfra.WebhookEvent) (int, gin.H) {
	if event.OrderID == "" {
		return http.StatusBadRequest, gin.H{"error": "Event has no checkout session"}
	}

	res := h.engine.Reconcile(c.Request.Context(), payments.ReconcileRequest{
		OrderID: event.OrderID,
		Source:  payments.SourceWebhook,
		Details: map[string]any{
			"stripe_event_id":   event.ID,
			"stripe_event_type": event.Type,
		},
	})

	log := h.log.WithFields(logrus.Fields{
		"event_id": event.ID,
		"order_id": event.OrderID,
		"outcome":  res.Outcome,
	})

	switch res.Outcome.Category() {
	case payments.CategoryTransient:
		log.Warn("stripe webhook reconciliation failed, expecting redelivery")
		return http.StatusInternalServerError, gin.H{"error": "Temporary failure"}
	case payments.CategoryLogical:
		log.Info("stripe webhook for an unknown payment")
		return http.StatusOK, gin.H{"status": "ignored"}
	default:
		log.Info("stripe webhook processed")
		return http.StatusOK, gin.H{"status": "received", "outcome": res.Outcome}
	}
}
