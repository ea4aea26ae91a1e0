// Package razorpaywebhooks receives Razorpay notifications: the signed
// checkout callback and server-to-server webhook events.
package razorpaywebhooks

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"payment-bot/internal/app/payments"
)

const maxBodyBytes = 65536

type Verifier interface {
	VerifyPaymentSignature(orderID, paymentID, signature string) bool
	VerifyWebhookSignature(body []byte, signature string) bool
}

type Handler struct {
	verifier Verifier
	engine   *payments.Engine
	log      logrus.FieldLogger
}

func NewHandler(verifier Verifier, engine *payments.Engine, log logrus.FieldLogger) *Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handler{verifier: verifier, engine: engine, log: log}
}

type checkoutCallback struct {
	OrderID   string `json:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature"`
}

type webhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment *struct {
			Entity struct {
				ID      string `json:"id"`
				OrderID string `json:"order_id"`
			} `json:"entity"`
		} `json:"payment"`
		Order *struct {
			Entity struct {
				ID string `json:"id"`
			} `json:"entity"`
		} `json:"order"`
	} `json:"payload"`
}

func (h *Handler) RazorpayWebhook(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Error reading request body"})
		return
	}

	if sig := c.GetHeader("X-Razorpay-Signature"); sig != "" {
		h.handleEvent(c, body, sig)
		return
	}
	h.handleCallback(c, body)
}

func (h *Handler) handleCallback(c *gin.Context, body []byte) {
	var cb checkoutCallback
	if err := json.Unmarshal(body, &cb); err != nil || cb.OrderID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing razorpay_order_id"})
		return
	}
	if !h.verifier.VerifyPaymentSignature(cb.OrderID, cb.PaymentID, cb.Signature) {
		h.log.WithField("order_id", cb.OrderID).Warn("razorpay callback signature mismatch")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Signature verification failed"})
		return
	}

	h.reconcile(c, cb.OrderID, map[string]any{"payment_id": cb.PaymentID})
}

func (h *Handler) handleEvent(c *gin.Context, body []byte, signature string) {
	if !h.verifier.VerifyWebhookSignature(body, signature) {
		h.log.Warn("razorpay webhook signature mismatch")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Signature verification failed"})
		return
	}

	var ev webhookEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Malformed event"})
		return
	}

	switch ev.Event {
	case "order.paid", "payment.captured":
	default:
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	var orderID, paymentID string
	if ev.Payload.Order != nil {
		orderID = ev.Payload.Order.Entity.ID
	}
	if ev.Payload.Payment != nil {
		paymentID = ev.Payload.Payment.Entity.ID
		if orderID == "" {
			orderID = ev.Payload.Payment.Entity.OrderID
		}
	}
	if orderID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Event has no order"})
		return
	}

	h.reconcile(c, orderID, map[string]any{
		"payment_id":     paymentID,
		"razorpay_event": ev.Event,
	})
}

// reconcile answers 500 on transient failures so Razorpay retries delivery.
func (h *Handler) reconcile(c *gin.Context, orderID string, details map[string]any) {
	res := h.engine.Reconcile(c.Request.Context(), payments.ReconcileRequest{
		OrderID: orderID,
		Source:  payments.SourceWebhook,
		Details: details,
	})

	log := h.log.WithFields(logrus.Fields{"order_id": orderID, "outcome": res.Outcome})
	switch res.Outcome.Category() {
	case payments.CategoryTransient:
		log.Warn("razorpay notification reconciliation failed, expecting redelivery")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Temporary failure"})
	case payments.CategoryLogical:
		log.Info("razorpay notification for an unknown payment")
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
	default:
		log.Info("razorpay notification processed")
		c.JSON(http.StatusOK, gin.H{"status": "received", "outcome": res.Outcome})
	}
}
