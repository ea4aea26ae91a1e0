package stripewebhooks

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"payment-bot/internal/app/payments"
	stripeinfra "payment-bot/internal/infra/stripe"
)

const maxBodyBytes = 65536

// EventParser verifies and decodes a Stripe webhook delivery.
type EventParser interface {
	ParseWebhook(payload []byte, signature string) (*stripeinfra.WebhookEvent, error)
}

type Handler struct {
	parser EventParser
	engine *payments.Engine
	log    logrus.FieldLogger
}

func NewHandler(parser EventParser, engine *payments.Engine, log logrus.FieldLogger) *Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handler{parser: parser, engine: engine, log: log}
}

func (h *Handler) StripeWebhook(c *gin.Context) {
	payload, err := readStripeBody(c, maxBodyBytes)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Error reading request body"})
		return
	}

	event, err := h.parser.ParseWebhook(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		h.log.WithError(err).Warn("stripe webhook rejected")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Signature verification failed"})
		return
	}

	switch event.Type {
	case "checkout.session.completed",
		"checkout.session.async_payment_succeeded",
		"checkout.session.async_payment_failed",
		"checkout.session.expired":
		status, body := h.handleCheckoutSession(c, event)
		c.JSON(status, body)
	default:
		// Acknowledge unknown events to avoid retries
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
	}
}

func readStripeBody(c *gin.Context, maxBytes int64) ([]byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
	return io.ReadAll(c.Request.Body)
}
