package billing

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"payment-bot/internal/app/http/middleware"
	"payment-bot/internal/app/payments"
	"payment-bot/internal/domain/billing"
)

type Handler struct {
	engine *payments.Engine
	log    logrus.FieldLogger
}

func NewHandler(engine *payments.Engine, log logrus.FieldLogger) *Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handler{engine: engine, log: log}
}

// CreatePayment creates a gateway order for the caller and records it.
func (h *Handler) CreatePayment(c *gin.Context) {
	var body struct {
		Amount interface{} `json:"amount"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid amount"})
		return
	}

	var input string
	switch v := body.Amount.(type) {
	case string:
		input = v
	case float64:
		input = strconv.FormatFloat(v, 'f', -1, 64)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid amount"})
		return
	}

	userID := c.GetString(middleware.ContextUserID)
	res := h.engine.CreatePayment(c.Request.Context(), userID, input)
	status := StatusForOutcome(res.Outcome)

	if res.Outcome != payments.OutcomeCreated {
		resp := gin.H{"outcome": res.Outcome, "error": outcomeMessages[res.Outcome]}
		if res.AmountErr != nil {
			resp["error"] = res.AmountErr.Error()
			if res.AmountErr.Kind == billing.OutOfRange {
				resp["min"] = res.AmountErr.Min.String()
				resp["max"] = res.AmountErr.Max.String()
			}
		}
		c.JSON(status, resp)
		return
	}

	p := res.Payment
	c.JSON(status, gin.H{
		"outcome":      res.Outcome,
		"order_id":     p.OrderID,
		"amount":       h.engine.Format(p.Amount),
		"currency":     p.Currency,
		"status":       p.Status,
		"payment_link": p.PaymentLink,
		"qr_url":       "/payments/" + p.OrderID + "/qr",
		"created_at":   p.CreatedAt,
	})
}

// PaymentOptions describes what amounts the service accepts.
func (h *Handler) PaymentOptions(c *gin.Context) {
	policy := h.engine.Policy()
	c.JSON(http.StatusOK, gin.H{
		"currency":      h.engine.Currency().Code,
		"min_amount":    policy.Min.String(),
		"max_amount":    policy.Max.String(),
		"history_limit": h.engine.HistoryLimit(),
	})
}
