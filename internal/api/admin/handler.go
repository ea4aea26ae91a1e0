package admin

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	billingapi "payment-bot/internal/api/billing"
	"payment-bot/internal/app/http/middleware"
	"payment-bot/internal/app/payments"
	"payment-bot/internal/domain/billing"
)

type AdminPayment struct {
	OrderID     string         `json:"order_id"`
	UserID      string         `json:"user_id"`
	Amount      string         `json:"amount"`
	Currency    string         `json:"currency"`
	Status      billing.Status `json:"status"`
	PaymentLink string         `json:"payment_link,omitempty"`
	Details     map[string]any `json:"payment_details,omitempty"`
	CreatedAt   string         `json:"created_at"`
	UpdatedAt   string         `json:"updated_at"`
}

type Handler struct {
	engine  *payments.Engine
	gateway string
	log     logrus.FieldLogger
}

func NewHandler(engine *payments.Engine, gatewayName string, log logrus.FieldLogger) *Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handler{engine: engine, gateway: gatewayName, log: log}
}

func (h *Handler) AdminDashboard(c *gin.Context) {
	policy := h.engine.Policy()
	c.JSON(http.StatusOK, gin.H{
		"message":       "Welcome to the admin dashboard 👑",
		"gateway":       h.gateway,
		"currency":      h.engine.Currency().Code,
		"min_amount":    policy.Min.String(),
		"max_amount":    policy.Max.String(),
		"history_limit": h.engine.HistoryLimit(),
	})
}

func (h *Handler) ListUserPayments(c *gin.Context) {
	userID := c.Param("id")

	list, err := h.engine.History(c.Request.Context(), userID, h.engine.HistoryLimit())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to fetch payments"})
		return
	}

	result := make([]AdminPayment, 0, len(list))
	for i := range list {
		result = append(result, h.toAdminPayment(&list[i]))
	}
	c.JSON(http.StatusOK, gin.H{
		"user_id":  userID,
		"payments": result,
	})
}

func (h *Handler) GetPayment(c *gin.Context) {
	p, err := h.engine.Lookup(c.Request.Context(), c.Param("order_id"), "")
	if errors.Is(err, billing.ErrPaymentNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Payment not found"})
		return
	}
	if err != nil {
		h.log.WithError(err).Error("admin payment lookup failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to load payment"})
		return
	}
	c.JSON(http.StatusOK, h.toAdminPayment(p))
}

// ReconcilePayment forces a check of any user's payment against the gateway.
func (h *Handler) ReconcilePayment(c *gin.Context) {
	res := h.engine.Reconcile(c.Request.Context(), payments.ReconcileRequest{
		OrderID: c.Param("order_id"),
		Source:  payments.SourceAdmin,
		Details: map[string]any{"reconciled_by": c.GetString(middleware.ContextUserID)},
	})
	c.JSON(billingapi.StatusForOutcome(res.Outcome), billingapi.CheckResponse(h.engine, res))
}

func (h *Handler) toAdminPayment(p *billing.Payment) AdminPayment {
	return AdminPayment{
		OrderID:     p.OrderID,
		UserID:      p.UserID,
		Amount:      h.engine.Format(p.Amount),
		Currency:    p.Currency,
		Status:      p.Status,
		PaymentLink: p.PaymentLink,
		Details:     p.PaymentDetails,
		CreatedAt:   p.CreatedAt.Format("2006-01-02 15:04"),
		UpdatedAt:   p.UpdatedAt.Format("2006-01-02 15:04"),
	}
}
