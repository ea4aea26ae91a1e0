package billing

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"

	"payment-bot/internal/app/http/middleware"
	"payment-bot/internal/app/payments"
	"payment-bot/internal/domain/billing"
)

func (h *Handler) GetPaymentHistory(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	list, err := h.engine.History(c.Request.Context(), userID, limit)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to load payments"})
		return
	}
	if list == nil {
		list = []billing.Payment{}
	}
	c.JSON(http.StatusOK, list)
}

// CheckPayment reconciles one of the caller's payments with the gateway.
func (h *Handler) CheckPayment(c *gin.Context) {
	res := h.engine.Reconcile(c.Request.Context(), payments.ReconcileRequest{
		OrderID: c.Param("order_id"),
		UserID:  c.GetString(middleware.ContextUserID),
		Source:  payments.SourceCheck,
	})
	c.JSON(StatusForOutcome(res.Outcome), CheckResponse(h.engine, res))
}

// PaymentQR renders the payment link of one of the caller's payments as PNG.
func (h *Handler) PaymentQR(c *gin.Context) {
	p, err := h.engine.Lookup(c.Request.Context(), c.Param("order_id"), c.GetString(middleware.ContextUserID))
	if errors.Is(err, billing.ErrPaymentNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Payment not found"})
		return
	}
	if err != nil {
		h.log.WithError(err).Error("payment lookup failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to load payment"})
		return
	}
	if p.PaymentLink == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "Payment has no link"})
		return
	}

	png, err := qrcode.Encode(p.PaymentLink, qrcode.Medium, 256)
	if err != nil {
		h.log.WithError(err).WithField("order_id", p.OrderID).Error("qr encoding failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to render QR code"})
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}
