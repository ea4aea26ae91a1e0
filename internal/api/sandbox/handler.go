package sandbox

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"payment-bot/internal/domain/billing"
	sandboxgw "payment-bot/internal/infra/sandbox"
)

// Handler lets a developer play the payer against the in-process gateway.
type Handler struct {
	gateway *sandboxgw.Gateway
}

func NewHandler(gateway *sandboxgw.Gateway) *Handler {
	return &Handler{gateway: gateway}
}

func (h *Handler) PayOrder(c *gin.Context) {
	orderID := c.Param("order_id")
	if err := h.gateway.MarkPaid(orderID); err != nil {
		if errors.Is(err, billing.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"order_id": orderID, "status": billing.OrderPaid})
}
