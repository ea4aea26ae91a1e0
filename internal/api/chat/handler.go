// Package chat exposes the conversation flow over HTTP so any chat frontend
// can relay user messages and button presses.
package chat

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"payment-bot/internal/app/conversation"
	"payment-bot/internal/app/http/middleware"
)

type Handler struct {
	dispatcher *conversation.Dispatcher
}

func NewHandler(dispatcher *conversation.Dispatcher) *Handler {
	return &Handler{dispatcher: dispatcher}
}

type replyResponse struct {
	conversation.Reply
	QRURL string `json:"qr_url,omitempty"`
}

func (h *Handler) PostMessage(c *gin.Context) {
	var body struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing text"})
		return
	}

	reply := h.dispatcher.HandleMessage(c.Request.Context(), c.GetString(middleware.ContextUserID), body.Text)
	c.JSON(http.StatusOK, render(reply))
}

func (h *Handler) PostCallback(c *gin.Context) {
	var body struct {
		Data string `json:"data" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing callback data"})
		return
	}

	reply := h.dispatcher.HandleCallback(c.Request.Context(), c.GetString(middleware.ContextUserID), body.Data)
	c.JSON(http.StatusOK, render(reply))
}

func render(reply conversation.Reply) replyResponse {
	resp := replyResponse{Reply: reply}
	if reply.PaymentLink != "" && reply.OrderID != "" {
		resp.QRURL = "/payments/" + reply.OrderID + "/qr"
	}
	return resp
}
