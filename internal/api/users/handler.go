package users

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"payment-bot/internal/app/http/middleware"
	"payment-bot/internal/domain/session"
)

type Handler struct {
	sessions *session.Tracker
}

func NewHandler(sessions *session.Tracker) *Handler {
	return &Handler{sessions: sessions}
}

// GetCurrentUser returns the caller's identity and conversation state.
func (h *Handler) GetCurrentUser(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	state, err := h.sessions.Get(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to load session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":       userID,
		"role":          c.GetString(middleware.ContextRole),
		"session_state": state,
	})
}
