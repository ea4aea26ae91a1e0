package routes

import (
	"github.com/gin-gonic/gin"

	adminapi "payment-bot/internal/api/admin"
	"payment-bot/internal/api/billing"
	chatapi "payment-bot/internal/api/chat"
	razorpaywebhooks "payment-bot/internal/api/razorpaywebhook"
	sandboxapi "payment-bot/internal/api/sandbox"
	stripewebhooks "payment-bot/internal/api/stripewebhook"
	"payment-bot/internal/api/users"
	"payment-bot/internal/app/http/middleware"
)

// Handlers groups everything RegisterRoutes mounts. Nil webhook and sandbox
// handlers leave their routes unregistered.
type Handlers struct {
	JWTSecret string

	Billing *billing.Handler
	Chat    *chatapi.Handler
	Users   *users.Handler
	Admin   *adminapi.Handler

	StripeWebhook   *stripewebhooks.Handler
	RazorpayWebhook *razorpaywebhooks.Handler
	Sandbox         *sandboxapi.Handler
}

func RegisterRoutes(r *gin.Engine, h Handlers) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Gateway notifications are verified by signature, not JWT
	if h.StripeWebhook != nil {
		r.POST("/webhook/stripe", h.StripeWebhook.StripeWebhook)
	}
	if h.RazorpayWebhook != nil {
		r.POST("/webhook/razorpay", h.RazorpayWebhook.RazorpayWebhook)
	}
	if h.Sandbox != nil {
		r.POST("/sandbox/orders/:order_id/pay", h.Sandbox.PayOrder)
	}

	// Authenticated
	auth := r.Group("/")
	auth.Use(middleware.AuthMiddleware(h.JWTSecret))
	auth.GET("/me", h.Users.GetCurrentUser)
	auth.GET("/payments", h.Billing.GetPaymentHistory)
	auth.GET("/payments/options", h.Billing.PaymentOptions)
	auth.POST("/payments", h.Billing.CreatePayment)
	auth.POST("/payments/:order_id/check", h.Billing.CheckPayment)
	auth.GET("/payments/:order_id/qr", h.Billing.PaymentQR)

	chat := auth.Group("/chat")
	chat.Use(middleware.SanitizeAndCleanInputMiddleware())
	chat.POST("/messages", h.Chat.PostMessage)
	chat.POST("/callbacks", h.Chat.PostCallback)

	// Admin routes
	admin := r.Group("/admin")
	admin.Use(middleware.AuthMiddleware(h.JWTSecret), middleware.RequireRole("admin"))
	admin.GET("/dashboard", h.Admin.AdminDashboard)
	admin.GET("/users/:id/payments", h.Admin.ListUserPayments)
	admin.GET("/payments/:order_id", h.Admin.GetPayment)
	admin.POST("/payments/:order_id/reconcile", h.Admin.ReconcilePayment)
}
