package stripe

import (
	"strings"

	"github.com/stripe/stripe-go/v75"

	"payment-bot/internal/domain/billing"
)

// NormalizeCheckoutStatus maps a Checkout Session onto the gateway order
// lifecycle. It returns the normalized status and the raw Stripe value it
// was derived from.
func NormalizeCheckoutStatus(s *stripe.CheckoutSession) (billing.OrderStatus, string) {
	if s == nil {
		return billing.OrderCreated, ""
	}

	payment := strings.TrimSpace(string(s.PaymentStatus))
	status := strings.TrimSpace(string(s.Status))

	switch {
	case payment == string(stripe.CheckoutSessionPaymentStatusPaid),
		payment == string(stripe.CheckoutSessionPaymentStatusNoPaymentRequired):
		return billing.OrderPaid, payment
	case status == string(stripe.CheckoutSessionStatusExpired):
		return billing.OrderExpired, status
	case status == string(stripe.CheckoutSessionStatusComplete):
		// completed but unpaid: an async method (bank debit) is still settling
		return billing.OrderAttempted, status
	case status == "":
		return billing.OrderCreated, "open"
	default:
		return billing.OrderCreated, status
	}
}
