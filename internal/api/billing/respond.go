package billing

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"payment-bot/internal/app/payments"
)

// StatusForOutcome maps engine outcomes onto HTTP status codes.
func StatusForOutcome(o payments.Outcome) int {
	switch o.Category() {
	case payments.CategoryValidation:
		return http.StatusUnprocessableEntity
	case payments.CategoryTransient:
		return http.StatusServiceUnavailable
	case payments.CategoryDiscrepancy:
		return http.StatusConflict
	case payments.CategoryLogical:
		if o == payments.OutcomeUnknownOrder {
			return http.StatusNotFound
		}
		return http.StatusConflict
	}
	if o == payments.OutcomeCreated {
		return http.StatusCreated
	}
	return http.StatusOK
}

var outcomeMessages = map[payments.Outcome]string{
	payments.OutcomeInvalidAmount:      "Amount is not a valid number",
	payments.OutcomeOutOfRange:         "Amount is out of range",
	payments.OutcomeGatewayUnavailable: "Payment gateway unavailable, try again later",
	payments.OutcomeStoreUnavailable:   "Payment storage unavailable, try again later",
	payments.OutcomeUnknownOrder:       "Payment not found",
	payments.OutcomeDuplicateOrder:     "Payment order already recorded",
	payments.OutcomeDiscrepancy:        "Settled amount does not match the payment; sent for review",
}

// CheckResponse renders a reconciliation result.
func CheckResponse(engine *payments.Engine, res payments.CheckResult) gin.H {
	body := gin.H{
		"outcome":  res.Outcome,
		"order_id": res.OrderID,
	}
	if msg, ok := outcomeMessages[res.Outcome]; ok {
		body["error"] = msg
	}
	if res.Payment != nil {
		body["status"] = res.Payment.Status
		body["amount"] = engine.Format(res.Payment.Amount)
	}
	if res.GatewayStatus != "" {
		body["gateway_status"] = res.GatewayStatus
	}
	switch res.Outcome {
	case payments.OutcomeConfirmed, payments.OutcomeAlreadyConfirmed:
		body["settled_amount"] = engine.Format(res.SettledAmount)
	case payments.OutcomeDiscrepancy:
		body["expected_minor"] = res.ExpectedMinor
		body["reported_minor"] = res.ReportedMinor
	}
	return body
}
