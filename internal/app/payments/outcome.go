package payments

import (
	"github.com/shopspring/decimal"

	"payment-bot/internal/domain/billing"
)

// Outcome is the typed result of an engine operation. Engine methods never
// hand raw infrastructure errors to callers; they report one of these.
type Outcome string

const (
	OutcomeCreated          Outcome = "created"
	OutcomeConfirmed        Outcome = "confirmed"
	OutcomeAlreadyConfirmed Outcome = "already_confirmed"
	OutcomeNotYetReceived   Outcome = "not_yet_received"
	OutcomeOrderClosed      Outcome = "order_closed"

	OutcomeInvalidAmount Outcome = "invalid_amount"
	OutcomeOutOfRange    Outcome = "out_of_range"

	OutcomeGatewayUnavailable Outcome = "gateway_unavailable"
	OutcomeStoreUnavailable   Outcome = "store_unavailable"

	OutcomeUnknownOrder   Outcome = "unknown_order"
	OutcomeDuplicateOrder Outcome = "duplicate_order"

	OutcomeDiscrepancy Outcome = "discrepancy"
)

type Category string

const (
	CategoryOK          Category = "ok"
	CategoryValidation  Category = "validation"
	CategoryTransient   Category = "transient"
	CategoryLogical     Category = "logical"
	CategoryDiscrepancy Category = "discrepancy"
)

func (o Outcome) Category() Category {
	switch o {
	case OutcomeInvalidAmount, OutcomeOutOfRange:
		return CategoryValidation
	case OutcomeGatewayUnavailable, OutcomeStoreUnavailable:
		return CategoryTransient
	case OutcomeUnknownOrder, OutcomeDuplicateOrder:
		return CategoryLogical
	case OutcomeDiscrepancy:
		return CategoryDiscrepancy
	default:
		return CategoryOK
	}
}

// CreateResult is returned by Engine.CreatePayment.
type CreateResult struct {
	Outcome Outcome
	Payment *billing.Payment
	// AmountErr is set for validation outcomes.
	AmountErr *billing.AmountError
}

// CheckResult is returned by Engine.Reconcile.
type CheckResult struct {
	Outcome Outcome
	OrderID string
	Payment *billing.Payment

	// SettledAmount is the gateway-reported amount in display units, set for
	// OutcomeConfirmed and OutcomeAlreadyConfirmed.
	SettledAmount decimal.Decimal

	// GatewayStatus is the provider's raw order status, when one was fetched.
	GatewayStatus string

	// ExpectedMinor and ReportedMinor are set for OutcomeDiscrepancy.
	ExpectedMinor int64
	ReportedMinor int64
}
