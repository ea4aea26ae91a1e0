package billing

import (
	"context"

	"github.com/shopspring/decimal"
)

// OrderStatus is the gateway's view of an order, normalized across providers.
type OrderStatus string

const (
	OrderCreated   OrderStatus = "created"
	OrderAttempted OrderStatus = "attempted"
	OrderPaid      OrderStatus = "paid"
	OrderCancelled OrderStatus = "cancelled"
	OrderFailed    OrderStatus = "failed"
	OrderExpired   OrderStatus = "expired"
	OrderRefunded  OrderStatus = "refunded"
)

// IsOpen reports whether the order can still be paid.
func (s OrderStatus) IsOpen() bool {
	return s == OrderCreated || s == OrderAttempted
}

// ExternalOrder is an order as reported by the payment gateway.
type ExternalOrder struct {
	ID          string
	AmountMinor int64
	Currency    string
	Status      OrderStatus
	RawStatus   string
	PaymentLink string
	Raw         map[string]any
}

// Gateway is the payment provider capability. It is the only source of
// truth for settlement. Implementations return errors wrapping
// ErrGatewayUnavailable or ErrOrderNotFound.
type Gateway interface {
	CreateOrder(ctx context.Context, amount decimal.Decimal) (*ExternalOrder, error)
	FetchOrder(ctx context.Context, orderID string) (*ExternalOrder, error)
}
