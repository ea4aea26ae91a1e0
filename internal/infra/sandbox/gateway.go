// Package sandbox is an in-process payment gateway for local runs and tests.
// Orders are created in "created" state and move only when told to.
package sandbox

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"payment-bot/internal/domain/billing"
)

type order struct {
	id          string
	amountMinor int64
	status      billing.OrderStatus
}

type Gateway struct {
	currency billing.Currency
	linkBase string

	mu     sync.RWMutex
	orders map[string]*order

	unavailable atomic.Bool
	fetches     atomic.Int64
}

func NewGateway(currency billing.Currency, linkBase string) *Gateway {
	return &Gateway{
		currency: currency,
		linkBase: linkBase,
		orders:   make(map[string]*order),
	}
}

func (g *Gateway) CreateOrder(_ context.Context, amount decimal.Decimal) (*billing.ExternalOrder, error) {
	if g.unavailable.Load() {
		return nil, fmt.Errorf("sandbox create order: %w", billing.ErrGatewayUnavailable)
	}

	o := &order{
		id:          "order_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:14],
		amountMinor: g.currency.ToMinor(amount),
		status:      billing.OrderCreated,
	}

	g.mu.Lock()
	g.orders[o.id] = o
	g.mu.Unlock()

	return g.external(o), nil
}

func (g *Gateway) FetchOrder(_ context.Context, orderID string) (*billing.ExternalOrder, error) {
	g.fetches.Add(1)
	if g.unavailable.Load() {
		return nil, fmt.Errorf("sandbox fetch order: %w", billing.ErrGatewayUnavailable)
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	o, ok := g.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("sandbox order %s: %w", orderID, billing.ErrOrderNotFound)
	}
	return g.external(o), nil
}

// MarkPaid settles an order as if the user had paid it in full.
func (g *Gateway) MarkPaid(orderID string) error {
	return g.setStatus(orderID, billing.OrderPaid)
}

func (g *Gateway) SetStatus(orderID string, status billing.OrderStatus) error {
	return g.setStatus(orderID, status)
}

// SetSettledAmount overrides the amount the gateway reports for an order.
func (g *Gateway) SetSettledAmount(orderID string, minor int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	o, ok := g.orders[orderID]
	if !ok {
		return fmt.Errorf("sandbox order %s: %w", orderID, billing.ErrOrderNotFound)
	}
	o.amountMinor = minor
	return nil
}

// SetUnavailable makes every call fail with ErrGatewayUnavailable.
func (g *Gateway) SetUnavailable(down bool) {
	g.unavailable.Store(down)
}

// Fetches counts FetchOrder calls.
func (g *Gateway) Fetches() int64 {
	return g.fetches.Load()
}

func (g *Gateway) setStatus(orderID string, status billing.OrderStatus) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	o, ok := g.orders[orderID]
	if !ok {
		return fmt.Errorf("sandbox order %s: %w", orderID, billing.ErrOrderNotFound)
	}
	o.status = status
	return nil
}

func (g *Gateway) external(o *order) *billing.ExternalOrder {
	return &billing.ExternalOrder{
		ID:          o.id,
		AmountMinor: o.amountMinor,
		Currency:    g.currency.Code,
		Status:      o.status,
		RawStatus:   string(o.status),
		PaymentLink: g.linkBase + o.id,
		Raw: map[string]any{
			"id":       o.id,
			"amount":   o.amountMinor,
			"currency": g.currency.Code,
			"status":   string(o.status),
		},
	}
}

var _ billing.Gateway = (*Gateway)(nil)
