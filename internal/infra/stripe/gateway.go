// Package stripe adapts Stripe Checkout to the billing.Gateway contract. A
// Checkout Session in payment mode plays the role of the gateway order.
package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v75"
	checkoutsession "github.com/stripe/stripe-go/v75/checkout/session"
	"github.com/stripe/stripe-go/v75/webhook"

	"payment-bot/internal/domain/billing"
)

// Stripe refuses session expiries closer than 30 minutes.
const minSessionTTL = 30 * time.Minute

type Config struct {
	SecretKey     string
	WebhookSecret string
	AppURL        string
	Currency      billing.Currency
	SessionTTL    time.Duration
	ProductName   string

	// Backend overrides the Stripe API backend; nil uses the default.
	Backend stripe.Backend
}

type Gateway struct {
	cfg      Config
	sessions *checkoutsession.Client
	now      func() time.Time
}

func NewGateway(cfg Config) *Gateway {
	if cfg.AppURL == "" {
		cfg.AppURL = "http://localhost:5173"
	}
	if cfg.ProductName == "" {
		cfg.ProductName = "Payment"
	}
	backend := cfg.Backend
	if backend == nil {
		backend = stripe.GetBackend(stripe.APIBackend)
	}
	return &Gateway{
		cfg:      cfg,
		sessions: &checkoutsession.Client{B: backend, Key: cfg.SecretKey},
		now:      time.Now,
	}
}

func (g *Gateway) CreateOrder(ctx context.Context, amount decimal.Decimal) (*billing.ExternalOrder, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(g.cfg.AppURL + "/payments?status=success"),
		CancelURL:  stripe.String(g.cfg.AppURL + "/payments?canceled=1"),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(strings.ToLower(g.cfg.Currency.Code)),
					UnitAmount: stripe.Int64(g.cfg.Currency.ToMinor(amount)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(g.cfg.ProductName),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	if ttl := g.cfg.SessionTTL; ttl > 0 {
		if ttl < minSessionTTL {
			ttl = minSessionTTL
		}
		params.ExpiresAt = stripe.Int64(g.now().Add(ttl).Unix())
	}
	params.Context = ctx

	s, err := g.sessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe create checkout session: %w", classify(err))
	}
	return toExternal(s), nil
}

func (g *Gateway) FetchOrder(ctx context.Context, orderID string) (*billing.ExternalOrder, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	s, err := g.sessions.Get(orderID, params)
	if err != nil {
		return nil, fmt.Errorf("stripe get checkout session %s: %w", orderID, classify(err))
	}
	return toExternal(s), nil
}

// WebhookEvent is the part of a verified Stripe event the service acts on.
type WebhookEvent struct {
	ID      string
	Type    string
	OrderID string
	Session *stripe.CheckoutSession
}

// ParseWebhook verifies the Stripe-Signature header and extracts the
// checkout session from checkout.session.* events. Other event types come
// back with an empty OrderID.
func (g *Gateway) ParseWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	if g.cfg.WebhookSecret == "" {
		return nil, errors.New("stripe webhook secret not configured")
	}

	event, err := webhook.ConstructEventWithOptions(
		payload,
		signature,
		g.cfg.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
	if err != nil {
		return nil, fmt.Errorf("stripe signature verification failed: %w", err)
	}

	out := &WebhookEvent{ID: event.ID, Type: string(event.Type)}
	if !strings.HasPrefix(out.Type, "checkout.session.") {
		return out, nil
	}

	var s stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &s); err != nil {
		return nil, fmt.Errorf("parse checkout session: %w", err)
	}
	out.OrderID = s.ID
	out.Session = &s
	return out, nil
}

func toExternal(s *stripe.CheckoutSession) *billing.ExternalOrder {
	status, raw := NormalizeCheckoutStatus(s)
	return &billing.ExternalOrder{
		ID:          s.ID,
		AmountMinor: s.AmountTotal,
		Currency:    strings.ToUpper(string(s.Currency)),
		Status:      status,
		RawStatus:   raw,
		PaymentLink: s.URL,
		Raw: map[string]any{
			"id":             s.ID,
			"amount_total":   s.AmountTotal,
			"currency":       string(s.Currency),
			"status":         string(s.Status),
			"payment_status": string(s.PaymentStatus),
		},
	}
}

func classify(err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		if stripeErr.Code == stripe.ErrorCodeResourceMissing || stripeErr.HTTPStatusCode == 404 {
			return fmt.Errorf("%s: %w", stripeErr.Msg, billing.ErrOrderNotFound)
		}
	}
	return fmt.Errorf("%v: %w", err, billing.ErrGatewayUnavailable)
}

var _ billing.Gateway = (*Gateway)(nil)
