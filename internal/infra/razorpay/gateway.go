// Package razorpay adapts Razorpay orders to the billing.Gateway contract.
package razorpay

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	razorpaysdk "github.com/razorpay/razorpay-go"
	"github.com/razorpay/razorpay-go/utils"
	"github.com/shopspring/decimal"

	"payment-bot/internal/domain/billing"
)

// orderAPI is the subset of the SDK's order resource the adapter needs.
type orderAPI interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
	Fetch(orderID string, queryParams map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

type Config struct {
	KeyID         string
	KeySecret     string
	WebhookSecret string
	LinkBase      string
	Currency      billing.Currency
}

type Gateway struct {
	cfg    Config
	orders orderAPI
}

func NewGateway(cfg Config) *Gateway {
	client := razorpaysdk.NewClient(cfg.KeyID, cfg.KeySecret)
	return newGateway(cfg, client.Order)
}

func newGateway(cfg Config, orders orderAPI) *Gateway {
	if cfg.LinkBase == "" {
		cfg.LinkBase = "https://rzp.io/i/"
	}
	return &Gateway{cfg: cfg, orders: orders}
}

// CreateOrder creates an auto-captured order for amount in display units.
func (g *Gateway) CreateOrder(ctx context.Context, amount decimal.Decimal) (*billing.ExternalOrder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data := map[string]interface{}{
		"amount":          g.cfg.Currency.ToMinor(amount),
		"currency":        g.cfg.Currency.Code,
		"payment_capture": 1,
		"receipt":         "rcpt_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16],
	}

	body, err := g.orders.Create(data, nil)
	if err != nil {
		return nil, fmt.Errorf("razorpay create order: %w", classify(err))
	}
	return g.toExternal(body)
}

func (g *Gateway) FetchOrder(ctx context.Context, orderID string) (*billing.ExternalOrder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	body, err := g.orders.Fetch(orderID, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("razorpay fetch order %s: %w", orderID, classify(err))
	}
	return g.toExternal(body)
}

// VerifyPaymentSignature checks the signature returned to the checkout
// callback for (order_id, payment_id) against the key secret.
func (g *Gateway) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	if orderID == "" || paymentID == "" || signature == "" {
		return false
	}
	return utils.VerifyPaymentSignature(map[string]interface{}{
		"razorpay_order_id":   orderID,
		"razorpay_payment_id": paymentID,
	}, signature, g.cfg.KeySecret)
}

// VerifyWebhookSignature checks X-Razorpay-Signature over the raw body.
func (g *Gateway) VerifyWebhookSignature(body []byte, signature string) bool {
	if g.cfg.WebhookSecret == "" || signature == "" {
		return false
	}
	return utils.VerifyWebhookSignature(string(body), signature, g.cfg.WebhookSecret)
}

// NormalizeOrderStatus maps Razorpay order statuses; anything unknown is
// passed through and treated as closed.
func NormalizeOrderStatus(raw string) billing.OrderStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "created", "":
		return billing.OrderCreated
	case "attempted":
		return billing.OrderAttempted
	case "paid":
		return billing.OrderPaid
	default:
		return billing.OrderStatus(strings.ToLower(strings.TrimSpace(raw)))
	}
}

func (g *Gateway) toExternal(body map[string]interface{}) (*billing.ExternalOrder, error) {
	id, _ := body["id"].(string)
	if id == "" {
		return nil, fmt.Errorf("razorpay order without id: %w", billing.ErrGatewayUnavailable)
	}

	amount, err := minorUnits(body["amount"])
	if err != nil {
		return nil, fmt.Errorf("razorpay order %s amount: %w", id, err)
	}
	if paid, err := minorUnits(body["amount_paid"]); err == nil && paid > 0 {
		amount = paid
	}

	raw, _ := body["status"].(string)
	currency, _ := body["currency"].(string)

	return &billing.ExternalOrder{
		ID:          id,
		AmountMinor: amount,
		Currency:    strings.ToUpper(currency),
		Status:      NormalizeOrderStatus(raw),
		RawStatus:   raw,
		PaymentLink: g.cfg.LinkBase + id,
		Raw:         body,
	}, nil
}

func minorUnits(v interface{}) (int64, error) {
	switch n := v.(type) {
	case float64:
		return int64(n), nil
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case json.Number:
		return n.Int64()
	case nil:
		return 0, fmt.Errorf("missing amount")
	default:
		return 0, fmt.Errorf("unexpected amount type %T", v)
	}
}

// The SDK reports API failures as plain errors carrying Razorpay's message.
func classify(err error) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "does not exist") || strings.Contains(msg, "not found") {
		return fmt.Errorf("%v: %w", err, billing.ErrOrderNotFound)
	}
	return fmt.Errorf("%v: %w", err, billing.ErrGatewayUnavailable)
}

var _ billing.Gateway = (*Gateway)(nil)
