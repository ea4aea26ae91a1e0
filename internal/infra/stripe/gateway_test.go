package stripe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v75"
	"github.com/stripe/stripe-go/v75/webhook"

	"payment-bot/internal/domain/billing"
)

func TestNormalizeCheckoutStatus(t *testing.T) {
	cases := []struct {
		name    string
		session *stripe.CheckoutSession
		want    billing.OrderStatus
		raw     string
	}{
		{"nil", nil, billing.OrderCreated, ""},
		{"open", &stripe.CheckoutSession{Status: stripe.CheckoutSessionStatusOpen, PaymentStatus: stripe.CheckoutSessionPaymentStatusUnpaid}, billing.OrderCreated, "open"},
		{"paid", &stripe.CheckoutSession{Status: stripe.CheckoutSessionStatusComplete, PaymentStatus: stripe.CheckoutSessionPaymentStatusPaid}, billing.OrderPaid, "paid"},
		{"async pending", &stripe.CheckoutSession{Status: stripe.CheckoutSessionStatusComplete, PaymentStatus: stripe.CheckoutSessionPaymentStatusUnpaid}, billing.OrderAttempted, "complete"},
		{"expired", &stripe.CheckoutSession{Status: stripe.CheckoutSessionStatusExpired, PaymentStatus: stripe.CheckoutSessionPaymentStatusUnpaid}, billing.OrderExpired, "expired"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, raw := NormalizeCheckoutStatus(tc.session)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.raw, raw)
		})
	}
}

func testGateway(t *testing.T, handler http.HandlerFunc) *Gateway {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	inr, err := billing.NewCurrency("INR", 2)
	require.NoError(t, err)

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(srv.URL),
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	})
	return NewGateway(Config{
		SecretKey:     "sk_test_123",
		WebhookSecret: "whsec_test",
		Currency:      inr,
		Backend:       backend,
	})
}

func TestGateway_FetchOrder(t *testing.T) {
	g := testGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if strings.HasSuffix(r.URL.Path, "/v1/checkout/sessions/cs_test_paid") {
			_, _ = w.Write([]byte(`{"id":"cs_test_paid","object":"checkout.session","amount_total":10000,"currency":"inr","status":"complete","payment_status":"paid","url":null}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","code":"resource_missing","message":"No such checkout.session"}}`))
	})

	o, err := g.FetchOrder(context.Background(), "cs_test_paid")
	require.NoError(t, err)
	assert.Equal(t, billing.OrderPaid, o.Status)
	assert.Equal(t, int64(10000), o.AmountMinor)
	assert.Equal(t, "INR", o.Currency)

	_, err = g.FetchOrder(context.Background(), "cs_test_missing")
	assert.ErrorIs(t, err, billing.ErrOrderNotFound)
}

func TestGateway_FetchOrderServerErrorIsUnavailable(t *testing.T) {
	g := testGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"type":"api_error","message":"boom"}}`))
	})

	_, err := g.FetchOrder(context.Background(), "cs_test_1")
	assert.ErrorIs(t, err, billing.ErrGatewayUnavailable)
}

func TestGateway_ParseWebhook(t *testing.T) {
	g := testGateway(t, func(w http.ResponseWriter, r *http.Request) {})
	payload := []byte(`{"id":"evt_1","object":"event","type":"checkout.session.completed","data":{"object":{"id":"cs_test_1","object":"checkout.session","amount_total":5000,"currency":"inr","status":"complete","payment_status":"paid"}}}`)

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    "whsec_test",
		Timestamp: time.Now(),
	})

	ev, err := g.ParseWebhook(signed.Payload, signed.Header)
	require.NoError(t, err)
	assert.Equal(t, "checkout.session.completed", ev.Type)
	assert.Equal(t, "cs_test_1", ev.OrderID)
	require.NotNil(t, ev.Session)
	assert.Equal(t, int64(5000), ev.Session.AmountTotal)

	_, err = g.ParseWebhook(payload, "t=1,v1=bad")
	assert.Error(t, err)
}

func TestGateway_ParseWebhookIgnoresOtherEvents(t *testing.T) {
	g := testGateway(t, func(w http.ResponseWriter, r *http.Request) {})
	payload := []byte(`{"id":"evt_2","object":"event","type":"customer.created","data":{"object":{"id":"cus_1","object":"customer"}}}`)

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    "whsec_test",
		Timestamp: time.Now(),
	})

	ev, err := g.ParseWebhook(signed.Payload, signed.Header)
	require.NoError(t, err)
	assert.Empty(t, ev.OrderID)
}
