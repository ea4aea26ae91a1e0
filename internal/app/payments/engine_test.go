package payments_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payment-bot/internal/app/payments"
	"payment-bot/internal/domain/billing"
	"payment-bot/internal/domain/session"
	"payment-bot/internal/infra/sandbox"
	"payment-bot/internal/infra/store/memstore"
)

type recordingNotifier struct {
	mu            sync.Mutex
	confirmations []payments.Confirmation
	discrepancies []payments.Discrepancy
}

func (n *recordingNotifier) PaymentConfirmed(_ context.Context, c payments.Confirmation) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.confirmations = append(n.confirmations, c)
	return nil
}

func (n *recordingNotifier) PaymentDiscrepancy(_ context.Context, d payments.Discrepancy) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.discrepancies = append(n.discrepancies, d)
	return nil
}

func (n *recordingNotifier) confirmed() []payments.Confirmation {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]payments.Confirmation(nil), n.confirmations...)
}

type fakeGateway struct {
	createFn func(ctx context.Context, amount decimal.Decimal) (*billing.ExternalOrder, error)
	fetchFn  func(ctx context.Context, orderID string) (*billing.ExternalOrder, error)
	creates  int
	fetches  int
}

func (f *fakeGateway) CreateOrder(ctx context.Context, amount decimal.Decimal) (*billing.ExternalOrder, error) {
	f.creates++
	return f.createFn(ctx, amount)
}

func (f *fakeGateway) FetchOrder(ctx context.Context, orderID string) (*billing.ExternalOrder, error) {
	f.fetches++
	return f.fetchFn(ctx, orderID)
}

type failingStore struct {
	billing.Store
	createErr error
}

func (s *failingStore) Create(ctx context.Context, p *billing.Payment) error {
	if s.createErr != nil {
		return s.createErr
	}
	return s.Store.Create(ctx, p)
}

// lostRaceStore applies every transition on behalf of a competing caller
// before attempting it itself, so the engine always loses the race.
type lostRaceStore struct {
	billing.Store
}

func (s *lostRaceStore) Transition(ctx context.Context, orderID string, from, to billing.Status, details map[string]any, at time.Time) (bool, error) {
	if _, err := s.Store.Transition(ctx, orderID, from, to, details, at); err != nil {
		return false, err
	}
	return s.Store.Transition(ctx, orderID, from, to, details, at)
}

type harness struct {
	engine   *payments.Engine
	store    billing.Store
	gateway  *sandbox.Gateway
	sessions *session.Tracker
	notifier *recordingNotifier
	clock    *clock
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func testCurrency(t *testing.T) billing.Currency {
	t.Helper()
	c, err := billing.NewCurrency("INR", 2)
	require.NoError(t, err)
	return c
}

func testPolicy(t *testing.T) billing.AmountPolicy {
	t.Helper()
	p, err := billing.NewAmountPolicy(decimal.NewFromInt(1), decimal.NewFromInt(100000))
	require.NoError(t, err)
	return p
}

func newHarness(t *testing.T, wrap func(billing.Store) billing.Store) *harness {
	t.Helper()

	logger, _ := test.NewNullLogger()
	currency := testCurrency(t)

	var store billing.Store = memstore.NewPaymentStore()
	if wrap != nil {
		store = wrap(store)
	}

	h := &harness{
		store:    store,
		gateway:  sandbox.NewGateway(currency, "https://rzp.io/i/"),
		sessions: session.NewTracker(session.NewMemoryBackend()),
		notifier: &recordingNotifier{},
		clock:    &clock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)},
	}
	h.engine = payments.NewEngine(payments.Deps{
		Store:    h.store,
		Gateway:  h.gateway,
		Sessions: h.sessions,
		Notifier: h.notifier,
		Policy:   testPolicy(t),
		Currency: currency,
		Log:      logger,
		Now:      h.clock.Now,
	})
	return h
}

func (h *harness) createPaid(t *testing.T, user, amount string) *billing.Payment {
	t.Helper()
	res := h.engine.CreatePayment(context.Background(), user, amount)
	require.Equal(t, payments.OutcomeCreated, res.Outcome)
	require.NoError(t, h.gateway.MarkPaid(res.Payment.OrderID))
	return res.Payment
}

func TestCreatePayment_StoresOnePendingRecordAndClearsSession(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	require.NoError(t, h.engine.BeginPayment(ctx, "u1"))

	res := h.engine.CreatePayment(ctx, "u1", "250.50")
	require.Equal(t, payments.OutcomeCreated, res.Outcome)
	require.NotNil(t, res.Payment)
	assert.Equal(t, payments.CategoryOK, res.Outcome.Category())

	stored, err := h.store.FindByOrderID(ctx, res.Payment.OrderID)
	require.NoError(t, err)
	assert.Equal(t, billing.StatusPending, stored.Status)
	assert.Equal(t, "u1", stored.UserID)
	assert.Equal(t, "INR", stored.Currency)
	assert.True(t, decimal.RequireFromString("250.50").Equal(stored.Amount))
	assert.Equal(t, "https://rzp.io/i/"+res.Payment.OrderID, stored.PaymentLink)

	history, err := h.engine.History(ctx, "u1", 0)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	state, err := h.sessions.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, session.StateNone, state)
}

func TestCreatePayment_ValidationFailuresTouchNothing(t *testing.T) {
	logger, _ := test.NewNullLogger()
	gw := &fakeGateway{
		createFn: func(context.Context, decimal.Decimal) (*billing.ExternalOrder, error) {
			t.Fatal("gateway must not be called")
			return nil, nil
		},
	}
	store := memstore.NewPaymentStore()
	sessions := session.NewTracker(session.NewMemoryBackend())
	engine := payments.NewEngine(payments.Deps{
		Store: store, Gateway: gw, Sessions: sessions,
		Policy: testPolicy(t), Currency: testCurrency(t), Log: logger,
	})
	ctx := context.Background()
	require.NoError(t, engine.BeginPayment(ctx, "u1"))

	res := engine.CreatePayment(ctx, "u1", "0.5")
	assert.Equal(t, payments.OutcomeOutOfRange, res.Outcome)
	assert.Equal(t, payments.CategoryValidation, res.Outcome.Category())
	require.NotNil(t, res.AmountErr)
	assert.Equal(t, "1", res.AmountErr.Min.String())
	assert.Equal(t, "100000", res.AmountErr.Max.String())

	res = engine.CreatePayment(ctx, "u1", "ten rupees")
	assert.Equal(t, payments.OutcomeInvalidAmount, res.Outcome)
	require.NotNil(t, res.AmountErr)

	assert.Zero(t, gw.creates)
	history, err := store.ListRecent(ctx, "u1", 10)
	require.NoError(t, err)
	assert.Empty(t, history)

	state, err := sessions.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, session.StateAwaitingAmount, state)
}

// numericStore stores amounts the way a numeric(14,4) column does.
type numericStore struct {
	billing.Store
}

func (s *numericStore) Create(ctx context.Context, p *billing.Payment) error {
	rounded := *p
	rounded.Amount = p.Amount.Round(4)
	return s.Store.Create(ctx, &rounded)
}

func TestCreatePayment_RejectsAmountsFinerThanMinorUnit(t *testing.T) {
	h := newHarness(t, func(s billing.Store) billing.Store { return &numericStore{Store: s} })
	ctx := context.Background()
	require.NoError(t, h.engine.BeginPayment(ctx, "u1"))

	res := h.engine.CreatePayment(ctx, "u1", "1.00999")
	assert.Equal(t, payments.OutcomeInvalidAmount, res.Outcome)
	require.NotNil(t, res.AmountErr)
	assert.Contains(t, res.AmountErr.Error(), "at most 2 decimal places")
	assert.ErrorIs(t, res.AmountErr, billing.ErrInvalidAmount)

	history, err := h.engine.History(ctx, "u1", 0)
	require.NoError(t, err)
	assert.Empty(t, history)
	state, err := h.sessions.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, session.StateAwaitingAmount, state)

	// Trailing zeros stay within the minor unit.
	p := h.createPaid(t, "u1", "1.0100")
	got := h.engine.Reconcile(ctx, payments.ReconcileRequest{OrderID: p.OrderID, UserID: "u1", Source: payments.SourceCheck})
	assert.Equal(t, payments.OutcomeConfirmed, got.Outcome)
	assert.Equal(t, "1.01", h.engine.Format(got.SettledAmount))
}

func TestCreatePayment_GatewayDownCreatesNoRecordAndKeepsSession(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	require.NoError(t, h.engine.BeginPayment(ctx, "u1"))
	h.gateway.SetUnavailable(true)

	res := h.engine.CreatePayment(ctx, "u1", "100")
	assert.Equal(t, payments.OutcomeGatewayUnavailable, res.Outcome)
	assert.Equal(t, payments.CategoryTransient, res.Outcome.Category())
	assert.Nil(t, res.Payment)

	history, err := h.engine.History(ctx, "u1", 0)
	require.NoError(t, err)
	assert.Empty(t, history)

	state, err := h.sessions.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, session.StateAwaitingAmount, state)

	h.gateway.SetUnavailable(false)
	res = h.engine.CreatePayment(ctx, "u1", "100")
	assert.Equal(t, payments.OutcomeCreated, res.Outcome)
}

func TestCreatePayment_StoreFailureKeepsSession(t *testing.T) {
	h := newHarness(t, func(s billing.Store) billing.Store {
		return &failingStore{Store: s, createErr: errors.New("disk full")}
	})
	ctx := context.Background()
	require.NoError(t, h.engine.BeginPayment(ctx, "u1"))

	res := h.engine.CreatePayment(ctx, "u1", "100")
	assert.Equal(t, payments.OutcomeStoreUnavailable, res.Outcome)

	state, err := h.sessions.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, session.StateAwaitingAmount, state)
}

func TestCreatePayment_DuplicateOrderIsLogicalFault(t *testing.T) {
	logger, _ := test.NewNullLogger()
	store := memstore.NewPaymentStore()
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, &billing.Payment{
		ID: "p-existing", UserID: "someone-else", OrderID: "order_dup",
		Amount: decimal.NewFromInt(5), Currency: "INR", Status: billing.StatusPending,
	}))

	gw := &fakeGateway{
		createFn: func(_ context.Context, amount decimal.Decimal) (*billing.ExternalOrder, error) {
			return &billing.ExternalOrder{ID: "order_dup", AmountMinor: 10000, Currency: "INR", Status: billing.OrderCreated}, nil
		},
	}
	engine := payments.NewEngine(payments.Deps{
		Store: store, Gateway: gw, Policy: testPolicy(t), Currency: testCurrency(t), Log: logger,
	})

	res := engine.CreatePayment(ctx, "u1", "100")
	assert.Equal(t, payments.OutcomeDuplicateOrder, res.Outcome)
	assert.Equal(t, payments.CategoryLogical, res.Outcome.Category())

	existing, err := store.FindByOrderID(ctx, "order_dup")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", existing.UserID)
	assert.True(t, decimal.NewFromInt(5).Equal(existing.Amount))
}

func TestReconcile_ConfirmsOnceThenShortCircuits(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	p := h.createPaid(t, "u1", "100.00")

	first := h.engine.Reconcile(ctx, payments.ReconcileRequest{OrderID: p.OrderID, Source: payments.SourceCheck})
	require.Equal(t, payments.OutcomeConfirmed, first.Outcome)
	assert.Equal(t, "100.00", h.engine.Format(first.SettledAmount))
	assert.Equal(t, int64(1), h.gateway.Fetches())

	stored, err := h.store.FindByOrderID(ctx, p.OrderID)
	require.NoError(t, err)
	assert.Equal(t, billing.StatusSuccess, stored.Status)
	assert.Equal(t, "paid", stored.PaymentDetails["gateway_status"])
	updatedAt := stored.UpdatedAt

	second := h.engine.Reconcile(ctx, payments.ReconcileRequest{OrderID: p.OrderID, Source: payments.SourceCheck})
	assert.Equal(t, payments.OutcomeAlreadyConfirmed, second.Outcome)
	assert.Equal(t, "100.00", h.engine.Format(second.SettledAmount))
	assert.Equal(t, int64(1), h.gateway.Fetches(), "already confirmed payments must not hit the gateway")

	stored, err = h.store.FindByOrderID(ctx, p.OrderID)
	require.NoError(t, err)
	assert.Equal(t, updatedAt, stored.UpdatedAt)

	require.Len(t, h.notifier.confirmed(), 1)
	assert.Equal(t, payments.SourceCheck, h.notifier.confirmed()[0].Source)
}

func TestReconcile_ConcurrentChecksTransitionExactlyOnce(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	p := h.createPaid(t, "u1", "499.99")

	const callers = 16
	results := make([]payments.CheckResult, callers)

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			source := payments.SourceCheck
			if i%2 == 1 {
				source = payments.SourceWebhook
			}
			results[i] = h.engine.Reconcile(ctx, payments.ReconcileRequest{OrderID: p.OrderID, Source: source})
		}(i)
	}
	close(start)
	wg.Wait()

	confirmed := 0
	for _, r := range results {
		switch r.Outcome {
		case payments.OutcomeConfirmed:
			confirmed++
		case payments.OutcomeAlreadyConfirmed:
		default:
			t.Fatalf("unexpected outcome %s", r.Outcome)
		}
	}
	assert.Equal(t, 1, confirmed)
	assert.Len(t, h.notifier.confirmed(), 1)

	stored, err := h.store.FindByOrderID(ctx, p.OrderID)
	require.NoError(t, err)
	assert.Equal(t, billing.StatusSuccess, stored.Status)
}

func TestReconcile_LosingTheTransitionReportsAlreadyConfirmed(t *testing.T) {
	h := newHarness(t, func(s billing.Store) billing.Store { return &lostRaceStore{Store: s} })
	ctx := context.Background()
	p := h.createPaid(t, "u1", "100")

	res := h.engine.Reconcile(ctx, payments.ReconcileRequest{OrderID: p.OrderID, Source: payments.SourceWebhook})
	assert.Equal(t, payments.OutcomeAlreadyConfirmed, res.Outcome)
	assert.Empty(t, h.notifier.confirmed())
}

func TestReconcile_UnknownOrder(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	res := h.engine.Reconcile(ctx, payments.ReconcileRequest{OrderID: "order_missing", Source: payments.SourceCheck})
	assert.Equal(t, payments.OutcomeUnknownOrder, res.Outcome)
	assert.Equal(t, payments.CategoryLogical, res.Outcome.Category())
	assert.Zero(t, h.gateway.Fetches())

	_, err := h.store.FindByOrderID(ctx, "order_missing")
	assert.ErrorIs(t, err, billing.ErrPaymentNotFound)
}

func TestReconcile_OtherUsersOrderIsUnknown(t *testing.T) {
	h := newHarness(t, nil)
	p := h.createPaid(t, "owner", "100")

	res := h.engine.Reconcile(context.Background(), payments.ReconcileRequest{OrderID: p.OrderID, UserID: "intruder", Source: payments.SourceCheck})
	assert.Equal(t, payments.OutcomeUnknownOrder, res.Outcome)
	assert.Zero(t, h.gateway.Fetches())
}

func TestReconcile_NotYetPaidStaysPending(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	res := h.engine.CreatePayment(ctx, "u1", "100")
	require.Equal(t, payments.OutcomeCreated, res.Outcome)

	check := h.engine.Reconcile(ctx, payments.ReconcileRequest{OrderID: res.Payment.OrderID, Source: payments.SourceCheck})
	assert.Equal(t, payments.OutcomeNotYetReceived, check.Outcome)
	assert.Equal(t, "created", check.GatewayStatus)

	require.NoError(t, h.gateway.SetStatus(res.Payment.OrderID, billing.OrderAttempted))
	check = h.engine.Reconcile(ctx, payments.ReconcileRequest{OrderID: res.Payment.OrderID, Source: payments.SourceCheck})
	assert.Equal(t, payments.OutcomeNotYetReceived, check.Outcome)

	stored, err := h.store.FindByOrderID(ctx, res.Payment.OrderID)
	require.NoError(t, err)
	assert.Equal(t, billing.StatusPending, stored.Status)
	assert.Empty(t, h.notifier.confirmed())
}

func TestReconcile_ClosedOrderIsReportedDistinctly(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	res := h.engine.CreatePayment(ctx, "u1", "100")
	require.NoError(t, h.gateway.SetStatus(res.Payment.OrderID, billing.OrderExpired))

	check := h.engine.Reconcile(ctx, payments.ReconcileRequest{OrderID: res.Payment.OrderID, Source: payments.SourceCheck})
	assert.Equal(t, payments.OutcomeOrderClosed, check.Outcome)
	assert.Equal(t, "expired", check.GatewayStatus)

	stored, err := h.store.FindByOrderID(ctx, res.Payment.OrderID)
	require.NoError(t, err)
	assert.Equal(t, billing.StatusPending, stored.Status)
}

func TestReconcile_AmountMismatchIsDiscrepancy(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	p := h.createPaid(t, "u1", "100.00")
	require.NoError(t, h.gateway.SetSettledAmount(p.OrderID, 9900))

	res := h.engine.Reconcile(ctx, payments.ReconcileRequest{OrderID: p.OrderID, Source: payments.SourceWebhook})
	assert.Equal(t, payments.OutcomeDiscrepancy, res.Outcome)
	assert.Equal(t, payments.CategoryDiscrepancy, res.Outcome.Category())
	assert.Equal(t, int64(10000), res.ExpectedMinor)
	assert.Equal(t, int64(9900), res.ReportedMinor)

	stored, err := h.store.FindByOrderID(ctx, p.OrderID)
	require.NoError(t, err)
	assert.Equal(t, billing.StatusPending, stored.Status)
	assert.Empty(t, h.notifier.confirmed())
	require.Len(t, h.notifier.discrepancies, 1)
	assert.Equal(t, p.OrderID, h.notifier.discrepancies[0].OrderID)
}

func TestReconcile_RepeatedDiscrepancyIsPublishedOnce(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	p := h.createPaid(t, "u1", "100.00")
	require.NoError(t, h.gateway.SetSettledAmount(p.OrderID, 9900))

	for _, source := range []payments.Source{payments.SourceCheck, payments.SourceWebhook, payments.SourceCheck} {
		res := h.engine.Reconcile(ctx, payments.ReconcileRequest{OrderID: p.OrderID, Source: source})
		assert.Equal(t, payments.OutcomeDiscrepancy, res.Outcome)
		assert.Equal(t, int64(9900), res.ReportedMinor)
	}
	assert.Len(t, h.notifier.discrepancies, 1)

	require.NoError(t, h.gateway.SetSettledAmount(p.OrderID, 9950))
	res := h.engine.Reconcile(ctx, payments.ReconcileRequest{OrderID: p.OrderID, Source: payments.SourceCheck})
	assert.Equal(t, payments.OutcomeDiscrepancy, res.Outcome)
	require.Len(t, h.notifier.discrepancies, 2)
	assert.Equal(t, int64(9950), h.notifier.discrepancies[1].ReportedMinor)
}

func TestReconcile_CurrencyMismatchIsDiscrepancy(t *testing.T) {
	logger, _ := test.NewNullLogger()
	store := memstore.NewPaymentStore()
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, &billing.Payment{
		ID: "p1", UserID: "u1", OrderID: "order_usd",
		Amount: decimal.NewFromInt(100), Currency: "INR", Status: billing.StatusPending,
	}))
	gw := &fakeGateway{
		fetchFn: func(_ context.Context, id string) (*billing.ExternalOrder, error) {
			return &billing.ExternalOrder{ID: id, AmountMinor: 10000, Currency: "USD", Status: billing.OrderPaid, RawStatus: "paid"}, nil
		},
	}
	engine := payments.NewEngine(payments.Deps{Store: store, Gateway: gw, Policy: testPolicy(t), Currency: testCurrency(t), Log: logger})

	res := engine.Reconcile(ctx, payments.ReconcileRequest{OrderID: "order_usd", Source: payments.SourceCheck})
	assert.Equal(t, payments.OutcomeDiscrepancy, res.Outcome)
}

func TestReconcile_GatewayFailureLeavesStatusUnchanged(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	p := h.createPaid(t, "u1", "100")
	h.gateway.SetUnavailable(true)

	res := h.engine.Reconcile(ctx, payments.ReconcileRequest{OrderID: p.OrderID, Source: payments.SourceCheck})
	assert.Equal(t, payments.OutcomeGatewayUnavailable, res.Outcome)

	stored, err := h.store.FindByOrderID(ctx, p.OrderID)
	require.NoError(t, err)
	assert.Equal(t, billing.StatusPending, stored.Status)

	h.gateway.SetUnavailable(false)
	res = h.engine.Reconcile(ctx, payments.ReconcileRequest{OrderID: p.OrderID, Source: payments.SourceCheck})
	assert.Equal(t, payments.OutcomeConfirmed, res.Outcome)
}

func TestReconcile_GatewayLostOrderIsUnknown(t *testing.T) {
	logger, _ := test.NewNullLogger()
	store := memstore.NewPaymentStore()
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, &billing.Payment{
		ID: "p1", UserID: "u1", OrderID: "order_gone",
		Amount: decimal.NewFromInt(1), Currency: "INR", Status: billing.StatusPending,
	}))
	gw := &fakeGateway{
		fetchFn: func(_ context.Context, id string) (*billing.ExternalOrder, error) {
			return nil, billing.ErrOrderNotFound
		},
	}
	engine := payments.NewEngine(payments.Deps{Store: store, Gateway: gw, Policy: testPolicy(t), Currency: testCurrency(t), Log: logger})

	res := engine.Reconcile(ctx, payments.ReconcileRequest{OrderID: "order_gone", Source: payments.SourceCheck})
	assert.Equal(t, payments.OutcomeUnknownOrder, res.Outcome)
}

func TestReconcile_AttachesWebhookDetails(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	p := h.createPaid(t, "u1", "42")

	res := h.engine.Reconcile(ctx, payments.ReconcileRequest{
		OrderID: p.OrderID,
		Source:  payments.SourceWebhook,
		Details: map[string]any{"payment_id": "pay_123"},
	})
	require.Equal(t, payments.OutcomeConfirmed, res.Outcome)

	stored, err := h.store.FindByOrderID(ctx, p.OrderID)
	require.NoError(t, err)
	assert.Equal(t, "pay_123", stored.PaymentDetails["payment_id"])
	assert.Equal(t, "webhook", stored.PaymentDetails["source"])
}

func TestHistory_NewestFirstWithStatuses(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	first := h.createPaid(t, "u1", "10")
	second := h.engine.CreatePayment(ctx, "u1", "20").Payment
	third := h.engine.CreatePayment(ctx, "u1", "30").Payment
	require.Equal(t, payments.OutcomeConfirmed,
		h.engine.Reconcile(ctx, payments.ReconcileRequest{OrderID: first.OrderID, Source: payments.SourceCheck}).Outcome)

	// pending, pending, success in creation order: first one settled
	history, err := h.engine.History(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, third.OrderID, history[0].OrderID)
	assert.Equal(t, second.OrderID, history[1].OrderID)
	assert.Equal(t, first.OrderID, history[2].OrderID)
	assert.Equal(t, billing.StatusPending, history[0].Status)
	assert.Equal(t, billing.StatusPending, history[1].Status)
	assert.Equal(t, billing.StatusSuccess, history[2].Status)

	empty, err := h.engine.History(ctx, "nobody", 10)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestHistory_LimitIsClamped(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	for i := 0; i < 12; i++ {
		require.Equal(t, payments.OutcomeCreated, h.engine.CreatePayment(ctx, "u1", "5").Outcome)
	}

	all, err := h.engine.History(ctx, "u1", 50)
	require.NoError(t, err)
	assert.Len(t, all, payments.DefaultHistoryLimit)

	some, err := h.engine.History(ctx, "u1", 3)
	require.NoError(t, err)
	assert.Len(t, some, 3)
}

func TestLogNotifier_WritesFields(t *testing.T) {
	logger, hook := test.NewNullLogger()
	n := &payments.LogNotifier{Log: logger}

	require.NoError(t, n.PaymentConfirmed(context.Background(), payments.Confirmation{OrderID: "order_1", SettledAmount: decimal.NewFromInt(5)}))
	require.NoError(t, n.PaymentDiscrepancy(context.Background(), payments.Discrepancy{OrderID: "order_2"}))

	require.Len(t, hook.AllEntries(), 2)
	assert.Equal(t, logrus.InfoLevel, hook.AllEntries()[0].Level)
	assert.Equal(t, "order_1", hook.AllEntries()[0].Data["order_id"])
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}
