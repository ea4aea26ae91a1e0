// Package payments implements the payment lifecycle: creating gateway
// orders, recording them as PENDING payments and reconciling them against
// the gateway so each order is confirmed exactly once.
package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"payment-bot/internal/domain/billing"
	"payment-bot/internal/domain/session"
)

// Source names what triggered a reconciliation.
type Source string

const (
	SourceCheck   Source = "check"
	SourceWebhook Source = "webhook"
	SourceAdmin   Source = "admin"
	SourceCLI     Source = "cli"
)

const DefaultHistoryLimit = 10

type Deps struct {
	Store        billing.Store
	Gateway      billing.Gateway
	Sessions     *session.Tracker
	Notifier     Notifier
	Policy       billing.AmountPolicy
	Currency     billing.Currency
	HistoryLimit int
	Log          logrus.FieldLogger
	Now          func() time.Time
}

type Engine struct {
	store        billing.Store
	gateway      billing.Gateway
	sessions     *session.Tracker
	notifier     Notifier
	policy       billing.AmountPolicy
	currency     billing.Currency
	historyLimit int
	log          logrus.FieldLogger
	now          func() time.Time

	// reported holds discrepancies already sent to the notifier in this
	// process, keyed by order, reported amount and currency.
	reported sync.Map
}

func NewEngine(d Deps) *Engine {
	e := &Engine{
		store:        d.Store,
		gateway:      d.Gateway,
		sessions:     d.Sessions,
		notifier:     d.Notifier,
		policy:       d.Policy,
		currency:     d.Currency,
		historyLimit: d.HistoryLimit,
		log:          d.Log,
		now:          d.Now,
	}
	if e.log == nil {
		e.log = logrus.StandardLogger()
	}
	if e.sessions == nil {
		e.sessions = session.NewTracker(session.NewMemoryBackend())
	}
	if e.notifier == nil {
		e.notifier = &LogNotifier{Log: e.log}
	}
	if e.historyLimit <= 0 {
		e.historyLimit = DefaultHistoryLimit
	}
	if e.now == nil {
		e.now = func() time.Time { return time.Now().UTC() }
	}
	return e
}

func (e *Engine) Policy() billing.AmountPolicy { return e.policy }
func (e *Engine) Currency() billing.Currency   { return e.currency }
func (e *Engine) HistoryLimit() int            { return e.historyLimit }
func (e *Engine) Sessions() *session.Tracker   { return e.sessions }

// BeginPayment marks the user as expected to send an amount next.
func (e *Engine) BeginPayment(ctx context.Context, userID string) error {
	return e.sessions.Set(ctx, userID, session.StateAwaitingAmount)
}

// CreatePayment validates input, creates the gateway order and records it as
// PENDING. The user's session is cleared only once the record is stored, so
// any failure leaves the user able to send the amount again.
func (e *Engine) CreatePayment(ctx context.Context, userID, input string) CreateResult {
	log := e.log.WithField("user_id", userID)

	amount, err := e.policy.Validate(input)
	if err == nil {
		err = e.currency.CheckPrecision(amount, input)
	}
	if err != nil {
		var amountErr *billing.AmountError
		errors.As(err, &amountErr)
		if errors.Is(err, billing.ErrAmountOutOfRange) {
			return CreateResult{Outcome: OutcomeOutOfRange, AmountErr: amountErr}
		}
		return CreateResult{Outcome: OutcomeInvalidAmount, AmountErr: amountErr}
	}

	order, err := e.gateway.CreateOrder(ctx, amount)
	if err != nil {
		log.WithError(err).Warn("gateway order creation failed")
		return CreateResult{Outcome: OutcomeGatewayUnavailable}
	}
	log = log.WithField("order_id", order.ID)

	now := e.now()
	p := &billing.Payment{
		ID:          uuid.NewString(),
		UserID:      userID,
		OrderID:     order.ID,
		Amount:      amount,
		Currency:    e.currency.Code,
		Status:      billing.StatusPending,
		PaymentLink: order.PaymentLink,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := e.store.Create(ctx, p); err != nil {
		if errors.Is(err, billing.ErrDuplicateOrder) {
			log.WithError(err).Error("gateway returned an order id that is already recorded")
			return CreateResult{Outcome: OutcomeDuplicateOrder}
		}
		log.WithError(err).Error("failed to store payment")
		return CreateResult{Outcome: OutcomeStoreUnavailable}
	}

	if err := e.sessions.Clear(ctx, userID); err != nil {
		log.WithError(err).Warn("failed to clear session after payment creation")
	}

	log.WithField("amount", amount.String()).Info("payment created")
	return CreateResult{Outcome: OutcomeCreated, Payment: p}
}

// ReconcileRequest identifies the order to check. UserID, when set, restricts
// the check to payments owned by that user. Details are attached to the
// payment on confirmation, next to the gateway's own fields.
type ReconcileRequest struct {
	OrderID string
	UserID  string
	Source  Source
	Details map[string]any
}

// Reconcile compares the stored payment with the gateway and applies the
// PENDING -> SUCCESS transition at most once, whatever the number of
// concurrent callers.
func (e *Engine) Reconcile(ctx context.Context, req ReconcileRequest) CheckResult {
	log := e.log.WithFields(logrus.Fields{"order_id": req.OrderID, "source": req.Source})
	res := CheckResult{OrderID: req.OrderID}

	p, err := e.store.FindByOrderID(ctx, req.OrderID)
	switch {
	case errors.Is(err, billing.ErrPaymentNotFound):
		res.Outcome = OutcomeUnknownOrder
		return res
	case err != nil:
		log.WithError(err).Error("payment lookup failed")
		res.Outcome = OutcomeStoreUnavailable
		return res
	}
	if req.UserID != "" && p.UserID != req.UserID {
		log.WithField("user_id", req.UserID).Warn("check for an order owned by another user")
		res.Outcome = OutcomeUnknownOrder
		return res
	}
	res.Payment = p

	if p.IsSettled() {
		return e.alreadyConfirmed(res, p)
	}

	order, err := e.gateway.FetchOrder(ctx, req.OrderID)
	if err != nil {
		if errors.Is(err, billing.ErrOrderNotFound) {
			log.WithError(err).Error("stored payment has no gateway order")
			res.Outcome = OutcomeUnknownOrder
			return res
		}
		log.WithError(err).Warn("gateway order fetch failed")
		res.Outcome = OutcomeGatewayUnavailable
		return res
	}
	res.GatewayStatus = order.RawStatus

	switch {
	case order.Status == billing.OrderPaid:
		return e.settle(ctx, log, req, res, p, order)
	case order.Status.IsOpen():
		res.Outcome = OutcomeNotYetReceived
	default:
		log.WithField("gateway_status", order.RawStatus).Info("gateway order closed without payment")
		res.Outcome = OutcomeOrderClosed
	}
	return res
}

func (e *Engine) settle(ctx context.Context, log logrus.FieldLogger, req ReconcileRequest, res CheckResult, p *billing.Payment, order *billing.ExternalOrder) CheckResult {
	expected := e.currency.ToMinor(p.Amount)
	currencyMatches := order.Currency == "" || strings.EqualFold(order.Currency, p.Currency)

	if order.AmountMinor != expected || !currencyMatches {
		res.Outcome = OutcomeDiscrepancy
		res.ExpectedMinor = expected
		res.ReportedMinor = order.AmountMinor

		log = log.WithFields(logrus.Fields{
			"expected_minor":    expected,
			"reported_minor":    order.AmountMinor,
			"reported_currency": order.Currency,
		})
		key := fmt.Sprintf("%s|%d|%s", p.OrderID, order.AmountMinor, strings.ToUpper(order.Currency))
		if _, seen := e.reported.LoadOrStore(key, struct{}{}); seen {
			log.Debug("discrepancy already reported")
			return res
		}
		log.Warn("settled amount does not match stored payment")

		now := e.now()
		if err := e.notifier.PaymentDiscrepancy(ctx, Discrepancy{
			UserID:           p.UserID,
			OrderID:          p.OrderID,
			ExpectedMinor:    expected,
			ReportedMinor:    order.AmountMinor,
			Currency:         p.Currency,
			ReportedCurrency: order.Currency,
			Source:           req.Source,
			DetectedAt:       now,
		}); err != nil {
			log.WithError(err).Error("failed to publish discrepancy")
			e.reported.Delete(key)
		}
		return res
	}

	details := e.paymentDetails(req, order)
	now := e.now()

	applied, err := e.store.Transition(ctx, p.OrderID, billing.StatusPending, billing.StatusSuccess, details, now)
	if err != nil {
		log.WithError(err).Error("failed to record payment success")
		res.Outcome = OutcomeStoreUnavailable
		return res
	}

	if !applied {
		// Another reconciliation won the transition; report what it stored.
		current, err := e.store.FindByOrderID(ctx, p.OrderID)
		switch {
		case err == nil && current.IsSettled():
			return e.alreadyConfirmed(res, current)
		case errors.Is(err, billing.ErrPaymentNotFound):
			res.Outcome = OutcomeUnknownOrder
			return res
		default:
			log.WithError(err).Error("payment transition was not applied")
			res.Outcome = OutcomeStoreUnavailable
			return res
		}
	}

	p.Status = billing.StatusSuccess
	p.PaymentDetails = details
	p.UpdatedAt = now

	settled := e.currency.FromMinor(order.AmountMinor)
	if err := e.notifier.PaymentConfirmed(ctx, Confirmation{
		UserID:        p.UserID,
		OrderID:       p.OrderID,
		Amount:        p.Amount,
		SettledAmount: settled,
		Currency:      p.Currency,
		Source:        req.Source,
		ConfirmedAt:   now,
	}); err != nil {
		log.WithError(err).Error("failed to publish confirmation")
	}

	log.WithField("settled_amount", settled.String()).Info("payment confirmed")
	res.Outcome = OutcomeConfirmed
	res.Payment = p
	res.SettledAmount = settled
	return res
}

func (e *Engine) alreadyConfirmed(res CheckResult, p *billing.Payment) CheckResult {
	res.Outcome = OutcomeAlreadyConfirmed
	res.Payment = p
	res.SettledAmount = p.Amount
	if minor, ok := p.PaymentDetails["amount_minor"].(float64); ok {
		res.SettledAmount = e.currency.FromMinor(int64(minor))
	} else if minor, ok := p.PaymentDetails["amount_minor"].(int64); ok {
		res.SettledAmount = e.currency.FromMinor(minor)
	}
	return res
}

func (e *Engine) paymentDetails(req ReconcileRequest, order *billing.ExternalOrder) map[string]any {
	details := map[string]any{
		"gateway_status": order.RawStatus,
		"amount_minor":   order.AmountMinor,
		"currency":       order.Currency,
		"source":         string(req.Source),
	}
	if len(order.Raw) > 0 {
		details["gateway"] = order.Raw
	}
	for k, v := range req.Details {
		details[k] = v
	}
	return details
}

// Lookup returns the stored payment for an order, optionally restricted to
// one user.
func (e *Engine) Lookup(ctx context.Context, orderID, userID string) (*billing.Payment, error) {
	p, err := e.store.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if userID != "" && p.UserID != userID {
		return nil, billing.ErrPaymentNotFound
	}
	return p, nil
}

// History returns the user's most recent payments, newest first. The limit
// is clamped to the configured history size.
func (e *Engine) History(ctx context.Context, userID string, limit int) ([]billing.Payment, error) {
	if limit <= 0 || limit > e.historyLimit {
		limit = e.historyLimit
	}
	payments, err := e.store.ListRecent(ctx, userID, limit)
	if err != nil {
		e.log.WithError(err).WithField("user_id", userID).Error("failed to load payment history")
		return nil, err
	}
	return payments, nil
}

// Format renders an amount in the engine's currency.
func (e *Engine) Format(amount decimal.Decimal) string {
	return e.currency.Format(amount)
}
