package payments

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Confirmation is published once per order, by the reconciliation that
// performed the PENDING -> SUCCESS transition.
type Confirmation struct {
	UserID        string          `json:"user_id"`
	OrderID       string          `json:"order_id"`
	Amount        decimal.Decimal `json:"amount"`
	SettledAmount decimal.Decimal `json:"settled_amount"`
	Currency      string          `json:"currency"`
	Source        Source          `json:"source"`
	ConfirmedAt   time.Time       `json:"confirmed_at"`
}

// Discrepancy describes a paid order whose settled amount or currency does
// not match the stored payment. The payment is left PENDING for review.
type Discrepancy struct {
	UserID           string    `json:"user_id"`
	OrderID          string    `json:"order_id"`
	ExpectedMinor    int64     `json:"expected_minor"`
	ReportedMinor    int64     `json:"reported_minor"`
	Currency         string    `json:"currency"`
	ReportedCurrency string    `json:"reported_currency"`
	Source           Source    `json:"source"`
	DetectedAt       time.Time `json:"detected_at"`
}

type Notifier interface {
	PaymentConfirmed(ctx context.Context, c Confirmation) error
	PaymentDiscrepancy(ctx context.Context, d Discrepancy) error
}

// LogNotifier writes notifications to the log. Used when no broker is configured.
type LogNotifier struct {
	Log logrus.FieldLogger
}

func (n *LogNotifier) PaymentConfirmed(_ context.Context, c Confirmation) error {
	n.Log.WithFields(logrus.Fields{
		"user_id":        c.UserID,
		"order_id":       c.OrderID,
		"settled_amount": c.SettledAmount.String(),
		"currency":       c.Currency,
		"source":         c.Source,
	}).Info("payment confirmed")
	return nil
}

func (n *LogNotifier) PaymentDiscrepancy(_ context.Context, d Discrepancy) error {
	n.Log.WithFields(logrus.Fields{
		"user_id":           d.UserID,
		"order_id":          d.OrderID,
		"expected_minor":    d.ExpectedMinor,
		"reported_minor":    d.ReportedMinor,
		"currency":          d.Currency,
		"reported_currency": d.ReportedCurrency,
		"source":            d.Source,
	}).Warn("payment needs manual review")
	return nil
}
