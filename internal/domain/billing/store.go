package billing

import (
	"context"
	"fmt"
	"time"
)

// Store is the system of record for payments.
type Store interface {
	// Create inserts p if no payment exists for p.OrderID, otherwise it
	// returns ErrDuplicateOrder and leaves the existing record untouched.
	Create(ctx context.Context, p *Payment) error

	// FindByOrderID returns ErrPaymentNotFound when absent.
	FindByOrderID(ctx context.Context, orderID string) (*Payment, error)

	// Transition sets status to `to` only if the current status is `from`.
	// applied is false when the record is missing or was not in `from`.
	// Pairs rejected by CanTransition fail with ErrIllegalTransition.
	Transition(ctx context.Context, orderID string, from, to Status, details map[string]any, at time.Time) (applied bool, err error)

	// ListRecent returns at most limit payments of userID, newest first.
	ListRecent(ctx context.Context, userID string, limit int) ([]Payment, error)
}

// legalTransitions lists the only status changes a payment may go through.
var legalTransitions = map[Status]map[Status]bool{
	StatusPending: {StatusSuccess: true},
	StatusSuccess: {},
}

func CanTransition(from, to Status) bool {
	return legalTransitions[from][to]
}

// CheckTransition returns ErrIllegalTransition unless from -> to is allowed.
func CheckTransition(from, to Status) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
	}
	return nil
}
