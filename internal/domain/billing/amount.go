package billing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type AmountErrorKind string

const (
	InvalidAmount AmountErrorKind = "invalid_amount"
	OutOfRange    AmountErrorKind = "out_of_range"
)

// AmountError reports why a user-entered amount was rejected. For OutOfRange
// it carries the configured bounds so callers can echo them back.
type AmountError struct {
	Kind  AmountErrorKind
	Input string
	Min   decimal.Decimal
	Max   decimal.Decimal
	// Reason explains an InvalidAmount that did parse as a number.
	Reason string
}

func (e *AmountError) Error() string {
	if e.Kind == OutOfRange {
		return fmt.Sprintf("amount %s must be between %s and %s", e.Input, e.Min, e.Max)
	}
	if e.Reason != "" {
		return fmt.Sprintf("%q is not a valid amount: %s", e.Input, e.Reason)
	}
	return fmt.Sprintf("%q is not a valid amount", e.Input)
}

func (e *AmountError) Unwrap() error {
	if e.Kind == OutOfRange {
		return ErrAmountOutOfRange
	}
	return ErrInvalidAmount
}

// AmountPolicy holds the inclusive bounds a payment amount must respect.
type AmountPolicy struct {
	Min decimal.Decimal
	Max decimal.Decimal
}

func NewAmountPolicy(min, max decimal.Decimal) (AmountPolicy, error) {
	if min.Sign() <= 0 {
		return AmountPolicy{}, fmt.Errorf("minimum amount must be positive, got %s", min)
	}
	if min.GreaterThan(max) {
		return AmountPolicy{}, fmt.Errorf("minimum amount %s exceeds maximum %s", min, max)
	}
	return AmountPolicy{Min: min, Max: max}, nil
}

// Validate parses input as a decimal and checks it against the bounds.
func (p AmountPolicy) Validate(input string) (decimal.Decimal, error) {
	text := strings.TrimSpace(input)
	amount, err := decimal.NewFromString(text)
	if text == "" || err != nil {
		return decimal.Zero, &AmountError{Kind: InvalidAmount, Input: text}
	}

	if amount.LessThan(p.Min) || amount.GreaterThan(p.Max) {
		return decimal.Zero, &AmountError{Kind: OutOfRange, Input: text, Min: p.Min, Max: p.Max}
	}
	return amount, nil
}
