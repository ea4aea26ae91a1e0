package billing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Currency describes how display amounts map onto the gateway's integer
// minor units. Exponent 2 means a multiplier of 100 (paise per rupee).
type Currency struct {
	Code     string
	Exponent int32
}

func NewCurrency(code string, exponent int32) (Currency, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 3 {
		return Currency{}, fmt.Errorf("invalid currency code %q", code)
	}
	if exponent < 0 || exponent > 4 {
		return Currency{}, fmt.Errorf("invalid currency exponent %d", exponent)
	}
	return Currency{Code: code, Exponent: exponent}, nil
}

func (c Currency) Multiplier() decimal.Decimal {
	return decimal.New(1, c.Exponent)
}

// ToMinor converts a display amount to minor units, truncating toward zero.
func (c Currency) ToMinor(amount decimal.Decimal) int64 {
	return amount.Shift(c.Exponent).Truncate(0).IntPart()
}

func (c Currency) FromMinor(minor int64) decimal.Decimal {
	return decimal.New(minor, -c.Exponent)
}

// CheckPrecision rejects amounts finer than the currency's minor unit, so
// the gateway order and the stored payment always agree on the amount.
func (c Currency) CheckPrecision(amount decimal.Decimal, input string) error {
	if amount.Equal(amount.Truncate(c.Exponent)) {
		return nil
	}
	return &AmountError{
		Kind:   InvalidAmount,
		Input:  strings.TrimSpace(input),
		Reason: fmt.Sprintf("%s allows at most %d decimal places", c.Code, c.Exponent),
	}
}

// Format renders an amount with the currency's fixed number of decimals.
func (c Currency) Format(amount decimal.Decimal) string {
	return amount.StringFixed(c.Exponent)
}
