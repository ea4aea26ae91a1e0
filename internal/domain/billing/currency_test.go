package billing_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payment-bot/internal/domain/billing"
)

func TestCurrency_MinorUnitRoundTrip(t *testing.T) {
	inr, err := billing.NewCurrency("inr", 2)
	require.NoError(t, err)

	assert.Equal(t, "INR", inr.Code)
	assert.Equal(t, int64(10000), inr.ToMinor(decimal.RequireFromString("100.00")))
	assert.Equal(t, "100.00", inr.Format(inr.FromMinor(10000)))
	assert.True(t, inr.Multiplier().Equal(decimal.NewFromInt(100)))
}

func TestCurrency_ToMinorTruncatesTowardZero(t *testing.T) {
	inr, err := billing.NewCurrency("INR", 2)
	require.NoError(t, err)

	assert.Equal(t, int64(1099), inr.ToMinor(decimal.RequireFromString("10.999")))
	assert.Equal(t, int64(1), inr.ToMinor(decimal.RequireFromString("0.019")))
	assert.Equal(t, int64(-1099), inr.ToMinor(decimal.RequireFromString("-10.999")))
}

func TestCurrency_ZeroExponent(t *testing.T) {
	jpy, err := billing.NewCurrency("JPY", 0)
	require.NoError(t, err)

	assert.Equal(t, int64(500), jpy.ToMinor(decimal.RequireFromString("500.7")))
	assert.Equal(t, "500", jpy.Format(jpy.FromMinor(500)))
}

func TestNewCurrency_Rejects(t *testing.T) {
	_, err := billing.NewCurrency("RUPEE", 2)
	assert.Error(t, err)

	_, err = billing.NewCurrency("INR", -1)
	assert.Error(t, err)
}

func TestCurrency_CheckPrecision(t *testing.T) {
	inr, err := billing.NewCurrency("INR", 2)
	require.NoError(t, err)

	assert.NoError(t, inr.CheckPrecision(decimal.RequireFromString("1.01"), "1.01"))
	assert.NoError(t, inr.CheckPrecision(decimal.RequireFromString("1.0100"), "1.0100"))
	assert.NoError(t, inr.CheckPrecision(decimal.NewFromInt(7), "7"))

	err = inr.CheckPrecision(decimal.RequireFromString("1.00999"), " 1.00999 ")
	require.Error(t, err)
	assert.ErrorIs(t, err, billing.ErrInvalidAmount)
	var amountErr *billing.AmountError
	require.ErrorAs(t, err, &amountErr)
	assert.Equal(t, billing.InvalidAmount, amountErr.Kind)
	assert.Equal(t, "1.00999", amountErr.Input)
	assert.Equal(t, `"1.00999" is not a valid amount: INR allows at most 2 decimal places`, err.Error())

	jpy, err := billing.NewCurrency("JPY", 0)
	require.NoError(t, err)
	assert.Error(t, jpy.CheckPrecision(decimal.RequireFromString("100.5"), "100.5"))
}
