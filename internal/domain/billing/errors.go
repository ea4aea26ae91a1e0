package billing

import "errors"

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrAmountOutOfRange   = errors.New("amount out of range")
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrOrderNotFound      = errors.New("gateway order not found")
	ErrPaymentNotFound    = errors.New("payment not found")
	ErrDuplicateOrder     = errors.New("payment already exists for order")
	ErrIllegalTransition  = errors.New("illegal payment status transition")
)
