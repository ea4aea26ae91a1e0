package billing

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusPending Status = "PENDING"
	StatusSuccess Status = "SUCCESS"
)

// Payment is one payment intent, keyed by the gateway's order id.
type Payment struct {
	ID             string            `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID         string            `gorm:"not null;index:idx_payments_user_created,priority:1" json:"user_id"`
	OrderID        string            `gorm:"not null;uniqueIndex:idx_payments_order_id" json:"order_id"`
	Amount         decimal.Decimal   `gorm:"type:numeric(14,4);not null" json:"amount"`
	Currency       string            `gorm:"type:varchar(3);not null" json:"currency"`
	Status         Status            `gorm:"type:varchar(16);not null;default:'PENDING'" json:"status"`
	PaymentLink    string            `json:"payment_link"`
	PaymentDetails datatypes.JSONMap `json:"payment_details,omitempty"`
	CreatedAt      time.Time         `gorm:"index:idx_payments_user_created,priority:2,sort:desc" json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

func (p *Payment) IsSettled() bool {
	return p != nil && p.Status == StatusSuccess
}
