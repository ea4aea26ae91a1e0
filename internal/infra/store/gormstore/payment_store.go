// Package gormstore persists payments in a relational database through gorm.
// Postgres in production, sqlite for local runs and tests.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"payment-bot/internal/domain/billing"
)

type PaymentStore struct {
	db *gorm.DB
}

func NewPaymentStore(db *gorm.DB) *PaymentStore {
	return &PaymentStore{db: db}
}

func (s *PaymentStore) Create(ctx context.Context, p *billing.Payment) error {
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "order_id"}}, DoNothing: true}).
		Create(p)
	if res.Error != nil {
		return fmt.Errorf("insert payment %s: %w", p.OrderID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("insert payment %s: %w", p.OrderID, billing.ErrDuplicateOrder)
	}
	return nil
}

func (s *PaymentStore) FindByOrderID(ctx context.Context, orderID string) (*billing.Payment, error) {
	var p billing.Payment
	err := s.db.WithContext(ctx).Where("order_id = ?", orderID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, billing.ErrPaymentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find payment %s: %w", orderID, err)
	}
	return &p, nil
}

// Transition updates the row only while it is still in the from state; the
// affected row count tells the caller whether it won.
func (s *PaymentStore) Transition(ctx context.Context, orderID string, from, to billing.Status, details map[string]any, at time.Time) (bool, error) {
	if err := billing.CheckTransition(from, to); err != nil {
		return false, err
	}

	updates := map[string]any{
		"status":     to,
		"updated_at": at,
	}
	if details != nil {
		updates["payment_details"] = datatypes.JSONMap(details)
	}

	res := s.db.WithContext(ctx).
		Model(&billing.Payment{}).
		Where("order_id = ? AND status = ?", orderID, from).
		Updates(updates)
	if res.Error != nil {
		return false, fmt.Errorf("transition payment %s: %w", orderID, res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (s *PaymentStore) ListRecent(ctx context.Context, userID string, limit int) ([]billing.Payment, error) {
	var list []billing.Payment
	q := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list payments for %s: %w", userID, err)
	}
	return list, nil
}

var _ billing.Store = (*PaymentStore)(nil)
