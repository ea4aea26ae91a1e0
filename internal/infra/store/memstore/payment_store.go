// Package memstore keeps payments in process memory. It backs the
// single-process mode without a database and the engine tests.
package memstore

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"payment-bot/internal/domain/billing"
)

type entry struct {
	payment billing.Payment
	seq     uint64
}

type PaymentStore struct {
	mu       sync.RWMutex
	payments map[string]*entry
	seq      uint64
}

func NewPaymentStore() *PaymentStore {
	return &PaymentStore{payments: make(map[string]*entry)}
}

func (s *PaymentStore) Create(_ context.Context, p *billing.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.payments[p.OrderID]; exists {
		return billing.ErrDuplicateOrder
	}

	s.seq++
	s.payments[p.OrderID] = &entry{payment: clonePayment(*p), seq: s.seq}
	return nil
}

func (s *PaymentStore) FindByOrderID(_ context.Context, orderID string) (*billing.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.payments[orderID]
	if !ok {
		return nil, billing.ErrPaymentNotFound
	}
	p := clonePayment(e.payment)
	return &p, nil
}

func (s *PaymentStore) Transition(_ context.Context, orderID string, from, to billing.Status, details map[string]any, at time.Time) (bool, error) {
	if err := billing.CheckTransition(from, to); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.payments[orderID]
	if !ok || e.payment.Status != from {
		return false, nil
	}

	e.payment.Status = to
	e.payment.UpdatedAt = at
	if details != nil {
		e.payment.PaymentDetails = maps.Clone(details)
	}
	return true, nil
}

func (s *PaymentStore) ListRecent(_ context.Context, userID string, limit int) ([]billing.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*entry
	for _, e := range s.payments {
		if e.payment.UserID == userID {
			matched = append(matched, e)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.payment.CreatedAt.Equal(b.payment.CreatedAt) {
			return a.payment.CreatedAt.After(b.payment.CreatedAt)
		}
		return a.seq > b.seq
	})

	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}

	result := make([]billing.Payment, 0, len(matched))
	for _, e := range matched {
		result = append(result, clonePayment(e.payment))
	}
	return result, nil
}

func clonePayment(p billing.Payment) billing.Payment {
	p.PaymentDetails = maps.Clone(p.PaymentDetails)
	return p
}

var _ billing.Store = (*PaymentStore)(nil)
