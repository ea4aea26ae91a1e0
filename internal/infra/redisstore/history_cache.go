package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"payment-bot/internal/domain/billing"
)

// CachedStore wraps a billing.Store and caches ListRecent results in a hash
// "payments:<user>" with one field per limit. Any write that touches a user's
// payments drops the whole hash and bumps "payments:<user>:generation"; a
// read only fills the cache if no write happened while it queried the store.
// Cache failures fall through to the store.
type CachedStore struct {
	billing.Store
	rdb *redis.Client
	ttl time.Duration
	log logrus.FieldLogger
}

func NewCachedStore(store billing.Store, rdb *redis.Client, ttl time.Duration, log logrus.FieldLogger) *CachedStore {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &CachedStore{Store: store, rdb: rdb, ttl: ttl, log: log}
}

var errStaleFill = errors.New("history generation changed")

func historyKey(userID string) string {
	return fmt.Sprintf("payments:%s", userID)
}

// generationKey counts writes to a user's payments. It has no TTL.
func generationKey(userID string) string {
	return fmt.Sprintf("payments:%s:generation", userID)
}

func (s *CachedStore) Create(ctx context.Context, p *billing.Payment) error {
	if err := s.Store.Create(ctx, p); err != nil {
		return err
	}
	s.invalidate(ctx, p.UserID)
	return nil
}

func (s *CachedStore) Transition(ctx context.Context, orderID string, from, to billing.Status, details map[string]any, at time.Time) (bool, error) {
	applied, err := s.Store.Transition(ctx, orderID, from, to, details, at)
	if err != nil || !applied {
		return applied, err
	}

	p, err := s.Store.FindByOrderID(ctx, orderID)
	if err != nil {
		s.log.WithError(err).WithField("order_id", orderID).Warn("history cache not invalidated")
		return applied, nil
	}
	s.invalidate(ctx, p.UserID)
	return applied, nil
}

func (s *CachedStore) ListRecent(ctx context.Context, userID string, limit int) ([]billing.Payment, error) {
	key := historyKey(userID)
	field := strconv.Itoa(limit)
	log := s.log.WithField("user_id", userID)

	cached, err := s.rdb.HGet(ctx, key, field).Result()
	switch {
	case err == nil:
		var list []billing.Payment
		if jsonErr := json.Unmarshal([]byte(cached), &list); jsonErr == nil {
			return list, nil
		}
	case !errors.Is(err, redis.Nil):
		log.WithError(err).Warn("history cache read failed")
	}

	// The generation is read before the store so a write that lands in
	// between makes the fill below a no-op.
	generation, genErr := s.rdb.Get(ctx, generationKey(userID)).Int64()
	if genErr != nil && !errors.Is(genErr, redis.Nil) {
		log.WithError(genErr).Warn("history cache generation read failed")
	}

	list, err := s.Store.ListRecent(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	if genErr == nil || errors.Is(genErr, redis.Nil) {
		s.fill(ctx, userID, field, generation, list)
	}
	return list, nil
}

// fill caches list only while the user's generation is still the one read
// before the store query.
func (s *CachedStore) fill(ctx context.Context, userID, field string, generation int64, list []billing.Payment) {
	js, err := json.Marshal(list)
	if err != nil {
		return
	}

	key := historyKey(userID)
	genKey := generationKey(userID)
	err = s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != generation {
			return errStaleFill
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, field, js)
			pipe.Expire(ctx, key, s.ttl)
			return nil
		})
		return err
	}, genKey)

	log := s.log.WithField("user_id", userID)
	switch {
	case err == nil:
	case errors.Is(err, errStaleFill), errors.Is(err, redis.TxFailedErr):
		log.Debug("history changed while loading, not cached")
	default:
		log.WithError(err).Warn("history cache write failed")
	}
}

func (s *CachedStore) invalidate(ctx context.Context, userID string) {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, generationKey(userID))
		pipe.Del(ctx, historyKey(userID))
		return nil
	})
	if err != nil {
		s.log.WithError(err).WithField("user_id", userID).Warn("history cache invalidation failed")
	}
}

var _ billing.Store = (*CachedStore)(nil)
