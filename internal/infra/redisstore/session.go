// Package redisstore holds the redis-backed pieces: conversation sessions
// with a TTL and a read-through cache for payment history.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"payment-bot/internal/domain/session"
)

const sessionKeyPrefix = "session:"

type SessionBackend struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewSessionBackend stores states under "session:<user>". A zero ttl keeps
// keys until they are deleted.
func NewSessionBackend(rdb *redis.Client, ttl time.Duration) *SessionBackend {
	return &SessionBackend{rdb: rdb, ttl: ttl}
}

func (b *SessionBackend) Load(ctx context.Context, userID string) (session.State, error) {
	v, err := b.rdb.Get(ctx, sessionKeyPrefix+userID).Result()
	if errors.Is(err, redis.Nil) {
		return session.StateNone, session.ErrNoState
	}
	if err != nil {
		return session.StateNone, fmt.Errorf("redis get session: %w", err)
	}
	return session.State(v), nil
}

func (b *SessionBackend) Save(ctx context.Context, userID string, state session.State) error {
	if err := b.rdb.Set(ctx, sessionKeyPrefix+userID, string(state), b.ttl).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}
	return nil
}

func (b *SessionBackend) Delete(ctx context.Context, userID string) error {
	if err := b.rdb.Del(ctx, sessionKeyPrefix+userID).Err(); err != nil {
		return fmt.Errorf("redis del session: %w", err)
	}
	return nil
}

var _ session.Backend = (*SessionBackend)(nil)
