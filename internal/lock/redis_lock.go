package lock

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"ticketd/internal/apperrors"
	"ticketd/internal/breaker"
)

// lockValue is the stored token. Release is a plain delete by key, so the
// value carries no ownership information.
const lockValue = "locked"

// RedisLock implements Locker on a single Redis backend using
// "SET key value EX ttl NX" and DEL, with every call routed through a
// circuit breaker scoped to that connection.
type RedisLock struct {
	client  redis.Cmdable
	breaker *breaker.CircuitBreaker
}

func NewRedisLock(client redis.Cmdable, cb *breaker.CircuitBreaker) *RedisLock {
	return &RedisLock{client: client, breaker: cb}
}

func (l *RedisLock) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	var acquired bool
	err := l.breaker.Execute(ctx, func(ctx context.Context) error {
		ok, err := l.client.SetNX(ctx, key, lockValue, ttl).Result()
		if err != nil {
			return err
		}
		acquired = ok
		return nil
	})
	if err != nil {
		if errors.Is(err, breaker.ErrOpen) {
			return false, apperrors.Wrap(apperrors.KindUnavailable, "lock backend circuit breaker is open", err)
		}
		return false, apperrors.Wrap(apperrors.KindUnavailable, "lock backend unavailable", err)
	}
	return acquired, nil
}

func (l *RedisLock) Release(ctx context.Context, key string) error {
	err := l.breaker.Execute(ctx, func(ctx context.Context) error {
		return l.client.Del(ctx, key).Err()
	})
	if err != nil {
		// The TTL is the safety net here; log and move on.
		slog.Error("failed to release lock", "key", key, "error", err)
		return apperrors.Wrap(apperrors.KindUnavailable, "lock release failed", err)
	}
	return nil
}
