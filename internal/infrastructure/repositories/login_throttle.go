package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/commercekit/authsvc/domain"
)

// LoginThrottleImpl implements domain.LoginThrottle using a Redis counter
// with a sliding TTL window. It sits in front of the persistent lockout as a
// cheap first line against credential-stuffing bursts.
type LoginThrottleImpl struct {
	client *redis.Client
	prefix string
	window time.Duration
	limit  int
}

// NewLoginThrottle creates a new Redis-backed login throttle.
func NewLoginThrottle(client *redis.Client, window time.Duration, limit int) domain.LoginThrottle {
	return &LoginThrottleImpl{
		client: client,
		prefix: "throttle:login:",
		window: window,
		limit:  limit,
	}
}

// Allow implements domain.LoginThrottle. The counter is incremented
// atomically; the window TTL is set on first use. Errors propagate so the
// caller can decide to degrade open.
func (t *LoginThrottleImpl) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := t.prefix + key

	count, err := t.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, fmt.Errorf("throttle increment: %w", err)
	}
	if count == 1 {
		if err := t.client.Expire(ctx, redisKey, t.window).Err(); err != nil {
			return false, fmt.Errorf("throttle expire: %w", err)
		}
	}
	return count <= int64(t.limit), nil
}

// Reset implements domain.LoginThrottle; called after a successful login.
func (t *LoginThrottleImpl) Reset(ctx context.Context, key string) error {
	if err := t.client.Del(ctx, t.prefix+key).Err(); err != nil {
		return fmt.Errorf("throttle reset: %w", err)
	}
	return nil
}
