package database

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// NewRedis creates the Redis client used by the login throttle.
func NewRedis(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
}

// Ping verifies connectivity at startup.
func Ping(ctx context.Context, client *redis.Client) error {
	return client.Ping(ctx).Err()
}
