package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const failureKeyPrefix = "login:fail:"

// Redis is a shared keyed-counter limiter for multi-instance deployments.
type Redis struct {
	rdb    *redis.Client
	max    int
	window time.Duration
}

// NewRedis builds a limiter backed by a shared Redis counter per origin.
func NewRedis(rdb *redis.Client, max int, window time.Duration) *Redis {
	return &Redis{rdb: rdb, max: max, window: window}
}

// IsBlocked reports whether the origin's counter reached the limit. The
// window is enforced by key expiry.
func (r *Redis) IsBlocked(ctx context.Context, origin string) (bool, error) {
	count, err := r.rdb.Get(ctx, failureKeyPrefix+origin).Int()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("rate limit lookup: %w", err)
	}
	return count >= r.max, nil
}

// RecordFailure increments the origin's counter, starting the cool-down
// window on the first failure.
func (r *Redis) RecordFailure(ctx context.Context, origin string) error {
	key := failureKeyPrefix + origin
	count, err := r.rdb.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("rate limit incr: %w", err)
	}
	if count == 1 {
		if err := r.rdb.Expire(ctx, key, r.window).Err(); err != nil {
			return fmt.Errorf("rate limit expire: %w", err)
		}
	}
	return nil
}
