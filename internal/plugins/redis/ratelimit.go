package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRateLimiter is a fixed-window counter: one key per (caller key,
// window), INCR + EXPIRE on first hit.
type RedisRateLimiter struct {
	rdb *redis.Client
}

func NewRedisRateLimiter(rdb *redis.Client) *RedisRateLimiter {
	return &RedisRateLimiter{rdb: rdb}
}

func (l *RedisRateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	bucket := fmt.Sprintf("%s:%d", key, time.Now().Unix()/int64(window.Seconds()))
	count, err := l.rdb.Incr(ctx, bucket).Result()
	if err != nil {
		return true, err
	}
	if count == 1 {
		l.rdb.Expire(ctx, bucket, window)
	}
	return count <= int64(limit), nil
}
