package redisad

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter is a fixed-window counter shared by every API replica.
type RateLimiter struct {
	c      *redis.Client
	prefix string
	limit  int
	window time.Duration
	now    func() time.Time
}

func NewRateLimiter(c *redis.Client, prefix string, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{c: c, prefix: prefix, limit: limit, window: window, now: time.Now}
}

// Allow counts the request against key's current window.
func (l *RateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	slot := l.now().UnixNano() / int64(l.window)
	k := l.prefix + key + ":" + strconv.FormatInt(slot, 10)

	pipe := l.c.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.Expire(ctx, k, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return incr.Val() <= int64(l.limit), nil
}
