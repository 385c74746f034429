package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// FixedWindowLimiter counts hits per key per fixed window.
type FixedWindowLimiter struct {
	client goredis.Cmdable
	prefix string
	window time.Duration
	now    func() time.Time
}

func NewFixedWindowLimiter(client goredis.Cmdable, prefix string, window time.Duration) *FixedWindowLimiter {
	if prefix == "" {
		prefix = "rate"
	}
	if window < time.Second {
		window = time.Minute
	}
	return &FixedWindowLimiter{
		client: client,
		prefix: prefix,
		window: window,
		now:    time.Now,
	}
}

// Incr increments the counter for (key, current window) and returns the current count.
func (l *FixedWindowLimiter) Incr(ctx context.Context, key string) (int64, error) {
	if key == "" {
		key = "unknown"
	}

	windowSeconds := int64(l.window.Seconds())
	bucket := l.now().UTC().Unix() / windowSeconds
	redisKey := fmt.Sprintf("%s:%s:%d", l.prefix, key, bucket)

	var incr *goredis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		incr = p.Incr(ctx, redisKey)
		// The bucket is part of the key; the TTL only reclaims memory.
		p.Expire(ctx, redisKey, 2*l.window)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return incr.Val(), nil
}
