package redis

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Deduper marks click keys with SET NX EX so repeat clicks inside the window
// are recognised.
type Deduper struct {
	client goredis.Cmdable
	prefix string
}

func NewDeduper(client goredis.Cmdable) *Deduper {
	return &Deduper{client: client, prefix: "clicks:dedupe:"}
}

func (d *Deduper) FirstSeen(ctx context.Context, key string, window time.Duration) (bool, error) {
	return d.client.SetNX(ctx, d.prefix+key, 1, window).Result()
}
