package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/IgorGrieder/linkedge/internal/infrastructure/logger"
	"github.com/IgorGrieder/linkedge/internal/processing/redirect"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// LinkCache stores JSON link records under link:{domain}:{key} without a TTL.
// Entries are invalidated by whoever mutates links, never here.
type LinkCache struct {
	client goredis.Cmdable
	prefix string
}

func NewLinkCache(client goredis.Cmdable) *LinkCache {
	return &LinkCache{client: client, prefix: "link"}
}

func (c *LinkCache) key(domain, key string) string {
	return fmt.Sprintf("%s:%s:%s", c.prefix, domain, key)
}

func (c *LinkCache) Get(ctx context.Context, domain, key string) (*redirect.LinkRecord, error) {
	raw, err := c.client.Get(ctx, c.key(domain, key)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, redirect.ErrNotFound
		}
		return nil, err
	}

	var link redirect.LinkRecord
	if err := json.Unmarshal(raw, &link); err != nil {
		// Treat a corrupt entry as a miss so the store repopulates it.
		logger.Warn("corrupt link cache entry",
			zap.String("domain", domain),
			zap.String("key", key),
			zap.Error(err),
		)
		return nil, redirect.ErrNotFound
	}
	return &link, nil
}

func (c *LinkCache) Set(ctx context.Context, link *redirect.LinkRecord) error {
	raw, err := json.Marshal(link)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(link.Domain, link.Key), raw, 0).Err()
}
