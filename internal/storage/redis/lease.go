package redis

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/IgorGrieder/linkedge/internal/processing/clicks"
	goredis "github.com/redis/go-redis/v9"
)

var releaseScript = goredis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

var extendScript = goredis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("pexpire", KEYS[1], ARGV[2])
	else
		return 0
	end
`)

// Lease is a SET NX PX lock around one aggregation run. Each acquisition
// gets a fresh token so only the holder can extend or release it.
type Lease struct {
	client *goredis.Client
	key    string
	owner  string
	ttl    time.Duration
}

func NewLease(client *goredis.Client, key, owner string, ttl time.Duration) *Lease {
	return &Lease{
		client: client,
		key:    fmt.Sprintf("lock:%s", key),
		owner:  owner,
		ttl:    ttl,
	}
}

func (l *Lease) Acquire(ctx context.Context) (clicks.LeaseHold, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	token := l.owner + ":" + hex.EncodeToString(b)

	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lease %s: %w", l.key, err)
	}
	if !ok {
		return nil, clicks.ErrLeaseHeld
	}

	return &leaseHold{client: l.client, key: l.key, token: token, ttl: l.ttl}, nil
}

type leaseHold struct {
	client *goredis.Client
	key    string
	token  string
	ttl    time.Duration
}

func (h *leaseHold) Extend(ctx context.Context) error {
	n, err := extendScript.Run(ctx, h.client, []string{h.key}, h.token, h.ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("failed to extend lease %s: %w", h.key, err)
	}
	if n == 0 {
		return clicks.ErrLeaseLost
	}
	return nil
}

func (h *leaseHold) Release(ctx context.Context) error {
	return releaseScript.Run(ctx, h.client, []string{h.key}, h.token).Err()
}
