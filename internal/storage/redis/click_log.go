package redis

import (
	"context"
	"errors"
	"time"

	"github.com/IgorGrieder/linkedge/internal/events"
	"github.com/IgorGrieder/linkedge/internal/infrastructure/logger"
	"github.com/IgorGrieder/linkedge/internal/processing/clicks"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ClickLog is a Redis list used as the append log: RPUSH to append, LPOP
// with a count to drain from the head.
type ClickLog struct {
	client goredis.Cmdable
	key    string
	now    func() time.Time
}

func NewClickLog(client goredis.Cmdable, key string) *ClickLog {
	if key == "" {
		key = "clicks:events"
	}
	return &ClickLog{client: client, key: key, now: time.Now}
}

func (l *ClickLog) Append(ctx context.Context, event events.ClickEvent) error {
	raw, err := events.Encode(event)
	if err != nil {
		return err
	}
	return l.client.RPush(ctx, l.key, raw).Err()
}

// DrainUpTo pops at most n entries. Entries that fail to decode are logged and
// discarded.
func (l *ClickLog) DrainUpTo(ctx context.Context, n int) ([]events.ClickEvent, error) {
	if n <= 0 {
		return nil, nil
	}

	raws, err := l.client.LPopCount(ctx, l.key, n).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	out := make([]events.ClickEvent, 0, len(raws))
	for _, raw := range raws {
		e, err := events.Decode([]byte(raw))
		if err != nil {
			logger.Warn("discarding undecodable click event", zap.Error(err), zap.String("payload", raw))
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (l *ClickLog) Inspect(ctx context.Context) (clicks.LogPosition, error) {
	var lenCmd *goredis.IntCmd
	var headCmd *goredis.StringCmd
	_, err := l.client.Pipelined(ctx, func(p goredis.Pipeliner) error {
		lenCmd = p.LLen(ctx, l.key)
		headCmd = p.LIndex(ctx, l.key, 0)
		return nil
	})
	if err != nil && !errors.Is(err, goredis.Nil) {
		return clicks.LogPosition{}, err
	}

	pos := clicks.LogPosition{ApproxLength: lenCmd.Val()}
	if head, err := headCmd.Result(); err == nil {
		if e, err := events.Decode([]byte(head)); err == nil {
			pos.OldestEntryAge = max(l.now().Sub(e.Timestamp), 0)
		}
	}
	return pos, nil
}
