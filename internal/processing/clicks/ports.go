package clicks

import (
	"context"
	"errors"
	"time"

	"github.com/IgorGrieder/linkedge/internal/events"
)

var (
	ErrLeaseHeld   = errors.New("aggregation lease held by another run")
	ErrLeaseLost   = errors.New("aggregation lease expired or taken over")
	ErrUnknownLink = errors.New("click counter target does not exist")
)

// ClickLog is the append log between the redirect path and the aggregator.
// DrainUpTo is destructive: returned entries will not be read again.
type ClickLog interface {
	Append(ctx context.Context, event events.ClickEvent) error
	DrainUpTo(ctx context.Context, n int) ([]events.ClickEvent, error)
	Inspect(ctx context.Context) (LogPosition, error)
}

// CounterStore applies one link's coalesced delta atomically on the store.
type CounterStore interface {
	IncrementClicks(ctx context.Context, linkID string, delta int64, lastClickedAt time.Time) error
}

// Lease guards a single aggregation run. Acquire returns ErrLeaseHeld when
// another holder owns it.
type Lease interface {
	Acquire(ctx context.Context) (LeaseHold, error)
}

// LeaseHold is one acquisition. Extend pushes expiry out by a full TTL and
// returns ErrLeaseLost when the hold is no longer ours.
type LeaseHold interface {
	Extend(ctx context.Context) error
	Release(ctx context.Context) error
}

// Deduper reports whether key was not seen within window, and marks it.
type Deduper interface {
	FirstSeen(ctx context.Context, key string, window time.Duration) (bool, error)
}

// RawClickSink receives drained events before coalescing.
type RawClickSink interface {
	WriteClicks(ctx context.Context, batch []events.ClickEvent) error
}
