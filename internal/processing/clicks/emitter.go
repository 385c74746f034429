package clicks

import (
	"context"
	"sync"
	"time"

	"github.com/IgorGrieder/linkedge/internal/events"
	"github.com/IgorGrieder/linkedge/internal/infrastructure/logger"
	"go.uber.org/zap"
)

type EmitterOptions struct {
	Timeout      time.Duration
	MaxInFlight  int
	DedupeWindow time.Duration
}

// Emitter appends click events off the request path. Emit never blocks on
// the log: each append runs detached under its own budget, and once
// MaxInFlight appends are pending new events are dropped.
type Emitter struct {
	log     ClickLog
	deduper Deduper
	timeout time.Duration
	window  time.Duration
	slots   chan struct{}
	wg      sync.WaitGroup
}

// NewEmitter builds an Emitter. deduper may be nil.
func NewEmitter(log ClickLog, deduper Deduper, opts EmitterOptions) *Emitter {
	if opts.Timeout <= 0 {
		opts.Timeout = 50 * time.Millisecond
	}
	if opts.MaxInFlight <= 0 {
		opts.MaxInFlight = 10_000
	}
	return &Emitter{
		log:     log,
		deduper: deduper,
		timeout: opts.Timeout,
		window:  opts.DedupeWindow,
		slots:   make(chan struct{}, opts.MaxInFlight),
	}
}

func (e *Emitter) Emit(ctx context.Context, event events.ClickEvent) {
	select {
	case e.slots <- struct{}{}:
	default:
		clicksDroppedTotal.WithLabelValues("overload").Inc()
		logger.Debug("click dropped, too many pending appends", zap.String("link_id", event.LinkID))
		return
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer func() { <-e.slots }()

		appendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.timeout)
		defer cancel()
		e.append(appendCtx, event)
	}()
}

func (e *Emitter) append(ctx context.Context, event events.ClickEvent) {
	if e.deduper != nil && e.window > 0 && event.ClientIP != "" {
		first, err := e.deduper.FirstSeen(ctx, event.ClientIP+":"+event.LinkID, e.window)
		switch {
		case err != nil:
			logger.Warn("click dedupe check failed, recording anyway",
				zap.String("link_id", event.LinkID),
				zap.Error(err),
			)
		case !first:
			clicksDroppedTotal.WithLabelValues("duplicate").Inc()
			return
		}
	}

	if err := e.log.Append(ctx, event); err != nil {
		clicksEmitFailedTotal.Inc()
		logger.Warn("click append failed",
			zap.String("link_id", event.LinkID),
			zap.String("event_id", event.EventID),
			zap.Error(err),
		)
		return
	}
	clicksEmittedTotal.Inc()
}

// Wait blocks until pending appends finish or ctx is done.
func (e *Emitter) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
