package clicks

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/IgorGrieder/linkedge/internal/events"
	"github.com/IgorGrieder/linkedge/internal/infrastructure/logger"
	"github.com/IgorGrieder/linkedge/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const maxReportedFailures = 100

type AggregatorOptions struct {
	DrainLimit  int
	BatchSize   int
	Parallelism int
	ItemTimeout time.Duration
}

// Aggregator folds drained click events into per-link counter increments.
// Draining is destructive, so a store failure after drain loses that delta:
// counters are at-most-once.
type Aggregator struct {
	log   ClickLog
	store CounterStore
	lease Lease
	sink  RawClickSink
	opts  AggregatorOptions
	now   func() time.Time
}

// NewAggregator wires a consumer. lease and sink may be nil.
func NewAggregator(log ClickLog, store CounterStore, lease Lease, sink RawClickSink, opts AggregatorOptions) *Aggregator {
	if opts.DrainLimit <= 0 {
		opts.DrainLimit = 1000
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 50
	}
	if opts.Parallelism <= 0 {
		opts.Parallelism = 10
	}
	if opts.ItemTimeout <= 0 {
		opts.ItemTimeout = 5 * time.Second
	}
	return &Aggregator{
		log:   log,
		store: store,
		lease: lease,
		sink:  sink,
		opts:  opts,
		now:   time.Now,
	}
}

func (a *Aggregator) Run(ctx context.Context) (RunSummary, error) {
	start := a.now()
	var summary RunSummary

	ctx, span := telemetry.Start(ctx, "clicks.aggregate")
	defer span.End()

	var hold LeaseHold
	if a.lease != nil {
		var err error
		hold, err = a.lease.Acquire(ctx)
		if errors.Is(err, ErrLeaseHeld) {
			summary.Skipped = true
			aggregatorRunsTotal.WithLabelValues("skipped").Inc()
			logger.Info("click aggregation skipped, lease held elsewhere")
			return summary, nil
		}
		if err != nil {
			aggregatorRunsTotal.WithLabelValues("error").Inc()
			span.RecordError(err)
			span.SetStatus(codes.Error, "acquire lease failed")
			return summary, fmt.Errorf("acquire aggregation lease: %w", err)
		}
		defer func() {
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
			defer cancel()
			if err := hold.Release(releaseCtx); err != nil {
				logger.Warn("failed to release aggregation lease", zap.Error(err))
			}
		}()
	}

	drained, err := a.log.DrainUpTo(ctx, a.opts.DrainLimit)
	if err != nil {
		aggregatorRunsTotal.WithLabelValues("error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "drain failed")
		return summary, fmt.Errorf("drain click log: %w", err)
	}
	summary.Drained = len(drained)
	aggregatorDrainedTotal.Add(float64(len(drained)))

	if len(drained) > 0 && a.sink != nil {
		if err := a.sink.WriteClicks(ctx, drained); err != nil {
			logger.Warn("raw click sink write failed",
				zap.Int("events", len(drained)),
				zap.Error(err),
			)
		}
	}

	updates := Coalesce(drained)
	summary.Updates = len(updates)

	for _, batch := range Partition(updates, a.opts.BatchSize) {
		a.extendLease(ctx, hold)
		summary.Batches++
		for _, f := range a.applyBatch(ctx, batch) {
			if f == nil {
				summary.Updated++
				continue
			}
			summary.Failed++
			if len(summary.Failures) < maxReportedFailures {
				summary.Failures = append(summary.Failures, *f)
			}
		}
	}
	aggregatorUpdatesTotal.WithLabelValues("ok").Add(float64(summary.Updated))
	aggregatorUpdatesTotal.WithLabelValues("failed").Add(float64(summary.Failed))

	if pos, err := a.log.Inspect(ctx); err != nil {
		logger.Warn("click log inspect failed", zap.Error(err))
	} else {
		summary.Position = &pos
		clickLogLength.Set(float64(pos.ApproxLength))
		clickLogOldestAge.Set(pos.OldestEntryAge.Seconds())
	}

	summary.Duration = a.now().Sub(start)
	summary.DurationMs = summary.Duration.Milliseconds()
	aggregatorRunDuration.Observe(summary.Duration.Seconds())
	aggregatorRunsTotal.WithLabelValues("ok").Inc()

	span.SetAttributes(
		attribute.Int("clicks.drained", summary.Drained),
		attribute.Int("clicks.updated", summary.Updated),
		attribute.Int("clicks.failed", summary.Failed),
	)

	if summary.Drained > 0 {
		logger.Info("click aggregation run completed",
			zap.Int("drained", summary.Drained),
			zap.Int("updates", summary.Updates),
			zap.Int("updated", summary.Updated),
			zap.Int("failed", summary.Failed),
			zap.Int("batches", summary.Batches),
			zap.Duration("duration", summary.Duration),
		)
	}
	return summary, nil
}

// applyBatch runs one batch with bounded parallelism. The result slice is
// index-aligned with batch; nil marks success.
// extendLease keeps the hold alive across long runs. The drained entries
// belong to this run either way, so a lost hold is logged and work continues.
func (a *Aggregator) extendLease(ctx context.Context, hold LeaseHold) {
	if hold == nil {
		return
	}
	extendCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := hold.Extend(extendCtx); err != nil {
		if errors.Is(err, ErrLeaseLost) {
			logger.Warn("aggregation lease lost mid-run, another run may overlap", zap.Error(err))
			return
		}
		logger.Warn("failed to extend aggregation lease", zap.Error(err))
	}
}

func (a *Aggregator) applyBatch(ctx context.Context, batch []ClickUpdate) []*FailedUpdate {
	results := make([]*FailedUpdate, len(batch))

	var g errgroup.Group
	g.SetLimit(a.opts.Parallelism)

	for i, u := range batch {
		g.Go(func() error {
			itemCtx, cancel := context.WithTimeout(ctx, a.opts.ItemTimeout)
			defer cancel()

			if err := a.store.IncrementClicks(itemCtx, u.LinkID, u.TotalCount, u.LastTimestamp); err != nil {
				logger.Error("click counter increment failed",
					zap.String("link_id", u.LinkID),
					zap.Int64("delta", u.TotalCount),
					zap.Time("last_clicked_at", u.LastTimestamp),
					zap.Error(err),
				)
				results[i] = &FailedUpdate{LinkID: u.LinkID, Delta: u.TotalCount, Error: err.Error()}
			}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// Coalesce sums counts and keeps the latest timestamp per link. The result is
// ordered by link id.
func Coalesce(drained []events.ClickEvent) []ClickUpdate {
	byLink := make(map[string]*ClickUpdate, len(drained))
	for _, e := range drained {
		if e.LinkID == "" {
			continue
		}
		count := e.Count
		if count <= 0 {
			count = 1
		}

		u, ok := byLink[e.LinkID]
		if !ok {
			byLink[e.LinkID] = &ClickUpdate{LinkID: e.LinkID, TotalCount: count, LastTimestamp: e.Timestamp}
			continue
		}
		u.TotalCount += count
		if e.Timestamp.After(u.LastTimestamp) {
			u.LastTimestamp = e.Timestamp
		}
	}

	out := make([]ClickUpdate, 0, len(byLink))
	for _, u := range byLink {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LinkID < out[j].LinkID })
	return out
}

// Partition splits updates into consecutive batches of at most size.
func Partition(updates []ClickUpdate, size int) [][]ClickUpdate {
	if size <= 0 {
		size = len(updates)
	}
	var batches [][]ClickUpdate
	for start := 0; start < len(updates); start += size {
		end := min(start+size, len(updates))
		batches = append(batches, updates[start:end])
	}
	return batches
}
