package bootstrap

import (
	"context"
	"fmt"

	"github.com/IgorGrieder/linkedge/internal/config"
	"github.com/IgorGrieder/linkedge/internal/infrastructure/db"
	"github.com/IgorGrieder/linkedge/internal/infrastructure/logger"
	"github.com/IgorGrieder/linkedge/internal/processing/clicks"
	clickhouseStorage "github.com/IgorGrieder/linkedge/internal/storage/clickhouse"
	redisStorage "github.com/IgorGrieder/linkedge/internal/storage/redis"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// EdgeDrainsClickLog reports whether edge replicas mount the scheduler
// trigger. A Kafka drain joins the consumer group and keeps its partitions, so
// only the dedicated aggregator drains that backend.
func EdgeDrainsClickLog(cfg *config.Config) bool {
	return cfg.Clicks.LogBackend != config.ClickLogBackendKafka
}

// NewAggregator wires the consumer with the run lease and, when enabled, the
// ClickHouse raw sink. The returned closer releases the sink connection.
func NewAggregator(ctx context.Context, cfg *config.Config, rdb *goredis.Client, log clicks.ClickLog, counters clicks.CounterStore) (*clicks.Aggregator, func(), error) {
	lease := redisStorage.NewLease(rdb, cfg.Aggregator.LeaseKey, cfg.Aggregator.WorkerID, cfg.Aggregator.LeaseTTL)

	var sink clicks.RawClickSink
	closeSink := func() {}
	if cfg.ClickHouse.Enabled {
		conn, err := db.ConnectClickHouse(ctx, db.ClickHouseOptions{
			Addr:     cfg.ClickHouse.Addr,
			User:     cfg.ClickHouse.User,
			Password: cfg.ClickHouse.Password,
			Database: cfg.ClickHouse.Database,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("connect clickhouse: %w", err)
		}
		sink = clickhouseStorage.NewClickSink(conn)
		closeSink = func() {
			if err := conn.Close(); err != nil {
				logger.Warn("failed to close clickhouse connection", zap.Error(err))
			}
		}
	}

	agg := clicks.NewAggregator(log, counters, lease, sink, clicks.AggregatorOptions{
		DrainLimit:  cfg.Aggregator.DrainLimit,
		BatchSize:   cfg.Aggregator.BatchSize,
		Parallelism: cfg.Aggregator.Parallelism,
		ItemTimeout: cfg.Aggregator.ItemTimeout,
	})
	return agg, closeSink, nil
}
