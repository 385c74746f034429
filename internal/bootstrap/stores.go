// Package bootstrap assembles the backends shared by the edge server and the
// aggregator from configuration.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/IgorGrieder/linkedge/internal/config"
	"github.com/IgorGrieder/linkedge/internal/infrastructure/db"
	"github.com/IgorGrieder/linkedge/internal/infrastructure/logger"
	"github.com/IgorGrieder/linkedge/internal/processing/clicks"
	"github.com/IgorGrieder/linkedge/internal/processing/redirect"
	kafkaStorage "github.com/IgorGrieder/linkedge/internal/storage/kafka"
	mongoStorage "github.com/IgorGrieder/linkedge/internal/storage/mongo"
	postgresStorage "github.com/IgorGrieder/linkedge/internal/storage/postgres"
	redisStorage "github.com/IgorGrieder/linkedge/internal/storage/redis"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Stores is the persistent link store selected by STORAGE_BACKEND.
type Stores struct {
	Links    redirect.LinkStore
	Counters clicks.CounterStore
	Check    func(ctx context.Context) error
	Close    func()
}

func OpenStores(ctx context.Context, cfg *config.Config) (*Stores, error) {
	switch cfg.Storage.Backend {
	case config.StorageBackendMongo:
		return openMongo(ctx, cfg)
	default:
		return openPostgres(ctx, cfg)
	}
}

func openPostgres(ctx context.Context, cfg *config.Config) (*Stores, error) {
	pgConn, err := db.ConnectPostgres(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	linkRepo, err := postgresStorage.NewLinksRepository(pgConn)
	if err != nil {
		pgConn.Close()
		return nil, fmt.Errorf("init postgres links repository: %w", err)
	}
	counterRepo, err := postgresStorage.NewCountersRepository(pgConn)
	if err != nil {
		pgConn.Close()
		return nil, fmt.Errorf("init postgres counters repository: %w", err)
	}

	logger.Info("storage backend selected", zap.String("backend", config.StorageBackendPostgres))
	return &Stores{
		Links:    linkRepo,
		Counters: counterRepo,
		Check:    func(ctx context.Context) error { return pgConn.Pool.Ping(ctx) },
		Close:    pgConn.Close,
	}, nil
}

func openMongo(ctx context.Context, cfg *config.Config) (*Stores, error) {
	mongoConn, err := db.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Database)
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}

	repo, err := mongoStorage.NewLinksRepository(mongoConn)
	if err != nil {
		_ = mongoConn.Disconnect()
		return nil, fmt.Errorf("init mongodb links repository: %w", err)
	}

	logger.Info("storage backend selected", zap.String("backend", config.StorageBackendMongo))
	return &Stores{
		Links:    repo,
		Counters: repo,
		Check:    func(ctx context.Context) error { return mongoConn.Client.Ping(ctx, nil) },
		Close:    func() { _ = mongoConn.Disconnect() },
	}, nil
}

func OpenRedis(ctx context.Context, cfg *config.Config) (*goredis.Client, error) {
	client, err := redisStorage.New(ctx, redisStorage.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	logger.Info("redis connected", zap.String("addr", cfg.Redis.Addr))
	return client, nil
}

// OpenClickLog returns the append log selected by CLICK_LOG_BACKEND and a
// closer for any resources it owns.
func OpenClickLog(cfg *config.Config, rdb *goredis.Client) (clicks.ClickLog, func()) {
	if cfg.Clicks.LogBackend == config.ClickLogBackendKafka {
		log := kafkaStorage.NewClickLog(kafkaStorage.Options{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.Topic,
			GroupID:      cfg.Kafka.GroupID,
			MaxWait:      cfg.Kafka.MaxWait,
			BatchTimeout: cfg.Kafka.BatchTimeout,
		})
		logger.Info("click log backend selected",
			zap.String("backend", config.ClickLogBackendKafka),
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.Topic),
		)
		return log, func() {
			if err := log.Close(); err != nil {
				logger.Warn("failed to close kafka click log", zap.Error(err))
			}
		}
	}

	logger.Info("click log backend selected",
		zap.String("backend", config.ClickLogBackendRedis),
		zap.String("key", cfg.Clicks.LogKey),
	)
	return redisStorage.NewClickLog(rdb, cfg.Clicks.LogKey), func() {}
}
