package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/IgorGrieder/linkedge/internal/config"
	"github.com/IgorGrieder/linkedge/internal/infrastructure/db"
	"github.com/IgorGrieder/linkedge/internal/infrastructure/logger"
	clickhouseStorage "github.com/IgorGrieder/linkedge/internal/storage/clickhouse"
	postgresStorage "github.com/IgorGrieder/linkedge/internal/storage/postgres"
	"go.uber.org/zap"
)

func main() {
	withClickHouse := flag.Bool("clickhouse", false, "also migrate the ClickHouse click archive")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.App.Env, cfg.App.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if cfg.Storage.Backend == config.StorageBackendPostgres {
		if err := postgresStorage.Migrate(cfg.Postgres.DSN); err != nil {
			logger.Fatal("postgres migration failed", zap.Error(err))
		}
		logger.Info("postgres migrations applied")
	} else {
		logger.Info("skipping postgres migrations", zap.String("storage_backend", cfg.Storage.Backend))
	}

	if *withClickHouse || cfg.ClickHouse.Enabled {
		conn, err := db.ConnectClickHouse(context.Background(), db.ClickHouseOptions{
			Addr:     cfg.ClickHouse.Addr,
			User:     cfg.ClickHouse.User,
			Password: cfg.ClickHouse.Password,
			Database: cfg.ClickHouse.Database,
		})
		if err != nil {
			logger.Fatal("failed to connect to clickhouse", zap.Error(err))
		}
		defer conn.Close()

		if err := clickhouseStorage.Migrate(conn); err != nil {
			logger.Fatal("clickhouse migration failed", zap.Error(err))
		}
	}
}
