package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/IgorGrieder/linkedge/internal/infrastructure/logger"
	"go.uber.org/zap"
)

type ClickHouseOptions struct {
	Addr     string
	User     string
	Password string
	Database string
}

// ConnectClickHouse opens a database/sql handle over the native protocol.
func ConnectClickHouse(ctx context.Context, opts ClickHouseOptions) (*sql.DB, error) {
	conn := clickhouse.OpenDB(&clickhouse.Options{
		Addr: []string{opts.Addr},
		Auth: clickhouse.Auth{
			Database: opts.Database,
			Username: opts.User,
			Password: opts.Password,
		},
		DialTimeout: 5 * time.Second,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	conn.SetMaxOpenConns(5)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("unable to ping clickhouse: %w", err)
	}

	logger.Info("clickhouse connected", zap.String("addr", opts.Addr), zap.String("database", opts.Database))
	return conn, nil
}
