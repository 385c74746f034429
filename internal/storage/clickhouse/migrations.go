package clickhouse

import (
	"database/sql"
	"embed"
	"errors"

	"github.com/IgorGrieder/linkedge/internal/infrastructure/logger"
	"github.com/golang-migrate/migrate/v4"
	clickmigrations "github.com/golang-migrate/migrate/v4/database/clickhouse"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

func Migrate(db *sql.DB) error {
	d, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return err
	}

	driver, err := clickmigrations.WithInstance(db, &clickmigrations.Config{})
	if err != nil {
		return err
	}

	m, err := migrate.NewWithInstance("iofs", d, "clickhouse", driver)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	logger.Info("clickhouse migrations applied")
	return nil
}
