package clickhouse

import (
	"context"
	"database/sql"
	"time"

	"github.com/IgorGrieder/linkedge/internal/events"
	"github.com/IgorGrieder/linkedge/internal/infrastructure/logger"
	"go.uber.org/zap"
)

const insertClick = `INSERT INTO clicks (event_id, link_id, domain, key, country, device, user_agent, referer, qr, count, clicked_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// ClickSink archives raw click events for analytics queries. Counters stay
// in the primary store; this table is append-only.
type ClickSink struct {
	db *sql.DB
}

func NewClickSink(db *sql.DB) *ClickSink {
	return &ClickSink{db: db}
}

func (s *ClickSink) WriteClicks(ctx context.Context, clicks []events.ClickEvent) error {
	if len(clicks) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertClick)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, c := range clicks {
		count := c.Count
		if count <= 0 {
			count = 1
		}
		_, err := stmt.ExecContext(ctx,
			c.EventID,
			c.LinkID,
			c.Domain,
			c.Key,
			orUnknown(c.Country),
			orUnknown(c.Device),
			c.UserAgent,
			c.Referer,
			boolToUInt8(c.QR),
			count,
			c.Timestamp.UTC().Truncate(time.Millisecond),
		)
		if err != nil {
			logger.Error("clickhouse insert failed", zap.Error(err), zap.String("event_id", c.EventID))
			continue
		}
	}
	return tx.Commit()
}

func orUnknown(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}

func boolToUInt8(v bool) uint8 {
	if v {
		return 1
	}
	return 0
}
