package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/IgorGrieder/linkedge/internal/infrastructure/db"
	"github.com/IgorGrieder/linkedge/internal/processing/clicks"
	"github.com/jackc/pgx/v5/pgtype"
)

// CountersRepository applies aggregated click deltas with a single atomic
// UPDATE per link, so concurrent batches never need application locks.
type CountersRepository struct {
	db DBTX
}

func NewCountersRepository(p *db.Postgres) (*CountersRepository, error) {
	if p == nil || p.Pool == nil {
		return nil, errors.New("postgres pool is nil")
	}
	return &CountersRepository{db: p.Pool}, nil
}

func (r *CountersRepository) IncrementClicks(ctx context.Context, linkID string, delta int64, lastClickedAt time.Time) error {
	tag, err := r.db.Exec(ctx, incrementClicks, linkID, delta, toTimestamptz(lastClickedAt))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("link %s: %w", linkID, clicks.ErrUnknownLink)
	}
	return nil
}

func toTimestamptz(v time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{
		Time:  v.UTC(),
		Valid: true,
	}
}
