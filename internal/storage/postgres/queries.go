package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the subset of *pgxpool.Pool the repositories use.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const findLinkByDomainKey = `
SELECT id, domain, key, url, ios, android, geo, archived, expires_at, expired_url,
       password, rewrite, project_id, geo_targeting
FROM links
WHERE domain = $1 AND key = $2 AND deleted_at IS NULL
`

const incrementClicks = `
UPDATE links
SET clicks = clicks + $2,
    last_clicked = GREATEST(last_clicked, $3)
WHERE id = $1
`
