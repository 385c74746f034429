package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/IgorGrieder/linkedge/internal/infrastructure/db"
	"github.com/IgorGrieder/linkedge/internal/processing/redirect"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

type LinksRepository struct {
	db DBTX
}

func NewLinksRepository(p *db.Postgres) (*LinksRepository, error) {
	if p == nil || p.Pool == nil {
		return nil, errors.New("postgres pool is nil")
	}
	return &LinksRepository{db: p.Pool}, nil
}

func (r *LinksRepository) FindByDomainKey(ctx context.Context, domain, key string) (*redirect.LinkRecord, error) {
	var (
		link         redirect.LinkRecord
		ios          pgtype.Text
		android      pgtype.Text
		geo          []byte
		expiresAt    pgtype.Timestamptz
		expiredURL   pgtype.Text
		password     pgtype.Text
		projectID    pgtype.Text
		geoTargeting bool
	)

	err := r.db.QueryRow(ctx, findLinkByDomainKey, domain, key).Scan(
		&link.ID,
		&link.Domain,
		&link.Key,
		&link.TargetURL,
		&ios,
		&android,
		&geo,
		&link.Archived,
		&expiresAt,
		&expiredURL,
		&password,
		&link.Rewrite,
		&projectID,
		&geoTargeting,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, redirect.ErrNotFound
		}
		return nil, err
	}

	link.IOSURL = textPtr(ios)
	link.AndroidURL = textPtr(android)
	link.ExpiredURL = textPtr(expiredURL)
	link.PasswordHash = textPtr(password)
	link.ProjectID = projectID.String
	link.Capabilities.GeoTargeting = geoTargeting
	if expiresAt.Valid {
		t := expiresAt.Time.UTC()
		link.ExpiresAt = &t
	}
	if len(geo) > 0 {
		if err := json.Unmarshal(geo, &link.Geo); err != nil {
			return nil, fmt.Errorf("%w: geo column: %v", redirect.ErrInvalidLink, err)
		}
	}

	return &link, nil
}

func textPtr(v pgtype.Text) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
