package redirect

import (
	"context"
	"errors"

	"github.com/IgorGrieder/linkedge/internal/events"
)

var (
	ErrNotFound    = errors.New("link not found")
	ErrUnavailable = errors.New("link lookup unavailable")
	ErrInvalidLink = errors.New("invalid link record")
)

// LinkCache is the hot-path key/value view of links. Get returns ErrNotFound
// on a miss.
type LinkCache interface {
	Get(ctx context.Context, domain, key string) (*LinkRecord, error)
	Set(ctx context.Context, link *LinkRecord) error
}

// LinkStore is the system of record. FindByDomainKey returns ErrNotFound when
// no live link matches.
type LinkStore interface {
	FindByDomainKey(ctx context.Context, domain, key string) (*LinkRecord, error)
}

type LinkResolver interface {
	Resolve(ctx context.Context, domain, key string) (*LinkRecord, error)
}

// ClickEmitter must return without waiting on the append log.
type ClickEmitter interface {
	Emit(ctx context.Context, event events.ClickEvent)
}

type EmbedChecker interface {
	Embeddable(ctx context.Context, targetURL, requestDomain string) bool
}

// GeoLocator maps a client IP to an ISO 3166-1 alpha-2 code, or "" when
// unknown.
type GeoLocator interface {
	Country(ip string) string
}
