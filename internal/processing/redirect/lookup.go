package redirect

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/IgorGrieder/linkedge/internal/infrastructure/logger"
	"github.com/IgorGrieder/linkedge/internal/infrastructure/telemetry"
	gocache "github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type ResolverOptions struct {
	Timeout      time.Duration
	LastKnownTTL time.Duration
}

// Resolver reads links cache-first and falls back to the store, populating
// the cache on a miss. A process-local copy of every link it served is kept
// for LastKnownTTL and returned only when both cache and store fail.
type Resolver struct {
	cache     LinkCache
	store     LinkStore
	lastKnown *gocache.Cache
	timeout   time.Duration
}

func NewResolver(cache LinkCache, store LinkStore, opts ResolverOptions) *Resolver {
	if opts.Timeout <= 0 {
		opts.Timeout = 500 * time.Millisecond
	}
	if opts.LastKnownTTL <= 0 {
		opts.LastKnownTTL = 10 * time.Minute
	}
	return &Resolver{
		cache:     cache,
		store:     store,
		lastKnown: gocache.New(opts.LastKnownTTL, 2*opts.LastKnownTTL),
		timeout:   opts.Timeout,
	}
}

func (r *Resolver) Resolve(ctx context.Context, domain, key string) (*LinkRecord, error) {
	ctx, span := telemetry.Start(ctx, "link.resolve",
		attribute.String("link.domain", domain),
		attribute.String("link.key", key),
	)
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cacheKey := domain + ":" + key

	cacheUp := r.cache != nil
	if r.cache != nil {
		link, err := r.cache.Get(ctx, domain, key)
		switch {
		case err == nil:
			span.SetAttributes(attribute.Bool("link.cache_hit", true))
			r.lastKnown.SetDefault(cacheKey, link)
			return link, nil
		case !errors.Is(err, ErrNotFound):
			cacheUp = false
			logger.Warn("link cache read failed",
				zap.String("domain", domain),
				zap.String("key", key),
				zap.Error(err),
			)
		}
	}

	link, err := r.store.FindByDomainKey(ctx, domain, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		if errors.Is(err, ErrInvalidLink) {
			span.RecordError(err)
			return nil, err
		}
		if cached, ok := r.lastKnown.Get(cacheKey); ok {
			logger.Warn("link store unavailable, serving last known link",
				zap.String("domain", domain),
				zap.String("key", key),
				zap.Error(err),
			)
			return cached.(*LinkRecord), nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if cacheUp {
		if err := r.cache.Set(ctx, link); err != nil {
			logger.Warn("link cache populate failed",
				zap.String("domain", domain),
				zap.String("key", key),
				zap.Error(err),
			)
		}
	}
	r.lastKnown.SetDefault(cacheKey, link)
	return link, nil
}
