package redirect

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/IgorGrieder/linkedge/internal/events"
	"github.com/IgorGrieder/linkedge/internal/infrastructure/logger"
	"github.com/IgorGrieder/linkedge/internal/infrastructure/validation"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// controlParams steer resolution and are never forwarded to the target.
var controlParams = map[string]bool{
	"bot": true,
	"qr":  true,
}

type EngineOptions struct {
	Aliases        map[string]string
	RedirectStatus int
}

type Engine struct {
	resolver LinkResolver
	emitter  ClickEmitter
	embed    EmbedChecker
	geo      GeoLocator
	tokens   *PasswordTokens
	aliases  map[string]string
	status   int
	now      func() time.Time
	newID    func() string
}

// NewEngine wires the decision engine. embed and geo may be nil, in which
// case rewrite links always redirect and geo targeting is skipped.
func NewEngine(resolver LinkResolver, emitter ClickEmitter, embed EmbedChecker, geo GeoLocator, tokens *PasswordTokens, opts EngineOptions) *Engine {
	if opts.RedirectStatus != http.StatusMovedPermanently {
		opts.RedirectStatus = http.StatusFound
	}
	return &Engine{
		resolver: resolver,
		emitter:  emitter,
		embed:    embed,
		geo:      geo,
		tokens:   tokens,
		aliases:  opts.Aliases,
		status:   opts.RedirectStatus,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

func (e *Engine) Decide(ctx context.Context, req Request) Decision {
	n := Normalize(req.Host, req.Path, req.RawQuery, e.aliases)
	d := Decision{Domain: n.Domain, Key: n.Key}

	link, err := e.lookup(ctx, n)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
		case errors.Is(err, ErrInvalidLink):
			logger.Warn("stored link is malformed",
				zap.String("domain", n.Domain),
				zap.String("key", n.FullKey),
				zap.Error(err),
			)
		default:
			logger.Error("link lookup failed",
				zap.String("domain", n.Domain),
				zap.String("key", n.FullKey),
				zap.Error(err),
			)
			d.Outcome = OutcomeUnavailable
			return d
		}
		d.Outcome = OutcomeNotFound
		return d
	}

	// Only identity is checked up front. Target fields are checked when the
	// branch that uses them is taken.
	if err := validation.ValidateFields(link, "ID", "Domain", "Key"); err != nil {
		logger.Warn("stored link failed validation",
			zap.String("link_id", link.ID),
			zap.String("domain", link.Domain),
			zap.String("key", link.Key),
			zap.Error(err),
		)
		d.Outcome = OutcomeNotFound
		return d
	}
	d.Key = link.Key
	d.Link = link

	now := e.now()
	if link.Archived || link.Expired(now) {
		d.Outcome = OutcomeExpired
		if !link.Archived && link.ExpiredURL != nil {
			if err := validation.ValidateVar(*link.ExpiredURL, "http_url"); err != nil {
				logger.Warn("expired fallback url is malformed",
					zap.String("link_id", link.ID),
					zap.Error(err),
				)
				return d
			}
			d.Location = *link.ExpiredURL
			d.Status = e.status
		}
		return d
	}

	if link.PasswordProtected() && !e.tokens.Valid(passwordToken(req, link), link) {
		d.Outcome = OutcomePasswordRequired
		return d
	}

	d.Bot = IsBot(req.UserAgent, n.Query)
	d.Device = DetectDevice(req.UserAgent)

	var country string
	if e.geo != nil {
		country = e.geo.Country(req.ClientIP)
	}

	location, err := MergeQuery(baseURL(link, d.Device, country), n.Query)
	if err != nil {
		logger.Warn("target url merge failed",
			zap.String("link_id", link.ID),
			zap.Error(err),
		)
		d.Outcome = OutcomeNotFound
		d.Link = nil
		return d
	}
	d.Location = location
	d.Outcome = OutcomeRedirect
	d.Status = e.status

	if link.Rewrite && e.embed != nil && e.embed.Embeddable(ctx, location, n.Domain) {
		d.Outcome = OutcomeRewrite
		d.Status = http.StatusOK
	}

	if !d.Bot && e.emitter != nil {
		e.emitter.Emit(ctx, events.ClickEvent{
			EventID:   e.newID(),
			LinkID:    link.ID,
			Timestamp: now.UTC(),
			Count:     1,
			Domain:    link.Domain,
			Key:       link.Key,
			Country:   country,
			Device:    string(d.Device),
			UserAgent: req.UserAgent,
			Referer:   req.Referer,
			QR:        isQRScan(n.Query),
			ClientIP:  req.ClientIP,
		})
	}

	return d
}

// lookup tries the multi-segment key first so "a/b" can shadow "a".
func (e *Engine) lookup(ctx context.Context, n Normalized) (*LinkRecord, error) {
	if n.FullKey != n.Key {
		link, err := e.resolver.Resolve(ctx, n.Domain, n.FullKey)
		if !errors.Is(err, ErrNotFound) {
			return link, err
		}
	}
	return e.resolver.Resolve(ctx, n.Domain, n.Key)
}

func passwordToken(req Request, link *LinkRecord) string {
	if token := req.Cookies[PasswordCookieName(link.Key)]; token != "" {
		return token
	}
	return req.PasswordToken
}

// baseURL picks the destination before query merge. A device override wins
// over a geo override.
func baseURL(link *LinkRecord, device Device, country string) string {
	switch {
	case device == DeviceIOS && link.IOSURL != nil:
		return *link.IOSURL
	case device == DeviceAndroid && link.AndroidURL != nil:
		return *link.AndroidURL
	}
	if link.Capabilities.GeoTargeting && country != "" {
		if target, ok := link.Geo[country]; ok {
			return target
		}
	}
	return link.TargetURL
}

// MergeQuery overlays incoming query parameters on the target's own. The
// incoming value wins on a key collision.
func MergeQuery(target string, incoming url.Values) (string, error) {
	u, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidLink, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: target %q is not an absolute http url", ErrInvalidLink, target)
	}

	merged, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		return "", fmt.Errorf("%w: target query: %v", ErrInvalidLink, err)
	}

	forwarded := 0
	for k, vs := range incoming {
		if controlParams[k] {
			continue
		}
		merged[k] = vs
		forwarded++
	}
	if forwarded > 0 {
		u.RawQuery = merged.Encode()
	}
	return u.String(), nil
}
