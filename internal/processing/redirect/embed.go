package redirect

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/IgorGrieder/linkedge/internal/infrastructure/logger"
	"github.com/IgorGrieder/linkedge/internal/infrastructure/telemetry"
	"github.com/IgorGrieder/linkedge/pkg/httpclient"
	gocache "github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type HeaderFetcher interface {
	Do(ctx context.Context, method, rawURL string, headers map[string]string) (*http.Response, error)
}

// HeaderEmbedChecker fetches the target's response headers and decides
// whether the target may be framed by the short domain. Any fetch error or
// timeout reports not embeddable. Verdicts are memoized per target URL.
type HeaderEmbedChecker struct {
	client  HeaderFetcher
	timeout time.Duration
	verdict *gocache.Cache
}

var _ HeaderFetcher = (*httpclient.Client)(nil)

func NewHeaderEmbedChecker(client HeaderFetcher, timeout, verdictTTL time.Duration) *HeaderEmbedChecker {
	if verdictTTL <= 0 {
		verdictTTL = 5 * time.Minute
	}
	return &HeaderEmbedChecker{
		client:  client,
		timeout: timeout,
		verdict: gocache.New(verdictTTL, 2*verdictTTL),
	}
}

func (c *HeaderEmbedChecker) Embeddable(ctx context.Context, targetURL, requestDomain string) bool {
	cacheKey := requestDomain + "|" + targetURL
	if v, ok := c.verdict.Get(cacheKey); ok {
		return v.(bool)
	}

	ctx, span := telemetry.Start(ctx, "link.embed_check", attribute.String("http.url", targetURL))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.Do(ctx, http.MethodGet, targetURL, map[string]string{
		"User-Agent": "linkedge-embed-check/1.0",
	})
	if err != nil {
		logger.Debug("embed check failed, falling back to redirect",
			zap.String("target", targetURL),
			zap.Error(err),
		)
		span.RecordError(err)
		return false
	}
	resp.Body.Close()

	ok := FrameAllowed(resp.Header, requestDomain)
	span.SetAttributes(attribute.Bool("link.embeddable", ok))
	c.verdict.SetDefault(cacheKey, ok)
	return ok
}

// FrameAllowed applies X-Frame-Options and the CSP frame-ancestors directive
// to a framing request from requestDomain.
func FrameAllowed(h http.Header, requestDomain string) bool {
	switch strings.ToUpper(strings.TrimSpace(h.Get("X-Frame-Options"))) {
	case "DENY", "SAMEORIGIN":
		return false
	}

	for _, policy := range h.Values("Content-Security-Policy") {
		for _, directive := range strings.Split(policy, ";") {
			fields := strings.Fields(strings.TrimSpace(directive))
			if len(fields) == 0 || !strings.EqualFold(fields[0], "frame-ancestors") {
				continue
			}
			return ancestorsAllow(fields[1:], requestDomain)
		}
	}
	return true
}

// An empty source list behaves like 'none'.
func ancestorsAllow(sources []string, requestDomain string) bool {
	requestDomain = strings.ToLower(requestDomain)
	for _, src := range sources {
		src = strings.ToLower(strings.Trim(src, "'\""))
		if src == "*" {
			return true
		}
		if host := sourceHost(src); host != "" && hostMatches(host, requestDomain) {
			return true
		}
	}
	return false
}

func sourceHost(src string) string {
	if i := strings.Index(src, "://"); i >= 0 {
		src = src[i+3:]
	}
	if i := strings.IndexAny(src, ":/"); i >= 0 {
		src = src[:i]
	}
	return src
}

func hostMatches(pattern, domain string) bool {
	if strings.HasPrefix(pattern, "*.") {
		return strings.HasSuffix(domain, pattern[1:])
	}
	return pattern == domain
}
