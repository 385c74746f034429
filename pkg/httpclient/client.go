package httpclient

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/IgorGrieder/linkedge/internal/infrastructure/logger"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

type Options struct {
	Timeout     time.Duration
	MaxRetries  int
	MaxFailures int
	OpenTimeout time.Duration
}

// Client issues outbound requests guarded by one circuit breaker per host,
// so a single slow origin cannot starve requests to every other origin.
type Client struct {
	client *http.Client
	opts   Options

	mu       sync.Mutex
	breakers map[string]*CircuitBreaker
}

func NewClient(opts Options) *Client {
	if opts.MaxFailures <= 0 {
		opts.MaxFailures = 5
	}
	if opts.OpenTimeout <= 0 {
		opts.OpenTimeout = 30 * time.Second
	}
	return &Client{
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		opts:     opts,
		breakers: make(map[string]*CircuitBreaker),
	}
}

// Do sends a body-less request and returns the response. The caller owns
// the response body. Statuses below 500 count as success for the breaker.
func (c *Client) Do(ctx context.Context, method, rawURL string, headers map[string]string) (*http.Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}

	cb := c.breaker(u.Host)
	if err := cb.CheckBeforeRequest(); err != nil {
		return nil, err
	}

	const baseDelay = 100 * time.Millisecond
	const maxJitterMs = 100

	var lastErr error
	var response *http.Response

	for i := 0; i <= c.opts.MaxRetries; i++ {
		req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
		if err != nil {
			return nil, fmt.Errorf("error creating request: %w", err)
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		response, err = c.client.Do(req)
		lastErr = err

		if err == nil && response.StatusCode < 500 {
			cb.OnSuccess()
			return response, nil
		}

		if response != nil {
			response.Body.Close()
		}
		if i == c.opts.MaxRetries {
			break
		}

		sleepDuration := baseDelay*time.Duration(math.Pow(2, float64(i))) +
			time.Duration(rand.Intn(maxJitterMs))*time.Millisecond

		logger.Debug("outbound request failed, retrying",
			zap.String("host", u.Host),
			zap.Int("attempt", i+1),
			zap.Duration("sleep", sleepDuration),
		)

		select {
		case <-ctx.Done():
			cb.OnFailure()
			return nil, ctx.Err()
		case <-time.After(sleepDuration):
		}
	}

	cb.OnFailure()

	if lastErr != nil {
		return nil, fmt.Errorf("request to %s failed: %w", u.Host, lastErr)
	}
	return nil, fmt.Errorf("request to %s failed with status %s", u.Host, response.Status)
}

func (c *Client) breaker(host string) *CircuitBreaker {
	c.mu.Lock()
	defer c.mu.Unlock()

	cb, ok := c.breakers[host]
	if !ok {
		cb = NewCircuitBreaker(host, c.opts.MaxFailures, c.opts.OpenTimeout)
		c.breakers[host] = cb
	}
	return cb
}
