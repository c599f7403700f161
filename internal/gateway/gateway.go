// Package gateway owns the single HTTP chokepoint to the remote price
// service: request construction, rate-limit pacing, retry with backoff,
// and error classification.
package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/paintedpoint/coinfolio/internal/domain"
	"github.com/paintedpoint/coinfolio/pkg/retrier"
	"go.uber.org/zap"
)

const (
	// DefaultBaseURL is the CoinGecko v3 API root.
	DefaultBaseURL = "https://api.coingecko.com/api/v3"

	defaultMinInterval    = 2 * time.Second
	defaultRequestTimeout = 10 * time.Second
	defaultMaxAttempts    = 3
	defaultBackoff        = 2 * time.Second
)

// Config tunes a Gateway. Zero values fall back to free-tier defaults.
type Config struct {
	BaseURL string
	// MinInterval is the minimum spacing between consecutive requests,
	// measured from the completion of the previous one.
	MinInterval    time.Duration
	RequestTimeout time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
}

// Gateway issues paced, retried GET requests against one base URL.
// Safe for concurrent use: the pacing state is guarded by a mutex, so at
// most one request is in flight at a time per instance.
type Gateway struct {
	baseURL string
	client  *http.Client
	retrier *retrier.Retrier
	logger  *zap.Logger

	mu          sync.Mutex
	minInterval time.Duration
	lastRequest time.Time
}

// New creates a Gateway with the given config.
func New(cfg Config, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = defaultMinInterval
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = defaultBackoff
	}

	return &Gateway{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: cfg.RequestTimeout},
		retrier: retrier.New(
			retrier.WithMaxAttempts(cfg.MaxAttempts),
			retrier.WithInitialInterval(cfg.InitialBackoff),
			retrier.WithRetryIf(IsRetryable),
		),
		logger:      logger,
		minInterval: cfg.MinInterval,
	}
}

// Request issues a paced GET to endpoint with the given query params and
// returns the raw response body. Transient failures (network, timeout,
// 429, 5xx) are retried with increasing backoff; once the attempt budget
// is exhausted the failure is logged and the domain.ErrNoData sentinel is
// returned so batch callers can degrade instead of aborting. Permanent
// failures (4xx, 404) propagate immediately as *APIError.
func (g *Gateway) Request(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	body, err := retrier.DoWithData(g.retrier, ctx, func(ctx context.Context) ([]byte, error) {
		return g.do(ctx, endpoint, params)
	})
	if err == nil {
		return body, nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil, err
	}
	if IsRetryable(err) {
		g.logger.Warn("request failed after retries, degrading to no data",
			zap.String("endpoint", endpoint),
			zap.Error(err))
		return nil, domain.ErrNoData
	}
	return nil, err
}

// RequestJSON issues Request and decodes the body into out.
func (g *Gateway) RequestJSON(ctx context.Context, endpoint string, params url.Values, out any) error {
	body, err := g.Request(ctx, endpoint, params)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errors.Wrapf(err, "decode response from %s", endpoint)
	}
	return nil
}

// do performs one paced attempt. The mutex is held for the whole round
// trip so the pacing invariant holds even with concurrent callers.
func (g *Gateway) do(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.pace(ctx); err != nil {
		return nil, err
	}
	defer func() {
		g.lastRequest = time.Now()
	}()

	addr := g.baseURL + "/" + strings.TrimLeft(endpoint, "/")
	if len(params) > 0 {
		addr += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "build request for %s", endpoint)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, classifyTransportError(endpoint, err)
	}
	defer resp.Body.Close()

	if kind, ok := classifyStatus(resp.StatusCode); ok {
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &APIError{Kind: kind, Status: resp.StatusCode, Endpoint: endpoint}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &APIError{Kind: KindNetwork, Status: resp.StatusCode, Endpoint: endpoint, Err: err}
	}

	return body, nil
}

// pace blocks until minInterval has elapsed since the previous request
// completed. Must be called with the mutex held.
func (g *Gateway) pace(ctx context.Context) error {
	if g.lastRequest.IsZero() {
		return nil
	}
	wait := g.minInterval - time.Since(g.lastRequest)
	if wait <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return nil
	}
}

func classifyTransportError(endpoint string, err error) *APIError {
	kind := KindNetwork
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		kind = KindTimeout
	}
	return &APIError{Kind: kind, Endpoint: endpoint, Err: err}
}

func classifyStatus(status int) (ErrorKind, bool) {
	switch {
	case status == http.StatusTooManyRequests:
		return KindRateLimited, true
	case status >= 500:
		return KindServerError, true
	case status == http.StatusNotFound:
		return KindNotFound, true
	case status >= 400:
		return KindClientError, true
	}
	return 0, false
}
