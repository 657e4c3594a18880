package congress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"RecordSync/internal/config"
	"RecordSync/internal/domain"
	"RecordSync/internal/logging"
)

type callKind int

const (
	listCall callKind = iota
	downloadCall
)

func (k callKind) String() string {
	if k == downloadCall {
		return "download"
	}
	return "list"
}

// Stats is a snapshot of the client's counters.
type Stats struct {
	Requests   int
	CurrentKey int
	Keys       int
}

// Client issues throttled GET requests against the congress.gov API. It
// owns all throttling and key-rotation state. A Client is not safe for
// concurrent use.
type Client struct {
	http    *http.Client
	clock   Clock
	limiter *rate.Limiter
	logger  *slog.Logger

	keys    []string
	current int

	listRotateEvery     int
	downloadRotateEvery int
	timeoutRetries      int
	retryDelay          time.Duration
	maxBackoff          time.Duration
	backoffSteps        int
	userAgent           string

	requests      int
	listCount     int
	downloadCount int
}

// Option customizes a Client.
type Option func(*Client)

// WithClock replaces the wall clock used for throttling and waits.
func WithClock(clock Clock) Option {
	return func(c *Client) {
		c.clock = clock
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// NewClient builds a client for the given keys; at least one key is required.
func NewClient(cfg config.APIConfig, keys []string, log *slog.Logger, opts ...Option) (*Client, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("congress client: no api keys")
	}
	if log == nil {
		log = logging.Discard()
	}

	c := &Client{
		http:                &http.Client{Timeout: cfg.Timeout},
		clock:               SystemClock{},
		limiter:             rate.NewLimiter(rate.Every(cfg.MinInterval), 1),
		logger:              log,
		keys:                append([]string(nil), keys...),
		listRotateEvery:     cfg.ListRotateEvery,
		downloadRotateEvery: cfg.DownloadRotateEvery,
		timeoutRetries:      max(cfg.TimeoutRetries, 1),
		retryDelay:          cfg.RetryDelay,
		maxBackoff:          cfg.MaxBackoff,
		backoffSteps:        cfg.BackoffSteps,
		userAgent:           cfg.UserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// GetJSON performs a listing call and decodes the body into v. The current
// key is attached as the api_key parameter.
func (c *Client) GetJSON(ctx context.Context, target string, params url.Values, v any) error {
	body, attempts, err := c.do(ctx, listCall, target, params)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return &domain.RequestError{Kind: domain.FailureDecode, URL: target, Attempts: attempts, Err: err}
	}
	return nil
}

// Download fetches raw content from an arbitrary URL.
func (c *Client) Download(ctx context.Context, target string) ([]byte, error) {
	body, _, err := c.do(ctx, downloadCall, target, nil)
	return body, err
}

// Stats reports request totals and the 1-based index of the current key.
func (c *Client) Stats() Stats {
	return Stats{Requests: c.requests, CurrentKey: c.current + 1, Keys: len(c.keys)}
}

func (c *Client) do(ctx context.Context, kind callKind, target string, params url.Values) ([]byte, int, error) {
	var (
		attempts       int
		timeouts       int
		backoffAttempt int
	)

	for {
		if err := c.throttle(ctx); err != nil {
			return nil, attempts, &domain.RequestError{Kind: domain.FailureCanceled, URL: target, Attempts: attempts, Err: err}
		}
		c.count(kind)
		attempts++

		req, err := c.newRequest(ctx, kind, target, params)
		if err != nil {
			return nil, attempts, &domain.RequestError{Kind: domain.FailureTransport, URL: target, Attempts: attempts, Err: err}
		}

		status, body, err := c.send(req)
		switch {
		case err != nil && ctx.Err() != nil:
			return nil, attempts, &domain.RequestError{Kind: domain.FailureCanceled, URL: target, Attempts: attempts, Err: ctx.Err()}
		case err != nil && isTimeout(err):
			timeouts++
			c.logger.Warn("request timed out", "kind", kind, "url", target, "attempt", timeouts)
			if timeouts >= c.timeoutRetries {
				return nil, attempts, &domain.RequestError{Kind: domain.FailureTimeout, URL: target, Attempts: attempts, Err: err}
			}
			if err := c.clock.Sleep(ctx, c.retryDelay); err != nil {
				return nil, attempts, &domain.RequestError{Kind: domain.FailureCanceled, URL: target, Attempts: attempts, Err: err}
			}
			continue
		case err != nil:
			return nil, attempts, &domain.RequestError{Kind: domain.FailureTransport, URL: target, Attempts: attempts, Err: err}
		case status == http.StatusTooManyRequests:
			if err := c.onRateLimited(ctx, kind, &backoffAttempt); err != nil {
				return nil, attempts, &domain.RequestError{Kind: domain.FailureCanceled, URL: target, Attempts: attempts, Err: err}
			}
			continue
		case status < 200 || status >= 300:
			return nil, attempts, &domain.RequestError{Kind: domain.FailureStatus, URL: target, StatusCode: status, Attempts: attempts}
		}

		return body, attempts, nil
	}
}

// throttle keeps at least the configured interval between any two requests.
func (c *Client) throttle(ctx context.Context) error {
	now := c.clock.Now()
	delay := c.limiter.ReserveN(now, 1).DelayFrom(now)
	if delay <= 0 {
		return ctx.Err()
	}
	return c.clock.Sleep(ctx, delay)
}

func (c *Client) count(kind callKind) {
	c.requests++
	switch kind {
	case listCall:
		c.listCount++
		if c.listRotateEvery > 0 && c.listCount%c.listRotateEvery == 0 {
			c.rotate()
		}
	case downloadCall:
		c.downloadCount++
		if c.downloadRotateEvery > 0 && c.downloadCount%c.downloadRotateEvery == 0 {
			c.rotate()
		}
	}
}

func (c *Client) rotate() {
	c.current = (c.current + 1) % len(c.keys)
}

// onRateLimited rotates keys when more than one is configured; with a
// single key it waits 2^attempt (capped) for the first backoffSteps
// attempts and maxBackoff after that.
func (c *Client) onRateLimited(ctx context.Context, kind callKind, attempt *int) error {
	if len(c.keys) > 1 {
		c.rotate()
		c.logger.Warn("rate limited, rotating api key", "kind", kind, "key", c.current+1)
		return nil
	}

	*attempt++
	wait := c.backoff(*attempt)
	c.logger.Warn("rate limited, backing off", "kind", kind, "wait", wait, "attempt", *attempt)
	return c.clock.Sleep(ctx, wait)
}

func (c *Client) backoff(attempt int) time.Duration {
	if attempt > c.backoffSteps {
		return c.maxBackoff
	}
	wait := time.Duration(1<<attempt) * time.Second
	if wait > c.maxBackoff {
		return c.maxBackoff
	}
	return wait
}

func (c *Client) newRequest(ctx context.Context, kind callKind, target string, params url.Values) (*http.Request, error) {
	parsed, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("invalid url %s: %w", target, err)
	}

	if kind == listCall {
		query := parsed.Query()
		for k, values := range params {
			for _, v := range values {
				query.Add(k, v)
			}
		}
		query.Set("api_key", c.keys[c.current])
		parsed.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	return req, nil
}

func (c *Client) send(req *http.Request) (int, []byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, body, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
