// Package httpclient provides the resilient inter-service HTTP client used
// for all outbound calls in the mesh. Every request gets a per-attempt
// timeout, exponential-backoff retries on 5xx/transport failures, and
// per-destination circuit breaking so one failing backend cannot cascade.
package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"golang.org/x/net/proxy"
)

// Default client configuration values.
const (
	// DefaultMaxRetries is the total number of attempts per logical call.
	DefaultMaxRetries = 3

	// DefaultBaseBackoff is the base of the exponential retry backoff
	// (wait = base * 2^attempt).
	DefaultBaseBackoff = 1 * time.Second

	// DefaultTimeout is the per-attempt request timeout.
	DefaultTimeout = 10 * time.Second

	// DefaultFailureThreshold is the consecutive-failure count that opens a
	// destination's circuit.
	DefaultFailureThreshold = 5

	// DefaultOpenTimeout is how long an open circuit rejects calls before
	// admitting a trial.
	DefaultOpenTimeout = 60 * time.Second

	// UserAgent identifies CampusLink on inter-service calls.
	UserAgent = "CampusLink/1.0"
)

// Config holds the resilient client configuration.
type Config struct {
	MaxRetries       int           // total attempts per logical call, must be >= 1
	BaseBackoff      time.Duration // exponential backoff base, must be > 0
	Timeout          time.Duration // per-attempt timeout
	FailureThreshold int           // consecutive failures before the circuit opens
	OpenTimeout      time.Duration // open-circuit rejection window
	ProxyURL         string        // optional outbound proxy (http, https or socks5)
}

// DefaultConfig returns the configuration used when a field is left zero.
func DefaultConfig() Config {
	return Config{
		MaxRetries:       DefaultMaxRetries,
		BaseBackoff:      DefaultBaseBackoff,
		Timeout:          DefaultTimeout,
		FailureThreshold: DefaultFailureThreshold,
		OpenTimeout:      DefaultOpenTimeout,
	}
}

// Response is the reduced view of an HTTP response handed back to callers.
// The body is fully read and the connection released before returning.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Client performs HTTP calls with bounded retries and circuit protection.
// It is safe for concurrent use.
type Client struct {
	cfg        Config
	httpClient *http.Client
	breakers   *breakerRegistry
	logger     *log.Helper

	// sleep is the backoff sleep, injectable for tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a resilient client. Zero config fields fall back to defaults;
// an explicit non-positive MaxRetries or BaseBackoff is rejected so a
// zero-attempt client cannot be constructed by accident.
func New(cfg Config, logger log.Logger) (*Client, error) {
	def := DefaultConfig()
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = def.MaxRetries
	}
	if cfg.BaseBackoff == 0 {
		cfg.BaseBackoff = def.BaseBackoff
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.OpenTimeout == 0 {
		cfg.OpenTimeout = def.OpenTimeout
	}

	if cfg.MaxRetries < 1 {
		return nil, fmt.Errorf("httpclient: max retries must be >= 1, got %d", cfg.MaxRetries)
	}
	if cfg.BaseBackoff < 0 {
		return nil, fmt.Errorf("httpclient: base backoff must be positive, got %s", cfg.BaseBackoff)
	}

	transport, err := newTransport(cfg.ProxyURL)
	if err != nil {
		return nil, err
	}

	helper := log.NewHelper(logger)

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Transport: transport},
		breakers:   newBreakerRegistry(cfg.FailureThreshold, cfg.OpenTimeout, helper),
		logger:     helper,
		sleep:      sleepWithContext,
	}, nil
}

// Request performs one logical HTTP call with retry and circuit protection.
//
// Error contract:
//   - *CircuitOpenError when the destination's circuit is open; no network
//     call is attempted.
//   - *ClientError for any 4xx response; surfaced immediately, never
//     retried, and counted as a breaker success (the destination answered).
//   - *ServiceError after exhausting MaxRetries attempts on 5xx responses
//     or transport failures; counted as exactly one breaker failure.
//
// The per-attempt timeout comes from the client config; callers needing an
// overall deadline set one on ctx, which also cancels backoff sleeps.
func (c *Client) Request(ctx context.Context, method, rawURL string, body []byte, header http.Header) (*Response, error) {
	destination := destinationKey(rawURL)
	breaker := c.breakers.get(destination)

	if err := breaker.Allow(); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt < c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			// wait = base * 2^(attempt-1): 1x, 2x, 4x, ...
			wait := c.cfg.BaseBackoff << (attempt - 1)
			c.logger.Warnw("msg", "request failed, retrying",
				"destination", destination,
				"attempt", attempt,
				"max_attempts", c.cfg.MaxRetries,
				"backoff", wait.String(),
				"error", fmt.Sprint(lastErr))
			if err := c.sleep(ctx, wait); err != nil {
				breaker.ReportFailure()
				return nil, &ServiceError{Destination: destination, Attempts: attempt, Err: err}
			}
		}

		resp, err := c.attempt(ctx, method, rawURL, body, header)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("server error (HTTP %d): %s", resp.StatusCode, truncate(resp.Body, 256))
			continue
		}

		// The destination answered; one success report per logical call,
		// even when the answer is a client error.
		breaker.ReportSuccess()

		if resp.StatusCode >= 400 {
			return nil, &ClientError{StatusCode: resp.StatusCode, URL: rawURL, Body: resp.Body}
		}
		return resp, nil
	}

	breaker.ReportFailure()
	return nil, &ServiceError{Destination: destination, Attempts: c.cfg.MaxRetries, Err: lastErr}
}

// Get issues a GET request.
func (c *Client) Get(ctx context.Context, url string, header http.Header) (*Response, error) {
	return c.Request(ctx, http.MethodGet, url, nil, header)
}

// Post issues a POST request.
func (c *Client) Post(ctx context.Context, url string, body []byte, header http.Header) (*Response, error) {
	return c.Request(ctx, http.MethodPost, url, body, header)
}

// Put issues a PUT request.
func (c *Client) Put(ctx context.Context, url string, body []byte, header http.Header) (*Response, error) {
	return c.Request(ctx, http.MethodPut, url, body, header)
}

// Delete issues a DELETE request.
func (c *Client) Delete(ctx context.Context, url string, header http.Header) (*Response, error) {
	return c.Request(ctx, http.MethodDelete, url, nil, header)
}

// BreakerState exposes the breaker state for a destination URL, for health
// reporting and tests.
func (c *Client) BreakerState(rawURL string) State {
	return c.breakers.get(destinationKey(rawURL)).State()
}

// attempt issues a single HTTP request with the per-attempt timeout and
// fully drains the response body.
func (c *Client) attempt(ctx context.Context, method, rawURL string, body []byte, header http.Header) (*Response, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(attemptCtx, method, rawURL, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if req.Header.Get("Content-Type") == "" && len(body) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	respBody, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       respBody,
	}, nil
}

// newTransport builds the HTTP transport, optionally routed through an
// http/https or socks5 proxy.
func newTransport(proxyURL string) (*http.Transport, error) {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	if proxyURL == "" {
		return transport, nil
	}

	parsed, err := url.Parse(proxyURL)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy URL: %w", err)
	}

	switch parsed.Scheme {
	case "socks5", "socks5h":
		dialer, err := newSOCKS5Dialer(parsed)
		if err != nil {
			return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}
		transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialer.Dial(network, addr)
		}

	case "http", "https":
		transport.Proxy = http.ProxyURL(parsed)

	default:
		return nil, fmt.Errorf("unsupported proxy scheme: %s (supported: socks5, http, https)", parsed.Scheme)
	}

	return transport, nil
}

// newSOCKS5Dialer creates a SOCKS5 proxy dialer with optional auth.
func newSOCKS5Dialer(parsed *url.URL) (proxy.Dialer, error) {
	var auth *proxy.Auth
	if parsed.User != nil {
		password, _ := parsed.User.Password()
		auth = &proxy.Auth{
			User:     parsed.User.Username(),
			Password: password,
		}
	}

	host := parsed.Host
	if !strings.Contains(host, ":") {
		host += ":1080"
	}

	return proxy.SOCKS5("tcp", host, auth, proxy.Direct)
}

// sleepWithContext sleeps for d but returns early if ctx is cancelled, so a
// caller-supplied deadline also bounds retry backoff.
func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
