package checker

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultTimeout bounds every probe unless overridden with [WithTimeout].
const DefaultTimeout = 3 * time.Second

const maxDrainSize = 1 << 20 // 1MB

// connection pooling limits, sized for a handful of buttons hitting a few hosts
const (
	defaultMaxIdleConns        = 100
	defaultMaxIdleConnsPerHost = 10
	defaultIdleConnTimeout     = 60 * time.Second
)

// Result is the verdict of a single probe.
type Result struct {
	// Online is true iff the endpoint answered with the healthy status code.
	Online bool

	// StatusCode is the HTTP status code received.
	// Zero if the request failed before a response arrived.
	StatusCode int

	// Latency is the time taken by the probe, including failures.
	Latency time.Duration

	// Err is the transport or protocol failure, if any. A non-nil Err always
	// implies Online is false. A wrong status code is not an error.
	Err error
}

// Checker probes HTTP endpoints.
//
// Checker uses a per-request timeout via context rather than a client-wide
// timeout so a caller's own deadline still applies. It is safe for
// concurrent use.
type Checker struct {
	httpClient *http.Client
	timeout    time.Duration
}

// Option configures a [Checker].
type Option func(*Checker)

// WithTimeout sets the per-probe deadline. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(c *Checker) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHTTPClient replaces the pooled client. Mostly useful in tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Checker) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// New creates a [Checker] with connection pooling and a 3 second timeout.
func New(opts ...Option) *Checker {
	c := &Checker{
		httpClient: &http.Client{
			// no client timeout: the deadline is applied per request
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        defaultMaxIdleConns,
				MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
				IdleConnTimeout:     defaultIdleConnTimeout,
			},
		},
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Timeout returns the per-probe deadline.
func (c *Checker) Timeout() time.Duration {
	return c.timeout
}

// Check issues one GET to url and reports whether it answered with
// healthyStatusCode. It never retries.
func (c *Checker) Check(ctx context.Context, url string, healthyStatusCode int) Result {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Result{
			Latency: time.Since(start),
			Err:     fmt.Errorf("failed to create request: %w", err),
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{
			Latency: time.Since(start),
			Err:     fmt.Errorf("request failed: %w", err),
		}
	}
	// drain so the connection goes back to the pool
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainSize))
	_ = resp.Body.Close()

	return Result{
		Online:     resp.StatusCode == healthyStatusCode,
		StatusCode: resp.StatusCode,
		Latency:    time.Since(start),
	}
}

// Close closes idle pooled connections. Safe to call multiple times and on
// a nil receiver; the checker stays usable afterwards.
func (c *Checker) Close() {
	if c == nil || c.httpClient == nil {
		return
	}
	c.httpClient.CloseIdleConnections()
}
