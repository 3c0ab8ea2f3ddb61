// Package httpclient provides the shared outbound HTTP client used by the
// service repositories: a lazily built connection pool, retries with
// exponential backoff and a per-service circuit breaker.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	pkglog "RelayBot/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
	"golang.org/x/time/rate"
)

const (
	DefaultTimeout     = 10 * time.Second
	DefaultMaxRetries  = 3
	DefaultBackoffUnit = time.Second
	DefaultUserAgent   = "RelayBot/1.0.0"

	maxBodyBytes = 1 << 20
)

// Request describes one logical GET. Query and Header may be nil.
type Request struct {
	URL     string
	Query   map[string]string
	Header  map[string]string
	Service string
}

// Response is a decoded JSON object body. Numbers are json.Number.
type Response struct {
	Body       map[string]any
	StatusCode int
}

// Options configures a Client. Zero values select the defaults, except
// MaxRetries where zero means a single attempt and a negative value selects
// DefaultMaxRetries.
type Options struct {
	Timeout             time.Duration
	MaxRetries          int
	BackoffUnit         time.Duration
	ProxyURL            string
	UserAgent           string
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	DNSCacheTTL         time.Duration
	// Pacing caps outbound requests per second for a service name.
	Pacing map[string]float64
}

func (o *Options) applyDefaults() {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = DefaultMaxRetries
	}
	if o.BackoffUnit <= 0 {
		o.BackoffUnit = DefaultBackoffUnit
	}
	if o.UserAgent == "" {
		o.UserAgent = DefaultUserAgent
	}
	if o.MaxIdleConns <= 0 {
		o.MaxIdleConns = defaultMaxIdleConns
	}
	if o.MaxIdleConnsPerHost <= 0 {
		o.MaxIdleConnsPerHost = defaultMaxIdleConnsPerHost
	}
	if o.DNSCacheTTL <= 0 {
		o.DNSCacheTTL = defaultDNSCacheTTL
	}
}

// Client issues GET requests with retry and circuit breaking. It is safe for
// concurrent use.
type Client struct {
	opts     Options
	breaker  *CircuitBreaker
	observer Observer
	limiters map[string]*rate.Limiter
	log      *pkglog.LogHelper

	mu        sync.Mutex
	transport *http.Transport
	http      *http.Client
}

// NewClient creates a Client. The connection pool is built on first use.
func NewClient(opts Options, breaker *CircuitBreaker, observer Observer, logger log.Logger) *Client {
	opts.applyDefaults()
	if observer == nil {
		observer = NopObserver{}
	}

	limiters := make(map[string]*rate.Limiter, len(opts.Pacing))
	for service, rps := range opts.Pacing {
		if rps > 0 {
			limiters[service] = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}

	return &Client{
		opts:     opts,
		breaker:  breaker,
		observer: observer,
		limiters: limiters,
		log:      pkglog.NewLogHelper(log.With(logger, "module", "httpclient")),
	}
}

// Breaker returns the circuit breaker guarding this client.
func (c *Client) Breaker() *CircuitBreaker {
	return c.breaker
}

// Close releases pooled connections. A later Get builds a new pool.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.transport != nil {
		c.transport.CloseIdleConnections()
	}
	c.transport = nil
	c.http = nil
}

func (c *Client) pool() (*http.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.http != nil {
		return c.http, nil
	}
	transport, err := newTransport(c.opts)
	if err != nil {
		return nil, err
	}
	c.transport = transport
	c.http = &http.Client{Transport: transport, Timeout: c.opts.Timeout}
	return c.http, nil
}

// Get performs req. ctx cancellation is observed between attempts only;
// a cancelled call neither trips nor resets the circuit.
func (c *Client) Get(ctx context.Context, req Request) (*Response, error) {
	if c.breaker != nil && c.breaker.IsOpen(ctx, req.Service) {
		return nil, &TransportError{Kind: KindCircuitOpen, Service: req.Service, Message: "circuit breaker is open"}
	}

	target, endpoint, err := buildURL(req)
	if err != nil {
		return nil, &TransportError{Kind: KindTransport, Service: req.Service, Message: "invalid request URL", Err: err}
	}

	hc, err := c.pool()
	if err != nil {
		return nil, &TransportError{Kind: KindTransport, Service: req.Service, Message: "failed to create HTTP client", Err: err}
	}

	var lastErr *TransportError
	for attempt := 0; attempt <= c.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, c.backoff(attempt-1)); err != nil {
				return nil, canceled(req.Service, err)
			}
		} else if err := ctx.Err(); err != nil {
			return nil, canceled(req.Service, err)
		}
		if err := c.pace(ctx, req.Service); err != nil {
			return nil, canceled(req.Service, err)
		}

		resp, terr := c.attempt(ctx, hc, req, target, endpoint, attempt+1)
		if terr == nil {
			return resp, nil
		}
		if !retryable(terr) {
			return nil, terr
		}
		lastErr = terr
	}

	if c.breaker != nil {
		c.breaker.Trip(ctx, req.Service)
	}

	attempts := c.opts.MaxRetries + 1
	if lastErr.Kind == kindServerError {
		return nil, &TransportError{
			Kind:       KindRetriesExhausted,
			StatusCode: lastErr.StatusCode,
			Service:    req.Service,
			Message:    fmt.Sprintf("all %d attempts failed", attempts),
			Err:        lastErr,
		}
	}
	lastErr.Message = fmt.Sprintf("all %d attempts failed", attempts)
	return nil, lastErr
}

// backoff returns unit·2^n.
func (c *Client) backoff(n int) time.Duration {
	return c.opts.BackoffUnit * time.Duration(1<<uint(n))
}

func (c *Client) pace(ctx context.Context, service string) error {
	limiter, ok := c.limiters[service]
	if !ok {
		return nil
	}
	return limiter.Wait(ctx)
}

// attempt issues one request on a context detached from caller cancellation.
func (c *Client) attempt(ctx context.Context, hc *http.Client, req Request, target, endpoint string, n int) (*Response, *TransportError) {
	reqCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opts.Timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &TransportError{Kind: KindTransport, Service: req.Service, Message: "failed to create request", Err: err}
	}
	httpReq.Header.Set("User-Agent", c.opts.UserAgent)
	for k, v := range req.Header {
		httpReq.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := hc.Do(httpReq)
	if err != nil {
		elapsed := time.Since(start)
		kind, outcome := KindTransport, OutcomeTransport
		if isTimeout(err) {
			kind, outcome = KindTimeout, OutcomeTimeout
		}
		c.log.APICall(ctx, req.Service, endpoint, n, 0, elapsed, "outcome", outcome, "error", err)
		c.observer.AttemptFinished(req.Service, outcome, 0, elapsed)
		return nil, &TransportError{Kind: kind, Service: req.Service, Err: err}
	}

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	_ = resp.Body.Close()
	elapsed := time.Since(start)

	outcome := OutcomeStatus
	if resp.StatusCode == http.StatusOK {
		outcome = OutcomeOK
	}
	c.log.APICall(ctx, req.Service, endpoint, n, resp.StatusCode, elapsed, "outcome", outcome)
	c.observer.AttemptFinished(req.Service, outcome, resp.StatusCode, elapsed)

	if readErr != nil {
		kind := KindTransport
		if isTimeout(readErr) {
			kind = KindTimeout
		}
		return nil, &TransportError{Kind: kind, StatusCode: resp.StatusCode, Service: req.Service, Message: "failed to read response", Err: readErr}
	}

	tooLarge := len(body) > maxBodyBytes
	if tooLarge {
		body = body[:maxBodyBytes]
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		if c.breaker != nil {
			c.breaker.Reset(ctx, req.Service)
		}
		if tooLarge {
			return nil, &TransportError{Kind: KindTooLarge, StatusCode: resp.StatusCode, Service: req.Service, Message: fmt.Sprintf("response body exceeds %d bytes", maxBodyBytes)}
		}
		decoded, err := decodeObject(body)
		if err != nil {
			return nil, &TransportError{Kind: KindInvalidBody, StatusCode: resp.StatusCode, Service: req.Service, Message: "response is not a JSON object", Err: err}
		}
		return &Response{Body: decoded, StatusCode: resp.StatusCode}, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, &TransportError{Kind: KindNotFound, StatusCode: resp.StatusCode, Service: req.Service, Message: "resource not found"}
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, &TransportError{Kind: kindServerError, StatusCode: resp.StatusCode, Service: req.Service, Message: string(body)}
	default:
		return nil, &TransportError{Kind: KindClientError, StatusCode: resp.StatusCode, Service: req.Service, Message: string(body)}
	}
}

func retryable(err *TransportError) bool {
	switch err.Kind {
	case KindTimeout, KindTransport, kindServerError:
		return true
	}
	return false
}

func canceled(service string, err error) *TransportError {
	return &TransportError{Kind: KindCanceled, Service: service, Message: "request cancelled", Err: err}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// buildURL merges req.Query into req.URL. The second value is the URL
// without its query string, safe to log.
func buildURL(req Request) (string, string, error) {
	u, err := url.Parse(req.URL)
	if err != nil {
		return "", "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", "", fmt.Errorf("url %q is not absolute", req.URL)
	}
	q := u.Query()
	for k, v := range req.Query {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()

	endpoint := *u
	endpoint.RawQuery = ""
	endpoint.User = nil
	return u.String(), endpoint.String(), nil
}

func decodeObject(body []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	if out == nil {
		return nil, errors.New("null body")
	}
	return out, nil
}
