// Package viewerapi is a small JSON client for the lifelog viewer service REST API.
package viewerapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"
)

const (
	// DefaultTimeout bounds every request made by the client.
	DefaultTimeout   = 15 * time.Second
	defaultUserAgent = "lifelog-viewer/1.0"
)

// NetworkError is returned when a request fails in transport or the service answers
// with a non-2xx status. StatusCode is zero for transport failures.
type NetworkError struct {
	Err        error
	Path       string
	StatusCode int
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("request %s: HTTP status %d", e.Path, e.StatusCode)
	}
	return fmt.Sprintf("request %s: %v", e.Path, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Client talks to the viewer service. The base URL may be replaced at any time;
// requests already in flight keep the URL they started with.
type Client struct {
	base      atomic.Pointer[string]
	http      *http.Client
	userAgent string
	timeout   time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithHTTPClient replaces the underlying HTTP client. Its Timeout is left untouched.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// New creates a client for the service at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		userAgent: defaultUserAgent,
		timeout:   DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: c.timeout}
	}
	c.SetBaseURL(baseURL)
	return c
}

// BaseURL returns the current service address.
func (c *Client) BaseURL() string {
	return *c.base.Load()
}

// SetBaseURL replaces the service address used by subsequent requests.
func (c *Client) SetBaseURL(baseURL string) {
	normalized := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	c.base.Store(&normalized)
}

// WithBaseURL returns a copy of the client pointed at another address.
// The copy shares the HTTP client; the receiver is not modified.
func (c *Client) WithBaseURL(baseURL string) *Client {
	clone := &Client{
		http:      c.http,
		userAgent: c.userAgent,
		timeout:   c.timeout,
	}
	clone.SetBaseURL(baseURL)
	return clone
}

// Request performs GET base+path with the given query and decodes the JSON body into dest.
// A nil dest discards the body.
func (c *Client) Request(ctx context.Context, path string, query url.Values, dest any) error {
	base := c.BaseURL()
	u, err := url.Parse(base + path)
	if err != nil {
		return &NetworkError{Path: path, Err: fmt.Errorf("parse url: %w", err)}
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	if _, ok := ctx.Deadline(); !ok && c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return &NetworkError{Path: path, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		slog.Debug("[API] Request failed", "path", path, "error", err)
		return &NetworkError{Path: path, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	slog.Debug("[API] Response", "path", path, "status", resp.StatusCode, "duration", time.Since(start))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &NetworkError{
			Path:       path,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %s", resp.Status),
		}
	}
	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return &NetworkError{Path: path, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// TestConnection reports whether GET /api/dashboard succeeds with a 2xx status.
// It never returns an error and never panics.
func (c *Client) TestConnection(ctx context.Context) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("[API] Connection test panicked", "panic", r, "base_url", c.BaseURL())
			ok = false
		}
	}()

	err := c.Request(ctx, "/api/dashboard", nil, nil)
	if err != nil {
		var netErr *NetworkError
		if errors.As(err, &netErr) && netErr.StatusCode != 0 {
			slog.Info("[API] Connection test got error status", "base_url", c.BaseURL(), "status", netErr.StatusCode)
		} else {
			slog.Info("[API] Connection test failed", "base_url", c.BaseURL(), "error", err)
		}
		return false
	}
	return true
}

// Probe runs TestConnection against endpoint without changing the client's own base URL.
func (c *Client) Probe(ctx context.Context, endpoint string) bool {
	return c.WithBaseURL(endpoint).TestConnection(ctx)
}
