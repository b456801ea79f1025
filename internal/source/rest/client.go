// Package rest is a client for the transaction backend's REST contract.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/core"
	"fintrack/internal/filter"
	"fintrack/internal/source"
)

// RequestIDHeader carries a per-request UUID to the backend.
const RequestIDHeader = "X-Request-ID"

// DefaultTimeout bounds a single backend request.
const DefaultTimeout = 10 * time.Second

// ErrUnavailable wraps transport and decoding failures.
var ErrUnavailable = errors.New("backend unavailable")

// Ensure interface conformance
var _ source.Source = (*Client)(nil)

// Client talks to a backend implementing /transactions and /summary.
type Client struct {
	base    *url.URL
	http    *http.Client
	timeout time.Duration
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient returns a client for the backend at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("backend url %q must be absolute", baseURL)
	}
	c := &Client{
		base:    u,
		http:    http.DefaultClient,
		timeout: DefaultTimeout,
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// ListTransactions calls GET /transactions with the filter's parameters.
func (c *Client) ListTransactions(ctx context.Context, f filter.Filter) ([]core.Record, error) {
	var recs []core.Record
	if err := c.do(ctx, http.MethodGet, "/transactions", f.Values(), nil, &recs); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	if recs == nil {
		recs = []core.Record{}
	}
	return recs, nil
}

// Summary calls GET /summary with the filter's parameters.
func (c *Client) Summary(ctx context.Context, f filter.Filter) (core.Summary, error) {
	var sum core.Summary
	if err := c.do(ctx, http.MethodGet, "/summary", f.Values(), nil, &sum); err != nil {
		return core.Summary{}, fmt.Errorf("get summary: %w", err)
	}
	return sum, nil
}

// CreateTransaction calls POST /transactions.
func (c *Client) CreateTransaction(ctx context.Context, s core.Submission) (core.Result, error) {
	return c.mutate(ctx, http.MethodPost, "/transactions", s)
}

// UpdateTransaction calls PUT /transactions/{id}, echoing the id verbatim.
func (c *Client) UpdateTransaction(ctx context.Context, id core.ID, s core.Submission) (core.Result, error) {
	return c.mutate(ctx, http.MethodPut, "/transactions/"+url.PathEscape(id.String()), s)
}

// DeleteTransaction calls DELETE /transactions/{id}.
func (c *Client) DeleteTransaction(ctx context.Context, id core.ID) (core.Result, error) {
	return c.mutate(ctx, http.MethodDelete, "/transactions/"+url.PathEscape(id.String()), nil)
}

func (c *Client) mutate(ctx context.Context, method, path string, body any) (core.Result, error) {
	var res core.Result
	if err := c.do(ctx, method, path, nil, body, &res); err != nil {
		return core.Result{}, fmt.Errorf("%s %s: %w", strings.ToLower(method), path, err)
	}
	if !res.Success {
		return core.Result{}, &source.RejectedError{Status: http.StatusOK, Message: res.Message}
	}
	return res, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u := *c.base
	u.Path = c.base.Path + path
	u.RawQuery = query.Encode()

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rdr)
	if err != nil {
		return err
	}
	reqID := uuid.NewString()
	req.Header.Set(RequestIDHeader, reqID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	c.logger.DebugContext(ctx, "Backend request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"request_id", reqID,
		"duration", time.Since(start))

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %w", ErrUnavailable, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var res core.Result
		if json.Unmarshal(data, &res) == nil && res.Message != "" {
			return &source.RejectedError{Status: resp.StatusCode, Message: res.Message}
		}
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: decode response: %w", ErrUnavailable, err)
	}
	return nil
}
