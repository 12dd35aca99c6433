package shopify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"
)

// HTTPClient is the subset of *http.Client the transport needs.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// TimeoutRequest bounds a single HTTP round trip.
const TimeoutRequest = 60 * time.Second

// Retry defaults for throttled calls.
const (
	DefaultMaxRetries = 3
	DefaultBackoff    = 500 * time.Millisecond
)

// Client talks to one shop.
type Client struct {
	endpoint   string
	token      string
	http       HTTPClient
	logger     *slog.Logger
	maxRetries int
	backoff    time.Duration
	pageSize   int
	sleep      func(ctx context.Context, d time.Duration) error
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default *http.Client.
func WithHTTPClient(h HTTPClient) Option {
	return func(c *Client) {
		c.http = h
	}
}

// WithLogger sets the logger used for retries and slow calls.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithRetry sets how often a throttled call is retried and the initial
// backoff, which doubles per attempt.
func WithRetry(maxRetries int, backoff time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.backoff = backoff
	}
}

// WithPageSize sets the page size of connection queries (1..250).
func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 && n <= 250 {
			c.pageSize = n
		}
	}
}

// NewClient creates a client for the GraphQL endpoint of one shop.
func NewClient(endpoint, token string, opts ...Option) *Client {
	c := &Client{
		endpoint:   endpoint,
		token:      token,
		http:       &http.Client{Timeout: TimeoutRequest},
		logger:     slog.New(slog.DiscardHandler),
		maxRetries: DefaultMaxRetries,
		backoff:    DefaultBackoff,
		pageSize:   50,
		sleep:      sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type request struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type envelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []GraphQLError  `json:"errors"`
}

// do executes one GraphQL document and decodes its data into out. Throttled
// calls are retried with exponential backoff.
func (c *Client) do(ctx context.Context, query string, vars map[string]any, out any) error {
	body, err := json.Marshal(request{Query: query, Variables: vars})
	if err != nil {
		return &Error{Kind: KindEncode, Err: err}
	}

	delay := c.backoff
	for attempt := 0; ; attempt++ {
		err := c.send(ctx, body, out)
		if err == nil || !IsThrottled(err) || attempt >= c.maxRetries {
			return err
		}
		c.logger.Warn("throttled, retrying", "attempt", attempt+1, "delay", delay)
		if err := c.sleep(ctx, delay); err != nil {
			return &Error{Kind: KindNetwork, Err: err}
		}
		delay *= 2
	}
}

func (c *Client) send(ctx context.Context, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return &Error{Kind: KindNetwork, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("X-Shopify-Access-Token", c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Kind: KindNetwork, Err: err}
	}
	defer resp.Body.Close()

	data, err := readBody(resp)
	if err != nil {
		return &Error{Kind: KindNetwork, Status: resp.StatusCode, Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return &Error{Kind: KindThrottled, Status: resp.StatusCode, Message: snippet(data)}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return &Error{Kind: KindStatus, Status: resp.StatusCode, Message: snippet(data)}
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return &Error{Kind: KindDecode, Status: resp.StatusCode, Err: err}
	}
	if len(env.Errors) > 0 {
		kind := KindGraphQL
		for _, e := range env.Errors {
			if e.Code() == "THROTTLED" {
				kind = KindThrottled
			}
		}
		return &Error{Kind: kind, Status: resp.StatusCode, GraphQL: env.Errors}
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &Error{Kind: KindDecode, Status: resp.StatusCode, Err: err}
	}
	return nil
}

func readBody(resp *http.Response) ([]byte, error) {
	var r io.Reader = resp.Body
	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		defer zr.Close()
		r = zr
	}
	return io.ReadAll(r)
}

func snippet(data []byte) string {
	const max = 200
	s := strings.TrimSpace(string(data))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
