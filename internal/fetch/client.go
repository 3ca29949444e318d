package fetch

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/guarzo/resellgap/internal/model"
)

const maxErrorBody = 512

// Client issues JSON GET requests to price providers with retry and
// exponential backoff. 4xx responses are not retried.
type Client struct {
	http       *http.Client
	maxRetries int
	baseDelay  time.Duration
	userAgent  string
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithRetries sets the attempt count and the first backoff delay.
func WithRetries(n int, base time.Duration) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxRetries = n
		}
		c.baseDelay = base
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithLogger sets the logger used for retry messages.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a client whose individual requests time out after
// timeout.
func NewClient(timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := &Client{
		http:       &http.Client{Timeout: timeout},
		maxRetries: 3,
		baseDelay:  time.Second,
		userAgent:  "resellgap/1.0",
		logger:     slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// GetJSON fetches u and decodes the body into into. provider names the
// upstream service in errors and logs.
func (c *Client) GetJSON(ctx context.Context, provider, u string, into any) Outcome {
	var last Outcome
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.baseDelay * time.Duration(1<<(attempt-1))
			select {
			case <-ctx.Done():
				return Failed(&model.ExternalServiceError{Provider: provider, Err: ctx.Err()})
			case <-time.After(delay):
			}
		}

		out, retry := c.do(ctx, provider, u, into)
		if !retry {
			return out
		}
		last = out
		c.logger.Debug("retrying provider request",
			"provider", provider,
			"attempt", attempt+1,
			"max", c.maxRetries,
			"error", out.Err)
	}
	return last
}

func (c *Client) do(ctx context.Context, provider, u string, into any) (Outcome, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Failed(fmt.Errorf("creating request: %w", err)), false
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "gzip, br")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		out := Failed(&model.ExternalServiceError{Provider: provider, Err: err})
		return out, ctx.Err() == nil
	}
	defer resp.Body.Close()

	body, err := Reader(resp)
	if err != nil {
		return Failed(&model.ExternalServiceError{Provider: provider, Status: resp.StatusCode, Err: err}), false
	}

	switch {
	case resp.StatusCode/100 == 2:
		if err := json.NewDecoder(body).Decode(into); err != nil {
			return Failed(&model.ExternalServiceError{
				Provider: provider,
				Status:   resp.StatusCode,
				Err:      fmt.Errorf("decoding response: %w", err),
			}), false
		}
		return OK(), false
	case resp.StatusCode == http.StatusNotFound:
		return Missing(fmt.Sprintf("%s: HTTP 404", provider)), false
	case resp.StatusCode/100 == 4 && resp.StatusCode != http.StatusTooManyRequests:
		return Failed(statusError(provider, resp.StatusCode, body)), false
	default:
		return Failed(statusError(provider, resp.StatusCode, body)), true
	}
}

func statusError(provider string, status int, body io.Reader) error {
	b, _ := io.ReadAll(io.LimitReader(body, maxErrorBody))
	return &model.ExternalServiceError{Provider: provider, Status: status, Err: errors.New(string(b))}
}

// Reader returns the decoded body of resp according to its
// Content-Encoding. Unknown encodings fall back to the raw body.
func Reader(resp *http.Response) (io.Reader, error) {
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		return gzip.NewReader(resp.Body)
	case "br":
		return brotli.NewReader(resp.Body), nil
	default:
		return resp.Body, nil
	}
}
