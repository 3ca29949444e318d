package websearch

import (
	"context"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/guarzo/resellgap/internal/cache"
	"github.com/guarzo/resellgap/internal/config"
	"github.com/guarzo/resellgap/internal/fetch"
	"github.com/guarzo/resellgap/internal/model"
	"github.com/guarzo/resellgap/internal/ratelimit"
)

const providerName = "websearch"

// Item is one search result in the Custom Search JSON shape.
type Item struct {
	Title       string                         `json:"title"`
	HTMLTitle   string                         `json:"htmlTitle"`
	Link        string                         `json:"link"`
	DisplayLink string                         `json:"displayLink"`
	Snippet     string                         `json:"snippet"`
	HTMLSnippet string                         `json:"htmlSnippet"`
	PageMap     map[string][]map[string]string `json:"pagemap"`
}

type searchResponse struct {
	Items []Item `json:"items"`
}

// Request is one open-web query.
type Request struct {
	APIKey   string
	EngineID string
	Query    string
	Currency string
}

// Client queries a web search API for competitor prices.
type Client struct {
	http       *fetch.Client
	baseURL    string
	maxResults int
	limiter    *ratelimit.Limiter
	cache      cache.Store
	ttl        time.Duration
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithCache caches quote lists for ttl.
func WithCache(s cache.Store, ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = s
		c.ttl = ttl
	}
}

// WithLimiter throttles requests.
func WithLimiter(l *ratelimit.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithFetcher replaces the HTTP layer.
func WithFetcher(f *fetch.Client) Option {
	return func(c *Client) { c.http = f }
}

// NewClient creates an open-web search client.
func NewClient(cfg config.WebSearchConfig, opts ...Option) *Client {
	c := &Client{
		baseURL:    cfg.BaseURL,
		maxResults: cfg.MaxResults,
		logger:     slog.Default(),
	}
	if c.maxResults <= 0 || c.maxResults > 10 {
		c.maxResults = 10
	}
	for _, o := range opts {
		o(c)
	}
	if c.http == nil {
		c.http = fetch.NewClient(cfg.Timeout, fetch.WithLogger(c.logger))
	}
	return c
}

// GetProviderName identifies the provider in logs and results.
func (c *Client) GetProviderName() string {
	return providerName
}

// Search runs the query and returns one quote per result that carries a
// price. An empty list with a Success outcome is a normal answer.
func (c *Client) Search(ctx context.Context, req Request) ([]model.PriceQuote, fetch.Outcome) {
	if req.APIKey == "" || req.EngineID == "" {
		return nil, fetch.Missing("no web search credentials")
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, fetch.Missing("empty query")
	}

	key := cache.WebSearchKey(query)
	if c.cache != nil {
		var cached []model.PriceQuote
		if found, err := c.cache.Get(ctx, key, &cached); err == nil && found {
			return cached, fetch.OK()
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fetch.Failed(&model.ExternalServiceError{Provider: providerName, Err: err})
	}

	q := url.Values{}
	q.Set("key", req.APIKey)
	q.Set("cx", req.EngineID)
	q.Set("q", query)
	q.Set("num", strconv.Itoa(c.maxResults))

	var sr searchResponse
	if out := c.http.GetJSON(ctx, providerName, c.baseURL+"?"+q.Encode(), &sr); !out.Ok() {
		return nil, out
	}

	quotes := Quotes(sr.Items, req.Currency)
	if c.cache != nil {
		if err := c.cache.Put(ctx, key, quotes, c.ttl); err != nil {
			c.logger.Warn("web search cache write failed", "key", key, "error", err)
		}
	}
	return quotes, fetch.OK()
}

// Quotes converts search results into competitor quotes and flags the
// lowest one.
func Quotes(items []Item, currency string) []model.PriceQuote {
	var quotes []model.PriceQuote
	for _, it := range items {
		price, ok := ResultPrice(it)
		if !ok {
			continue
		}
		quotes = append(quotes, model.PriceQuote{
			Source:   model.SourceOpenWeb,
			Value:    price,
			Currency: currency,
			Supplier: supplierLabel(it),
			URL:      it.Link,
		})
	}
	MarkLowest(quotes)
	return quotes
}

// MarkLowest flags the first quote holding the minimum price and returns
// its index, or -1 for an empty list.
func MarkLowest(quotes []model.PriceQuote) int {
	lowest := -1
	for i := range quotes {
		quotes[i].IsLowest = false
		if lowest < 0 || quotes[i].Value < quotes[lowest].Value {
			lowest = i
		}
	}
	if lowest >= 0 {
		quotes[lowest].IsLowest = true
	}
	return lowest
}

func supplierLabel(it Item) string {
	host := it.DisplayLink
	if host == "" {
		if u, err := url.Parse(it.Link); err == nil {
			host = u.Host
		}
	}
	return strings.TrimPrefix(host, "www.")
}
