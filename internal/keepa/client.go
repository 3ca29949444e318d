package keepa

import (
	"context"
	"errors"
	"fmt"
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

const providerName = "keepa"

// Request identifies the item to price on one Keepa domain.
type Request struct {
	APIKey     string
	Domain     int
	Identifier string
	Name       string
	Brand      string
}

// Result is a priced Keepa product.
type Result struct {
	ASIN    string             `json:"asin"`
	Title   string             `json:"title"`
	Price   float64            `json:"price"`
	Method  string             `json:"method"`
	Matched string             `json:"matched"` // "code" or "search"
	History []model.PricePoint `json:"history"`
}

// Client queries the Keepa product API.
type Client struct {
	http    *fetch.Client
	baseURL string
	limiter *ratelimit.Limiter
	cache   cache.Store
	ttl     time.Duration
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithCache caches successful lookups for ttl.
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

// NewClient creates a Keepa client.
func NewClient(cfg config.KeepaConfig, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		logger:  slog.Default(),
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

// Lookup prices an item: a product-code lookup first, then a text search on
// brand and name whose first hit is re-fetched in full. A missing API key is
// a NotFound outcome.
func (c *Client) Lookup(ctx context.Context, req Request) (*Result, fetch.Outcome) {
	if req.APIKey == "" {
		return nil, fetch.Missing("no keepa credentials")
	}

	key := cache.KeepaKey(req.Domain, req.Identifier)
	if c.cache != nil && req.Identifier != "" {
		var cached Result
		if found, err := c.cache.Get(ctx, key, &cached); err == nil && found {
			return &cached, fetch.OK()
		}
	}

	attempts := []func(context.Context, Request) (*Result, fetch.Outcome){
		c.byCode,
		c.bySearch,
	}

	last := fetch.Missing("no keepa product")
	for _, attempt := range attempts {
		res, out := attempt(ctx, req)
		if out.Ok() {
			if c.cache != nil && req.Identifier != "" {
				if err := c.cache.Put(ctx, key, res, c.ttl); err != nil {
					c.logger.Warn("keepa cache write failed", "key", key, "error", err)
				}
			}
			return res, out
		}
		if out.Kind == fetch.Transient || last.Kind != fetch.Transient {
			last = out
		}
		if ctx.Err() != nil {
			break
		}
	}
	return nil, last
}

func (c *Client) byCode(ctx context.Context, req Request) (*Result, fetch.Outcome) {
	if req.Identifier == "" {
		return nil, fetch.Missing("no identifier")
	}
	q := c.params(req)
	q.Set("code", req.Identifier)
	q.Set("stats", "90")

	p, out := c.product(ctx, q)
	if !out.Ok() {
		return nil, out
	}
	return priced(p, "code")
}

func (c *Client) bySearch(ctx context.Context, req Request) (*Result, fetch.Outcome) {
	term := SearchTerm(req.Brand, req.Name)
	if term == "" {
		return nil, fetch.Missing("no search term")
	}

	q := c.params(req)
	q.Set("type", "product")
	q.Set("term", term)

	var sr searchResponse
	if out := c.get(ctx, "/search", q, &sr); !out.Ok() {
		return nil, out
	}
	if sr.Error != nil {
		return nil, fetch.Failed(apiErr(sr.Error))
	}

	asin := ""
	switch {
	case len(sr.ASINList) > 0:
		asin = sr.ASINList[0]
	case len(sr.Products) > 0:
		asin = sr.Products[0].ASIN
	}
	if asin == "" {
		return nil, fetch.Missing("keepa search returned no products")
	}

	dq := c.params(req)
	dq.Set("asin", asin)
	dq.Set("stats", "90")
	p, out := c.product(ctx, dq)
	if !out.Ok() {
		return nil, out
	}
	return priced(p, "search")
}

func (c *Client) product(ctx context.Context, q url.Values) (Product, fetch.Outcome) {
	var pr productResponse
	if out := c.get(ctx, "/product", q, &pr); !out.Ok() {
		return Product{}, out
	}
	if pr.Error != nil {
		return Product{}, fetch.Failed(apiErr(pr.Error))
	}
	for _, p := range pr.Products {
		if p.ASIN != "" {
			return p, fetch.OK()
		}
	}
	return Product{}, fetch.Missing("keepa returned no products")
}

func (c *Client) get(ctx context.Context, path string, q url.Values, into any) fetch.Outcome {
	if err := c.limiter.Wait(ctx); err != nil {
		return fetch.Failed(&model.ExternalServiceError{Provider: providerName, Err: err})
	}
	return c.http.GetJSON(ctx, providerName, c.baseURL+path+"?"+q.Encode(), into)
}

func (c *Client) params(req Request) url.Values {
	q := url.Values{}
	q.Set("key", req.APIKey)
	q.Set("domain", strconv.Itoa(req.Domain))
	return q
}

func priced(p Product, matched string) (*Result, fetch.Outcome) {
	price, method, ok := ExtractPrice(p)
	if !ok {
		return nil, fetch.Missing(fmt.Sprintf("keepa product %s has no price", p.ASIN))
	}
	return &Result{
		ASIN:    p.ASIN,
		Title:   p.Title,
		Price:   price,
		Method:  method,
		Matched: matched,
		History: History(p),
	}, fetch.OK()
}

// SearchTerm builds a text query from brand and name, ignoring placeholder
// values.
func SearchTerm(brand, name string) string {
	var parts []string
	for _, s := range []string{brand, name} {
		s = strings.TrimSpace(s)
		if s != "" && s != model.Unspecified {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

func apiErr(e *apiError) error {
	return &model.ExternalServiceError{Provider: providerName, Err: errors.New(e.Type + ": " + e.Message)}
}
