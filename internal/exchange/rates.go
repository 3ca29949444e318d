package exchange

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/guarzo/resellgap/internal/cache"
	"github.com/guarzo/resellgap/internal/config"
	"github.com/guarzo/resellgap/internal/fetch"
)

// Source looks up a live conversion rate: one unit of from in to.
type Source interface {
	Rate(ctx context.Context, from, to string) (float64, error)
}

// HTTPSource reads rates from a Frankfurter-compatible API.
type HTTPSource struct {
	http    *fetch.Client
	baseURL string
}

// NewHTTPSource creates a rate source for baseURL.
func NewHTTPSource(baseURL string, f *fetch.Client) *HTTPSource {
	if f == nil {
		f = fetch.NewClient(10 * time.Second)
	}
	return &HTTPSource{http: f, baseURL: strings.TrimRight(baseURL, "/")}
}

type latestResponse struct {
	Base  string             `json:"base"`
	Rates map[string]float64 `json:"rates"`
}

func (s *HTTPSource) Rate(ctx context.Context, from, to string) (float64, error) {
	q := url.Values{}
	q.Set("from", from)
	q.Set("to", to)

	var resp latestResponse
	if out := s.http.GetJSON(ctx, "exchange", s.baseURL+"/latest?"+q.Encode(), &resp); !out.Ok() {
		return 0, out.Err
	}
	r, ok := resp.Rates[to]
	if !ok || r <= 0 {
		return 0, fmt.Errorf("no %s rate for %s", to, from)
	}
	return r, nil
}

// Converter turns prices into the base currency. Live rates are used when a
// source answers; otherwise the fixed fallback table applies.
type Converter struct {
	source   Source
	fallback map[string]float64 // value of one unit in the reference currency
	cache    cache.Store
	ttl      time.Duration
	logger   *slog.Logger
}

// Option configures a Converter.
type Option func(*Converter)

// WithSource sets the live rate source.
func WithSource(s Source) Option {
	return func(c *Converter) { c.source = s }
}

// WithCache caches live rates for ttl.
func WithCache(s cache.Store, ttl time.Duration) Option {
	return func(c *Converter) {
		c.cache = s
		c.ttl = ttl
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Converter) { c.logger = l }
}

// NewConverter creates a converter with the configured fallback rates.
func NewConverter(cfg config.ExchangeConfig, opts ...Option) *Converter {
	fallback := cfg.FallbackRates
	if len(fallback) == 0 {
		fallback = config.DefaultFallbackRates()
	}
	c := &Converter{fallback: normalizeKeys(fallback), logger: slog.Default()}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Rate returns how many units of to one unit of from is worth. It never
// fails: unknown currencies convert at par.
func (c *Converter) Rate(ctx context.Context, from, to string) float64 {
	from, to = strings.ToUpper(from), strings.ToUpper(to)
	if from == to || from == "" || to == "" {
		return 1
	}

	if c.source != nil {
		key := cache.RateKey(from, to)
		if c.cache != nil {
			var r float64
			if found, err := c.cache.Get(ctx, key, &r); err == nil && found && r > 0 {
				return r
			}
		}
		r, err := c.source.Rate(ctx, from, to)
		if err == nil {
			if c.cache != nil {
				_ = c.cache.Put(ctx, key, r, c.ttl)
			}
			return r
		}
		c.logger.Warn("live exchange rate unavailable, using fallback",
			"from", from, "to", to, "error", err)
	}

	r, err := c.FallbackRate(from, to)
	if err != nil {
		c.logger.Warn("no fallback exchange rate, converting at par", "from", from, "to", to)
		return 1
	}
	return r
}

// FallbackRate computes a rate from the fixed table.
func (c *Converter) FallbackRate(from, to string) (float64, error) {
	f, okFrom := c.fallback[strings.ToUpper(from)]
	t, okTo := c.fallback[strings.ToUpper(to)]
	if !okFrom || !okTo || f <= 0 || t <= 0 {
		return 0, errors.New("currency missing from fallback table")
	}
	return f / t, nil
}

// Convert converts amount from one currency to another.
func (c *Converter) Convert(ctx context.Context, amount float64, from, to string) float64 {
	return amount * c.Rate(ctx, from, to)
}

func normalizeKeys(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[strings.ToUpper(k)] = v
	}
	return out
}
