package prices

import (
	"context"
	"log/slog"
	"time"

	"github.com/guarzo/resellgap/internal/config"
	"github.com/guarzo/resellgap/internal/fetch"
	"github.com/guarzo/resellgap/internal/keepa"
	"github.com/guarzo/resellgap/internal/model"
	"github.com/guarzo/resellgap/internal/websearch"
)

// Credentials are the caller's provider tokens. Empty values mean the
// provider is not configured.
type Credentials struct {
	KeepaKey       string
	SearchKey      string
	SearchEngineID string
}

// HasReference reports whether the reference marketplace can be queried.
func (c Credentials) HasReference() bool { return c.KeepaKey != "" }

// HasOpenWeb reports whether the open-web search can be queried.
func (c Credentials) HasOpenWeb() bool { return c.SearchKey != "" && c.SearchEngineID != "" }

// ReferenceProvider prices an item on the reference marketplace.
type ReferenceProvider interface {
	Lookup(ctx context.Context, req keepa.Request) (*keepa.Result, fetch.Outcome)
}

// OpenWebProvider finds competitor prices on the open web.
type OpenWebProvider interface {
	Search(ctx context.Context, req websearch.Request) ([]model.PriceQuote, fetch.Outcome)
}

// Resolution is everything the price engine learned about one item.
type Resolution struct {
	ReferencePrice  *float64
	ReferenceSource string
	ASIN            string
	History         []model.PricePoint
	OpenWebQuotes   []model.PriceQuote
	OpenWebLowest   *float64
	IsMock          bool
}

// MarketPrice is a reference price in one regional market.
type MarketPrice struct {
	Price    float64
	Currency string
	IsMock   bool
}

// Resolver is the price resolution engine.
type Resolver struct {
	reference ReferenceProvider
	openWeb   OpenWebProvider
	synthetic *Synthetic
	domain    int
	currency  string
	now       func() time.Time
	logger    *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithClock overrides the time source used for synthetic histories.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// NewResolver creates a resolver over the two providers. Either may be nil.
func NewResolver(cfg config.Config, reference ReferenceProvider, openWeb OpenWebProvider, opts ...Option) *Resolver {
	r := &Resolver{
		reference: reference,
		openWeb:   openWeb,
		synthetic: NewSynthetic(cfg.Categories, cfg.BaseCurrency),
		domain:    cfg.PrimaryMarket().Domain,
		currency:  cfg.BaseCurrency,
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Resolve prices one item. Provider failures are logged and absorbed; when
// no reference price can be obtained a synthetic one is used and the
// resolution is flagged as mock.
func (r *Resolver) Resolve(ctx context.Context, item model.CatalogItem, creds Credentials) Resolution {
	var res Resolution

	ref, out := r.lookupReference(ctx, item, creds, r.domain)
	if out.Ok() {
		price := ref.Price
		res.ReferencePrice = &price
		res.ReferenceSource = "keepa:" + ref.Method
		res.ASIN = ref.ASIN
		res.History = ref.History
		sortHistory(res.History)
	} else {
		r.logOutcome("keepa", item, out)
	}

	quotes, out := r.searchOpenWeb(ctx, item, creds)
	if out.Ok() {
		res.OpenWebQuotes = quotes
	} else {
		r.logOutcome("websearch", item, out)
	}

	if res.ReferencePrice == nil {
		syn := r.synthetic.Generate(item, r.now())
		price := syn.ReferencePrice
		res.ReferencePrice = &price
		res.ReferenceSource = "synthetic"
		res.ASIN = syn.ASIN
		res.History = syn.History
		res.IsMock = true
		if !creds.HasOpenWeb() {
			res.OpenWebQuotes = syn.OpenWeb
		}
	}

	if i := websearch.MarkLowest(res.OpenWebQuotes); i >= 0 {
		lowest := res.OpenWebQuotes[i].Value
		res.OpenWebLowest = &lowest
	}
	return res
}

// ResolveMarket prices an item on one regional marketplace using the
// reference provider only. Without a reference credential the price is
// synthetic; with one, a failed lookup yields the failing outcome.
func (r *Resolver) ResolveMarket(ctx context.Context, item model.CatalogItem, creds Credentials, market config.MarketConfig) (MarketPrice, fetch.Outcome) {
	if !creds.HasReference() || r.reference == nil {
		return MarketPrice{
			Price:    r.synthetic.MarketPrice(item, market.Code, r.now()),
			Currency: r.currency,
			IsMock:   true,
		}, fetch.OK()
	}

	ref, out := r.lookupReference(ctx, item, creds, market.Domain)
	if !out.Ok() {
		return MarketPrice{}, out
	}
	return MarketPrice{Price: ref.Price, Currency: market.Currency}, out
}

func (r *Resolver) lookupReference(ctx context.Context, item model.CatalogItem, creds Credentials, domain int) (*keepa.Result, fetch.Outcome) {
	if !creds.HasReference() || r.reference == nil {
		return nil, fetch.Missing("reference marketplace not configured")
	}
	return r.reference.Lookup(ctx, keepa.Request{
		APIKey:     creds.KeepaKey,
		Domain:     domain,
		Identifier: item.Identifier,
		Name:       item.Name,
		Brand:      item.Brand,
	})
}

func (r *Resolver) searchOpenWeb(ctx context.Context, item model.CatalogItem, creds Credentials) ([]model.PriceQuote, fetch.Outcome) {
	if !creds.HasOpenWeb() || r.openWeb == nil {
		return nil, fetch.Missing("open-web search not configured")
	}
	return r.openWeb.Search(ctx, websearch.Request{
		APIKey:   creds.SearchKey,
		EngineID: creds.SearchEngineID,
		Query:    keepa.SearchTerm(item.Brand, item.Name),
		Currency: r.currency,
	})
}

func (r *Resolver) logOutcome(provider string, item model.CatalogItem, out fetch.Outcome) {
	level := slog.LevelWarn
	if out.Kind == fetch.NotFound {
		level = slog.LevelDebug
	}
	r.logger.Log(context.Background(), level, "price provider attempt failed",
		"provider", provider,
		"item", item.Identifier,
		"outcome", out.String())
}
