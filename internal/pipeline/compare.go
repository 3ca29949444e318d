// Package pipeline assembles a full ComparisonResult for one catalog item
// from the price, margin, trend, score, forecast and arbitrage components.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/guarzo/resellgap/internal/analysis"
	"github.com/guarzo/resellgap/internal/config"
	"github.com/guarzo/resellgap/internal/forecast"
	"github.com/guarzo/resellgap/internal/model"
	"github.com/guarzo/resellgap/internal/prices"
	"github.com/guarzo/resellgap/internal/trend"
)

// PriceResolver resolves the reference and open-web prices of an item.
type PriceResolver interface {
	Resolve(ctx context.Context, item model.CatalogItem, creds prices.Credentials) prices.Resolution
}

// ArbitrageAnalyzer compares an item across regional markets.
type ArbitrageAnalyzer interface {
	Analyze(ctx context.Context, item model.CatalogItem, creds prices.Credentials, buyPrice float64) *model.ArbitrageReport
}

// ItemSource looks up catalog items by ID.
type ItemSource interface {
	Item(ctx context.Context, id string) (model.CatalogItem, error)
}

// Comparer runs the single-item comparison.
type Comparer struct {
	resolver  PriceResolver
	arbitrage ArbitrageAnalyzer
	tracker   *trend.Tracker
	calc      analysis.Calculator
	predictor *forecast.Predictor
	now       func() time.Time
	newID     func() string
	logger    *slog.Logger
}

// Option configures a Comparer.
type Option func(*Comparer)

// WithArbitrage enables the multi-market comparison.
func WithArbitrage(a ArbitrageAnalyzer) Option {
	return func(c *Comparer) { c.arbitrage = a }
}

// WithTracker records observed reference prices and uses them as history
// when the provider returns none.
func WithTracker(t *trend.Tracker) Option {
	return func(c *Comparer) { c.tracker = t }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Comparer) { c.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Comparer) { c.logger = l }
}

// NewComparer creates a comparer using the configured fee rate.
func NewComparer(cfg config.Config, resolver PriceResolver, opts ...Option) *Comparer {
	calc := analysis.NewCalculator(cfg.FeeRate)
	c := &Comparer{
		resolver:  resolver,
		calc:      calc,
		predictor: forecast.NewPredictor(calc),
		now:       time.Now,
		newID:     uuid.NewString,
		logger:    slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Compare builds the comparison result for item. It never fails: missing
// prices leave the corresponding fields nil.
func (c *Comparer) Compare(ctx context.Context, item model.CatalogItem, creds prices.Credentials) model.ComparisonResult {
	now := c.now()
	res := c.resolver.Resolve(ctx, item, creds)

	out := model.ComparisonResult{
		ID:                 c.newID(),
		ProductID:          item.ID,
		ProductName:        item.Name,
		Identifier:         item.Identifier,
		Brand:              item.Brand,
		Category:           item.Category,
		Currency:           item.Currency,
		SupplierPrice:      item.SupplierPrice,
		ReferencePrice:     res.ReferencePrice,
		ReferenceSource:    res.ReferenceSource,
		OpenWebLowestPrice: res.OpenWebLowest,
		OpenWebQuotes:      res.OpenWebQuotes,
		IsMockData:         res.IsMock,
		ComparedAt:         now,
	}
	if out.OpenWebQuotes == nil {
		out.OpenWebQuotes = []model.PriceQuote{}
	}

	m := c.calc.Compare(res.ReferencePrice, item.SupplierPrice, res.OpenWebLowest)
	out.CheapestSource = m.Cheapest
	out.Fees = m.Fee
	out.MarginSupplier = m.Supplier
	out.MarginOpenWeb = m.OpenWeb
	out.MarginBest = m.Best

	in := analysis.ScoreInput{CompetitorCount: len(res.OpenWebQuotes)}
	if m.Best != nil {
		in.MarginPct = m.Best.Percent
	}

	if res.ReferencePrice != nil {
		current := *res.ReferencePrice
		out.Trend = trend.Analyze(c.history(item, res, now), current, now)
		if out.Trend != nil {
			in.Direction = out.Trend.Direction
			in.VolatilityPct = out.Trend.VolatilityPct
			in.Current = current
			in.Avg30 = out.Trend.Avg30
		}
		out.Forecast = c.predictor.Predict(out.Trend, analysis.BestBuyPrice(item.SupplierPrice, res.OpenWebLowest))
	}

	score := analysis.Score(in)
	out.OpportunityScore = score.Total
	out.OpportunityLevel = score.Level
	out.ScoreBreakdown = score.Breakdown

	if c.arbitrage != nil {
		out.Arbitrage = c.arbitrage.Analyze(ctx, item, creds, analysis.BestBuyPrice(item.SupplierPrice, res.OpenWebLowest))
	}

	c.logger.Debug("item compared",
		"item", item.ID,
		"reference", res.ReferenceSource,
		"score", out.OpportunityScore,
		"mock", out.IsMockData)
	return out
}

// CompareByID looks the item up and compares it. Unknown IDs return an
// error wrapping model.ErrNotFound.
func (c *Comparer) CompareByID(ctx context.Context, items ItemSource, id string, creds prices.Credentials) (model.ComparisonResult, error) {
	item, err := items.Item(ctx, id)
	if err != nil {
		return model.ComparisonResult{}, fmt.Errorf("item %s: %w", id, err)
	}
	return c.Compare(ctx, item, creds), nil
}

// history prefers the provider series and falls back to prices recorded
// by earlier runs. Real reference prices are recorded for later runs.
func (c *Comparer) history(item model.CatalogItem, res prices.Resolution, now time.Time) []model.PricePoint {
	if c.tracker == nil || res.IsMock {
		return res.History
	}
	key := trackingKey(item)
	past := c.tracker.History(key)
	c.tracker.Record(key, *res.ReferencePrice, now)
	if len(res.History) >= 2 {
		return res.History
	}
	return past
}

// trackingKey is the product code, since row-based IDs shift when the
// catalog file is edited between runs.
func trackingKey(item model.CatalogItem) string {
	if item.Identifier != "" {
		return item.Identifier
	}
	return item.ID
}
