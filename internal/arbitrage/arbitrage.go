// Package arbitrage compares an item's resale margin across regional
// reference marketplaces.
package arbitrage

import (
	"context"
	"log/slog"
	"math"
	"sync"

	"github.com/guarzo/resellgap/internal/analysis"
	"github.com/guarzo/resellgap/internal/config"
	"github.com/guarzo/resellgap/internal/fetch"
	"github.com/guarzo/resellgap/internal/model"
	"github.com/guarzo/resellgap/internal/prices"
)

// ReasonNoMarket is reported when no configured market could price the item.
const ReasonNoMarket = "no market returned a price"

// MarketResolver prices an item on one regional marketplace.
type MarketResolver interface {
	ResolveMarket(ctx context.Context, item model.CatalogItem, creds prices.Credentials, market config.MarketConfig) (prices.MarketPrice, fetch.Outcome)
}

// Converter converts amounts between currencies.
type Converter interface {
	Rate(ctx context.Context, from, to string) float64
}

// Analyzer runs the multi-market comparison.
type Analyzer struct {
	resolver MarketResolver
	rates    Converter
	calc     analysis.Calculator
	markets  []config.MarketConfig
	base     string
	logger   *slog.Logger
}

// NewAnalyzer creates an analyzer over the configured markets.
func NewAnalyzer(cfg config.Config, resolver MarketResolver, rates Converter, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{
		resolver: resolver,
		rates:    rates,
		calc:     analysis.NewCalculator(cfg.FeeRate),
		markets:  cfg.Markets,
		base:     cfg.BaseCurrency,
		logger:   logger,
	}
}

// Analyze prices the item in every market concurrently and derives the best
// buy and sell markets for a purchase at buyPrice in the base currency.
func (a *Analyzer) Analyze(ctx context.Context, item model.CatalogItem, creds prices.Credentials, buyPrice float64) *model.ArbitrageReport {
	quotes := make([]model.MarketQuote, len(a.markets))

	var wg sync.WaitGroup
	for i, m := range a.markets {
		wg.Add(1)
		go func(i int, m config.MarketConfig) {
			defer wg.Done()
			quotes[i] = a.quote(ctx, item, creds, m, buyPrice)
		}(i, m)
	}
	wg.Wait()

	return Summarize(quotes)
}

func (a *Analyzer) quote(ctx context.Context, item model.CatalogItem, creds prices.Credentials, m config.MarketConfig, buyPrice float64) model.MarketQuote {
	q := model.MarketQuote{Market: m.Code, Currency: m.Currency}

	mp, out := a.resolver.ResolveMarket(ctx, item, creds, m)
	if !out.Ok() {
		q.Reason = out.String()
		a.logger.Debug("market unavailable", "market", m.Code, "item", item.Identifier, "outcome", q.Reason)
		return q
	}
	if mp.Price <= 0 {
		q.Reason = "market returned no positive price"
		return q
	}

	var local, converted float64
	if mp.Currency == m.Currency {
		local = mp.Price
		converted = round2(mp.Price * a.rates.Rate(ctx, m.Currency, a.base))
	} else {
		converted = round2(mp.Price * a.rates.Rate(ctx, mp.Currency, a.base))
		local = round2(converted * a.rates.Rate(ctx, a.base, m.Currency))
	}

	fee := a.calc.Fee(converted)
	margin := a.calc.Margin(converted, buyPrice)

	q.PriceLocal = &local
	q.PriceConverted = &converted
	q.Fee = &fee
	q.Margin = &margin.Value
	q.MarginPct = &margin.Percent
	q.Available = true
	q.IsMockData = mp.IsMock
	return q
}

// Summarize derives the best markets from per-market quotes. Unavailable
// markets are excluded; when none is available the report says so.
func Summarize(quotes []model.MarketQuote) *model.ArbitrageReport {
	report := &model.ArbitrageReport{Markets: quotes}

	buy, sell := -1, -1
	for i, q := range quotes {
		if !q.Available {
			continue
		}
		if buy < 0 || *q.PriceConverted < *quotes[buy].PriceConverted {
			buy = i
		}
		if sell < 0 || *q.Margin > *quotes[sell].Margin {
			sell = i
		}
	}
	if buy < 0 {
		report.Reason = ReasonNoMarket
		return report
	}

	report.Available = true
	report.BestBuyMarket = quotes[buy].Market
	report.BestBuyPrice = *quotes[buy].PriceConverted
	report.BestSellMarket = quotes[sell].Market
	report.BestSellMargin = *quotes[sell].Margin
	report.Opportunity = round2(*quotes[sell].Margin - *quotes[buy].Margin)
	return report
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
