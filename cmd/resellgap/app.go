package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/guarzo/resellgap/internal/arbitrage"
	"github.com/guarzo/resellgap/internal/cache"
	"github.com/guarzo/resellgap/internal/catalog"
	"github.com/guarzo/resellgap/internal/concurrent"
	"github.com/guarzo/resellgap/internal/config"
	"github.com/guarzo/resellgap/internal/exchange"
	"github.com/guarzo/resellgap/internal/fetch"
	"github.com/guarzo/resellgap/internal/keepa"
	"github.com/guarzo/resellgap/internal/model"
	"github.com/guarzo/resellgap/internal/pipeline"
	"github.com/guarzo/resellgap/internal/prices"
	"github.com/guarzo/resellgap/internal/ratelimit"
	"github.com/guarzo/resellgap/internal/trend"
	"github.com/guarzo/resellgap/internal/websearch"
)

// rateTimeout bounds a live exchange-rate request; the converter falls
// back to fixed rates on failure.
const rateTimeout = 10 * time.Second

// app holds the wired comparison components.
type app struct {
	cfg      config.Config
	creds    prices.Credentials
	store    cache.Store
	tracker  *trend.Tracker
	comparer *pipeline.Comparer
	logger   *slog.Logger
}

// newApp wires providers, caches and analyzers from configuration.
// historyPath may be empty to keep observed prices in memory only.
func newApp(cfg config.Config, historyPath string, withArbitrage bool, logger *slog.Logger) (*app, error) {
	store, err := cache.Open(cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}

	tracker, err := trend.NewTracker(historyPath)
	if err != nil {
		return nil, err
	}

	limits := ratelimit.NewProviders(cfg)

	keepaClient := keepa.NewClient(cfg.Keepa,
		keepa.WithCache(store, cfg.Cache.TTL),
		keepa.WithLimiter(limits.Keepa),
		keepa.WithLogger(logger))
	searchClient := websearch.NewClient(cfg.WebSearch,
		websearch.WithCache(store, cfg.Cache.TTL),
		websearch.WithLimiter(limits.WebSearch),
		websearch.WithLogger(logger))

	rateFetcher := fetch.NewClient(rateTimeout, fetch.WithRetries(1, 0), fetch.WithLogger(logger))
	rates := exchange.NewConverter(cfg.Exchange,
		exchange.WithSource(exchange.NewHTTPSource(cfg.Exchange.BaseURL, rateFetcher)),
		exchange.WithCache(store, cfg.Cache.TTL),
		exchange.WithLogger(logger))

	resolver := prices.NewResolver(cfg, keepaClient, searchClient, prices.WithLogger(logger))

	opts := []pipeline.Option{pipeline.WithTracker(tracker), pipeline.WithLogger(logger)}
	if withArbitrage {
		opts = append(opts, pipeline.WithArbitrage(arbitrage.NewAnalyzer(cfg, resolver, rates, logger)))
	}

	return &app{
		cfg: cfg,
		creds: prices.Credentials{
			KeepaKey:       cfg.Keepa.APIKey,
			SearchKey:      cfg.WebSearch.APIKey,
			SearchEngineID: cfg.WebSearch.EngineID,
		},
		store:    store,
		tracker:  tracker,
		comparer: pipeline.NewComparer(cfg, resolver, opts...),
		logger:   logger,
	}, nil
}

// close releases the cache connection, if any.
func (a *app) close() {
	if c, ok := a.store.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			a.logger.Warn("closing cache", "error", err)
		}
	}
}

// compareAll imports the catalog file and compares every item. progress
// is called once with the item count before the batch starts.
func (a *app) compareAll(ctx context.Context, path, encoding string, progress func(total int) concurrent.Reporter) (model.BatchSummary, error) {
	items, err := importFile(a.cfg, path, encoding, a.logger)
	if err != nil {
		return model.BatchSummary{}, err
	}
	cat := pipeline.NewCatalog(items)

	rc := concurrent.ConfigFromBatch(a.cfg.Batch)
	if progress != nil {
		rc.Reporter = progress(cat.Len())
	}
	rc.Logger = a.logger
	runner := concurrent.NewRunner(rc)

	summary := runner.Run(ctx, cat.IDs(), func(ctx context.Context, id string) (model.ComparisonResult, error) {
		return a.comparer.CompareByID(ctx, cat, id, a.creds)
	})

	if err := a.tracker.Save(); err != nil {
		a.logger.Warn("saving price history", "error", err)
	}
	return summary, nil
}

func readGrid(path, encoding string) (catalog.Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	defer f.Close()
	return catalog.ReadCSV(f, encoding)
}

func importFile(cfg config.Config, path, encoding string, logger *slog.Logger) ([]model.CatalogItem, error) {
	grid, err := readGrid(path, encoding)
	if err != nil {
		return nil, err
	}
	res, err := catalog.NewImporter(cfg, logger).Import(grid)
	if err != nil {
		return nil, fmt.Errorf("importing %s: %w", path, err)
	}
	for _, re := range res.RowErrors {
		logger.Warn("catalog row skipped", "row", re.Row+1, "error", re.Err)
	}
	return res.Items, nil
}
