package integration

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guarzo/resellgap/internal/arbitrage"
	"github.com/guarzo/resellgap/internal/cache"
	"github.com/guarzo/resellgap/internal/catalog"
	"github.com/guarzo/resellgap/internal/concurrent"
	"github.com/guarzo/resellgap/internal/exchange"
	"github.com/guarzo/resellgap/internal/fetch"
	"github.com/guarzo/resellgap/internal/keepa"
	"github.com/guarzo/resellgap/internal/model"
	"github.com/guarzo/resellgap/internal/pipeline"
	"github.com/guarzo/resellgap/internal/prices"
	"github.com/guarzo/resellgap/internal/report"
	"github.com/guarzo/resellgap/internal/testutil"
	"github.com/guarzo/resellgap/internal/websearch"
)

var fixedNow = time.Date(2024, 10, 1, 9, 30, 0, 0, time.UTC)

const (
	eanFound   = "3700000000011"
	eanMissing = "3700000000028"
	eanBroken  = "3700000000035"
)

const supplierSheet = "Tarifs fournisseur octobre;;;\n" +
	"EAN;Designation;Marque;Prix HT\n" +
	eanFound + ";Casque Bluetooth;Sono;80,00\n" +
	eanMissing + ";Lampe de bureau;Lumina;25,00\n" +
	eanBroken + ";Ballon de foot;Kicker;9,90\n" +
	"not-a-row;;;gratuit\n"

type providers struct {
	keepaCalls  int32
	searchCalls int32
}

func (p *providers) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/keepa/product", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&p.keepaCalls, 1)
		switch r.URL.Query().Get("code") {
		case eanFound:
			history := []int{
				keepa.ToKeepaTime(fixedNow.AddDate(0, 0, -20)), 15000,
				keepa.ToKeepaTime(fixedNow.AddDate(0, 0, -10)), 14500,
				keepa.ToKeepaTime(fixedNow.AddDate(0, 0, -5)), 14000,
			}
			writeJSON(w, map[string]any{"products": []map[string]any{{
				"asin":  "B0FOUND001",
				"title": "Sono casque Bluetooth",
				"csv":   [][]int{history},
				"stats": map[string]any{"current": []int{12999, 12500}},
			}}})
		case eanBroken:
			w.WriteHeader(http.StatusBadGateway)
		default:
			writeJSON(w, map[string]any{"products": []any{}})
		}
	})
	mux.HandleFunc("/keepa/search", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&p.keepaCalls, 1)
		writeJSON(w, map[string]any{"asinList": []string{}})
	})
	mux.HandleFunc("/cse", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&p.searchCalls, 1)
		if !strings.Contains(r.URL.Query().Get("q"), "Casque") {
			writeJSON(w, map[string]any{})
			return
		}
		writeJSON(w, map[string]any{"items": []map[string]any{
			{"title": "Casque Sono", "link": "https://www.fnac.com/casque", "displayLink": "www.fnac.com",
				"pagemap": map[string]any{"offer": []map[string]string{{"price": "119.00"}}}},
			{"title": "Casque Sono - 99,90 €", "link": "https://www.cdiscount.com/casque", "displayLink": "www.cdiscount.com"},
		}})
	})
	mux.HandleFunc("/fx/latest", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"rates": map[string]float64{r.URL.Query().Get("to"): 1.17}})
	})
	return mux
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestCompleteFlow(t *testing.T) {
	p := &providers{}
	srv := httptest.NewServer(p.handler(t))
	defer srv.Close()

	mr := miniredis.RunT(t)
	store, err := cache.NewRedisFromURL("redis://" + mr.Addr())
	require.NoError(t, err)
	defer store.Close()

	cfg := testutil.Config(srv.URL)
	cfg.Keepa.BaseURL = srv.URL + "/keepa"
	cfg.WebSearch.BaseURL = srv.URL + "/cse"
	cfg.Exchange.BaseURL = srv.URL + "/fx"

	fetcher := fetch.NewClient(2*time.Second, fetch.WithRetries(2, time.Millisecond))
	keepaClient := keepa.NewClient(cfg.Keepa, keepa.WithFetcher(fetcher), keepa.WithCache(store, time.Hour))
	searchClient := websearch.NewClient(cfg.WebSearch, websearch.WithFetcher(fetcher), websearch.WithCache(store, time.Hour))
	rates := exchange.NewConverter(cfg.Exchange, exchange.WithSource(exchange.NewHTTPSource(cfg.Exchange.BaseURL, fetcher)))

	clock := func() time.Time { return fixedNow }
	resolver := prices.NewResolver(cfg, keepaClient, searchClient, prices.WithClock(clock))
	comparer := pipeline.NewComparer(cfg, resolver,
		pipeline.WithClock(clock),
		pipeline.WithArbitrage(arbitrage.NewAnalyzer(cfg, resolver, rates, nil)))

	grid, err := catalog.ReadCSV(strings.NewReader(supplierSheet), "utf-8")
	require.NoError(t, err)
	imported, err := catalog.NewImporter(cfg, nil).Import(grid)
	require.NoError(t, err)
	require.Len(t, imported.Items, 3)
	assert.Equal(t, 1, imported.Skipped)

	cat := pipeline.NewCatalog(imported.Items)
	creds := prices.Credentials{KeepaKey: "k", SearchKey: "s", SearchEngineID: "cx"}
	compare := func(ctx context.Context, id string) (model.ComparisonResult, error) {
		return comparer.CompareByID(ctx, cat, id, creds)
	}

	runner := concurrent.NewRunner(concurrent.RunnerConfig{Workers: 2, ItemTimeout: 10 * time.Second})
	ids := append(cat.IDs(), "row-404")
	summary := runner.Run(context.Background(), ids, compare)

	require.Equal(t, 4, summary.Total)
	require.Equal(t, 3, summary.Success)
	require.Equal(t, 1, summary.Failed)
	assert.Equal(t, "row-404", summary.Errors[0].ItemID)

	byGTIN := make(map[string]model.ComparisonResult)
	for _, r := range summary.Results {
		byGTIN[r.Identifier] = r
	}

	found := byGTIN[eanFound]
	require.NotNil(t, found.ReferencePrice)
	assert.Equal(t, 129.99, *found.ReferencePrice)
	assert.Equal(t, "keepa:"+keepa.MethodCurrent, found.ReferenceSource)
	assert.False(t, found.IsMockData)
	require.NotNil(t, found.OpenWebLowestPrice)
	assert.Equal(t, 99.9, *found.OpenWebLowestPrice)
	assert.Equal(t, model.CheapestSupplier, found.CheapestSource)
	assert.Equal(t, 19.5, *found.Fees)
	assert.Equal(t, 30.49, found.MarginSupplier.Value)
	require.NotNil(t, found.Trend)
	assert.Equal(t, model.DirectionDown, found.Trend.Direction)
	require.NotNil(t, found.Arbitrage)
	assert.True(t, found.Arbitrage.Available)
	assert.Equal(t, "uk", found.Arbitrage.BestSellMarket)

	missing := byGTIN[eanMissing]
	assert.True(t, missing.IsMockData)
	assert.Equal(t, "synthetic", missing.ReferenceSource)
	assert.Empty(t, missing.OpenWebQuotes, "configured search with no hits yields no quotes")
	assert.Nil(t, missing.OpenWebLowestPrice)

	broken := byGTIN[eanBroken]
	assert.True(t, broken.IsMockData)
	require.NotNil(t, broken.Arbitrage)
	assert.False(t, broken.Arbitrage.Available)
	assert.Equal(t, arbitrage.ReasonNoMarket, broken.Arbitrage.Reason)

	// A second run is served from the Redis cache.
	keepaBefore, searchBefore := atomic.LoadInt32(&p.keepaCalls), atomic.LoadInt32(&p.searchCalls)
	again, err := comparer.CompareByID(context.Background(), cat, found.ProductID, creds)
	require.NoError(t, err)
	assert.Equal(t, *found.ReferencePrice, *again.ReferencePrice)
	assert.Equal(t, keepaBefore, atomic.LoadInt32(&p.keepaCalls))
	assert.Equal(t, searchBefore, atomic.LoadInt32(&p.searchCalls))

	var buf bytes.Buffer
	require.NoError(t, report.WriteCSV(&buf, summary.Results))
	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 4)
}
