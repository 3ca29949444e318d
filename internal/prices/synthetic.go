package prices

import (
	"hash/fnv"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/guarzo/resellgap/internal/catalog"
	"github.com/guarzo/resellgap/internal/config"
	"github.com/guarzo/resellgap/internal/model"
)

// Range used when no category matches the item.
const (
	defaultMinPrice = 30.0
	defaultMaxPrice = 300.0
)

const (
	syntheticHistoryDays = 90
	asinAlphabet         = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

var syntheticSuppliers = []string{"cdiscount.com", "fnac.com", "rakuten.fr"}

// SyntheticQuote is a generated stand-in for provider data.
type SyntheticQuote struct {
	ASIN           string
	Category       string
	ReferencePrice float64
	History        []model.PricePoint
	OpenWeb        []model.PriceQuote
}

// Synthetic generates deterministic prices from an item identifier. Each
// call owns its random source, so concurrent calls never interfere.
type Synthetic struct {
	categories []config.CategoryConfig
	currency   string
}

// NewSynthetic creates a generator using the category price ranges.
func NewSynthetic(categories []config.CategoryConfig, currency string) *Synthetic {
	return &Synthetic{categories: categories, currency: currency}
}

// Generate returns the synthetic reference price, a daily history ending at
// now and a set of open-web quotes. The same identifier and now always give
// the same output.
func (s *Synthetic) Generate(item model.CatalogItem, now time.Time) SyntheticQuote {
	rng := newRand(item.Identifier)
	cat, lo, hi := s.priceRange(item)

	base := round2(lo + rng.Float64()*(hi-lo))

	day := now.UTC().Truncate(24 * time.Hour)
	history := make([]model.PricePoint, 0, syntheticHistoryDays)
	for i := syntheticHistoryDays; i >= 1; i-- {
		history = append(history, model.PricePoint{
			Timestamp: day.AddDate(0, 0, -i),
			Price:     round2(base * uniform(rng, 0.85, 1.15)),
		})
	}

	current := round2(base * uniform(rng, 0.95, 1.05))

	asin := make([]byte, 10)
	asin[0], asin[1] = 'B', '0'
	for i := 2; i < len(asin); i++ {
		asin[i] = asinAlphabet[rng.Intn(len(asinAlphabet))]
	}

	quotes := make([]model.PriceQuote, 0, len(syntheticSuppliers))
	for _, sup := range syntheticSuppliers {
		quotes = append(quotes, model.PriceQuote{
			Source:   model.SourceOpenWeb,
			Value:    round2(current * uniform(rng, 0.80, 1.15)),
			Currency: s.currency,
			Supplier: sup,
		})
	}
	lowest := 0
	for i := range quotes {
		if quotes[i].Value < quotes[lowest].Value {
			lowest = i
		}
	}
	quotes[lowest].IsLowest = true

	return SyntheticQuote{
		ASIN:           string(asin),
		Category:       cat,
		ReferencePrice: current,
		History:        history,
		OpenWeb:        quotes,
	}
}

// MarketPrice returns a deterministic price for the item in one regional
// market, expressed in the generator's currency.
func (s *Synthetic) MarketPrice(item model.CatalogItem, market string, now time.Time) float64 {
	ref := s.Generate(item, now).ReferencePrice
	rng := newRand(item.Identifier + "|" + market)
	return round2(ref * uniform(rng, 0.88, 1.12))
}

func (s *Synthetic) priceRange(item model.CatalogItem) (string, float64, float64) {
	if c, ok := catalog.FindCategory(item.Category, s.categories); ok && c.MaxPrice > c.MinPrice {
		return c.Name, c.MinPrice, c.MaxPrice
	}
	text := item.Name
	if item.Brand != model.Unspecified {
		text = item.Brand + " " + text
	}
	name := catalog.DetectCategory(text, s.categories)
	if c, ok := catalog.FindCategory(name, s.categories); ok && c.MaxPrice > c.MinPrice {
		return c.Name, c.MinPrice, c.MaxPrice
	}
	return model.Unspecified, defaultMinPrice, defaultMaxPrice
}

// newRand seeds a private generator from the FNV-1a hash of key.
func newRand(key string) *rand.Rand {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	return rand.New(rand.NewSource(int64(h.Sum64())))
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// sortHistory orders points oldest first.
func sortHistory(points []model.PricePoint) {
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Timestamp.Before(points[j].Timestamp)
	})
}
