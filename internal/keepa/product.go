package keepa

import (
	"time"

	"github.com/guarzo/resellgap/internal/model"
)

// Price type indices in the csv and stats arrays.
const (
	IndexAmazon = 0
	IndexNew    = 1
	IndexBuyBox = 18
)

// keepaEpochOffset converts Keepa minutes to Unix minutes.
const keepaEpochOffset = 21564000

// Product is the subset of a Keepa product record used for pricing.
type Product struct {
	ASIN        string  `json:"asin"`
	Title       string  `json:"title"`
	Brand       string  `json:"brand"`
	CSV         [][]int `json:"csv"`
	Stats       *Stats  `json:"stats"`
	BuyBoxPrice int     `json:"buyBoxPrice"`
}

// Stats is the statistics block returned with stats=N.
type Stats struct {
	Current     []int `json:"current"`
	Avg30       []int `json:"avg30"`
	Avg90       []int `json:"avg90"`
	BuyBoxPrice int   `json:"buyBoxPrice"`
}

type productResponse struct {
	Products []Product `json:"products"`
	Error    *apiError `json:"error"`
}

type searchResponse struct {
	ASINList []string  `json:"asinList"`
	Products []Product `json:"products"`
	Error    *apiError `json:"error"`
}

type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Price extraction methods, in fallback order.
const (
	MethodCurrent   = "stats.current"
	MethodAvg30     = "stats.avg30"
	MethodHistory   = "csv.last"
	MethodBestOffer = "buybox"
)

// ExtractPrice walks the price fallback chain and returns the first positive
// price in currency units along with the method that produced it.
func ExtractPrice(p Product) (float64, string, bool) {
	indices := []int{IndexAmazon, IndexNew}

	if p.Stats != nil {
		for _, i := range indices {
			if c := at(p.Stats.Current, i); c > 0 {
				return cents(c), MethodCurrent, true
			}
		}
		for _, i := range indices {
			if c := at(p.Stats.Avg30, i); c > 0 {
				return cents(c), MethodAvg30, true
			}
		}
	}

	for _, i := range indices {
		if i >= len(p.CSV) {
			continue
		}
		if c, ok := lastPositive(p.CSV[i]); ok {
			return cents(c), MethodHistory, true
		}
	}

	if p.Stats != nil && p.Stats.BuyBoxPrice > 0 {
		return cents(p.Stats.BuyBoxPrice), MethodBestOffer, true
	}
	if p.BuyBoxPrice > 0 {
		return cents(p.BuyBoxPrice), MethodBestOffer, true
	}
	return 0, "", false
}

// History decodes the primary price series, falling back to the
// marketplace-new series when the primary one holds no samples.
func History(p Product) []model.PricePoint {
	for _, i := range []int{IndexAmazon, IndexNew} {
		if i >= len(p.CSV) {
			continue
		}
		if pts := DecodeSeries(p.CSV[i]); len(pts) > 0 {
			return pts
		}
	}
	return nil
}

// DecodeSeries turns a flat [keepaMinutes, cents, ...] array into price
// points, skipping "no data" (-1) samples.
func DecodeSeries(series []int) []model.PricePoint {
	var out []model.PricePoint
	for i := 0; i+1 < len(series); i += 2 {
		if series[i+1] <= 0 {
			continue
		}
		out = append(out, model.PricePoint{
			Timestamp: KeepaTime(series[i]),
			Price:     cents(series[i+1]),
		})
	}
	return out
}

// KeepaTime converts a Keepa minute value to a UTC time.
func KeepaTime(km int) time.Time {
	return time.Unix(int64(km+keepaEpochOffset)*60, 0).UTC()
}

// ToKeepaTime converts a time to Keepa minutes.
func ToKeepaTime(t time.Time) int {
	return int(t.Unix()/60) - keepaEpochOffset
}

func lastPositive(series []int) (int, bool) {
	// Values sit at odd positions after each timestamp.
	for i := len(series) - 1; i >= 1; i-- {
		if i%2 == 1 && series[i] > 0 {
			return series[i], true
		}
	}
	return 0, false
}

func at(values []int, i int) int {
	if i < 0 || i >= len(values) {
		return -1
	}
	return values[i]
}

func cents(c int) float64 {
	return float64(c) / 100
}
