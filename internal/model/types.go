package model

import "time"

// Unspecified is the value carried by optional catalog fields that the
// source table does not provide.
const Unspecified = "Unspecified"

// CatalogItem is one supplier catalog line. ID is the storage key assigned by
// the caller; Identifier is the GTIN/EAN used for provider lookups.
type CatalogItem struct {
	ID             string  `json:"id"`
	Identifier     string  `json:"gtin"`
	Name           string  `json:"name"`
	Brand          string  `json:"brand"`
	Category       string  `json:"category"`
	SupplierPrice  float64 `json:"supplier_price"`
	Currency       string  `json:"currency"`
	ImageURL       string  `json:"image_url,omitempty"`
	InventoryState string  `json:"inventory_state,omitempty"`
	OfferCount     string  `json:"offer_count,omitempty"`
	Link           string  `json:"link,omitempty"`
}

// SourceKind tells where a quote came from.
type SourceKind string

const (
	SourceReference SourceKind = "reference-marketplace"
	SourceOpenWeb   SourceKind = "open-web"
)

// PriceQuote is a single price observed for an item.
type PriceQuote struct {
	Source   SourceKind `json:"source"`
	Value    float64    `json:"price"`
	Currency string     `json:"currency"`
	Supplier string     `json:"supplier_name"`
	URL      string     `json:"url"`
	IsLowest bool       `json:"is_lowest"`
}

// PricePoint is one sample of a price history series.
type PricePoint struct {
	Timestamp time.Time `json:"timestamp"`
	Price     float64   `json:"price"`
}

// Trend directions.
const (
	DirectionUp   = "up"
	DirectionDown = "down"
	DirectionFlat = "flat"
)

// TrendSnapshot summarises a price history relative to the current price.
// Window averages are nil when the window holds no samples.
type TrendSnapshot struct {
	Direction       string   `json:"direction"`
	Current         float64  `json:"current"`
	Avg30           *float64 `json:"avg_30d"`
	Avg60           *float64 `json:"avg_60d"`
	Avg90           *float64 `json:"avg_90d"`
	Min30           *float64 `json:"min_30d"`
	Max30           *float64 `json:"max_30d"`
	VolatilityPct   float64  `json:"volatility_pct"`
	FavorableTiming bool     `json:"favorable_timing"`
	SampleCount     int      `json:"sample_count"`
}

// Opportunity levels.
const (
	LevelExcellent = "Excellent"
	LevelGood      = "Good"
	LevelAverage   = "Average"
	LevelWeak      = "Weak"
)

// ScoreBreakdown holds the five capped sub-scores.
type ScoreBreakdown struct {
	Margin        int `json:"margin"`
	Trend         int `json:"trend"`
	Competition   int `json:"competition"`
	Volatility    int `json:"volatility"`
	PricePosition int `json:"price_position"`
}

// OpportunityScore is the composite 0-100 ranking of an item.
type OpportunityScore struct {
	Total     int            `json:"total"`
	Level     string         `json:"level"`
	Breakdown ScoreBreakdown `json:"breakdown"`
}

// Forecast confidence and recommendation values.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"

	RecommendBuyNow = "buy-now"
	RecommendWait   = "wait"
	RecommendRisky  = "risky"
)

// HorizonProjection is the projected state of an item after Days days.
type HorizonProjection struct {
	Days            int     `json:"days"`
	ProjectedPrice  float64 `json:"projected_price"`
	ProjectedMargin float64 `json:"projected_margin"`
	MarginChangePct float64 `json:"margin_change_pct"`
}

// ProfitabilityForecast extrapolates margins forward in time.
type ProfitabilityForecast struct {
	Horizons       []HorizonProjection `json:"horizons"`
	Confidence     string              `json:"confidence"`
	Recommendation string              `json:"recommendation"`
}

// MarketQuote is the outcome of pricing an item in one regional market.
type MarketQuote struct {
	Market         string   `json:"market"`
	Currency       string   `json:"currency"`
	PriceLocal     *float64 `json:"price_local"`
	PriceConverted *float64 `json:"price_converted"`
	Fee            *float64 `json:"fee"`
	Margin         *float64 `json:"margin"`
	MarginPct      *float64 `json:"margin_pct"`
	Available      bool     `json:"available"`
	Reason         string   `json:"reason,omitempty"`
	IsMockData     bool     `json:"is_mock_data"`
}

// ArbitrageReport compares an item across regional markets. When Available is
// false the best-market fields are empty and Reason explains why.
type ArbitrageReport struct {
	Available      bool          `json:"available"`
	Reason         string        `json:"reason,omitempty"`
	BestBuyMarket  string        `json:"best_buy_market,omitempty"`
	BestBuyPrice   float64       `json:"best_buy_price"`
	BestSellMarket string        `json:"best_sell_market,omitempty"`
	BestSellMargin float64       `json:"best_sell_margin"`
	Opportunity    float64       `json:"arbitrage_opportunity"`
	Markets        []MarketQuote `json:"markets"`
}

// Margin is a margin amount and its percentage of the sell price.
type Margin struct {
	Value   float64 `json:"value"`
	Percent float64 `json:"percent"`
}

// Cheapest source values.
const (
	CheapestSupplier = "supplier"
	CheapestOpenWeb  = "open-web"
)

// ComparisonResult aggregates every signal computed for one item at one
// point in time.
type ComparisonResult struct {
	ID                 string                 `json:"comparison_id"`
	ProductID          string                 `json:"product_id"`
	ProductName        string                 `json:"product_name"`
	Identifier         string                 `json:"gtin"`
	Brand              string                 `json:"brand"`
	Category           string                 `json:"category"`
	Currency           string                 `json:"currency"`
	SupplierPrice      float64                `json:"supplier_price"`
	ReferencePrice     *float64               `json:"reference_price"`
	ReferenceSource    string                 `json:"reference_source,omitempty"`
	OpenWebLowestPrice *float64               `json:"open_web_lowest_price"`
	OpenWebQuotes      []PriceQuote           `json:"open_web_quotes"`
	CheapestSource     string                 `json:"cheapest_source"`
	Fees               *float64               `json:"fees"`
	MarginSupplier     *Margin                `json:"margin_supplier"`
	MarginOpenWeb      *Margin                `json:"margin_open_web"`
	MarginBest         *Margin                `json:"margin_best"`
	Trend              *TrendSnapshot         `json:"trend"`
	OpportunityScore   int                    `json:"opportunity_score"`
	OpportunityLevel   string                 `json:"opportunity_level"`
	ScoreBreakdown     ScoreBreakdown         `json:"score_breakdown"`
	Forecast           *ProfitabilityForecast `json:"profitability_forecast"`
	Arbitrage          *ArbitrageReport       `json:"arbitrage"`
	IsMockData         bool                   `json:"is_mock_data"`
	ComparedAt         time.Time              `json:"compared_at"`
}

// BatchError records why one item of a batch failed.
type BatchError struct {
	ItemID string `json:"item_id"`
	Error  string `json:"error"`
}

// BatchSummary is the outcome of comparing many items.
// Success+Failed always equals Total.
type BatchSummary struct {
	RunID    string             `json:"run_id"`
	Total    int                `json:"total"`
	Success  int                `json:"success"`
	Failed   int                `json:"failed"`
	Results  []ComparisonResult `json:"results"`
	Errors   []BatchError       `json:"errors"`
	Duration time.Duration      `json:"duration"`
}
