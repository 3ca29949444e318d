// Package forecast projects an item's resale margin 30, 60 and 90 days
// ahead from its recent price trend.
package forecast

import (
	"math"

	"github.com/guarzo/resellgap/internal/analysis"
	"github.com/guarzo/resellgap/internal/model"
)

// Horizon is a projection distance with the band the projected price is
// clamped to, as multiples of the current price.
type Horizon struct {
	Days     int
	MinRatio float64
	MaxRatio float64
}

// DefaultHorizons widen with distance.
var DefaultHorizons = []Horizon{
	{Days: 30, MinRatio: 0.5, MaxRatio: 1.5},
	{Days: 60, MinRatio: 0.5, MaxRatio: 1.75},
	{Days: 90, MinRatio: 0.5, MaxRatio: 2.0},
}

// relativeChange is the fraction by which the 30-day projected margin must
// differ from today's margin to move the recommendation.
const relativeChange = 0.10

// Predictor builds profitability forecasts.
type Predictor struct {
	calc     analysis.Calculator
	horizons []Horizon
}

// NewPredictor creates a predictor using calc for margin arithmetic.
func NewPredictor(calc analysis.Calculator) *Predictor {
	return &Predictor{calc: calc, horizons: DefaultHorizons}
}

// Predict projects the margin of buying at buyPrice. It returns nil when no
// 30-day average is known.
func (p *Predictor) Predict(snap *model.TrendSnapshot, buyPrice float64) *model.ProfitabilityForecast {
	if snap == nil || snap.Avg30 == nil {
		return nil
	}

	current := snap.Current
	drift := DailyDrift(snap)
	now := p.calc.Margin(current, buyPrice).Value

	out := &model.ProfitabilityForecast{Horizons: make([]model.HorizonProjection, 0, len(p.horizons))}
	for _, h := range p.horizons {
		price := current + drift*float64(h.Days)
		price = math.Max(current*h.MinRatio, math.Min(current*h.MaxRatio, price))
		price = round2(price)

		margin := p.calc.Margin(price, buyPrice).Value
		out.Horizons = append(out.Horizons, model.HorizonProjection{
			Days:            h.Days,
			ProjectedPrice:  price,
			ProjectedMargin: margin,
			MarginChangePct: changePct(now, margin),
		})
	}

	out.Confidence = Confidence(snap.VolatilityPct, snap.SampleCount)
	out.Recommendation = recommend(now, out.Horizons[0].ProjectedMargin, snap)
	return out
}

// DailyDrift is the per-day price change implied by the longest window
// with an average.
func DailyDrift(snap *model.TrendSnapshot) float64 {
	switch {
	case snap.Avg90 != nil:
		return (snap.Current - *snap.Avg90) / 90
	case snap.Avg60 != nil:
		return (snap.Current - *snap.Avg60) / 60
	case snap.Avg30 != nil:
		return (snap.Current - *snap.Avg30) / 30
	default:
		return 0
	}
}

// Confidence grades a forecast by price stability and sample size.
func Confidence(volatilityPct float64, samples int) string {
	switch {
	case volatilityPct < 10 && samples > 50:
		return model.ConfidenceHigh
	case volatilityPct < 25 && samples > 20:
		return model.ConfidenceMedium
	default:
		return model.ConfidenceLow
	}
}

func recommend(current, projected30 float64, snap *model.TrendSnapshot) string {
	delta := math.Abs(current) * relativeChange
	switch {
	case projected30 > current+delta && snap.Direction != model.DirectionUp:
		return model.RecommendBuyNow
	case projected30 < current-delta || snap.VolatilityPct > 30:
		return model.RecommendRisky
	default:
		return model.RecommendWait
	}
}

func changePct(from, to float64) float64 {
	if from == 0 {
		return 0
	}
	return round2((to - from) / math.Abs(from) * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
