package trend

import (
	"math"
	"time"

	"github.com/guarzo/resellgap/internal/model"
)

// Window lengths in days.
const (
	Window30 = 30
	Window60 = 60
	Window90 = 90
)

// directionThreshold is the relative distance from the 30-day average a
// price must exceed to count as moving.
const directionThreshold = 0.05

// Analyze summarises history relative to current as of now. It returns nil
// when fewer than two points are available.
func Analyze(history []model.PricePoint, current float64, now time.Time) *model.TrendSnapshot {
	if len(history) < 2 {
		return nil
	}

	w30 := window(history, now, Window30)
	w60 := window(history, now, Window60)
	w90 := window(history, now, Window90)

	snap := &model.TrendSnapshot{
		Current:     current,
		Avg30:       mean(w30),
		Avg60:       mean(w60),
		Avg90:       mean(w90),
		SampleCount: len(history),
	}
	if len(w30) > 0 {
		lo, hi := minMax(w30)
		snap.Min30, snap.Max30 = &lo, &hi
	}
	snap.VolatilityPct = round2(CoefficientOfVariation(w30) * 100)
	snap.Direction = Direction(current, snap.Avg30)
	snap.FavorableTiming = snap.Avg30 != nil && current < *snap.Avg30
	return snap
}

// Direction compares current with the 30-day average using a strict 5%
// threshold on both sides. A missing average is flat.
func Direction(current float64, avg30 *float64) string {
	if avg30 == nil || *avg30 <= 0 {
		return model.DirectionFlat
	}
	switch {
	case current > *avg30*(1+directionThreshold):
		return model.DirectionUp
	case current < *avg30*(1-directionThreshold):
		return model.DirectionDown
	default:
		return model.DirectionFlat
	}
}

// CoefficientOfVariation is the population standard deviation divided by
// the mean. It is 0 for fewer than two prices or a zero mean.
func CoefficientOfVariation(prices []float64) float64 {
	if len(prices) < 2 {
		return 0
	}

	var sum float64
	for _, p := range prices {
		sum += p
	}
	m := sum / float64(len(prices))
	if m == 0 {
		return 0
	}

	var sq float64
	for _, p := range prices {
		d := p - m
		sq += d * d
	}
	return math.Sqrt(sq/float64(len(prices))) / m
}

// window returns the prices observed within the last days days up to now.
func window(history []model.PricePoint, now time.Time, days int) []float64 {
	cutoff := now.AddDate(0, 0, -days)
	var out []float64
	for _, p := range history {
		if p.Timestamp.Before(cutoff) || p.Timestamp.After(now) {
			continue
		}
		out = append(out, p.Price)
	}
	return out
}

func mean(prices []float64) *float64 {
	if len(prices) == 0 {
		return nil
	}
	var sum float64
	for _, p := range prices {
		sum += p
	}
	m := round2(sum / float64(len(prices)))
	return &m
}

func minMax(prices []float64) (float64, float64) {
	lo, hi := prices[0], prices[0]
	for _, p := range prices[1:] {
		lo = math.Min(lo, p)
		hi = math.Max(hi, p)
	}
	return lo, hi
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
