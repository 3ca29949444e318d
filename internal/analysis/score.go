package analysis

import (
	"github.com/guarzo/resellgap/internal/model"
)

// ScoreInput carries the signals the opportunity score is built from.
type ScoreInput struct {
	MarginPct       float64
	Direction       string // empty when no trend is known, scored as flat
	CompetitorCount int
	VolatilityPct   float64
	Current         float64
	Avg30           *float64
}

// Score combines five independently capped sub-scores into a 0-100 total.
func Score(in ScoreInput) model.OpportunityScore {
	b := model.ScoreBreakdown{
		Margin:        marginPoints(in.MarginPct),
		Trend:         trendPoints(in.Direction),
		Competition:   competitionPoints(in.CompetitorCount),
		Volatility:    volatilityPoints(in.VolatilityPct),
		PricePosition: positionPoints(in.Current, in.Avg30),
	}
	total := b.Margin + b.Trend + b.Competition + b.Volatility + b.PricePosition
	return model.OpportunityScore{Total: total, Level: Level(total), Breakdown: b}
}

// Level maps a total score to its opportunity level.
func Level(total int) string {
	switch {
	case total >= 80:
		return model.LevelExcellent
	case total >= 60:
		return model.LevelGood
	case total >= 40:
		return model.LevelAverage
	default:
		return model.LevelWeak
	}
}

func marginPoints(pct float64) int {
	switch {
	case pct >= 50:
		return 30
	case pct >= 30:
		return 20
	case pct >= 10:
		return 10
	default:
		return 0
	}
}

// A falling price scores highest for a seller.
func trendPoints(direction string) int {
	switch direction {
	case model.DirectionDown:
		return 25
	case model.DirectionUp:
		return 5
	default:
		return 15
	}
}

func competitionPoints(n int) int {
	switch {
	case n <= 2:
		return 20
	case n <= 5:
		return 15
	case n <= 8:
		return 10
	default:
		return 5
	}
}

func volatilityPoints(pct float64) int {
	switch {
	case pct < 10:
		return 15
	case pct < 20:
		return 10
	case pct < 30:
		return 5
	default:
		return 0
	}
}

func positionPoints(current float64, avg30 *float64) int {
	if avg30 == nil || *avg30 <= 0 {
		return 0
	}
	switch {
	case current < *avg30*0.9:
		return 10
	case current < *avg30:
		return 5
	default:
		return 0
	}
}
