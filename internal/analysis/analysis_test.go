package analysis

import (
	"math"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/guarzo/resellgap/internal/model"
)

func ptr(v float64) *float64 { return &v }

func TestMargin_ExactToTwoDecimals(t *testing.T) {
	calc := NewCalculator(0.15)
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 500; i++ {
		sell := math.Round(rng.Float64()*100000) / 100
		buy := math.Round(rng.Float64()*100000) / 100

		fee := calc.Fee(sell)
		m := calc.Margin(sell, buy)

		want := decimal.NewFromFloat(sell).Sub(decimal.NewFromFloat(buy)).Sub(decimal.NewFromFloat(fee))
		if !decimal.NewFromFloat(m.Value).Equal(want) {
			t.Fatalf("sell=%v buy=%v fee=%v: margin %v != %v", sell, buy, fee, m.Value, want)
		}
		if sell > 0 {
			wantPct := want.Div(decimal.NewFromFloat(sell)).Mul(decimal.NewFromInt(100)).Round(2)
			if !decimal.NewFromFloat(m.Percent).Equal(wantPct) {
				t.Fatalf("sell=%v buy=%v: pct %v != %v", sell, buy, m.Percent, wantPct)
			}
		}
	}
}

func TestMargin_Examples(t *testing.T) {
	calc := NewCalculator(0.15)
	tests := []struct {
		sell, buy     float64
		wantFee       float64
		wantMargin    float64
		wantMarginPct float64
	}{
		{100, 50, 15, 35, 35},
		{24.99, 12.50, 3.75, 8.74, 34.97},
		{10, 12, 1.5, -3.5, -35},
		{0, 5, 0, -5, 0},
	}
	for _, tt := range tests {
		if fee := calc.Fee(tt.sell); fee != tt.wantFee {
			t.Errorf("Fee(%v) = %v, want %v", tt.sell, fee, tt.wantFee)
		}
		m := calc.Margin(tt.sell, tt.buy)
		if m.Value != tt.wantMargin || m.Percent != tt.wantMarginPct {
			t.Errorf("Margin(%v, %v) = %+v, want %v / %v%%", tt.sell, tt.buy, m, tt.wantMargin, tt.wantMarginPct)
		}
	}
}

func TestCheapestSource(t *testing.T) {
	tests := []struct {
		name     string
		supplier float64
		openWeb  *float64
		want     string
	}{
		{"open web cheaper", 10, ptr(8), model.CheapestOpenWeb},
		{"supplier cheaper", 10, ptr(12), model.CheapestSupplier},
		{"tie favours supplier", 10, ptr(10), model.CheapestSupplier},
		{"no open web price", 10, nil, model.CheapestSupplier},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CheapestSource(tt.supplier, tt.openWeb); got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestCompare(t *testing.T) {
	calc := NewCalculator(0.15)

	m := calc.Compare(ptr(40), 20, ptr(15))
	if m.Cheapest != model.CheapestOpenWeb || m.Best != m.OpenWeb {
		t.Errorf("Expected best margin from open web, got %+v", m)
	}
	if *m.Fee != 6 || m.Supplier.Value != 14 || m.OpenWeb.Value != 19 {
		t.Errorf("Unexpected margins fee=%v supplier=%v openweb=%v", *m.Fee, m.Supplier.Value, m.OpenWeb.Value)
	}

	m = calc.Compare(ptr(40), 20, nil)
	if m.OpenWeb != nil || m.Best != m.Supplier {
		t.Errorf("Expected supplier-only margins, got %+v", m)
	}

	m = calc.Compare(nil, 20, ptr(15))
	if m.Fee != nil || m.Supplier != nil || m.Best != nil || m.Cheapest != model.CheapestOpenWeb {
		t.Errorf("Expected only the cheapest source without a sell price, got %+v", m)
	}
}

func TestScore_MaximumIsExcellent(t *testing.T) {
	s := Score(ScoreInput{
		MarginPct:       55,
		Direction:       model.DirectionDown,
		CompetitorCount: 1,
		VolatilityPct:   5,
		Current:         88,
		Avg30:           ptr(100),
	})
	want := model.ScoreBreakdown{Margin: 30, Trend: 25, Competition: 20, Volatility: 15, PricePosition: 10}
	if s.Breakdown != want {
		t.Errorf("Expected %+v, got %+v", want, s.Breakdown)
	}
	if s.Total != 100 || s.Level != model.LevelExcellent {
		t.Errorf("Expected 100/Excellent, got %d/%s", s.Total, s.Level)
	}
}

func TestScore_SubScoreBands(t *testing.T) {
	tests := []struct {
		name string
		in   ScoreInput
		want model.ScoreBreakdown
	}{
		{
			name: "weak everywhere",
			in:   ScoreInput{MarginPct: 5, Direction: model.DirectionUp, CompetitorCount: 12, VolatilityPct: 45, Current: 120, Avg30: ptr(100)},
			want: model.ScoreBreakdown{Margin: 0, Trend: 5, Competition: 5, Volatility: 0, PricePosition: 0},
		},
		{
			name: "middle bands",
			in:   ScoreInput{MarginPct: 30, Direction: model.DirectionFlat, CompetitorCount: 5, VolatilityPct: 19.99, Current: 95, Avg30: ptr(100)},
			want: model.ScoreBreakdown{Margin: 20, Trend: 15, Competition: 15, Volatility: 10, PricePosition: 5},
		},
		{
			name: "lower bands without trend",
			in:   ScoreInput{MarginPct: 10, CompetitorCount: 8, VolatilityPct: 29},
			want: model.ScoreBreakdown{Margin: 10, Trend: 15, Competition: 10, Volatility: 5, PricePosition: 0},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Score(tt.in)
			if s.Breakdown != tt.want {
				t.Errorf("Expected %+v, got %+v", tt.want, s.Breakdown)
			}
			sum := s.Breakdown.Margin + s.Breakdown.Trend + s.Breakdown.Competition + s.Breakdown.Volatility + s.Breakdown.PricePosition
			if s.Total != sum || s.Total < 0 || s.Total > 100 {
				t.Errorf("Total %d does not match breakdown sum %d", s.Total, sum)
			}
		})
	}
}

func TestLevel(t *testing.T) {
	tests := map[int]string{100: model.LevelExcellent, 80: model.LevelExcellent, 79: model.LevelGood, 60: model.LevelGood, 59: model.LevelAverage, 40: model.LevelAverage, 39: model.LevelWeak, 0: model.LevelWeak}
	for total, want := range tests {
		if got := Level(total); got != want {
			t.Errorf("Level(%d) = %s, want %s", total, got, want)
		}
	}
}
