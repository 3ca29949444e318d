package analysis

import (
	"github.com/shopspring/decimal"

	"github.com/guarzo/resellgap/internal/model"
)

// Calculator computes marketplace fees and margins. Amounts are rounded to
// cents with decimal arithmetic, so margin always equals sell - buy - fee.
type Calculator struct {
	feeRate decimal.Decimal
}

// NewCalculator creates a calculator for a marketplace fee rate such as 0.15.
func NewCalculator(feeRate float64) Calculator {
	return Calculator{feeRate: decimal.NewFromFloat(feeRate)}
}

// FeeRate returns the configured rate.
func (c Calculator) FeeRate() float64 {
	return c.feeRate.InexactFloat64()
}

// Fee is the marketplace commission on a sale at sell, in cents.
func (c Calculator) Fee(sell float64) float64 {
	return c.fee(decimal.NewFromFloat(sell)).InexactFloat64()
}

func (c Calculator) fee(sell decimal.Decimal) decimal.Decimal {
	return sell.Mul(c.feeRate).Round(2)
}

// Margin is what remains of a sale at sell after buying at buy and paying
// the fee. Percent is relative to sell and zero when sell is not positive.
func (c Calculator) Margin(sell, buy float64) model.Margin {
	s := decimal.NewFromFloat(sell)
	b := decimal.NewFromFloat(buy)

	m := s.Sub(b).Sub(c.fee(s)).Round(2)
	pct := decimal.Zero
	if s.IsPositive() {
		pct = m.Div(s).Mul(decimal.NewFromInt(100)).Round(2)
	}
	return model.Margin{Value: m.InexactFloat64(), Percent: pct.InexactFloat64()}
}

// CheapestSource returns "open-web" only when an open-web price exists and
// is strictly below the supplier price. Ties go to the supplier.
func CheapestSource(supplier float64, openWeb *float64) string {
	if openWeb != nil && *openWeb < supplier {
		return model.CheapestOpenWeb
	}
	return model.CheapestSupplier
}

// BestBuyPrice returns the cheaper of the supplier and open-web prices.
func BestBuyPrice(supplier float64, openWeb *float64) float64 {
	if CheapestSource(supplier, openWeb) == model.CheapestOpenWeb {
		return *openWeb
	}
	return supplier
}

// Margins holds the three margin variants of a comparison.
type Margins struct {
	Fee      *float64
	Supplier *model.Margin
	OpenWeb  *model.Margin
	Best     *model.Margin
	Cheapest string
}

// Compare computes the fee and the supplier, open-web and best margins for
// a sale at sell. Without a sell price only the cheapest source is known.
func (c Calculator) Compare(sell *float64, supplier float64, openWebLowest *float64) Margins {
	out := Margins{Cheapest: CheapestSource(supplier, openWebLowest)}
	if sell == nil {
		return out
	}

	fee := c.Fee(*sell)
	out.Fee = &fee

	ms := c.Margin(*sell, supplier)
	out.Supplier = &ms
	out.Best = &ms

	if openWebLowest != nil {
		mo := c.Margin(*sell, *openWebLowest)
		out.OpenWeb = &mo
		if out.Cheapest == model.CheapestOpenWeb {
			out.Best = &mo
		}
	}
	return out
}
