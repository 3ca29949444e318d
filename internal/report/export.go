// Package report writes comparison results as CSV or JSON.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/guarzo/resellgap/internal/model"
)

// Header is the CSV column order.
var Header = []string{
	"comparison_id", "product_id", "gtin", "product_name", "brand", "category", "currency",
	"supplier_price", "reference_price", "reference_source", "open_web_lowest_price",
	"cheapest_source", "fees", "margin_supplier", "margin_supplier_pct",
	"margin_open_web", "margin_open_web_pct", "margin_best", "margin_best_pct", "trend",
	"opportunity_score", "opportunity_level",
	"recommendation", "best_buy_market", "best_sell_market", "arbitrage_opportunity",
	"is_mock_data", "compared_at",
}

// WriteCSV writes one row per result. Free-text cells are escaped against
// formula injection; missing numbers are empty cells.
func WriteCSV(w io.Writer, results []model.ComparisonResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for _, r := range results {
		if err := cw.Write(csvRow(r)); err != nil {
			return fmt.Errorf("writing csv row %s: %w", r.ProductID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func csvRow(r model.ComparisonResult) []string {
	text := EscapeCSVRow([]string{r.ID, r.ProductID, r.Identifier, r.ProductName, r.Brand, r.Category, r.Currency})

	var direction, recommendation, buyMarket, sellMarket, opportunity string
	if r.Trend != nil {
		direction = r.Trend.Direction
	}
	if r.Forecast != nil {
		recommendation = r.Forecast.Recommendation
	}
	if a := r.Arbitrage; a != nil && a.Available {
		buyMarket, sellMarket = a.BestBuyMarket, a.BestSellMarket
		opportunity = formatPrice(a.Opportunity)
	}

	return append(text,
		formatPrice(r.SupplierPrice),
		formatOptional(r.ReferencePrice),
		EscapeCSVCell(r.ReferenceSource),
		formatOptional(r.OpenWebLowestPrice),
		r.CheapestSource,
		formatOptional(r.Fees),
		marginValue(r.MarginSupplier),
		marginPct(r.MarginSupplier),
		marginValue(r.MarginOpenWeb),
		marginPct(r.MarginOpenWeb),
		marginValue(r.MarginBest),
		marginPct(r.MarginBest),
		direction,
		strconv.Itoa(r.OpportunityScore),
		r.OpportunityLevel,
		recommendation,
		buyMarket,
		sellMarket,
		opportunity,
		strconv.FormatBool(r.IsMockData),
		r.ComparedAt.UTC().Format("2006-01-02T15:04:05Z"),
	)
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding json: %w", err)
	}
	return nil
}

// WriteFile writes a batch summary to path, choosing JSON for a .json
// extension and CSV of the results otherwise.
func WriteFile(path string, summary model.BatchSummary) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}

	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = WriteJSON(f, summary)
	} else {
		err = WriteCSV(f, summary.Results)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return formatPrice(*v)
}

func marginValue(m *model.Margin) string {
	if m == nil {
		return ""
	}
	return formatPrice(m.Value)
}

func marginPct(m *model.Margin) string {
	if m == nil {
		return ""
	}
	return formatPrice(m.Percent)
}
