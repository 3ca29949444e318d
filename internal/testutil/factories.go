package testutil

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"time"

	"github.com/guarzo/resellgap/internal/model"
)

// Factory generates catalog test data from a seeded random source, so a
// given seed always yields the same data.
type Factory struct {
	rand *rand.Rand
}

// NewFactory creates a factory. A zero seed uses the current time.
func NewFactory(seed int64) *Factory {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Factory{rand: rand.New(rand.NewSource(seed))}
}

var (
	testNames  = []string{"Casque Bluetooth", "Lampe de bureau LED", "Ballon de foot", "Puzzle 1000 pieces", "Creme hydratante", "Roman policier"}
	testBrands = []string{"Sono", "Lumina", "Kicker", "Ravensburger", "Nivea", model.Unspecified}
)

// EAN returns a 13-digit identifier with a valid check digit.
func (f *Factory) EAN() string {
	digits := make([]byte, 12)
	digits[0], digits[1] = '3', '7'
	for i := 2; i < 12; i++ {
		digits[i] = byte('0' + f.rand.Intn(10))
	}
	sum := 0
	for i, d := range digits {
		n := int(d - '0')
		if i%2 == 1 {
			n *= 3
		}
		sum += n
	}
	return string(digits) + strconv.Itoa((10-sum%10)%10)
}

// Price returns a price between lo and hi rounded to cents.
func (f *Factory) Price(lo, hi float64) float64 {
	return math.Round((lo+f.rand.Float64()*(hi-lo))*100) / 100
}

// Item returns a catalog item with the given ID.
func (f *Factory) Item(id string) model.CatalogItem {
	return model.CatalogItem{
		ID:            id,
		Identifier:    f.EAN(),
		Name:          testNames[f.rand.Intn(len(testNames))],
		Brand:         testBrands[f.rand.Intn(len(testBrands))],
		Category:      model.Unspecified,
		SupplierPrice: f.Price(5, 200),
		Currency:      "EUR",
	}
}

// Items returns n items with IDs "item-1" to "item-n".
func (f *Factory) Items(n int) []model.CatalogItem {
	out := make([]model.CatalogItem, n)
	for i := range out {
		out[i] = f.Item(fmt.Sprintf("item-%d", i+1))
	}
	return out
}

// Grid renders items as a supplier sheet: metadata rows, a header row, then
// one row per item with comma decimals.
func (f *Factory) Grid(items []model.CatalogItem, metadataRows int) [][]string {
	grid := make([][]string, 0, metadataRows+1+len(items))
	for i := 0; i < metadataRows; i++ {
		grid = append(grid, []string{fmt.Sprintf("Export fournisseur %d", i+1), "", "", "", ""})
	}
	grid = append(grid, []string{"EAN", "Designation", "Marque", "Prix HT", "Categorie"})
	for _, it := range items {
		grid = append(grid, []string{
			it.Identifier,
			it.Name,
			it.Brand,
			strconv.FormatFloat(it.SupplierPrice, 'f', 2, 64),
			it.Category,
		})
	}
	for i := metadataRows + 1; i < len(grid); i++ {
		grid[i][3] = commaDecimal(grid[i][3])
	}
	return grid
}

// History returns n daily points ending the day before now, oscillating
// within spread (a fraction) around base.
func (f *Factory) History(base, spread float64, n int, now time.Time) []model.PricePoint {
	out := make([]model.PricePoint, n)
	for i := range out {
		jitter := 1 + (f.rand.Float64()*2-1)*spread
		out[i] = model.PricePoint{
			Timestamp: now.AddDate(0, 0, -(n - i)),
			Price:     math.Round(base*jitter*100) / 100,
		}
	}
	return out
}

func commaDecimal(s string) string {
	b := []byte(s)
	for i := range b {
		if b[i] == '.' {
			b[i] = ','
		}
	}
	return string(b)
}
