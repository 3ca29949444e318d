package catalog

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/guarzo/resellgap/internal/config"
	"github.com/guarzo/resellgap/internal/model"
)

const previewSampleRows = 5

// RowError is a data row rejected during import.
type RowError struct {
	Row int   `json:"row"` // zero-based index in the source grid
	Err error `json:"-"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row+1, e.Err)
}

// ImportResult is the outcome of importing a catalog grid.
type ImportResult struct {
	HeaderRow int
	Columns   []string
	Mapping   ColumnMapping
	Items     []model.CatalogItem
	Skipped   int
	RowErrors []RowError
}

// Preview describes how a grid would be imported without importing it.
type Preview struct {
	HeaderRow      int               `json:"header_row"`
	Columns        []string          `json:"columns"`
	Mapping        map[string]string `json:"mapping"`
	RequiredFields []string          `json:"required_fields"`
	OptionalFields []string          `json:"optional_fields"`
	MissingFields  []string          `json:"missing_fields"`
	SampleRows     [][]string        `json:"sample_rows"`
	TotalRows      int               `json:"total_rows"`
}

// Importer turns raw grids into catalog items.
type Importer struct {
	detector *HeaderDetector
	currency string
	logger   *slog.Logger
}

// NewImporter creates an importer from configuration.
func NewImporter(cfg config.Config, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{
		detector: NewHeaderDetector(NewMapper(nil)),
		currency: cfg.BaseCurrency,
		logger:   logger,
	}
}

// Preview detects the header and mapping of grid.
func (im *Importer) Preview(grid Grid) Preview {
	t := NewTable(grid, im.detector)

	p := Preview{
		HeaderRow: t.HeaderRow,
		Columns:   t.Columns,
		Mapping:   t.Mapping.AsMap(),
		TotalRows: len(t.Rows()),
	}
	for _, r := range RequiredRoles {
		p.RequiredFields = append(p.RequiredFields, string(r))
		if _, ok := t.Mapping.Column(r); !ok {
			p.MissingFields = append(p.MissingFields, string(r))
		}
	}
	for _, r := range AllRoles {
		if !isRequired(r) {
			p.OptionalFields = append(p.OptionalFields, string(r))
		}
	}
	for i, row := range t.Rows() {
		if i == previewSampleRows {
			break
		}
		p.SampleRows = append(p.SampleRows, row.Cells())
	}
	return p
}

// Import maps grid and converts its data rows into catalog items. A missing
// required column fails the whole import; invalid rows are skipped and
// counted. Item IDs are assigned from the row position.
func (im *Importer) Import(grid Grid) (*ImportResult, error) {
	t := NewTable(grid, im.detector)
	if err := t.Mapping.Validate(t.Columns); err != nil {
		return nil, err
	}

	res := &ImportResult{
		HeaderRow: t.HeaderRow,
		Columns:   t.Columns,
		Mapping:   t.Mapping,
	}
	seen := make(map[string]bool)
	for _, row := range t.Rows() {
		item, err := im.item(row)
		if err == nil && seen[item.Identifier] {
			err = &model.ValidationError{Field: string(RoleIdentifier), Reason: "duplicate identifier " + item.Identifier}
		}
		if err != nil {
			res.Skipped++
			res.RowErrors = append(res.RowErrors, RowError{Row: row.Index, Err: err})
			im.logger.Debug("skipping catalog row", "row", row.Index+1, "error", err)
			continue
		}
		seen[item.Identifier] = true
		res.Items = append(res.Items, item)
	}

	im.logger.Info("catalog imported",
		"header_row", t.HeaderRow,
		"items", len(res.Items),
		"skipped", res.Skipped)
	return res, nil
}

func (im *Importer) item(row Row) (model.CatalogItem, error) {
	id := NormalizeIdentifier(row.Field(RoleIdentifier).OrDefault(""))
	if id == "" {
		return model.CatalogItem{}, &model.ValidationError{Field: string(RoleIdentifier), Reason: "empty identifier"}
	}

	rawPrice := row.Field(RolePrice).OrDefault("")
	price, err := ParsePrice(rawPrice)
	if err != nil {
		return model.CatalogItem{}, &model.ValidationError{Field: string(RolePrice), Reason: err.Error()}
	}
	if price <= 0 {
		return model.CatalogItem{}, &model.ValidationError{Field: string(RolePrice), Reason: fmt.Sprintf("price must be positive, got %q", strings.TrimSpace(rawPrice))}
	}

	item := model.CatalogItem{
		ID:             "row-" + strconv.Itoa(row.Index+1),
		Identifier:     id,
		Name:           row.Field(RoleName).OrDefault(model.Unspecified),
		Brand:          row.Field(RoleBrand).OrDefault(model.Unspecified),
		Category:       row.Field(RoleCategory).OrDefault(model.Unspecified),
		SupplierPrice:  price,
		Currency:       im.currency,
		ImageURL:       row.Field(RoleImage).OrDefault(model.Unspecified),
		InventoryState: row.Field(RoleInventoryState).OrDefault(model.Unspecified),
		OfferCount:     row.Field(RoleOfferCount).OrDefault(model.Unspecified),
		Link:           row.Field(RoleLink).OrDefault(model.Unspecified),
	}
	return item, nil
}

func isRequired(r Role) bool {
	for _, req := range RequiredRoles {
		if req == r {
			return true
		}
	}
	return false
}
