package catalog

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guarzo/resellgap/internal/config"
	"github.com/guarzo/resellgap/internal/model"
)

func metadataGrid() Grid {
	return Grid{
		{"Catalogue Fournisseur Dupont", "", "", "", ""},
		{"Export du 01/10/2024", "", "", "", ""},
		{"GTIN", "Name", "Brand", "Price", "Category"},
		{"3700123456789", "Chaise en bois", "Ikea", "49.90", "Maison"},
		{"", "", "", "", ""},
		{"3700123456796", "Lampe de bureau", "Philips", "19,99", ""},
		{"3700123456802", "Tapis", "Ikea", "n/a", "Maison"},
	}
}

func TestPreview_RequiredFieldsOnlyIdentifierAndPrice(t *testing.T) {
	im := NewImporter(config.Default(), nil)
	p := im.Preview(metadataGrid())

	assert.Equal(t, 2, p.HeaderRow)
	assert.Equal(t, []string{"Identifier", "Price"}, p.RequiredFields)
	assert.Empty(t, p.MissingFields)
	assert.Contains(t, p.OptionalFields, "Name")
	assert.Contains(t, p.OptionalFields, "Brand")
	assert.Contains(t, p.OptionalFields, "Category")
	assert.NotContains(t, p.OptionalFields, "Identifier")
	assert.Equal(t, "GTIN", p.Mapping["Identifier"])
	assert.Equal(t, "Category", p.Mapping["Category"])
	assert.Len(t, p.SampleRows, 3, "blank rows are dropped")
	assert.Equal(t, 3, p.TotalRows)
}

func TestImport_SkipsAndCountsInvalidRows(t *testing.T) {
	im := NewImporter(config.Default(), nil)
	res, err := im.Import(metadataGrid())
	require.NoError(t, err)

	require.Len(t, res.Items, 2)
	assert.Equal(t, 1, res.Skipped)
	require.Len(t, res.RowErrors, 1)
	assert.Equal(t, 6, res.RowErrors[0].Row)

	var verr *model.ValidationError
	require.True(t, errors.As(res.RowErrors[0].Err, &verr))
	assert.Equal(t, "Price", verr.Field)

	first := res.Items[0]
	assert.Equal(t, "3700123456789", first.Identifier)
	assert.Equal(t, "Chaise en bois", first.Name)
	assert.Equal(t, 49.90, first.SupplierPrice)
	assert.Equal(t, "EUR", first.Currency)
	assert.Equal(t, model.Unspecified, first.ImageURL)

	second := res.Items[1]
	assert.Equal(t, 19.99, second.SupplierPrice)
	assert.Equal(t, model.Unspecified, second.Category, "blank category cell")
}

func TestImport_MissingRequiredRole(t *testing.T) {
	grid := Grid{
		{"Nom", "Marque", "Prix"},
		{"Chaise", "Ikea", "49,90"},
	}

	im := NewImporter(config.Default(), nil)
	_, err := im.Import(grid)
	require.Error(t, err)

	var verr *model.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "Identifier", verr.Field)
	assert.Equal(t, []string{"Nom", "Marque", "Prix"}, verr.Available)
	assert.True(t, strings.Contains(err.Error(), "Nom, Marque, Prix"))
}

func TestImport_RejectsDuplicatesAndNonPositivePrices(t *testing.T) {
	grid := Grid{
		{"EAN", "Nom", "Prix"},
		{"111", "A", "10"},
		{"111", "A bis", "12"},
		{"222", "B", "0"},
		{"", "C", "5"},
		{"333.0", "D", "-3"},
		{"444", "E", "7,5"},
	}

	im := NewImporter(config.Default(), nil)
	res, err := im.Import(grid)
	require.NoError(t, err)

	assert.Len(t, res.Items, 2)
	assert.Equal(t, 4, res.Skipped)
	assert.Equal(t, len(res.RowErrors), res.Skipped)
	assert.Equal(t, "444", res.Items[1].Identifier)
	assert.Equal(t, model.Unspecified, res.Items[1].Brand, "unmapped brand")
}

func TestRow_AbsentIsDistinctFromEmpty(t *testing.T) {
	grid := Grid{
		{"EAN", "Nom", "Prix", "Marque"},
		{"111", "", "10"},
	}
	tbl := NewTable(grid, nil)
	require.Len(t, tbl.Rows(), 1)
	row := tbl.Rows()[0]

	name := row.Field(RoleName)
	assert.True(t, name.Present)
	assert.Equal(t, "", name.Value)

	assert.Equal(t, Absent, row.Field(RoleBrand), "short row")
	assert.Equal(t, Absent, row.Field(RoleCategory), "unmapped role")
	assert.Equal(t, model.Unspecified, row.Field(RoleCategory).OrDefault(model.Unspecified))
}
