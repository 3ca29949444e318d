package catalog

import (
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/guarzo/resellgap/internal/model"
)

// Role is the semantic meaning of a catalog column.
type Role string

const (
	RoleIdentifier     Role = "Identifier"
	RoleName           Role = "Name"
	RoleCategory       Role = "Category"
	RoleBrand          Role = "Brand"
	RolePrice          Role = "Price"
	RoleImage          Role = "Image"
	RoleInventoryState Role = "InventoryState"
	RoleOfferCount     Role = "OfferCount"
	RoleLink           Role = "Link"
)

// RequiredRoles must be mapped for an import to proceed. Every other role is
// optional, even when the source table provides it.
var RequiredRoles = []Role{RoleIdentifier, RolePrice}

// AllRoles lists every role in display order.
var AllRoles = []Role{
	RoleIdentifier, RoleName, RoleCategory, RoleBrand, RolePrice,
	RoleImage, RoleInventoryState, RoleOfferCount, RoleLink,
}

// matchOrder is the order in which roles are tried against a column name.
// More specific roles come first so that "Brand name" is a brand and
// "Image URL" is an image.
var matchOrder = []Role{
	RoleIdentifier, RolePrice, RoleImage, RoleLink, RoleInventoryState,
	RoleOfferCount, RoleCategory, RoleBrand, RoleName,
}

// DefaultRoleKeywords are the keyword families recognised per role. Keywords
// match a whole token or a token prefix of the accent-folded column name.
func DefaultRoleKeywords() map[Role][]string {
	return map[Role][]string{
		RoleIdentifier:     {"gtin", "ean", "barcode", "code barre", "code barres", "upc", "isbn"},
		RolePrice:          {"price", "prix", "cost", "cout", "tarif", "montant", "eur", "usd"},
		RoleImage:          {"image", "img", "photo", "picture", "visuel"},
		RoleLink:           {"url", "link", "lien", "href"},
		RoleInventoryState: {"stock", "inventory", "availability", "disponibilit", "etat", "condition", "state"},
		RoleOfferCount:     {"offer", "offre", "qty", "quantit", "qte", "count", "nombre"},
		RoleCategory:       {"categor", "famille", "rayon", "department", "univers", "segment"},
		RoleBrand:          {"brand", "marque", "manufacturer", "fabricant", "maker"},
		RoleName:           {"name", "nom", "designation", "libelle", "title", "titre", "product", "produit", "description", "article"},
	}
}

// genericHeaderWords are header-like words that carry no role but still
// signal that a row is a header.
var genericHeaderWords = []string{"ref", "reference", "sku", "unit", "weight", "poids", "taille", "size", "color", "couleur", "asin", "id"}

var currencySymbols = []string{"€", "$", "£"}

// ColumnMapping maps semantic roles to source column names. It is immutable
// once built.
type ColumnMapping struct {
	columns map[Role]string
}

// Column returns the column mapped to role.
func (m ColumnMapping) Column(role Role) (string, bool) {
	col, ok := m.columns[role]
	return col, ok
}

// Roles returns the mapped roles in AllRoles order.
func (m ColumnMapping) Roles() []Role {
	var out []Role
	for _, r := range AllRoles {
		if _, ok := m.columns[r]; ok {
			out = append(out, r)
		}
	}
	return out
}

// AsMap returns a copy of the mapping keyed by role name.
func (m ColumnMapping) AsMap() map[string]string {
	out := make(map[string]string, len(m.columns))
	for r, c := range m.columns {
		out[string(r)] = c
	}
	return out
}

// Validate reports the first required role that is not mapped.
func (m ColumnMapping) Validate(available []string) error {
	for _, r := range RequiredRoles {
		if _, ok := m.columns[r]; !ok {
			return &model.ValidationError{
				Field:     string(r),
				Reason:    "required column not found",
				Available: available,
			}
		}
	}
	return nil
}

// Mapper infers roles from column names.
type Mapper struct {
	keywords map[Role][]string
}

// NewMapper creates a mapper. A nil keyword table uses DefaultRoleKeywords.
func NewMapper(keywords map[Role][]string) *Mapper {
	if keywords == nil {
		keywords = DefaultRoleKeywords()
	}
	normalized := make(map[Role][]string, len(keywords))
	for role, kws := range keywords {
		for _, kw := range kws {
			normalized[role] = append(normalized[role], normalize(kw))
		}
	}
	return &Mapper{keywords: normalized}
}

// Map assigns roles to columns. The first column matching a role wins; later
// columns never overwrite an already mapped role.
func (m *Mapper) Map(columns []string) ColumnMapping {
	mapping := ColumnMapping{columns: make(map[Role]string)}
	for _, col := range columns {
		if role, ok := m.roleFor(col, mapping.columns); ok {
			mapping.columns[role] = col
		}
	}

	// Second pass tolerates single-character typos for roles still missing.
	for _, col := range columns {
		if mapping.isMappedColumn(col) {
			continue
		}
		if role, ok := m.fuzzyRoleFor(col, mapping.columns); ok {
			mapping.columns[role] = col
		}
	}
	return mapping
}

func (m ColumnMapping) isMappedColumn(col string) bool {
	for _, c := range m.columns {
		if c == col {
			return true
		}
	}
	return false
}

func (m *Mapper) roleFor(column string, taken map[Role]string) (Role, bool) {
	norm := normalize(column)
	for _, role := range matchOrder {
		if _, done := taken[role]; done {
			continue
		}
		if role == RolePrice && hasCurrencySymbol(column) {
			return role, true
		}
		if role == RoleName && matchesAny(norm, codeWords) {
			continue
		}
		if matchesAny(norm, m.keywords[role]) {
			return role, true
		}
	}
	return "", false
}

// codeWords mark reference columns such as "Product ID" that must not be
// taken for a product name.
var codeWords = []string{"id", "ref", "sku", "code"}

func (m *Mapper) fuzzyRoleFor(column string, taken map[Role]string) (Role, bool) {
	norm := normalize(column)
	toks := tokens(norm)
	for _, role := range matchOrder {
		if _, done := taken[role]; done {
			continue
		}
		if role == RoleName && matchesAny(norm, codeWords) {
			continue
		}
		for _, kw := range m.keywords[role] {
			if len([]rune(kw)) < 5 || strings.Contains(kw, " ") {
				continue
			}
			for _, tok := range toks {
				if levenshtein.ComputeDistance(tok, kw) <= 1 {
					return role, true
				}
			}
		}
	}
	return "", false
}

// isKeyword reports whether a header cell looks like any known column name.
func (m *Mapper) isKeyword(cell string) bool {
	if hasCurrencySymbol(cell) {
		return true
	}
	norm := normalize(cell)
	if norm == "" {
		return false
	}
	for _, kws := range m.keywords {
		if matchesAny(norm, kws) {
			return true
		}
	}
	return matchesAny(norm, genericHeaderWords)
}

// coreGroup returns the core field group a header cell belongs to, if any.
func (m *Mapper) coreGroup(cell string) (Role, bool) {
	norm := normalize(cell)
	if hasCurrencySymbol(cell) {
		return RolePrice, true
	}
	for _, role := range []Role{RoleIdentifier, RolePrice, RoleBrand, RoleCategory, RoleName} {
		if matchesAny(norm, m.keywords[role]) {
			return role, true
		}
	}
	return "", false
}

func matchesAny(normalized string, keywords []string) bool {
	if normalized == "" {
		return false
	}
	padded := " " + normalized + " "
	toks := tokens(normalized)
	for _, kw := range keywords {
		if strings.Contains(kw, " ") {
			if strings.Contains(padded, " "+kw+" ") {
				return true
			}
			continue
		}
		for _, tok := range toks {
			if strings.HasPrefix(tok, kw) {
				return true
			}
		}
	}
	return false
}

func hasCurrencySymbol(s string) bool {
	for _, sym := range currencySymbols {
		if strings.Contains(s, sym) {
			return true
		}
	}
	return false
}
