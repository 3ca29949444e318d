package catalog

import "strings"

// Field is a cell read through a column mapping. Present is false when the
// role is unmapped or the row is shorter than the mapped column; an empty
// string that was actually in the table is Present with Value "".
type Field struct {
	Value   string
	Present bool
}

// Absent is the zero Field.
var Absent = Field{}

// OrDefault returns the trimmed value, or def when the field is absent or
// blank.
func (f Field) OrDefault(def string) string {
	if !f.Present {
		return def
	}
	if v := strings.TrimSpace(f.Value); v != "" {
		return v
	}
	return def
}

// Row is a data row bound to the column mapping of its table.
type Row struct {
	Index int
	cells []string
	index map[Role]int
}

// Field returns the cell for role.
func (r Row) Field(role Role) Field {
	i, ok := r.index[role]
	if !ok || i >= len(r.cells) {
		return Absent
	}
	return Field{Value: r.cells[i], Present: true}
}

// Cells returns the raw cells of the row.
func (r Row) Cells() []string {
	return r.cells
}

// Table is a grid whose header row has been located and mapped.
type Table struct {
	HeaderRow int
	Columns   []string
	Mapping   ColumnMapping
	rows      []Row
}

// Rows returns the non-empty data rows below the header.
func (t *Table) Rows() []Row {
	return t.rows
}

// NewTable locates the header of grid and maps its columns. It does not
// validate that required roles are present.
func NewTable(grid Grid, detector *HeaderDetector) *Table {
	if detector == nil {
		detector = NewHeaderDetector(nil)
	}
	width := gridWidth(grid)
	headerIdx := detector.Detect(grid)

	var header []string
	if headerIdx < len(grid) {
		header = grid[headerIdx]
	}
	columns := columnNames(header, width)
	mapping := detector.mapper.Map(columns)

	index := make(map[Role]int, len(mapping.columns))
	for role, col := range mapping.columns {
		for i, c := range columns {
			if c == col {
				index[role] = i
				break
			}
		}
	}

	t := &Table{HeaderRow: headerIdx, Columns: columns, Mapping: mapping}
	for i := headerIdx + 1; i < len(grid); i++ {
		if isBlankRow(grid[i]) {
			continue
		}
		t.rows = append(t.rows, Row{Index: i, cells: grid[i], index: index})
	}
	return t
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
