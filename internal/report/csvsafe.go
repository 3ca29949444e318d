package report

import "strings"

// formulaPrefixes start a cell that spreadsheets may evaluate.
const formulaPrefixes = "=+-@|%\t\r\n"

// EscapeCSVCell prefixes text that a spreadsheet could interpret as a
// formula with a single quote. Catalog names and brands come from supplier
// files and are never trusted.
func EscapeCSVCell(value string) string {
	if value == "" || !strings.ContainsRune(formulaPrefixes, rune(value[0])) {
		return value
	}
	return "'" + value
}

// EscapeCSVRow escapes every cell of row.
func EscapeCSVRow(row []string) []string {
	escaped := make([]string, len(row))
	for i, cell := range row {
		escaped[i] = EscapeCSVCell(cell)
	}
	return escaped
}
