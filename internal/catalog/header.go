package catalog

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// Grid is a decoded tabular source: rows of string cells.
type Grid [][]string

const (
	headerScanRows    = 30
	strongHeaderScore = 45.0
	minHeaderScore    = 15.0
	longTextRunes     = 40
	fallbackKeywords  = 3
)

// HeaderDetector picks the row of a grid that holds column names.
type HeaderDetector struct {
	mapper *Mapper
}

// NewHeaderDetector creates a detector using the mapper's keyword families.
func NewHeaderDetector(m *Mapper) *HeaderDetector {
	if m == nil {
		m = NewMapper(nil)
	}
	return &HeaderDetector{mapper: m}
}

// Detect returns the zero-based index of the header row. The first rows are
// scored and scanning stops at the first strong candidate. When no candidate
// reaches the floor, every row is scanned for enough header keywords, and
// row 0 is the last resort.
func (d *HeaderDetector) Detect(grid Grid) int {
	if len(grid) == 0 {
		return 0
	}
	width := gridWidth(grid)

	limit := headerScanRows
	if len(grid) < limit {
		limit = len(grid)
	}

	best, bestScore := -1, 0.0
	for i := 0; i < limit; i++ {
		score := d.Score(grid[i], width)
		if score > bestScore {
			best, bestScore = i, score
		}
		if score >= strongHeaderScore {
			return i
		}
	}
	if best >= 0 && bestScore >= minHeaderScore {
		return best
	}

	for i, row := range grid {
		if d.keywordHits(row) >= fallbackKeywords {
			return i
		}
	}
	return 0
}

// Score rates how much a row looks like a header row.
func (d *HeaderDetector) Score(row []string, width int) float64 {
	if width <= 0 {
		width = len(row)
	}
	if width == 0 {
		return 0
	}

	named := 0
	longCells := 0
	groups := make(map[Role]bool)
	for _, cell := range row {
		cell = strings.TrimSpace(cell)
		if cell == "" {
			continue
		}
		named++
		if utf8.RuneCountInString(cell) > longTextRunes {
			longCells++
			continue
		}
		if g, ok := d.mapper.coreGroup(cell); ok {
			groups[g] = true
		}
	}
	if named == 0 {
		return 0
	}

	ratio := float64(named) / float64(width)
	score := 10*ratio + 5*float64(d.keywordHits(row)) + 8*float64(len(groups))
	score -= 6 * float64(longCells)
	return score
}

func (d *HeaderDetector) keywordHits(row []string) int {
	hits := 0
	for _, cell := range row {
		cell = strings.TrimSpace(cell)
		if cell == "" || utf8.RuneCountInString(cell) > longTextRunes {
			continue
		}
		if d.mapper.isKeyword(cell) {
			hits++
		}
	}
	return hits
}

func gridWidth(grid Grid) int {
	w := 0
	for _, row := range grid {
		if len(row) > w {
			w = len(row)
		}
	}
	return w
}

// columnNames turns a header row into unique, non-empty column names.
func columnNames(header []string, width int) []string {
	names := make([]string, width)
	seen := make(map[string]int, width)
	for i := 0; i < width; i++ {
		name := ""
		if i < len(header) {
			name = strings.TrimSpace(header[i])
		}
		if name == "" {
			name = "Column " + strconv.Itoa(i+1)
		}
		if n := seen[name]; n > 0 {
			seen[name] = n + 1
			name = name + "_" + strconv.Itoa(n+1)
		} else {
			seen[name] = 1
		}
		names[i] = name
	}
	return names
}
