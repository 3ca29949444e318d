package catalog

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ReadCSV decodes a delimited file into a grid. The delimiter is sniffed
// from the first line (';', ',' or tab). encodingName selects the source
// charset: "utf-8" (default), "windows-1252" or "iso-8859-1".
func ReadCSV(r io.Reader, encodingName string) (Grid, error) {
	enc, err := lookupEncoding(encodingName)
	if err != nil {
		return nil, err
	}

	br := bufio.NewReader(transform.NewReader(r, enc.NewDecoder()))
	peek, _ := br.Peek(4096)

	cr := csv.NewReader(br)
	cr.Comma = sniffDelimiter(peek)
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	var grid Grid
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", len(grid)+1, err)
		}
		grid = append(grid, rec)
	}
	return grid, nil
}

func lookupEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return unicode.UTF8BOM, nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252, nil
	case "iso-8859-1", "latin1", "latin-1":
		return charmap.ISO8859_1, nil
	case "iso-8859-15", "latin9":
		return charmap.ISO8859_15, nil
	default:
		return nil, fmt.Errorf("unsupported encoding %q", name)
	}
}

// sniffDelimiter picks the candidate with the highest per-line count among
// the sampled lines, so leading title rows without separators do not matter.
func sniffDelimiter(sample []byte) rune {
	best, bestCount := ',', 0
	for _, line := range bytes.Split(sample, []byte("\n")) {
		for _, d := range []rune{';', ',', '\t'} {
			if n := bytes.Count(line, []byte(string(d))); n > bestCount {
				best, bestCount = d, n
			}
		}
	}
	return best
}
