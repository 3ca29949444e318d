package catalog

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// ParsePrice reads a human-entered price such as "12,50 €", "$1,234.56" or
// "1 234,56". When both ',' and '.' appear, the last one is the decimal
// separator.
func ParsePrice(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, fmt.Errorf("empty price")
	}

	var b strings.Builder
	for _, r := range s {
		switch {
		case unicode.IsDigit(r), r == ',', r == '.', r == '-':
			b.WriteRune(r)
		}
	}
	clean := b.String()
	if clean == "" {
		return 0, fmt.Errorf("no digits in price %q", raw)
	}

	lastComma := strings.LastIndex(clean, ",")
	lastDot := strings.LastIndex(clean, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			clean = strings.ReplaceAll(clean, ".", "")
			clean = strings.Replace(clean, ",", ".", 1)
		} else {
			clean = strings.ReplaceAll(clean, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(clean, ",") == 1 && len(clean)-lastComma-1 != 3 {
			clean = strings.Replace(clean, ",", ".", 1)
		} else {
			clean = strings.ReplaceAll(clean, ",", "")
		}
	case strings.Count(clean, ".") > 1:
		clean = strings.ReplaceAll(clean, ".", "")
	}

	v, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return 0, fmt.Errorf("parse price %q: %w", raw, err)
	}
	return v, nil
}

// NormalizeIdentifier strips spreadsheet artefacts from a product code, such
// as surrounding spaces or a trailing ".0".
func NormalizeIdentifier(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "'")
	if strings.HasSuffix(s, ".0") && isDigits(strings.TrimSuffix(s, ".0")) {
		s = strings.TrimSuffix(s, ".0")
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && strings.ContainsAny(s, "eE") {
		s = strconv.FormatFloat(f, 'f', 0, 64)
	}
	return s
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
