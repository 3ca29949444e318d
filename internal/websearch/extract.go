package websearch

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/guarzo/resellgap/internal/catalog"
)

// Plausible bounds for a consumer product price.
const (
	MinPlausiblePrice = 1.0
	MaxPlausiblePrice = 10000.0
)

// amount captures either a thousands-grouped integer part with an optional
// decimal part (groups 1 and 2) or a plain number (group 3).
const amount = `(?:(\d{1,3}(?:[ .,\x{00a0}\x{202f}]\d{3})+)(?:[.,](\d{1,2}))?|(\d+(?:[.,]\d{1,2})?))`

// gap is the optional space between a currency marker and the amount.
const gap = `[\s\x{00a0}\x{202f}]?`

var (
	symbolBefore = regexp.MustCompile(`(?i)(?:€|\$|£|\beur)` + gap + amount)
	symbolAfter  = regexp.MustCompile(`(?i)` + amount + gap + `(?:€|\$|£|eur\b|euros?\b)`)
)

// pagemap price fields, most specific first.
var structuredFields = []struct {
	block string
	field string
}{
	{"offer", "price"},
	{"offer", "lowprice"},
	{"product", "price"},
	{"product", "lowprice"},
	{"aggregateoffer", "lowprice"},
	{"metatags", "product:price:amount"},
	{"metatags", "og:price:amount"},
}

// StructuredPrices reads prices from the pagemap blocks of a result.
func StructuredPrices(pagemap map[string][]map[string]string) []float64 {
	var out []float64
	for _, f := range structuredFields {
		for _, block := range pagemap[f.block] {
			raw, ok := block[f.field]
			if !ok {
				continue
			}
			if v, err := catalog.ParsePrice(raw); err == nil && plausible(v) {
				out = append(out, v)
			}
		}
	}
	return out
}

// TextPrices extracts prices written with a currency marker before or after
// the amount. Comma and point decimals are both accepted.
func TextPrices(text string) []float64 {
	var out []float64
	for _, re := range []*regexp.Regexp{symbolBefore, symbolAfter} {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			v, err := matchedPrice(m)
			if err == nil && plausible(v) {
				out = append(out, v)
			}
		}
	}
	return out
}

// matchedPrice converts an amount match. Separators inside a grouped integer
// part are always thousands separators.
func matchedPrice(m []string) (float64, error) {
	if m[1] == "" {
		return catalog.ParsePrice(m[3])
	}
	var b strings.Builder
	for _, r := range m[1] {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if m[2] != "" {
		b.WriteByte('.')
		b.WriteString(m[2])
	}
	return strconv.ParseFloat(b.String(), 64)
}

// HTMLText returns the visible text of an HTML fragment and any microdata
// price attributes it carries.
func HTMLText(fragment string) (string, []float64) {
	if fragment == "" {
		return "", nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return fragment, nil
	}

	var prices []float64
	doc.Find("[itemprop=price]").Each(func(_ int, s *goquery.Selection) {
		raw, ok := s.Attr("content")
		if !ok {
			raw = s.Text()
		}
		if v, err := catalog.ParsePrice(raw); err == nil && plausible(v) {
			prices = append(prices, v)
		}
	})
	return strings.Join(strings.Fields(doc.Text()), " "), prices
}

// ResultPrice returns the single price of a search result: the minimum of
// its structured candidates when there are any, else the minimum of the
// prices found in its title and snippet.
func ResultPrice(it Item) (float64, bool) {
	candidates := StructuredPrices(it.PageMap)

	title, titleMicro := HTMLText(it.HTMLTitle)
	snippet, snippetMicro := HTMLText(it.HTMLSnippet)
	candidates = append(candidates, titleMicro...)
	candidates = append(candidates, snippetMicro...)

	if len(candidates) == 0 {
		for _, text := range []string{it.Title, it.Snippet, title, snippet} {
			candidates = append(candidates, TextPrices(text)...)
		}
	}
	if len(candidates) == 0 {
		return 0, false
	}
	lowest := candidates[0]
	for _, c := range candidates[1:] {
		if c < lowest {
			lowest = c
		}
	}
	return lowest, true
}

func plausible(v float64) bool {
	return v >= MinPlausiblePrice && v <= MaxPlausiblePrice
}
