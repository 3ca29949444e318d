package websearch

import (
	"testing"
)

func TestTextPrices(t *testing.T) {
	tests := []struct {
		text string
		want []float64
	}{
		{"Nike Air Max à 129,99 € livraison offerte", []float64{129.99}},
		{"Now only $49.90 at our store", []float64{49.90}},
		{"Prix: EUR 1 299,00", []float64{1299}},
		{"£7 delivered", []float64{7}},
		{"Vendu 12.5€ au lieu de 20 €", []float64{12.5, 20}},
		{"Console à 1.299 €", []float64{1299}},
		{"Prix 1.234,00 €", []float64{1234}},
		{"TV 1,299.50 EUR", []float64{1299.50}},
		{"Casque 129,99\u00a0€", []float64{129.99}},
		{"Casque 129,99\u202f€", []float64{129.99}},
		{"Enceinte 1\u202f049,90\u00a0€", []float64{1049.90}},
		{"€\u00a089,00 seulement", []float64{89}},
		{"Pack de 3 pour 0,50 €", nil},
		{"Lot 50000 €", nil},
		{"Fleur 12 pétales", nil},
		{"no price here 2024", nil},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got := TextPrices(tt.text)
			if len(got) != len(tt.want) {
				t.Fatalf("Expected %v, got %v", tt.want, got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Price %d: expected %v, got %v", i, tt.want[i], got[i])
				}
			}
		})
	}
}

func TestStructuredPrices(t *testing.T) {
	pagemap := map[string][]map[string]string{
		"offer":    {{"price": "89.99", "pricecurrency": "EUR"}},
		"metatags": {{"og:price:amount": "94,50"}},
		"product":  {{"name": "no price"}},
	}
	got := StructuredPrices(pagemap)
	if len(got) != 2 || got[0] != 89.99 || got[1] != 94.50 {
		t.Errorf("Unexpected structured prices %v", got)
	}
}

func TestResultPrice_PrefersStructuredThenMinimum(t *testing.T) {
	structured := Item{
		Title:   "Casque 59,99 €",
		PageMap: map[string][]map[string]string{"offer": {{"price": "64.00"}, {"price": "61.50"}}},
	}
	if got, ok := ResultPrice(structured); !ok || got != 61.50 {
		t.Errorf("Expected structured minimum 61.50, got %v (ok=%v)", got, ok)
	}

	textOnly := Item{
		Title:       "Casque Bluetooth",
		HTMLSnippet: "<b>Casque</b> dès 59,99&nbsp;€ au lieu de 79,99 €",
	}
	if got, ok := ResultPrice(textOnly); !ok || got != 59.99 {
		t.Errorf("Expected snippet minimum 59.99, got %v (ok=%v)", got, ok)
	}

	microdata := Item{HTMLSnippet: `<span itemprop="price" content="42.00">42 €</span>`}
	if got, ok := ResultPrice(microdata); !ok || got != 42 {
		t.Errorf("Expected microdata price 42, got %v (ok=%v)", got, ok)
	}

	if _, ok := ResultPrice(Item{Title: "Casque", Snippet: "Livraison gratuite"}); ok {
		t.Error("Expected no price")
	}
}
