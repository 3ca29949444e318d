package catalog

import (
	"strings"

	"github.com/guarzo/resellgap/internal/config"
	"github.com/guarzo/resellgap/internal/model"
)

// DetectCategory guesses a category from free text. Each category scores the
// summed length of its keywords found in the text; the highest score wins.
// Ties keep the earlier category. No match yields model.Unspecified.
func DetectCategory(text string, categories []config.CategoryConfig) string {
	norm := " " + normalize(text) + " "
	best, bestScore := model.Unspecified, 0
	for _, c := range categories {
		score := 0
		for _, kw := range c.Keywords {
			k := normalize(kw)
			if k != "" && strings.Contains(norm, " "+k) {
				score += len(k)
			}
		}
		if score > bestScore {
			best, bestScore = c.Name, score
		}
	}
	return best
}

// FindCategory returns the configured category whose name matches name,
// ignoring case and accents.
func FindCategory(name string, categories []config.CategoryConfig) (config.CategoryConfig, bool) {
	n := normalize(name)
	if n == "" {
		return config.CategoryConfig{}, false
	}
	for _, c := range categories {
		if normalize(c.Name) == n {
			return c, true
		}
	}
	return config.CategoryConfig{}, false
}
