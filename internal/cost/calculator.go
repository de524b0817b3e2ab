// Package cost estimates spend for model token usage.
package cost

import "strings"

// ModelRate holds per-model token pricing (USD per million tokens).
type ModelRate struct {
	Input  float64 `yaml:"input" mapstructure:"input"`
	Output float64 `yaml:"output" mapstructure:"output"`
}

// Rates maps model names to their pricing.
type Rates map[string]ModelRate

// Calculator computes costs for model usage.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator from DefaultRates overlaid with
// overrides.
func NewCalculator(overrides Rates) *Calculator {
	rates := DefaultRates()
	for model, r := range overrides {
		rates[model] = r
	}
	return &Calculator{rates: rates}
}

// Rate looks up pricing for model. Provider prefixes ("gemini/") are
// ignored, and dated model names fall back to their undated prefix.
func (c *Calculator) Rate(model string) (ModelRate, bool) {
	if i := strings.LastIndex(model, "/"); i >= 0 {
		model = model[i+1:]
	}
	if r, ok := c.rates[model]; ok {
		return r, true
	}
	best := ""
	for name := range c.rates {
		if strings.HasPrefix(model, name) && len(name) > len(best) {
			best = name
		}
	}
	if best == "" {
		return ModelRate{}, false
	}
	return c.rates[best], true
}

// Tokens computes the cost of a call. Unknown models cost 0.
func (c *Calculator) Tokens(model string, input, output int64) float64 {
	rate, ok := c.Rate(model)
	if !ok {
		return 0
	}
	return (float64(input)/1e6)*rate.Input + (float64(output)/1e6)*rate.Output
}

// DefaultRates returns the built-in pricing table.
func DefaultRates() Rates {
	return Rates{
		"gemini-1.5-flash":           {Input: 0.075, Output: 0.30},
		"gemini-1.5-pro":             {Input: 1.25, Output: 5.00},
		"gemini-2.0-flash":           {Input: 0.10, Output: 0.40},
		"gpt-4o":                     {Input: 2.50, Output: 10.00},
		"gpt-4o-mini":                {Input: 0.15, Output: 0.60},
		"claude-haiku-4-5-20251001":  {Input: 1.00, Output: 5.00},
		"claude-sonnet-4-5-20250929": {Input: 3.00, Output: 15.00},
	}
}
