// Package extract pulls structured hedge parameters out of free-text
// prompts with regex heuristics. It is deliberately isolated behind the
// Extractor type so a tokenizer-based implementation could replace it
// without touching the classifier or orchestrator.
package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"hedge-mcp/internal/models"
)

var (
	currencyPattern = regexp.MustCompile(`\b[A-Z]{3}\b`)
	amountPattern   = regexp.MustCompile(`\b(\d+(?:,\d{3})*(?:\.\d+)?)([kKmMbB])?\b`)
	entityPattern   = regexp.MustCompile(`\b[A-Z]+\d{3,}\b`)
	isoDatePattern  = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	dmyDatePattern  = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`)
)

// isoCurrencies is the fixed allow-list of hedgeable ISO 4217 codes.
// Matching against this list keeps tokens like "CAN" or "THE" from
// being read as currencies.
var isoCurrencies = map[string]bool{
	"AUD": true, "BRL": true, "CAD": true, "CHF": true, "CNH": true,
	"CNY": true, "DKK": true, "EUR": true, "GBP": true, "HKD": true,
	"IDR": true, "INR": true, "JPY": true, "KRW": true, "MXN": true,
	"MYR": true, "NOK": true, "NZD": true, "PHP": true, "SEK": true,
	"SGD": true, "THB": true, "TWD": true, "USD": true, "ZAR": true,
}

var magnitudes = map[string]float64{
	"k": 1e3,
	"m": 1e6,
	"b": 1e9,
}

// Extractor parses prompts into ExtractedParameters.
type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

// Extract scans rawText for a currency, a monetary amount, entity IDs
// and a date. Absence of any field is not an error; unset fields stay
// zero and the caller's explicit overrides take precedence anyway.
func (e *Extractor) Extract(rawText string) models.ExtractedParameters {
	params := models.ExtractedParameters{
		EntityIDs: []string{},
	}

	// Entity IDs first: their digit runs must not be mistaken for
	// amounts, so amounts are matched against a masked copy.
	masked := rawText
	seen := make(map[string]bool)
	for _, tok := range entityPattern.FindAllString(rawText, -1) {
		if !seen[tok] {
			seen[tok] = true
			params.EntityIDs = append(params.EntityIDs, tok)
		}
		masked = strings.ReplaceAll(masked, tok, strings.Repeat("#", len(tok)))
	}

	for _, tok := range currencyPattern.FindAllString(rawText, -1) {
		if isoCurrencies[tok] {
			params.Currency = tok
			break
		}
	}

	if d := extractDate(masked); d != nil {
		params.Date = d
		masked = isoDatePattern.ReplaceAllString(masked, "#")
		masked = dmyDatePattern.ReplaceAllString(masked, "#")
	}

	if m := amountPattern.FindStringSubmatch(masked); m != nil {
		raw := strings.ReplaceAll(m[1], ",", "")
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			if suffix := strings.ToLower(m[2]); suffix != "" {
				v *= magnitudes[suffix]
			}
			params.Amount = &v
		}
	}

	params.Confidence = confidence(params)
	return params
}

func extractDate(text string) *time.Time {
	if m := isoDatePattern.FindStringSubmatch(text); m != nil {
		if t, err := time.Parse("2006-01-02", m[0]); err == nil {
			return &t
		}
	}
	if m := dmyDatePattern.FindStringSubmatch(text); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if month >= 1 && month <= 12 && day >= 1 && day <= 31 {
			t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
			return &t
		}
	}
	return nil
}

// confidence is a coarse heuristic score over how many fields the
// prompt yielded, not a statistical probability.
func confidence(p models.ExtractedParameters) float64 {
	score := 0.2
	if p.Currency != "" {
		score += 0.3
	}
	if p.Amount != nil {
		score += 0.3
	}
	if len(p.EntityIDs) > 0 {
		score += 0.2
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// IsKnownCurrency reports whether code is on the ISO allow-list.
func IsKnownCurrency(code string) bool {
	return isoCurrencies[code]
}
