// Package country holds per-country invoice defaults, the Indian GST state
// table, invoice numbering and IP based region detection.
package country

import "strings"

// DefaultCode is returned by Lookup for unknown countries.
const DefaultCode = "US"

// Config captures the invoice defaults of a supported country.
type Config struct {
	Code           string    `json:"code"`
	Name           string    `json:"name"`
	Currency       string    `json:"currency"`
	CurrencySymbol string    `json:"currencySymbol"`
	TaxLabel       string    `json:"taxLabel"`
	TaxRates       []float64 `json:"taxRates"`
	InvoicePrefix  string    `json:"invoicePrefix"`
	DateFormat     string    `json:"dateFormat"`
	Flag           string    `json:"flag"`
}

var configs = map[string]Config{
	"US": {Code: "US", Name: "United States", Currency: "USD", CurrencySymbol: "$", TaxLabel: "Sales Tax", TaxRates: []float64{0, 5, 7.5, 10}, InvoicePrefix: "INV-US", DateFormat: "MM/DD/YYYY", Flag: "🇺🇸"},
	"GB": {Code: "GB", Name: "United Kingdom", Currency: "GBP", CurrencySymbol: "£", TaxLabel: "VAT", TaxRates: []float64{0, 5, 20}, InvoicePrefix: "INV-UK", DateFormat: "DD/MM/YYYY", Flag: "🇬🇧"},
	"CA": {Code: "CA", Name: "Canada", Currency: "CAD", CurrencySymbol: "C$", TaxLabel: "GST/HST", TaxRates: []float64{0, 5, 13, 15}, InvoicePrefix: "INV-CA", DateFormat: "DD/MM/YYYY", Flag: "🇨🇦"},
	"AU": {Code: "AU", Name: "Australia", Currency: "AUD", CurrencySymbol: "A$", TaxLabel: "GST", TaxRates: []float64{0, 10}, InvoicePrefix: "INV-AU", DateFormat: "DD/MM/YYYY", Flag: "🇦🇺"},
	"DE": {Code: "DE", Name: "Germany", Currency: "EUR", CurrencySymbol: "€", TaxLabel: "VAT", TaxRates: []float64{0, 7, 19}, InvoicePrefix: "INV-DE", DateFormat: "DD.MM.YYYY", Flag: "🇩🇪"},
	"FR": {Code: "FR", Name: "France", Currency: "EUR", CurrencySymbol: "€", TaxLabel: "TVA", TaxRates: []float64{0, 5.5, 10, 20}, InvoicePrefix: "INV-FR", DateFormat: "DD/MM/YYYY", Flag: "🇫🇷"},
	"NL": {Code: "NL", Name: "Netherlands", Currency: "EUR", CurrencySymbol: "€", TaxLabel: "BTW", TaxRates: []float64{0, 9, 21}, InvoicePrefix: "INV-NL", DateFormat: "DD-MM-YYYY", Flag: "🇳🇱"},
	"SG": {Code: "SG", Name: "Singapore", Currency: "SGD", CurrencySymbol: "S$", TaxLabel: "GST", TaxRates: []float64{0, 7}, InvoicePrefix: "INV-SG", DateFormat: "DD/MM/YYYY", Flag: "🇸🇬"},
}

// Lookup returns the config for code, falling back to the United States.
func Lookup(code string) Config {
	if cfg, ok := configs[strings.ToUpper(strings.TrimSpace(code))]; ok {
		return cfg
	}
	return configs[DefaultCode]
}

// Supported reports whether code has a dedicated config.
func Supported(code string) bool {
	_, ok := configs[strings.ToUpper(strings.TrimSpace(code))]
	return ok
}

// Configs lists every dedicated config ordered by code.
func Configs() []Config {
	out := make([]Config, 0, len(configs))
	for _, code := range []string{"AU", "CA", "DE", "FR", "GB", "NL", "SG", "US"} {
		out = append(out, configs[code])
	}
	return out
}
