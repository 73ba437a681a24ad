package currency

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var symbols = map[string]string{
	"USD": "$", "EUR": "€", "GBP": "£", "JPY": "¥", "CNY": "¥",
	"INR": "₹", "AUD": "A$", "CAD": "C$", "CHF": "CHF", "SGD": "S$",
	"HKD": "HK$", "NZD": "NZ$", "SEK": "kr", "NOK": "kr", "DKK": "kr",
}

// Symbol returns the display symbol for code, or the code itself.
func Symbol(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if s, ok := symbols[code]; ok {
		return s
	}
	return code
}

var printer = message.NewPrinter(language.English)

// Format renders amount with its symbol, grouped thousands and 2 decimals.
func Format(amount float64, code string) string {
	neg, digits := cents(amount)
	if neg {
		return "-" + Symbol(code) + digits
	}
	return Symbol(code) + digits
}

// FormatCode renders amount as "CODE 1,234.50". PDF core fonts lack most
// currency glyphs, so exports use the ISO code instead of the symbol.
func FormatCode(amount float64, code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	neg, digits := cents(amount)
	if neg {
		return "-" + code + " " + digits
	}
	return code + " " + digits
}

// cents rounds half away from zero before taking the sign, so amounts that
// round to zero never print as "-0.00".
func cents(amount float64) (bool, string) {
	rounded := decimal.NewFromFloat(amount).Round(2)
	f, _ := rounded.Abs().Float64()
	return rounded.IsNegative(), printer.Sprintf("%.2f", f)
}
