package country

import "strings"

// Entry is one row of the country directory used for currency and
// default tax suggestions.
type Entry struct {
	Code     string  `json:"code"`
	Name     string  `json:"name"`
	Currency string  `json:"currency"`
	TaxRate  float64 `json:"taxRate"`
	Flag     string  `json:"flag"`
}

var directory = []Entry{
	{"IN", "India", "INR", 18, "🇮🇳"},
	{"US", "United States", "USD", 8.5, "🇺🇸"},
	{"GB", "United Kingdom", "GBP", 20, "🇬🇧"},
	{"DE", "Germany", "EUR", 19, "🇩🇪"},
	{"FR", "France", "EUR", 20, "🇫🇷"},
	{"JP", "Japan", "JPY", 10, "🇯🇵"},
	{"CN", "China", "CNY", 13, "🇨🇳"},
	{"AU", "Australia", "AUD", 10, "🇦🇺"},
	{"CA", "Canada", "CAD", 13, "🇨🇦"},
	{"CH", "Switzerland", "CHF", 7.7, "🇨🇭"},
	{"SG", "Singapore", "SGD", 7, "🇸🇬"},
	{"HK", "Hong Kong", "HKD", 0, "🇭🇰"},
	{"NZ", "New Zealand", "NZD", 15, "🇳🇿"},
	{"SE", "Sweden", "SEK", 25, "🇸🇪"},
	{"NO", "Norway", "NOK", 25, "🇳🇴"},
	{"DK", "Denmark", "DKK", 25, "🇩🇰"},
	{"NL", "Netherlands", "EUR", 21, "🇳🇱"},
	{"BE", "Belgium", "EUR", 21, "🇧🇪"},
	{"IT", "Italy", "EUR", 22, "🇮🇹"},
	{"ES", "Spain", "EUR", 21, "🇪🇸"},
	{"PT", "Portugal", "EUR", 23, "🇵🇹"},
	{"AT", "Austria", "EUR", 20, "🇦🇹"},
	{"IE", "Ireland", "EUR", 23, "🇮🇪"},
	{"FI", "Finland", "EUR", 24, "🇫🇮"},
	{"PL", "Poland", "PLN", 23, "🇵🇱"},
	{"CZ", "Czech Republic", "CZK", 21, "🇨🇿"},
	{"HU", "Hungary", "HUF", 27, "🇭🇺"},
	{"RU", "Russia", "RUB", 20, "🇷🇺"},
	{"BR", "Brazil", "BRL", 17, "🇧🇷"},
	{"MX", "Mexico", "MXN", 16, "🇲🇽"},
	{"AR", "Argentina", "ARS", 21, "🇦🇷"},
	{"CL", "Chile", "CLP", 19, "🇨🇱"},
	{"CO", "Colombia", "COP", 19, "🇨🇴"},
	{"PE", "Peru", "PEN", 18, "🇵🇪"},
	{"ZA", "South Africa", "ZAR", 15, "🇿🇦"},
	{"EG", "Egypt", "EGP", 14, "🇪🇬"},
	{"NG", "Nigeria", "NGN", 7.5, "🇳🇬"},
	{"KE", "Kenya", "KES", 16, "🇰🇪"},
	{"GH", "Ghana", "GHS", 12.5, "🇬🇭"},
	{"AE", "United Arab Emirates", "AED", 5, "🇦🇪"},
	{"SA", "Saudi Arabia", "SAR", 15, "🇸🇦"},
	{"QA", "Qatar", "QAR", 0, "🇶🇦"},
	{"KW", "Kuwait", "KWD", 0, "🇰🇼"},
	{"BH", "Bahrain", "BHD", 10, "🇧🇭"},
	{"OM", "Oman", "OMR", 5, "🇴🇲"},
	{"JO", "Jordan", "JOD", 16, "🇯🇴"},
	{"LB", "Lebanon", "LBP", 11, "🇱🇧"},
	{"IL", "Israel", "ILS", 17, "🇮🇱"},
	{"TR", "Turkey", "TRY", 18, "🇹🇷"},
	{"KR", "South Korea", "KRW", 10, "🇰🇷"},
	{"TH", "Thailand", "THB", 7, "🇹🇭"},
	{"MY", "Malaysia", "MYR", 6, "🇲🇾"},
	{"ID", "Indonesia", "IDR", 10, "🇮🇩"},
	{"PH", "Philippines", "PHP", 12, "🇵🇭"},
	{"VN", "Vietnam", "VND", 10, "🇻🇳"},
	{"TW", "Taiwan", "TWD", 5, "🇹🇼"},
}

// Directory returns a copy of the country directory.
func Directory() []Entry {
	out := make([]Entry, len(directory))
	copy(out, directory)
	return out
}

// ByCode finds a directory entry, falling back to India.
func ByCode(code string) Entry {
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, e := range directory {
		if e.Code == code {
			return e
		}
	}
	return directory[0]
}
