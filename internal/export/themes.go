// Package export renders invoices to HTML and PDF.
package export

import (
	"strconv"
	"strings"
)

// Theme is the palette of an invoice layout. Colours are hex RGB.
type Theme struct {
	Name    string `json:"name"`
	Label   string `json:"label"`
	Primary string `json:"primary"`
	Accent  string `json:"accent"`
	Text    string `json:"text"`
	Border  string `json:"border"`
}

// DefaultTheme is used for unknown theme names.
const DefaultTheme = "classic"

var themes = []Theme{
	{Name: "classic", Label: "Classic", Primary: "#1f2937", Accent: "#1f2937", Text: "#111827", Border: "#e5e7eb"},
	{Name: "modern-blue", Label: "Modern Blue", Primary: "#2563eb", Accent: "#2563eb", Text: "#111827", Border: "#bfdbfe"},
	{Name: "elegant-green", Label: "Elegant Green", Primary: "#16a34a", Accent: "#16a34a", Text: "#111827", Border: "#bbf7d0"},
	{Name: "luxury-gold", Label: "Luxury Gold", Primary: "#ca8a04", Accent: "#ca8a04", Text: "#111827", Border: "#fef08a"},
	{Name: "corporate-navy", Label: "Corporate Navy", Primary: "#334155", Accent: "#334155", Text: "#0f172a", Border: "#e2e8f0"},
	{Name: "creative-purple", Label: "Creative Purple", Primary: "#9333ea", Accent: "#9333ea", Text: "#111827", Border: "#e9d5ff"},
	{Name: "minimal-gray", Label: "Minimal Gray", Primary: "#1f2937", Accent: "#374151", Text: "#111827", Border: "#e5e7eb"},
	{Name: "vibrant-orange", Label: "Vibrant Orange", Primary: "#ea580c", Accent: "#ea580c", Text: "#111827", Border: "#fed7aa"},
	{Name: "professional-teal", Label: "Professional Teal", Primary: "#0d9488", Accent: "#0d9488", Text: "#111827", Border: "#99f6e4"},
	{Name: "executive-black", Label: "Executive Black", Primary: "#000000", Accent: "#000000", Text: "#000000", Border: "#d1d5db"},
	{Name: "international", Label: "International", Primary: "#1e40af", Accent: "#1e40af", Text: "#111827", Border: "#dbeafe"},
}

// Themes lists every registered theme.
func Themes() []Theme {
	out := make([]Theme, len(themes))
	copy(out, themes)
	return out
}

// ThemeByName returns the named theme or classic.
func ThemeByName(name string) Theme {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, t := range themes {
		if t.Name == name {
			return t
		}
	}
	return themes[0]
}

// rgb converts "#rrggbb" into components for gofpdf.
func rgb(hex string) (int, int, int) {
	v, err := strconv.ParseUint(strings.TrimPrefix(hex, "#"), 16, 32)
	if err != nil {
		return 0, 0, 0
	}
	return int(v >> 16 & 0xff), int(v >> 8 & 0xff), int(v & 0xff)
}
