package export

import (
	"embed"
	"html/template"
	"io"
	"regexp"

	"github.com/noah-isme/backend-invoice/internal/invoice"
	"github.com/noah-isme/backend-invoice/internal/pricing"
)

//go:embed templates/invoice.html
var templateFS embed.FS

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

var invoiceTemplate = template.Must(template.New("invoice.html").Funcs(template.FuncMap{
	"color": func(v string) template.CSS {
		if !hexColor.MatchString(v) {
			return template.CSS("inherit")
		}
		return template.CSS(v)
	},
}).ParseFS(templateFS, "templates/invoice.html"))

// RenderDomesticHTML writes a GST invoice as a standalone HTML page.
func RenderDomesticHTML(w io.Writer, inv *invoice.Domestic, totals pricing.DomesticTotals, opts Options) error {
	return renderHTML(w, domesticView(inv, totals, opts, htmlMoney))
}

// RenderInternationalHTML writes an international invoice as a standalone HTML page.
func RenderInternationalHTML(w io.Writer, inv *invoice.International, totals pricing.InternationalTotals, opts Options) error {
	return renderHTML(w, internationalView(inv, totals, opts, htmlMoney))
}

func renderHTML(w io.Writer, v view) error {
	if err := invoiceTemplate.Execute(w, v); err != nil {
		return renderErr("html", err)
	}
	return nil
}
