package export

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-invoice/internal/currency"
	"github.com/noah-isme/backend-invoice/internal/invoice"
	"github.com/noah-isme/backend-invoice/internal/pricing"
)

// ErrRender wraps every template or PDF failure.
var ErrRender = errors.New("export: render failed")

const (
	domesticFooter      = "Made with BharatBillGen"
	internationalFooter = "Made with BharatBillGen - Global Invoice Generator"
	domesticCurrency    = "INR"
)

// Options tune a render.
type Options struct {
	Premium bool
	// Theme overrides the invoice theme when set.
	Theme string
}

type partyView struct {
	Name    string
	Address string
	Phone   string
	Email   string
	TaxLine string
}

type rowView struct {
	Index       int
	Description string
	HSNSAC      string
	Quantity    string
	Rate        string
	Amount      string
	TaxRate     string
	TaxAmount   string
	Total       string
}

type totalView struct {
	Label string
	Value string
	Grand bool
}

type sectionView struct {
	Title string
	Body  string
}

// view is the format-neutral layout shared by the HTML and PDF renderers.
type view struct {
	Title         string
	Number        string
	Date          string
	DueDate       string
	Company       partyView
	Client        partyView
	PlaceOfSupply string
	ShowHSN       bool
	ShowTax       bool
	TaxHeader     string
	Rows          []rowView
	Totals        []totalView
	Sections      []sectionView
	Footer        string
	Theme         Theme
	Updated       time.Time
}

// round applies half-away-from-zero rounding to cents.
func round(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}

type moneyFunc func(v float64, code string) string

func money(format moneyFunc, code string) func(float64) string {
	return func(v float64) string {
		f, _ := round(v).Float64()
		return format(f, code)
	}
}

func plain(v float64) string {
	return decimal.NewFromFloat(v).String()
}

func domesticView(inv *invoice.Domestic, totals pricing.DomesticTotals, opts Options, format moneyFunc) view {
	m := money(format, domesticCurrency)
	v := view{
		Title:   "INVOICE",
		Number:  inv.Number,
		Date:    inv.Date,
		DueDate: inv.DueDate,
		Company: partyView{Name: inv.Company.Name, Address: inv.Company.Address, Phone: inv.Company.Phone, Email: inv.Company.Email},
		Client:  partyView{Name: inv.Client.Name, Address: inv.Client.Address, Phone: inv.Client.Phone, Email: inv.Client.Email},
		ShowHSN: inv.GST,
		ShowTax: inv.GST,
		Theme:   ThemeByName(pick(opts.Theme, inv.Theme)),
		Updated: inv.UpdatedAt,
	}
	if inv.GST {
		v.Title = "TAX INVOICE"
		v.TaxHeader = "Tax %"
		v.PlaceOfSupply = inv.PlaceOfSupply
		if inv.Company.GSTIN != "" {
			v.Company.TaxLine = "GSTIN: " + inv.Company.GSTIN
		}
		if inv.Client.GSTIN != "" {
			v.Client.TaxLine = "GSTIN: " + inv.Client.GSTIN
		}
	}
	v.Rows = rows(inv.Items, m)

	v.Totals = append(v.Totals, totalView{Label: "Subtotal", Value: m(totals.Subtotal)})
	for _, line := range []struct {
		label string
		value float64
	}{{"CGST", totals.CGST}, {"SGST", totals.SGST}, {"IGST", totals.IGST}} {
		if line.value > 0 {
			v.Totals = append(v.Totals, totalView{Label: line.label, Value: m(line.value)})
		}
	}
	v.Totals = append(v.Totals, totalView{Label: "Total Amount", Value: m(totals.Total), Grand: true})
	if inv.BalanceDue != 0 {
		v.Totals = append(v.Totals, totalView{Label: "Balance Due", Value: m(inv.BalanceDue)})
	}

	v.Sections = sections(
		sectionView{"Payment Instructions", inv.PaymentInstructions},
		sectionView{"Terms & Conditions", inv.Terms},
		sectionView{"Notes", inv.Notes},
	)
	if !opts.Premium {
		v.Footer = domesticFooter
	}
	return v
}

func internationalView(inv *invoice.International, totals pricing.InternationalTotals, opts Options, format moneyFunc) view {
	m := money(format, inv.Currency)
	label := pick(inv.TaxLabel, "Tax")
	v := view{
		Title:     "INVOICE",
		Number:    inv.Number,
		Date:      inv.Date,
		DueDate:   inv.DueDate,
		Company:   partyView{Name: inv.Company.Name, Address: inv.Company.Address, Phone: inv.Company.Phone, Email: inv.Company.Email},
		Client:    partyView{Name: inv.Client.Name, Address: inv.Client.Address, Phone: inv.Client.Phone, Email: inv.Client.Email},
		ShowTax:   true,
		TaxHeader: label + " %",
		Theme:     ThemeByName(pick(opts.Theme, inv.Theme)),
		Updated:   inv.UpdatedAt,
	}
	if inv.Company.TaxID != "" {
		v.Company.TaxLine = label + " ID: " + inv.Company.TaxID
	}
	if inv.Client.TaxID != "" {
		v.Client.TaxLine = label + " ID: " + inv.Client.TaxID
	}
	v.Rows = rows(inv.Items, m)
	v.Totals = []totalView{
		{Label: "Subtotal", Value: m(totals.Subtotal)},
		{Label: label, Value: m(totals.Tax)},
		{Label: "Total", Value: m(totals.Total), Grand: true},
	}
	v.Sections = sections(
		sectionView{"Payment Terms", inv.PaymentTerms},
		sectionView{"Notes", inv.Notes},
	)
	if !opts.Premium {
		v.Footer = internationalFooter
	}
	return v
}

func rows(items []pricing.LineItem, m func(float64) string) []rowView {
	out := make([]rowView, 0, len(items))
	for i, it := range items {
		out = append(out, rowView{
			Index:       i + 1,
			Description: it.Description,
			HSNSAC:      it.HSNSAC,
			Quantity:    plain(it.Quantity),
			Rate:        m(it.Rate),
			Amount:      m(it.Amount),
			TaxRate:     plain(it.TaxRate) + "%",
			TaxAmount:   m(it.TaxAmount),
			Total:       m(it.Total),
		})
	}
	return out
}

func sections(in ...sectionView) []sectionView {
	out := make([]sectionView, 0, len(in))
	for _, s := range in {
		if strings.TrimSpace(s.Body) != "" {
			out = append(out, s)
		}
	}
	return out
}

func pick(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

func renderErr(format string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrRender, format, err)
}

var (
	htmlMoney moneyFunc = currency.Format
	pdfMoney  moneyFunc = currency.FormatCode
)
