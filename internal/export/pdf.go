package export

import (
	"io"
	"strconv"

	"github.com/jung-kurt/gofpdf"

	"github.com/noah-isme/backend-invoice/internal/invoice"
	"github.com/noah-isme/backend-invoice/internal/pricing"
)

const (
	pdfMargin   = 15.0
	pdfLine     = 6.0
	pdfFont     = "Helvetica"
	pdfPageWide = 210.0
)

// RenderDomesticPDF writes a GST invoice as an A4 PDF.
func RenderDomesticPDF(w io.Writer, inv *invoice.Domestic, totals pricing.DomesticTotals, opts Options) error {
	return renderPDF(w, domesticView(inv, totals, opts, pdfMoney))
}

// RenderInternationalPDF writes an international invoice as an A4 PDF.
func RenderInternationalPDF(w io.Writer, inv *invoice.International, totals pricing.InternationalTotals, opts Options) error {
	return renderPDF(w, internationalView(inv, totals, opts, pdfMoney))
}

type pdfColumn struct {
	title string
	width float64
	align string
	value func(rowView) string
}

func columns(v view) []pdfColumn {
	cols := []pdfColumn{
		{"S.No", 10, "L", func(r rowView) string { return strconv.Itoa(r.Index) }},
		{"Description", 0, "L", func(r rowView) string { return r.Description }},
	}
	if v.ShowHSN {
		cols = append(cols, pdfColumn{"HSN/SAC", 18, "L", func(r rowView) string { return r.HSNSAC }})
	}
	cols = append(cols,
		pdfColumn{"Qty", 12, "R", func(r rowView) string { return r.Quantity }},
		pdfColumn{"Rate", 24, "R", func(r rowView) string { return r.Rate }},
		pdfColumn{"Amount", 26, "R", func(r rowView) string { return r.Amount }},
	)
	if v.ShowTax {
		cols = append(cols,
			pdfColumn{v.TaxHeader, 14, "R", func(r rowView) string { return r.TaxRate }},
			pdfColumn{"Tax Amount", 24, "R", func(r rowView) string { return r.TaxAmount }},
		)
	}
	cols = append(cols, pdfColumn{"Total", 26, "R", func(r rowView) string { return r.Total }})

	used := 0.0
	for _, c := range cols {
		used += c.width
	}
	cols[1].width = pdfPageWide - 2*pdfMargin - used
	return cols
}

func renderPDF(w io.Writer, v view) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, 20)
	pdf.SetTitle(v.Title+" "+v.Number, true)
	pdf.SetCreator("backend-invoice", true)
	if !v.Updated.IsZero() {
		pdf.SetCreationDate(v.Updated)
	}
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	content := pdfPageWide - 2*pdfMargin

	if v.Footer != "" {
		pdf.SetFooterFunc(func() {
			pdf.SetY(-12)
			pdf.SetFont(pdfFont, "I", 8)
			pdf.SetTextColor(107, 114, 128)
			pdf.CellFormat(0, 5, tr(v.Footer), "", 0, "C", false, 0, "")
		})
	}
	pdf.AddPage()

	pr, pg, pb := rgb(v.Theme.Primary)
	ar, ag, ab := rgb(v.Theme.Accent)
	tr0, tg0, tb0 := rgb(v.Theme.Text)

	// Header band.
	top := pdf.GetY()
	pdf.SetFillColor(pr, pg, pb)
	pdf.Rect(pdfMargin, top, content, 34, "F")
	pdf.SetTextColor(255, 255, 255)
	pdf.SetXY(pdfMargin+4, top+4)
	pdf.SetFont(pdfFont, "B", 14)
	pdf.CellFormat(content/2, 7, tr(v.Company.Name), "", 2, "L", false, 0, "")
	pdf.SetFont(pdfFont, "", 9)
	for _, line := range nonEmpty(v.Company.Address, prefixed("Phone: ", v.Company.Phone), prefixed("Email: ", v.Company.Email), v.Company.TaxLine) {
		pdf.CellFormat(content/2, 4.5, tr(line), "", 2, "L", false, 0, "")
	}
	pdf.SetXY(pdfMargin+content/2, top+4)
	pdf.SetFont(pdfFont, "B", 18)
	pdf.CellFormat(content/2-4, 9, v.Title, "", 2, "R", false, 0, "")
	pdf.SetFont(pdfFont, "", 9)
	for _, line := range nonEmpty("Invoice #: "+v.Number, prefixed("Date: ", v.Date), prefixed("Due Date: ", v.DueDate)) {
		pdf.CellFormat(content/2-4, 4.5, tr(line), "", 2, "R", false, 0, "")
	}
	pdf.SetY(top + 40)

	// Bill to.
	pdf.SetTextColor(ar, ag, ab)
	pdf.SetFont(pdfFont, "B", 11)
	pdf.CellFormat(0, pdfLine, "Bill To:", "", 1, "L", false, 0, "")
	pdf.SetTextColor(tr0, tg0, tb0)
	pdf.SetFont(pdfFont, "", 10)
	for _, line := range nonEmpty(v.Client.Name, v.Client.Address, prefixed("Phone: ", v.Client.Phone), prefixed("Email: ", v.Client.Email), v.Client.TaxLine, prefixed("Place of Supply: ", v.PlaceOfSupply)) {
		pdf.MultiCell(0, 5, tr(line), "", "L", false)
	}
	pdf.Ln(4)

	// Items.
	cols := columns(v)
	pdf.SetFillColor(pr, pg, pb)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont(pdfFont, "B", 9)
	for _, c := range cols {
		pdf.CellFormat(c.width, 7, tr(c.title), "1", 0, c.align, true, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetTextColor(tr0, tg0, tb0)
	pdf.SetFont(pdfFont, "", 9)
	for _, row := range v.Rows {
		for _, c := range cols {
			pdf.CellFormat(c.width, 7, fit(pdf, tr(c.value(row)), c.width-2), "1", 0, c.align, false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(4)

	// Totals.
	labelW, valueW := 40.0, 36.0
	for _, t := range v.Totals {
		pdf.SetX(pdfPageWide - pdfMargin - labelW - valueW)
		if t.Grand {
			pdf.SetFont(pdfFont, "B", 11)
			pdf.SetTextColor(ar, ag, ab)
		} else {
			pdf.SetFont(pdfFont, "", 10)
			pdf.SetTextColor(tr0, tg0, tb0)
		}
		pdf.CellFormat(labelW, pdfLine, tr(t.Label+":"), "", 0, "L", false, 0, "")
		pdf.CellFormat(valueW, pdfLine, tr(t.Value), "", 1, "R", false, 0, "")
	}

	for _, s := range v.Sections {
		pdf.Ln(4)
		pdf.SetTextColor(ar, ag, ab)
		pdf.SetFont(pdfFont, "B", 11)
		pdf.CellFormat(0, pdfLine, tr(s.Title+":"), "", 1, "L", false, 0, "")
		pdf.SetTextColor(tr0, tg0, tb0)
		pdf.SetFont(pdfFont, "", 9)
		pdf.MultiCell(0, 4.5, tr(s.Body), "", "L", false)
	}

	if err := pdf.Output(w); err != nil {
		return renderErr("pdf", err)
	}
	return nil
}

func fit(pdf *gofpdf.Fpdf, s string, width float64) string {
	if pdf.GetStringWidth(s) <= width {
		return s
	}
	// s is already single-byte encoded by the translator.
	for len(s) > 0 && pdf.GetStringWidth(s+"...") > width {
		s = s[:len(s)-1]
	}
	return s + "..."
}

func nonEmpty(lines ...string) []string {
	out := lines[:0]
	for _, l := range lines {
		if l != "" {
			out = append(out, l)
		}
	}
	return out
}

func prefixed(prefix, v string) string {
	if v == "" {
		return ""
	}
	return prefix + v
}
