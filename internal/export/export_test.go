package export

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-invoice/internal/invoice"
	"github.com/noah-isme/backend-invoice/internal/pricing"
)

func sampleDomestic(gst bool, clientGSTIN string) *invoice.Domestic {
	inv := &invoice.Domestic{
		ID: "d1",
		DomesticHeader: invoice.DomesticHeader{
			Number:              "INV-2026-05-001",
			Date:                "2026-05-10",
			GST:                 gst,
			Company:             invoice.Party{Name: "Acme Traders", GSTIN: "27AAPFU0939F1ZV"},
			Client:              invoice.Party{Name: "Globex <Ltd>", GSTIN: clientGSTIN},
			PlaceOfSupply:       "27-Maharashtra",
			PaymentInstructions: "UPI: acme@bank",
			Theme:               "modern-blue",
		},
		Items: []pricing.LineItem{
			pricing.Recompute(pricing.LineItem{ID: "a", Description: "Consulting", HSNSAC: "9983", Quantity: 2, Rate: 500, TaxRate: 18}),
		},
		UpdatedAt: time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC),
	}
	return inv
}

func labels(v view) []string {
	out := make([]string, 0, len(v.Totals))
	for _, t := range v.Totals {
		out = append(out, t.Label)
	}
	return out
}

func TestDomesticViewIntraState(t *testing.T) {
	inv := sampleDomestic(true, "27BBBBB1111B1Z5")
	v := domesticView(inv, inv.Totals(), Options{}, htmlMoney)
	require.Equal(t, "TAX INVOICE", v.Title)
	require.True(t, v.ShowHSN)
	require.Equal(t, "27-Maharashtra", v.PlaceOfSupply)
	require.Equal(t, "GSTIN: 27AAPFU0939F1ZV", v.Company.TaxLine)
	require.Equal(t, []string{"Subtotal", "CGST", "SGST", "Total Amount"}, labels(v))
	require.Equal(t, "₹1,180.00", v.Totals[3].Value)
	require.Equal(t, "18%", v.Rows[0].TaxRate)
	require.Equal(t, domesticFooter, v.Footer)
	require.Equal(t, "modern-blue", v.Theme.Name)
}

func TestDomesticViewInterStateAndNonGST(t *testing.T) {
	inter := sampleDomestic(true, "29AAGCB7383J1Z4")
	v := domesticView(inter, inter.Totals(), Options{Premium: true}, htmlMoney)
	require.Equal(t, []string{"Subtotal", "IGST", "Total Amount"}, labels(v))
	require.Empty(t, v.Footer)

	plainInv := sampleDomestic(false, "")
	v = domesticView(plainInv, plainInv.Totals(), Options{Theme: "nope"}, htmlMoney)
	require.Equal(t, "INVOICE", v.Title)
	require.False(t, v.ShowHSN)
	require.Empty(t, v.PlaceOfSupply)
	require.Empty(t, v.Company.TaxLine)
	require.Equal(t, []string{"Subtotal", "Total Amount"}, labels(v))
	require.Equal(t, "₹1,000.00", v.Totals[1].Value)
	require.Equal(t, DefaultTheme, v.Theme.Name)
}

func TestRoundingHalfAwayFromZero(t *testing.T) {
	require.Equal(t, "0.13", round(0.125).StringFixed(2))
	require.Equal(t, "-0.13", round(-0.125).StringFixed(2))
	require.Equal(t, "$1,234.57", money(htmlMoney, "USD")(1234.565))
}

func TestRenderDomesticHTML(t *testing.T) {
	inv := sampleDomestic(true, "")
	var buf bytes.Buffer
	require.NoError(t, RenderDomesticHTML(&buf, inv, inv.Totals(), Options{}))
	out := buf.String()
	require.Contains(t, out, "TAX INVOICE")
	require.Contains(t, out, "HSN/SAC")
	require.Contains(t, out, "Place of Supply: 27-Maharashtra")
	require.Contains(t, out, "Globex &lt;Ltd&gt;")
	require.Contains(t, out, "Payment Instructions:")
	require.Contains(t, out, "Made with BharatBillGen")
	require.Contains(t, out, "#2563eb")
	require.NotContains(t, out, "IGST")
}

func TestRenderHTMLKeepsAddressLines(t *testing.T) {
	inv := sampleDomestic(true, "")
	inv.Company.Address = "12 MG Road\nPune 411001"
	inv.Client.Address = "Plot 4\nBengaluru"
	var buf bytes.Buffer
	require.NoError(t, RenderDomesticHTML(&buf, inv, inv.Totals(), Options{}))
	out := buf.String()
	require.Contains(t, out, ".address { white-space: pre-line; }")
	require.Contains(t, out, `<p class="muted address">12 MG Road`+"\n"+`Pune 411001</p>`)
	require.Contains(t, out, `<p class="address">Plot 4`+"\n"+`Bengaluru</p>`)
}

func TestRenderInternationalHTML(t *testing.T) {
	inv := &invoice.International{
		ID: "i1",
		InternationalHeader: invoice.InternationalHeader{
			Number: "INV-UK-2026-05-001", Country: "GB", Currency: "GBP", TaxLabel: "VAT",
			PaymentTerms: "Net 30", Company: invoice.Party{Name: "Acme", TaxID: "GB123"},
		},
		Items: []pricing.LineItem{pricing.Recompute(pricing.LineItem{ID: "a", Quantity: 1, Rate: 100, TaxRate: 20})},
	}
	var buf bytes.Buffer
	require.NoError(t, RenderInternationalHTML(&buf, inv, inv.Totals(), Options{Premium: true}))
	out := buf.String()
	require.Contains(t, out, "VAT ID: GB123")
	require.Contains(t, out, "VAT %")
	require.Contains(t, out, "£120.00")
	require.Contains(t, out, "Payment Terms:")
	require.NotContains(t, out, "Made with BharatBillGen")
	require.NotContains(t, out, "HSN/SAC")
}

func TestRenderPDF(t *testing.T) {
	inv := sampleDomestic(true, "29AAGCB7383J1Z4")
	inv.Items[0].Description = strings.Repeat("Long description ", 20)
	var buf bytes.Buffer
	require.NoError(t, RenderDomesticPDF(&buf, inv, inv.Totals(), Options{}))
	require.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))

	intl := &invoice.International{InternationalHeader: invoice.InternationalHeader{Number: "INV-DE-1", Currency: "EUR", TaxLabel: "VAT"}}
	buf.Reset()
	require.NoError(t, RenderInternationalPDF(&buf, intl, intl.Totals(), Options{Premium: true}))
	require.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

type stubReader struct {
	domestic *invoice.Domestic
}

func (s stubReader) GetDomestic(_ context.Context, id string) (*invoice.Domestic, error) {
	if s.domestic == nil || s.domestic.ID != id {
		return nil, invoice.ErrNotFound
	}
	return s.domestic, nil
}

func (s stubReader) GetInternational(context.Context, string) (*invoice.International, error) {
	return nil, invoice.ErrNotFound
}

func TestExportHandlers(t *testing.T) {
	h := &Handler{Reader: stubReader{domestic: sampleDomestic(true, "")}}
	r := chi.NewRouter()
	r.Route("/invoices/domestic", func(r chi.Router) { h.Mount(invoice.KindDomestic, r) })
	r.Route("/invoices/international", func(r chi.Router) { h.Mount(invoice.KindInternational, r) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/invoices/domestic/d1/export.pdf", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	require.Equal(t, `attachment; filename="INV-2026-05-001.pdf"`, rec.Header().Get("Content-Disposition"))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/invoices/domestic/d1/export.html", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)

	req := httptest.NewRequest(http.MethodGet, "/invoices/domestic/d1/export.html", nil)
	req.Header.Set("If-None-Match", etag)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotModified, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/invoices/international/x/export.pdf", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestThemes(t *testing.T) {
	require.Len(t, Themes(), 11)
	require.Equal(t, "classic", ThemeByName("").Name)
	r, g, b := rgb("#2563eb")
	require.Equal(t, []int{0x25, 0x63, 0xeb}, []int{r, g, b})
}
