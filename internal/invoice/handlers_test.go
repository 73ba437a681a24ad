package invoice_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-invoice/internal/invoice"
	"github.com/noah-isme/backend-invoice/internal/pricing"
)

type domesticResponse struct {
	Data   invoice.Domestic       `json:"data"`
	Totals pricing.DomesticTotals `json:"totals"`
	Supply pricing.Supply         `json:"supply"`
	Item   pricing.LineItem       `json:"item"`
}

type internationalResponse struct {
	Data   invoice.International       `json:"data"`
	Totals pricing.InternationalTotals `json:"totals"`
	Item   pricing.LineItem            `json:"item"`
}

type errorResponse struct {
	Error struct {
		Code    string              `json:"code"`
		Message string              `json:"message"`
		Details []invoice.FieldError `json:"details"`
	} `json:"error"`
}

func newRouter(t *testing.T) http.Handler {
	t.Helper()
	svc := &invoice.Service{Store: invoice.NewMemoryStore()}
	h := invoice.NewHandler(invoice.HandlerConfig{Service: svc})
	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) { h.Routes(r) })
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestDomesticInvoiceFlow(t *testing.T) {
	r := newRouter(t)

	rec := do(t, r, http.MethodPost, "/api/v1/invoices/domestic", `{
		"gst": true,
		"company": {"name": "Acme", "gstin": "27AAPFU0939F1ZV"},
		"client": {"name": "Globex", "gstin": "29AAGCB7383J1Z4"}
	}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created domesticResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	id := created.Data.ID
	require.NotEmpty(t, id)
	require.True(t, strings.HasPrefix(created.Data.Number, "INV-"))

	rec = do(t, r, http.MethodPost, "/api/v1/invoices/domestic/"+id+"/items", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var added domesticResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &added))
	itemID := added.Item.ID

	rec = do(t, r, http.MethodPatch, "/api/v1/invoices/domestic/"+id+"/items/"+itemID, `{"field":"quantity","value":"2"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, r, http.MethodPatch, "/api/v1/invoices/domestic/"+id+"/items/"+itemID, `{"field":"rate","value":500}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var edited domesticResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &edited))
	require.Equal(t, 1180.0, edited.Item.Total)
	require.Equal(t, pricing.DomesticTotals{Subtotal: 1000, IGST: 180, Total: 1180}, edited.Totals)

	rec = do(t, r, http.MethodGet, "/api/v1/invoices/domestic/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got domesticResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, pricing.SupplyInter, got.Supply)
	require.Len(t, got.Data.Items, 1)

	rec = do(t, r, http.MethodGet, "/api/v1/invoices/domestic?page=1&per_page=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "1", rec.Header().Get("X-Total-Count"))

	rec = do(t, r, http.MethodDelete, "/api/v1/invoices/domestic/"+id+"/items/"+itemID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, r, http.MethodDelete, "/api/v1/invoices/domestic/"+id, "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, r, http.MethodGet, "/api/v1/invoices/domestic/"+id, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestInternationalInvoiceFlow(t *testing.T) {
	r := newRouter(t)
	rec := do(t, r, http.MethodPost, "/api/v1/invoices/international", `{"country":"DE"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created internationalResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Equal(t, "EUR", created.Data.Currency)
	require.True(t, strings.HasPrefix(created.Data.Number, "INV-DE-"))
	id := created.Data.ID

	rec = do(t, r, http.MethodPost, "/api/v1/invoices/international/"+id+"/items", "")
	var added internationalResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &added))

	path := "/api/v1/invoices/international/" + id + "/items/" + added.Item.ID
	require.Equal(t, http.StatusOK, do(t, r, http.MethodPatch, path, `{"field":"rate","value":"100"}`).Code)
	require.Equal(t, http.StatusOK, do(t, r, http.MethodPatch, path, `{"field":"taxRate","value":"19"}`).Code)
	require.Equal(t, http.StatusBadRequest, do(t, r, http.MethodPatch, path, `{"field":"hsnSac","value":"9983"}`).Code)

	rec = do(t, r, http.MethodGet, "/api/v1/invoices/international/"+id+"/totals", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var totals struct {
		Data     pricing.InternationalTotals `json:"data"`
		TaxLabel string                      `json:"taxLabel"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &totals))
	require.Equal(t, pricing.InternationalTotals{Subtotal: 100, Tax: 19, Total: 119}, totals.Data)
	require.Equal(t, "VAT", totals.TaxLabel)

	rec = do(t, r, http.MethodGet, "/api/v1/invoices/domestic/"+id, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateValidation(t *testing.T) {
	r := newRouter(t)
	rec := do(t, r, http.MethodPost, "/api/v1/invoices/domestic", `{"company":{"gstin":"BAD"},"placeOfSupply":"99-Nowhere"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "VALIDATION_ERROR", body.Error.Code)
	fields := map[string]string{}
	for _, d := range body.Error.Details {
		fields[d.Field] = d.Rule
	}
	require.Equal(t, "gstin", fields["company.gstin"])
	require.Equal(t, "placeofsupply", fields["placeOfSupply"])

	rec = do(t, r, http.MethodPost, "/api/v1/invoices/domestic", `{`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEditItemErrors(t *testing.T) {
	r := newRouter(t)
	rec := do(t, r, http.MethodPost, "/api/v1/invoices/domestic", `{}`)
	var created domesticResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	id := created.Data.ID

	rec = do(t, r, http.MethodPatch, "/api/v1/invoices/domestic/"+id+"/items/missing", `{"field":"rate","value":"1"}`)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, r, http.MethodPost, "/api/v1/invoices/domestic/"+id+"/items", "")
	var added domesticResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &added))
	rec = do(t, r, http.MethodPatch, "/api/v1/invoices/domestic/"+id+"/items/"+added.Item.ID, `{"field":"amount","value":"1"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, r, http.MethodPatch, "/api/v1/invoices/domestic/"+id+"/items/"+added.Item.ID, `{"field":"rate","value":"abc"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var edited domesticResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &edited))
	require.Equal(t, 0.0, edited.Item.Rate)
	require.Equal(t, 0.0, edited.Item.Total)
}

func TestStatelessTotals(t *testing.T) {
	r := newRouter(t)
	rec := do(t, r, http.MethodPost, "/api/v1/totals/domestic", `{
		"gst": true,
		"companyGstin": "27AAPFU0939F1ZV",
		"placeOfSupply": "27-Maharashtra",
		"items": [{"id":"a","quantity":2,"rate":500,"taxRate":18,"total":1}]
	}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data struct {
			Items  []pricing.LineItem     `json:"items"`
			Totals pricing.DomesticTotals `json:"totals"`
			Supply pricing.Supply         `json:"supply"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 1180.0, body.Data.Items[0].Total)
	require.Equal(t, pricing.DomesticTotals{Subtotal: 1000, CGST: 90, SGST: 90, Total: 1180}, body.Data.Totals)
	require.Equal(t, pricing.SupplyIntra, body.Data.Supply)

	rec = do(t, r, http.MethodPost, "/api/v1/totals/international", `{"items":[{"id":"a","quantity":1,"rate":100,"taxRate":20}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"total":120`)
}

func TestHandlerWithoutService(t *testing.T) {
	h := invoice.NewHandler(invoice.HandlerConfig{})
	rec := httptest.NewRecorder()
	h.GetDomestic(rec, httptest.NewRequest(http.MethodGet, "/api/v1/invoices/domestic/x", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
