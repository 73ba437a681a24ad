package invoice

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-invoice/internal/common"
	"github.com/noah-isme/backend-invoice/internal/obs"
	"github.com/noah-isme/backend-invoice/internal/pricing"
)

const defaultPerPage = 20

// Handler exposes invoice endpoints.
type Handler struct {
	service  *Service
	validate *validator.Validate
	logger   zerolog.Logger
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Service   *Service
	Validator *validator.Validate
	Logger    zerolog.Logger
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	v := cfg.Validator
	if v == nil {
		v = NewValidator()
	}
	return &Handler{service: cfg.Service, validate: v, logger: cfg.Logger}
}

// Routes mounts the invoice and totals endpoints. Each extra is called inside
// both invoice subrouters so other packages can add per-invoice routes.
func (h *Handler) Routes(r chi.Router, extras ...func(Kind, chi.Router)) {
	r.Route("/invoices/domestic", func(r chi.Router) {
		r.Post("/", h.CreateDomestic)
		r.Get("/", h.list(KindDomestic))
		r.Get("/{id}", h.GetDomestic)
		r.Put("/{id}", h.UpdateDomestic)
		r.Delete("/{id}", h.delete(KindDomestic))
		r.Get("/{id}/totals", h.DomesticTotals)
		r.Post("/{id}/items", h.addItem(KindDomestic))
		r.Patch("/{id}/items/{itemID}", h.editItem(KindDomestic))
		r.Delete("/{id}/items/{itemID}", h.removeItem(KindDomestic))
		for _, extra := range extras {
			extra(KindDomestic, r)
		}
	})
	r.Route("/invoices/international", func(r chi.Router) {
		r.Post("/", h.CreateInternational)
		r.Get("/", h.list(KindInternational))
		r.Get("/{id}", h.GetInternational)
		r.Put("/{id}", h.UpdateInternational)
		r.Delete("/{id}", h.delete(KindInternational))
		r.Get("/{id}/totals", h.InternationalTotals)
		r.Post("/{id}/items", h.addItem(KindInternational))
		r.Patch("/{id}/items/{itemID}", h.editItem(KindInternational))
		r.Delete("/{id}/items/{itemID}", h.removeItem(KindInternational))
		for _, extra := range extras {
			extra(KindInternational, r)
		}
	})
	r.Post("/totals/domestic", h.ComputeDomestic)
	r.Post("/totals/international", h.ComputeInternational)
}

// CreateDomestic handles POST /invoices/domestic.
func (h *Handler) CreateDomestic(w http.ResponseWriter, r *http.Request) {
	if !h.configured(w) {
		return
	}
	var header DomesticHeader
	if !h.decodeValid(w, r, &header) {
		return
	}
	doc, err := h.service.CreateDomestic(r.Context(), header)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeDocument(w, http.StatusCreated, doc)
}

// CreateInternational handles POST /invoices/international.
func (h *Handler) CreateInternational(w http.ResponseWriter, r *http.Request) {
	if !h.configured(w) {
		return
	}
	var header InternationalHeader
	if !h.decodeValid(w, r, &header) {
		return
	}
	doc, err := h.service.CreateInternational(r.Context(), header)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeDocument(w, http.StatusCreated, doc)
}

// GetDomestic handles GET /invoices/domestic/{id}.
func (h *Handler) GetDomestic(w http.ResponseWriter, r *http.Request) {
	h.get(w, r, KindDomestic)
}

// GetInternational handles GET /invoices/international/{id}.
func (h *Handler) GetInternational(w http.ResponseWriter, r *http.Request) {
	h.get(w, r, KindInternational)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request, kind Kind) {
	if !h.configured(w) {
		return
	}
	doc, err := h.service.Get(r.Context(), kind, invoiceID(r, kind))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeDocument(w, http.StatusOK, doc)
}

// UpdateDomestic handles PUT /invoices/domestic/{id}.
func (h *Handler) UpdateDomestic(w http.ResponseWriter, r *http.Request) {
	if !h.configured(w) {
		return
	}
	var header DomesticHeader
	if !h.decodeValid(w, r, &header) {
		return
	}
	doc, err := h.service.UpdateDomesticHeader(r.Context(), invoiceID(r, KindDomestic), header)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeDocument(w, http.StatusOK, doc)
}

// UpdateInternational handles PUT /invoices/international/{id}.
func (h *Handler) UpdateInternational(w http.ResponseWriter, r *http.Request) {
	if !h.configured(w) {
		return
	}
	var header InternationalHeader
	if !h.decodeValid(w, r, &header) {
		return
	}
	doc, err := h.service.UpdateInternationalHeader(r.Context(), invoiceID(r, KindInternational), header)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeDocument(w, http.StatusOK, doc)
}

// DomesticTotals handles GET /invoices/domestic/{id}/totals.
func (h *Handler) DomesticTotals(w http.ResponseWriter, r *http.Request) {
	if !h.configured(w) {
		return
	}
	doc, err := h.service.GetDomestic(r.Context(), invoiceID(r, KindDomestic))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": DomesticTotals(doc), "supply": doc.Supply()})
}

// InternationalTotals handles GET /invoices/international/{id}/totals.
func (h *Handler) InternationalTotals(w http.ResponseWriter, r *http.Request) {
	if !h.configured(w) {
		return
	}
	doc, err := h.service.GetInternational(r.Context(), invoiceID(r, KindInternational))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": InternationalTotals(doc), "taxLabel": doc.TaxLabel})
}

func (h *Handler) list(kind Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.configured(w) {
			return
		}
		page := common.ParsePagination(r, defaultPerPage)
		docs, total, err := h.service.List(r.Context(), kind, page.PerPage, page.Offset())
		if err != nil {
			h.writeError(w, err)
			return
		}
		page.TotalItems = total
		w.Header().Set("X-Total-Count", strconv.Itoa(total))
		common.Paged(w, docs, page)
	}
}

func (h *Handler) delete(kind Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.configured(w) {
			return
		}
		if err := h.service.Delete(r.Context(), kind, invoiceID(r, kind)); err != nil {
			h.writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *Handler) addItem(kind Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.configured(w) {
			return
		}
		doc, item, err := h.service.AddItem(r.Context(), kind, invoiceID(r, kind))
		if err != nil {
			h.writeError(w, err)
			return
		}
		h.writeItemChange(w, http.StatusCreated, doc, &item)
	}
}

type editRequest struct {
	Field string          `json:"field"`
	Value json.RawMessage `json:"value"`
}

func (h *Handler) editItem(kind Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.configured(w) {
			return
		}
		var req editRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid JSON body", nil)
			return
		}
		edit, err := pricing.ParseEdit(strings.TrimSpace(req.Field), rawValue(req.Value))
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, err.Error(), nil)
			return
		}
		doc, item, err := h.service.EditItem(r.Context(), kind, invoiceID(r, kind), chi.URLParam(r, "itemID"), edit)
		if err != nil {
			h.writeError(w, err)
			return
		}
		h.writeItemChange(w, http.StatusOK, doc, &item)
	}
}

func (h *Handler) removeItem(kind Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.configured(w) {
			return
		}
		doc, err := h.service.RemoveItem(r.Context(), kind, invoiceID(r, kind), chi.URLParam(r, "itemID"))
		if err != nil {
			h.writeError(w, err)
			return
		}
		h.writeItemChange(w, http.StatusOK, doc, nil)
	}
}

// ComputeRequest is the body of the stateless totals endpoints.
type ComputeRequest struct {
	GST           bool               `json:"gst"`
	CompanyGSTIN  string             `json:"companyGstin"`
	ClientGSTIN   string             `json:"clientGstin"`
	PlaceOfSupply string             `json:"placeOfSupply"`
	Items         []pricing.LineItem `json:"items"`
}

func (c ComputeRequest) derivedItems() []pricing.LineItem {
	out := make([]pricing.LineItem, len(c.Items))
	for i, it := range c.Items {
		out[i] = pricing.Recompute(it)
	}
	return out
}

// ComputeDomestic handles POST /totals/domestic. Submitted derived fields are ignored.
func (h *Handler) ComputeDomestic(w http.ResponseWriter, r *http.Request) {
	var req ComputeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid JSON body", nil)
		return
	}
	in := pricing.DomesticInput{
		GST:           req.GST,
		CompanyGSTIN:  req.CompanyGSTIN,
		ClientGSTIN:   req.ClientGSTIN,
		PlaceOfSupply: req.PlaceOfSupply,
		Items:         req.derivedItems(),
	}
	common.Data(w, http.StatusOK, map[string]any{
		"items":  in.Items,
		"totals": pricing.CalculateDomestic(in),
		"supply": pricing.SupplyKind(in),
	})
}

// ComputeInternational handles POST /totals/international.
func (h *Handler) ComputeInternational(w http.ResponseWriter, r *http.Request) {
	var req ComputeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid JSON body", nil)
		return
	}
	items := req.derivedItems()
	common.Data(w, http.StatusOK, map[string]any{
		"items":  items,
		"totals": pricing.CalculateInternational(items),
	})
}

func (h *Handler) configured(w http.ResponseWriter) bool {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "invoice service not configured", nil)
		return false
	}
	return true
}

func (h *Handler) decodeValid(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid JSON body", nil)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeValidation, "validation failed", ValidationDetails(err))
		return false
	}
	return true
}

func (h *Handler) writeDocument(w http.ResponseWriter, status int, doc Document) {
	body := map[string]any{"data": doc}
	switch d := doc.(type) {
	case *Domestic:
		body["totals"] = DomesticTotals(d)
		body["supply"] = d.Supply()
	case *International:
		body["totals"] = InternationalTotals(d)
	}
	common.JSON(w, status, body)
}

func (h *Handler) writeItemChange(w http.ResponseWriter, status int, doc Document, item *pricing.LineItem) {
	body := map[string]any{"data": doc}
	if item != nil {
		body["item"] = item
	}
	switch d := doc.(type) {
	case *Domestic:
		body["totals"] = DomesticTotals(d)
	case *International:
		body["totals"] = InternationalTotals(d)
	}
	common.JSON(w, status, body)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, common.CodeNotFound, "invoice not found", nil)
	case errors.Is(err, ErrItemNotFound):
		common.JSONError(w, http.StatusNotFound, common.CodeNotFound, "line item not found", nil)
	case errors.Is(err, ErrInvalidInput):
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, err.Error(), nil)
	case errors.Is(err, context.DeadlineExceeded):
		common.JSONError(w, http.StatusServiceUnavailable, common.CodeUnavailable, "invoice is busy, retry", nil)
	default:
		h.logger.Error().Err(err).Msg("invoice_request_failed")
		common.WriteError(w, err)
	}
}

// rawValue turns a JSON scalar into form text: strings are unquoted, numbers
// and booleans keep their literal, null becomes empty.
func rawValue(raw json.RawMessage) string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return trimmed
}

func invoiceID(r *http.Request, kind Kind) string {
	id := chi.URLParam(r, "id")
	obs.AnnotateInvoice(r.Context(), string(kind), id)
	return id
}
