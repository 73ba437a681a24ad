package currency

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-invoice/internal/common"
)

// Handler serves exchange rate endpoints.
type Handler struct {
	Service *Service
}

// Routes mounts /fx endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/fx/rates", h.Rates)
	r.Get("/fx/convert", h.Convert)
	r.Get("/fx/symbols/{code}", h.Symbol)
}

// Rates handles GET /fx/rates?base=USD.
func (h *Handler) Rates(w http.ResponseWriter, r *http.Request) {
	base := r.URL.Query().Get("base")
	if strings.TrimSpace(base) == "" {
		base = "USD"
	}
	res, err := h.Service.Rates(r.Context(), base)
	if err != nil {
		writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, res)
}

// Convert handles GET /fx/convert?amount=10&from=USD&to=INR.
func (h *Handler) Convert(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	amount, ok := common.ParseFloatStrict(q.Get("amount"))
	if !ok {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "amount must be a finite number", nil)
		return
	}
	conv, err := h.Service.Convert(r.Context(), amount, q.Get("from"), q.Get("to"))
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data":      conv,
		"formatted": Format(conv.Converted, conv.To),
	})
}

// Symbol handles GET /fx/symbols/{code}.
func (h *Handler) Symbol(w http.ResponseWriter, r *http.Request) {
	code := strings.ToUpper(chi.URLParam(r, "code"))
	common.Data(w, http.StatusOK, map[string]string{"code": code, "symbol": Symbol(code)})
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case IsKind(err, KindUnknownCurrency), IsKind(err, KindInvalidInput):
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, err.Error(), nil)
	case IsKind(err, KindUnavailable), IsKind(err, KindUpstream):
		common.JSONError(w, http.StatusServiceUnavailable, common.CodeUnavailable, "exchange rates unavailable", nil)
	default:
		common.WriteError(w, err)
	}
}
