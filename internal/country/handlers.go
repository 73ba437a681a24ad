package country

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-invoice/internal/common"
)

// Handler serves country defaults and region detection.
type Handler struct {
	Locator Locator
	Logger  zerolog.Logger
}

// Routes mounts the country endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/countries", h.List)
	r.Get("/countries/{code}", h.Get)
	r.Get("/countries/directory", h.Directory)
	r.Get("/states", h.States)
	r.Get("/locate", h.Locate)
}

// List returns the dedicated country configs.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	common.Data(w, http.StatusOK, Configs())
}

// Get returns one config; unknown codes get the default with supported=false.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	code := strings.ToUpper(chi.URLParam(r, "code"))
	common.JSON(w, http.StatusOK, map[string]any{
		"data":      Lookup(code),
		"supported": Supported(code),
	})
}

// Directory returns the wider country list.
func (h *Handler) Directory(w http.ResponseWriter, r *http.Request) {
	common.Data(w, http.StatusOK, Directory())
}

// States returns the GST state table.
func (h *Handler) States(w http.ResponseWriter, r *http.Request) {
	common.Data(w, http.StatusOK, IndianStates())
}

// Locate detects the caller region together with its suggested config.
// Callers without a public address get the default region.
func (h *Handler) Locate(w http.ResponseWriter, r *http.Request) {
	loc := DefaultLocation
	if ip, ok := common.PublicClientIP(r); ok && h.Locator != nil {
		var err error
		loc, err = h.Locator.Locate(r.Context(), ip)
		if err != nil {
			h.Logger.Warn().Err(err).Str("ip", ip).Msg("location_detection_failed")
		}
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data":   loc,
		"config": Lookup(loc.CountryCode),
	})
}
