package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-invoice/internal/common"
	"github.com/noah-isme/backend-invoice/internal/invoice"
	"github.com/noah-isme/backend-invoice/internal/obs"
)

// Reader loads invoices for rendering.
type Reader interface {
	GetDomestic(ctx context.Context, id string) (*invoice.Domestic, error)
	GetInternational(ctx context.Context, id string) (*invoice.International, error)
}

// Handler serves invoice downloads.
type Handler struct {
	Reader     Reader
	Premium    bool
	Logger     zerolog.Logger
	Middleware []func(http.Handler) http.Handler
}

// Mount registers export routes inside an invoice subrouter.
func (h *Handler) Mount(kind invoice.Kind, r chi.Router) {
	r = r.With(h.Middleware...)
	r.Get("/{id}/export.html", h.serve(kind, "html"))
	r.Get("/{id}/export.pdf", h.serve(kind, "pdf"))
}

// Themes handles GET /themes.
func (h *Handler) Themes(w http.ResponseWriter, r *http.Request) {
	common.Data(w, http.StatusOK, Themes())
}

func (h *Handler) serve(kind invoice.Kind, format string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.Reader == nil {
			common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "export not configured", nil)
			return
		}
		opts := Options{Premium: h.Premium, Theme: r.URL.Query().Get("theme")}
		id := chi.URLParam(r, "id")
		obs.AnnotateInvoice(r.Context(), string(kind), id)

		start := time.Now()
		var (
			buf    bytes.Buffer
			number string
			err    error
		)
		switch kind {
		case invoice.KindInternational:
			var inv *invoice.International
			if inv, err = h.Reader.GetInternational(r.Context(), id); err == nil {
				number = inv.Number
				err = render(&buf, format, inv, opts)
			}
		default:
			var inv *invoice.Domestic
			if inv, err = h.Reader.GetDomestic(r.Context(), id); err == nil {
				number = inv.Number
				err = render(&buf, format, inv, opts)
			}
		}
		if errors.Is(err, invoice.ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, common.CodeNotFound, "invoice not found", nil)
			return
		}
		obs.ObserveExport(format, err, time.Since(start))
		if err != nil {
			h.Logger.Error().Err(err).Str("invoice_id", id).Str("format", format).Msg("invoice_export_failed")
			common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "could not render invoice", nil)
			return
		}

		etag := common.ETag(buf.Bytes())
		w.Header().Set("ETag", etag)
		w.Header().Set("Cache-Control", "private, no-cache")
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		if format == "pdf" {
			w.Header().Set("Content-Type", "application/pdf")
			w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.pdf"`, filename(number)))
		} else {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(buf.Bytes())
	}
}

func render(buf *bytes.Buffer, format string, doc any, opts Options) error {
	switch inv := doc.(type) {
	case *invoice.Domestic:
		totals := invoice.DomesticTotals(inv)
		if format == "pdf" {
			return RenderDomesticPDF(buf, inv, totals, opts)
		}
		return RenderDomesticHTML(buf, inv, totals, opts)
	case *invoice.International:
		totals := invoice.InternationalTotals(inv)
		if format == "pdf" {
			return RenderInternationalPDF(buf, inv, totals, opts)
		}
		return RenderInternationalHTML(buf, inv, totals, opts)
	default:
		return renderErr(format, fmt.Errorf("unsupported document %T", doc))
	}
}

var unsafeFilename = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func filename(number string) string {
	name := unsafeFilename.ReplaceAllString(number, "_")
	if name == "" {
		return "invoice"
	}
	return name
}
