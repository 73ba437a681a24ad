package invoice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/backend-invoice/internal/cache"
	"github.com/noah-isme/backend-invoice/internal/country"
	"github.com/noah-isme/backend-invoice/internal/obs"
	"github.com/noah-isme/backend-invoice/internal/pricing"
)

// Locker serialises read-modify-write cycles on one invoice.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// Numberer issues invoice numbers.
type Numberer interface {
	Next(ctx context.Context, prefix string, at time.Time) (string, error)
}

// Service encapsulates invoice operations over whole snapshots.
type Service struct {
	Store    Store
	Locker   Locker
	Numberer Numberer
	LockTTL  time.Duration
	Now      func() time.Time
	NewID    func() string
	Logger   zerolog.Logger

	localMu sync.Mutex
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}

func (s *Service) lockTTL() time.Duration {
	if s.LockTTL <= 0 {
		return 5 * time.Second
	}
	return s.LockTTL
}

func (s *Service) ready() error {
	if s == nil || s.Store == nil {
		return errors.New("invoice service not configured")
	}
	return nil
}

// CreateDomestic stores a new GST invoice with an empty item list.
func (s *Service) CreateDomestic(ctx context.Context, h DomesticHeader) (*Domestic, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	now := s.now()
	if h.Theme == "" {
		h.Theme = DefaultDomesticTheme
	}
	if h.Date == "" {
		h.Date = now.Format(time.DateOnly)
	}
	if h.Number == "" {
		num, err := s.number(ctx, DomesticNumberPrefix, now)
		if err != nil {
			return nil, err
		}
		h.Number = num
	}
	doc := &Domestic{
		ID:             s.newID(),
		DomesticHeader: h,
		Items:          []pricing.LineItem{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.save(ctx, doc); err != nil {
		return nil, err
	}
	s.Logger.Info().Str("invoice_id", doc.ID).Str("number", doc.Number).Msg("domestic_invoice_created")
	return doc, nil
}

// CreateInternational stores a new invoice, filling country defaults for
// currency, tax label and number prefix.
func (s *Service) CreateInternational(ctx context.Context, h InternationalHeader) (*International, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	now := s.now()
	if h.Country == "" {
		h.Country = country.DefaultCode
	}
	h.Country = strings.ToUpper(h.Country)
	cfg := country.Lookup(h.Country)
	if h.Currency == "" {
		h.Currency = cfg.Currency
	}
	h.Currency = strings.ToUpper(h.Currency)
	if h.TaxLabel == "" {
		h.TaxLabel = cfg.TaxLabel
	}
	if h.PaymentTerms == "" {
		h.PaymentTerms = DefaultPaymentTerms
	}
	if h.Theme == "" {
		h.Theme = DefaultInternationalTheme
	}
	if h.Date == "" {
		h.Date = now.Format(time.DateOnly)
	}
	if h.Number == "" {
		num, err := s.number(ctx, cfg.InvoicePrefix, now)
		if err != nil {
			return nil, err
		}
		h.Number = num
	}
	doc := &International{
		ID:                  s.newID(),
		InternationalHeader: h,
		Items:               []pricing.LineItem{},
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := s.save(ctx, doc); err != nil {
		return nil, err
	}
	s.Logger.Info().Str("invoice_id", doc.ID).Str("number", doc.Number).Str("country", h.Country).Msg("international_invoice_created")
	return doc, nil
}

// GetDomestic loads a GST invoice.
func (s *Service) GetDomestic(ctx context.Context, id string) (*Domestic, error) {
	doc, err := s.Get(ctx, KindDomestic, id)
	if err != nil {
		return nil, err
	}
	return doc.(*Domestic), nil
}

// GetInternational loads an international invoice.
func (s *Service) GetInternational(ctx context.Context, id string) (*International, error) {
	doc, err := s.Get(ctx, KindInternational, id)
	if err != nil {
		return nil, err
	}
	return doc.(*International), nil
}

// Get loads an invoice of the given kind.
func (s *Service) Get(ctx context.Context, kind Kind, id string) (Document, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.load(ctx, kind, id)
}

// UpdateDomesticHeader replaces the header fields, keeping items untouched.
func (s *Service) UpdateDomesticHeader(ctx context.Context, id string, h DomesticHeader) (*Domestic, error) {
	doc, err := s.mutate(ctx, KindDomestic, id, func(d Document) error {
		inv := d.(*Domestic)
		if h.Number == "" {
			h.Number = inv.Number
		}
		if h.Theme == "" {
			h.Theme = inv.Theme
		}
		inv.DomesticHeader = h
		return nil
	})
	if err != nil {
		return nil, err
	}
	return doc.(*Domestic), nil
}

// UpdateInternationalHeader replaces the header fields, keeping items untouched.
func (s *Service) UpdateInternationalHeader(ctx context.Context, id string, h InternationalHeader) (*International, error) {
	doc, err := s.mutate(ctx, KindInternational, id, func(d Document) error {
		inv := d.(*International)
		if h.Number == "" {
			h.Number = inv.Number
		}
		if h.Theme == "" {
			h.Theme = inv.Theme
		}
		if h.Country == "" {
			h.Country = inv.Country
		}
		h.Country = strings.ToUpper(h.Country)
		if h.Currency == "" {
			h.Currency = inv.Currency
		}
		h.Currency = strings.ToUpper(h.Currency)
		inv.InternationalHeader = h
		return nil
	})
	if err != nil {
		return nil, err
	}
	return doc.(*International), nil
}

// AddItem appends a line item carrying the regime defaults.
func (s *Service) AddItem(ctx context.Context, kind Kind, id string) (Document, pricing.LineItem, error) {
	var added pricing.LineItem
	doc, err := s.mutate(ctx, kind, id, func(d Document) error {
		if kind == KindInternational {
			added = pricing.NewInternationalItem(s.newID())
		} else {
			added = pricing.NewDomesticItem(s.newID())
		}
		items := append(append([]pricing.LineItem{}, d.LineItems()...), added)
		d.SetLineItems(items)
		return nil
	})
	return doc, added, err
}

// EditItem applies one edit to a line item and recomputes its derived fields.
func (s *Service) EditItem(ctx context.Context, kind Kind, id, itemID string, edit pricing.Edit) (Document, pricing.LineItem, error) {
	if _, ok := edit.(pricing.SetClassificationCode); ok && kind == KindInternational {
		return nil, pricing.LineItem{}, fmt.Errorf("hsn/sac applies to domestic invoices only: %w", ErrInvalidInput)
	}
	var edited pricing.LineItem
	doc, err := s.mutate(ctx, kind, id, func(d Document) error {
		items, ok := pricing.UpdateItem(d.LineItems(), itemID, edit)
		if !ok {
			return ErrItemNotFound
		}
		for _, it := range items {
			if it.ID == itemID {
				edited = it
			}
		}
		d.SetLineItems(items)
		return nil
	})
	if err == nil {
		obs.ObserveItemEdit(string(kind), editField(edit))
	}
	return doc, edited, err
}

// RemoveItem drops a line item, preserving the order of the rest.
func (s *Service) RemoveItem(ctx context.Context, kind Kind, id, itemID string) (Document, error) {
	return s.mutate(ctx, kind, id, func(d Document) error {
		items, ok := pricing.RemoveItem(d.LineItems(), itemID)
		if !ok {
			return ErrItemNotFound
		}
		d.SetLineItems(items)
		return nil
	})
}

// Delete removes an invoice.
func (s *Service) Delete(ctx context.Context, kind Kind, id string) error {
	if err := s.ready(); err != nil {
		return err
	}
	return s.withLock(ctx, id, func(ctx context.Context) error {
		if _, err := s.loadForUpdate(ctx, kind, id); err != nil {
			return err
		}
		if err := s.Store.Delete(ctx, id); err != nil {
			return err
		}
		s.Logger.Info().Str("invoice_id", id).Str("kind", string(kind)).Msg("invoice_deleted")
		return nil
	})
}

// List returns invoices of one kind, newest first, and the total count.
func (s *Service) List(ctx context.Context, kind Kind, limit, offset int) ([]Document, int, error) {
	if err := s.ready(); err != nil {
		return nil, 0, err
	}
	recs, total, err := s.Store.List(ctx, kind, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	out := make([]Document, 0, len(recs))
	for _, rec := range recs {
		doc, err := decode(rec)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, doc)
	}
	return out, total, nil
}

// DomesticTotals computes and records a GST breakdown.
func DomesticTotals(d *Domestic) pricing.DomesticTotals {
	obs.ObserveTotals(string(KindDomestic), string(d.Supply()))
	return d.Totals()
}

// InternationalTotals computes and records a single-tax-line breakdown.
func InternationalTotals(i *International) pricing.InternationalTotals {
	obs.ObserveTotals(string(KindInternational), "single")
	return i.Totals()
}

func (s *Service) mutate(ctx context.Context, kind Kind, id string, fn func(Document) error) (Document, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	ctx, span := obs.StartSpan(ctx, "invoice.mutate",
		attribute.String("invoice.id", id),
		attribute.String("invoice.kind", string(kind)),
	)
	var out Document
	err := s.withLock(ctx, id, func(ctx context.Context) error {
		doc, err := s.loadForUpdate(ctx, kind, id)
		if err != nil {
			return err
		}
		if err := fn(doc); err != nil {
			return err
		}
		doc.Touch(s.now())
		if err := s.save(ctx, doc); err != nil {
			return err
		}
		out = doc
		return nil
	})
	obs.EndSpan(span, err)
	return out, err
}

func (s *Service) withLock(ctx context.Context, id string, fn func(context.Context) error) error {
	if s.Locker == nil {
		s.localMu.Lock()
		defer s.localMu.Unlock()
		return fn(ctx)
	}
	return s.Locker.WithLock(ctx, cache.KeyInvoiceLock(id), s.lockTTL(), fn)
}

func (s *Service) number(ctx context.Context, prefix string, at time.Time) (string, error) {
	if s.Numberer == nil {
		return country.Numberer{Logger: s.Logger}.Next(ctx, prefix, at)
	}
	return s.Numberer.Next(ctx, prefix, at)
}

func (s *Service) load(ctx context.Context, kind Kind, id string) (Document, error) {
	return s.loadFrom(ctx, s.Store, kind, id)
}

// loadForUpdate reads past any cache; callers hold the invoice lock.
func (s *Service) loadForUpdate(ctx context.Context, kind Kind, id string) (Document, error) {
	store := s.Store
	if p, ok := store.(interface{ Primary() Store }); ok {
		store = p.Primary()
	}
	return s.loadFrom(ctx, store, kind, id)
}

func (s *Service) loadFrom(ctx context.Context, store Store, kind Kind, id string) (Document, error) {
	rec, err := store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Kind != kind {
		return nil, ErrNotFound
	}
	return decode(rec)
}

func (s *Service) save(ctx context.Context, doc Document) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode invoice: %w", err)
	}
	return s.Store.Save(ctx, Record{
		ID:        doc.DocID(),
		Kind:      doc.DocKind(),
		Number:    doc.DocNumber(),
		Payload:   payload,
		CreatedAt: doc.Created(),
		UpdatedAt: doc.Updated(),
	})
}

func decode(rec Record) (Document, error) {
	doc := newDocument(rec.Kind)
	if err := json.Unmarshal(rec.Payload, doc); err != nil {
		return nil, fmt.Errorf("decode invoice %s: %w", rec.ID, err)
	}
	return doc, nil
}

func editField(e pricing.Edit) string {
	switch e.(type) {
	case pricing.SetQuantity:
		return "quantity"
	case pricing.SetRate:
		return "rate"
	case pricing.SetTaxRate:
		return "taxRate"
	case pricing.SetDescription:
		return "description"
	case pricing.SetClassificationCode:
		return "hsnSac"
	default:
		return "other"
	}
}
