package pricing

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrUnknownField is returned by ParseEdit when the field name is not editable.
var ErrUnknownField = errors.New("unknown line item field")

// Default tax rates applied to freshly added items.
const (
	DefaultDomesticTaxRate      = 18
	DefaultInternationalTaxRate = 0
)

// LineItem is one billable row. Amount, TaxAmount and Total are derived and
// always recomputed together from Quantity, Rate and TaxRate.
type LineItem struct {
	ID          string  `json:"id"`
	Description string  `json:"description"`
	HSNSAC      string  `json:"hsnSac,omitempty"`
	Quantity    float64 `json:"quantity"`
	Rate        float64 `json:"rate"`
	TaxRate     float64 `json:"taxRate"`
	Amount      float64 `json:"amount"`
	TaxAmount   float64 `json:"taxAmount"`
	Total       float64 `json:"total"`
}

// NewDomesticItem returns an item with the GST defaults.
func NewDomesticItem(id string) LineItem {
	return Recompute(LineItem{ID: id, Quantity: 1, TaxRate: DefaultDomesticTaxRate})
}

// NewInternationalItem returns an item with the international defaults.
func NewInternationalItem(id string) LineItem {
	return Recompute(LineItem{ID: id, Quantity: 1, TaxRate: DefaultInternationalTaxRate})
}

// Recompute derives amount, tax amount and total from the item inputs.
func Recompute(it LineItem) LineItem {
	it.Amount = it.Quantity * it.Rate
	it.TaxAmount = it.Amount * it.TaxRate / 100
	it.Total = it.Amount + it.TaxAmount
	return it
}

// Edit is a single permitted change to a line item.
type Edit interface {
	apply(*LineItem)
}

type (
	SetQuantity           struct{ Value float64 }
	SetRate               struct{ Value float64 }
	SetTaxRate            struct{ Value float64 }
	SetDescription        struct{ Value string }
	SetClassificationCode struct{ Value string }
)

func (e SetQuantity) apply(it *LineItem)           { it.Quantity = e.Value }
func (e SetRate) apply(it *LineItem)               { it.Rate = e.Value }
func (e SetTaxRate) apply(it *LineItem)            { it.TaxRate = e.Value }
func (e SetDescription) apply(it *LineItem)        { it.Description = e.Value }
func (e SetClassificationCode) apply(it *LineItem) { it.HSNSAC = e.Value }

// Derive applies the edit and recomputes every derived field, whichever
// field changed. A nil edit only recomputes.
func Derive(it LineItem, e Edit) LineItem {
	if e != nil {
		e.apply(&it)
	}
	return Recompute(it)
}

// ParseAmount coerces raw form input to a number. Empty, non-numeric and
// non-finite input yields 0.
func ParseAmount(raw string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// ParseEdit builds an edit from a field name and its raw value.
func ParseEdit(field, raw string) (Edit, error) {
	switch field {
	case "quantity", "qty":
		return SetQuantity{Value: ParseAmount(raw)}, nil
	case "rate":
		return SetRate{Value: ParseAmount(raw)}, nil
	case "taxRate":
		return SetTaxRate{Value: ParseAmount(raw)}, nil
	case "description":
		return SetDescription{Value: raw}, nil
	case "hsnSac", "classificationCode":
		return SetClassificationCode{Value: raw}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
}

// ReplaceItem returns a copy of items with the entry sharing updated.ID
// replaced. Order is preserved; when no id matches the copy is unchanged.
func ReplaceItem(items []LineItem, updated LineItem) []LineItem {
	out := make([]LineItem, len(items))
	copy(out, items)
	for i := range out {
		if out[i].ID == updated.ID {
			out[i] = updated
		}
	}
	return out
}

// UpdateItem derives the item with the given id and returns the new sequence.
// The boolean is false when the id is not present.
func UpdateItem(items []LineItem, id string, e Edit) ([]LineItem, bool) {
	for _, it := range items {
		if it.ID == id {
			return ReplaceItem(items, Derive(it, e)), true
		}
	}
	return items, false
}

// RemoveItem returns a copy of items without the entry with the given id.
func RemoveItem(items []LineItem, id string) ([]LineItem, bool) {
	out := make([]LineItem, 0, len(items))
	found := false
	for _, it := range items {
		if it.ID == id {
			found = true
			continue
		}
		out = append(out, it)
	}
	return out, found
}
