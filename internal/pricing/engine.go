package pricing

import "strings"

// Supply classifies a domestic invoice for GST purposes.
type Supply string

const (
	SupplyNone  Supply = "none"
	SupplyIntra Supply = "intra"
	SupplyInter Supply = "inter"
)

// DomesticInput carries the invoice fields the GST computation depends on.
type DomesticInput struct {
	GST           bool
	CompanyGSTIN  string
	ClientGSTIN   string
	PlaceOfSupply string
	Items         []LineItem
}

// DomesticTotals aggregates a GST invoice.
type DomesticTotals struct {
	Subtotal float64 `json:"subtotal"`
	CGST     float64 `json:"cgst"`
	SGST     float64 `json:"sgst"`
	IGST     float64 `json:"igst"`
	Total    float64 `json:"total"`
}

// InternationalTotals aggregates a single-tax-line invoice.
type InternationalTotals struct {
	Subtotal float64 `json:"subtotal"`
	Tax      float64 `json:"tax"`
	Total    float64 `json:"total"`
}

// StateCode returns the first two characters of a GSTIN or place of supply.
func StateCode(v string) string {
	v = strings.TrimSpace(v)
	r := []rune(v)
	if len(r) > 2 {
		r = r[:2]
	}
	return string(r)
}

// SupplyKind reports how tax is routed for the input. Both state codes being
// empty compares equal and is reported as intra-state.
func SupplyKind(in DomesticInput) Supply {
	if !in.GST {
		return SupplyNone
	}
	company := StateCode(in.CompanyGSTIN)
	client := StateCode(in.ClientGSTIN)
	if client == "" {
		client = StateCode(in.PlaceOfSupply)
	}
	if company != client {
		return SupplyInter
	}
	return SupplyIntra
}

// CalculateDomestic computes subtotal and the CGST/SGST/IGST split.
func CalculateDomestic(in DomesticInput) DomesticTotals {
	var subtotal, tax float64
	for _, it := range in.Items {
		subtotal += it.Amount
		tax += it.TaxAmount
	}
	out := DomesticTotals{Subtotal: subtotal}
	switch SupplyKind(in) {
	case SupplyNone:
		out.Total = subtotal
		return out
	case SupplyInter:
		out.IGST = tax
	default:
		out.CGST = tax / 2
		out.SGST = tax / 2
	}
	out.Total = subtotal + out.CGST + out.SGST + out.IGST
	return out
}

// CalculateInternational computes subtotal, tax and total over items.
func CalculateInternational(items []LineItem) InternationalTotals {
	var out InternationalTotals
	for _, it := range items {
		out.Subtotal += it.Amount
		out.Tax += it.TaxAmount
	}
	out.Total = out.Subtotal + out.Tax
	return out
}
