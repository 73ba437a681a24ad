package invoice

import (
	"time"

	"github.com/noah-isme/backend-invoice/internal/pricing"
)

// Kind selects the tax regime of an invoice.
type Kind string

const (
	KindDomestic      Kind = "domestic"
	KindInternational Kind = "international"
)

// Valid reports whether k is a known regime.
func (k Kind) Valid() bool {
	return k == KindDomestic || k == KindInternational
}

// Default values applied on create.
const (
	DefaultDomesticTheme      = "classic"
	DefaultInternationalTheme = "international"
	DefaultPaymentTerms       = "Net 30"
	DomesticNumberPrefix      = "INV"
)

// Party identifies the issuing company or the billed client.
type Party struct {
	Name    string `json:"name" validate:"max=200"`
	Address string `json:"address" validate:"max=1000"`
	GSTIN   string `json:"gstin,omitempty" validate:"omitempty,gstin"`
	TaxID   string `json:"taxId,omitempty" validate:"omitempty,max=64"`
	Phone   string `json:"phone" validate:"max=32"`
	Email   string `json:"email" validate:"omitempty,email"`
	Logo    string `json:"logo,omitempty" validate:"max=524288"`
}

// DomesticHeader holds the editable fields of a GST invoice.
type DomesticHeader struct {
	Number              string  `json:"number" validate:"max=64"`
	Date                string  `json:"date" validate:"omitempty,datetime=2006-01-02"`
	DueDate             string  `json:"dueDate" validate:"omitempty,datetime=2006-01-02"`
	GST                 bool    `json:"gst"`
	Company             Party   `json:"company"`
	Client              Party   `json:"client"`
	PlaceOfSupply       string  `json:"placeOfSupply" validate:"omitempty,max=64,placeofsupply"`
	Notes               string  `json:"notes" validate:"max=4000"`
	Terms               string  `json:"terms" validate:"max=4000"`
	PaymentInstructions string  `json:"paymentInstructions" validate:"max=4000"`
	Theme               string  `json:"theme" validate:"omitempty,max=32"`
	BalanceDue          float64 `json:"balanceDue"`
}

// InternationalHeader holds the editable fields of a VAT / sales tax invoice.
type InternationalHeader struct {
	Number       string `json:"number" validate:"max=64"`
	Date         string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	DueDate      string `json:"dueDate" validate:"omitempty,datetime=2006-01-02"`
	Country      string `json:"country" validate:"omitempty,len=2,alpha"`
	Currency     string `json:"currency" validate:"omitempty,len=3,alpha"`
	TaxLabel     string `json:"taxLabel" validate:"max=32"`
	PaymentTerms string `json:"paymentTerms" validate:"max=200"`
	Company      Party  `json:"company"`
	Client       Party  `json:"client"`
	Notes        string `json:"notes" validate:"max=4000"`
	Theme        string `json:"theme" validate:"omitempty,max=32"`
}

// Document is the behaviour shared by both invoice regimes. The service
// mutates documents through it; line item updates never touch headers.
type Document interface {
	DocID() string
	DocKind() Kind
	DocNumber() string
	LineItems() []pricing.LineItem
	SetLineItems([]pricing.LineItem)
	Touch(time.Time)
	Created() time.Time
	Updated() time.Time
}

// Domestic is a GST invoice snapshot.
type Domestic struct {
	ID string `json:"id"`
	DomesticHeader
	Items     []pricing.LineItem `json:"items"`
	CreatedAt time.Time          `json:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// TotalsInput projects the fields the GST engine reads.
func (d *Domestic) TotalsInput() pricing.DomesticInput {
	return pricing.DomesticInput{
		GST:           d.GST,
		CompanyGSTIN:  d.Company.GSTIN,
		ClientGSTIN:   d.Client.GSTIN,
		PlaceOfSupply: d.PlaceOfSupply,
		Items:         d.Items,
	}
}

// Totals computes a fresh breakdown. It is never stored.
func (d *Domestic) Totals() pricing.DomesticTotals {
	return pricing.CalculateDomestic(d.TotalsInput())
}

// Supply reports the GST routing applied by Totals.
func (d *Domestic) Supply() pricing.Supply {
	return pricing.SupplyKind(d.TotalsInput())
}

func (d *Domestic) DocID() string                     { return d.ID }
func (d *Domestic) DocKind() Kind                     { return KindDomestic }
func (d *Domestic) DocNumber() string                 { return d.Number }
func (d *Domestic) LineItems() []pricing.LineItem     { return d.Items }
func (d *Domestic) SetLineItems(i []pricing.LineItem) { d.Items = i }
func (d *Domestic) Touch(t time.Time)                 { d.UpdatedAt = t }
func (d *Domestic) Created() time.Time                { return d.CreatedAt }
func (d *Domestic) Updated() time.Time                { return d.UpdatedAt }

// International is a single-tax-line invoice snapshot.
type International struct {
	ID string `json:"id"`
	InternationalHeader
	Items     []pricing.LineItem `json:"items"`
	CreatedAt time.Time          `json:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// Totals computes a fresh breakdown. It is never stored.
func (i *International) Totals() pricing.InternationalTotals {
	return pricing.CalculateInternational(i.Items)
}

func (i *International) DocID() string                      { return i.ID }
func (i *International) DocKind() Kind                      { return KindInternational }
func (i *International) DocNumber() string                  { return i.Number }
func (i *International) LineItems() []pricing.LineItem      { return i.Items }
func (i *International) SetLineItems(it []pricing.LineItem) { i.Items = it }
func (i *International) Touch(t time.Time)                  { i.UpdatedAt = t }
func (i *International) Created() time.Time                 { return i.CreatedAt }
func (i *International) Updated() time.Time                 { return i.UpdatedAt }

func newDocument(kind Kind) Document {
	if kind == KindInternational {
		return &International{}
	}
	return &Domestic{}
}
