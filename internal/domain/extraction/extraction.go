// Package extraction turns the untyped JSON produced by the AI extractor into a
// strict structure before any of it reaches classification or allocation.
//
// Known fields that are missing or malformed are not guessed: they are recorded
// with a NOT_FOUND confidence and reported as warnings, or rejected when the
// field is required to book the invoice.
package extraction

import (
	"encoding/json"
	"time"

	"github.com/freight-commission-ledger/internal/domain/money"
	"github.com/freight-commission-ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Party is the issuer or recipient block of an invoice.
type Party struct {
	Name  string `json:"name"`
	TaxID string `json:"tax_id" validate:"required"`
}

// Charge is one extracted line item. BookingRef is empty when the model did
// not tag the line with a BL reference.
type Charge struct {
	BookingRef  string                `json:"bl_reference,omitempty"`
	Description string                `json:"description" validate:"required"`
	Category    shared.ChargeCategory `json:"category"`
	Container   string                `json:"container,omitempty"`
	Amount      money.Money           `json:"amount"`
}

type Totals struct {
	Subtotal  *money.Money     `json:"subtotal,omitempty"`
	TaxRate   *decimal.Decimal `json:"tax_rate,omitempty"`
	TaxAmount money.Money      `json:"tax_amount"`
	Total     *money.Money     `json:"total,omitempty"`
}

// Shipping holds the optional shipment details printed on an invoice.
type Shipping struct {
	POLCode    string   `json:"pol_code,omitempty"`
	POLName    string   `json:"pol_name,omitempty"`
	PODCode    string   `json:"pod_code,omitempty"`
	PODName    string   `json:"pod_name,omitempty"`
	Vessel     string   `json:"vessel,omitempty"`
	Containers []string `json:"containers,omitempty"`
}

// Extraction is the validated result of one AI extraction.
type Extraction struct {
	DocumentType     shared.DocumentType               `json:"document_type,omitempty"`
	InvoiceNumber    string                            `json:"invoice_number" validate:"required"`
	InvoiceDate      time.Time                         `json:"invoice_date" validate:"required"`
	Issuer           Party                             `json:"issuer"`
	Recipient        Party                             `json:"recipient"`
	ProviderType     shared.ProviderType               `json:"provider_type,omitempty"`
	CurrencyValid    bool                              `json:"currency_valid"`
	CurrencyDetected string                            `json:"currency_detected"`
	BLReferences     []string                          `json:"bl_references"`
	Charges          []Charge                          `json:"charges" validate:"min=1,dive"`
	Totals           Totals                            `json:"totals"`
	Shipping         Shipping                          `json:"shipping_details"`
	AIModel          string                            `json:"ai_model,omitempty"`
	Confidence       map[string]shared.ConfidenceLevel `json:"confidence"`
	Raw              json.RawMessage                   `json:"-"`
}

// ChargeTotal sums the extracted charge amounts.
func (e *Extraction) ChargeTotal() money.Money {
	total := money.Zero()
	for _, c := range e.Charges {
		total = total.Add(c.Amount)
	}
	return total
}

// AllReferences returns the header BL references followed by any charge tag not
// already listed, in first-seen order.
func (e *Extraction) AllReferences() []string {
	seen := map[string]struct{}{}
	var refs []string
	add := func(ref string) {
		if ref == "" {
			return
		}
		if _, ok := seen[ref]; ok {
			return
		}
		seen[ref] = struct{}{}
		refs = append(refs, ref)
	}
	for _, r := range e.BLReferences {
		add(r)
	}
	for _, c := range e.Charges {
		add(c.BookingRef)
	}
	return refs
}

// OverallConfidence is the lowest score among the fields needed to book the invoice.
func (e *Extraction) OverallConfidence() shared.ConfidenceLevel {
	overall := shared.ConfidenceHigh
	for _, f := range criticalFields {
		if c := e.Confidence[f]; c < overall {
			overall = c
		}
	}
	return overall
}

// Metadata is what gets stored with the invoice for audit.
type Metadata struct {
	AIModel           string                            `json:"ai_model,omitempty"`
	OverallConfidence shared.ConfidenceLevel            `json:"overall_confidence"`
	Confidence        map[string]shared.ConfidenceLevel `json:"field_confidence"`
	Raw               json.RawMessage                   `json:"raw,omitempty"`
}

func (e *Extraction) Metadata() Metadata {
	return Metadata{
		AIModel:           e.AIModel,
		OverallConfidence: e.OverallConfidence(),
		Confidence:        e.Confidence,
		Raw:               e.Raw,
	}
}

var criticalFields = []string{"document_type", "invoice_number", "issuer.tax_id", "recipient.tax_id", "totals.total"}
