package booking

import (
	"strings"
	"time"

	"github.com/freight-commission-ledger/internal/domain/money"
	"github.com/freight-commission-ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrEmptyChargeEdit = shared.Validation(shared.CodeRequiredField, "charge", "charge edit must change at least one field")

// Charge is one line item attributed to exactly one booking and one invoice.
// Values are immutable; edits produce a replacement.
type Charge struct {
	ID           uuid.UUID             `json:"id"`
	BookingID    string                `json:"booking_id"`
	InvoiceID    uuid.UUID             `json:"invoice_id"`
	Role         shared.Role           `json:"role"`
	Category     shared.ChargeCategory `json:"category"`
	ProviderType shared.ProviderType   `json:"provider_type,omitempty"`
	Container    string                `json:"container,omitempty"`
	Description  string                `json:"description"`
	Amount       money.Money           `json:"amount"`
	CreatedAt    time.Time             `json:"created_at"`
}

// NewCharge creates a charge for booking from the given invoice. The amount is
// stored in cents so the totals match the persisted charges.
func NewCharge(bookingID string, invoiceID uuid.UUID, role shared.Role, category shared.ChargeCategory,
	description string, amount money.Money) Charge {
	return Charge{
		ID:          uuid.New(),
		BookingID:   bookingID,
		InvoiceID:   invoiceID,
		Role:        role,
		Category:    shared.ParseChargeCategory(string(category)),
		Description: strings.TrimSpace(description),
		Amount:      amount.Round(),
		CreatedAt:   time.Now().UTC(),
	}
}

// ChargeEdit lists the fields a user may correct. Nil means unchanged.
type ChargeEdit struct {
	Description *string
	Category    *shared.ChargeCategory
	Amount      *money.Money
}

func (e ChargeEdit) empty() bool {
	return e.Description == nil && e.Category == nil && e.Amount == nil
}

func (c Charge) apply(edit ChargeEdit) (Charge, error) {
	if edit.empty() {
		return Charge{}, ErrEmptyChargeEdit
	}
	if edit.Description != nil {
		c.Description = strings.TrimSpace(*edit.Description)
	}
	if edit.Category != nil {
		c.Category = shared.ParseChargeCategory(string(*edit.Category))
	}
	if edit.Amount != nil {
		c.Amount = edit.Amount.Round()
	}
	return c, nil
}

// TaxAllocation is the share of an invoice's tax attributed to one booking.
// It is kept for audit; booking totals are pre-tax.
type TaxAllocation struct {
	BookingID  string          `json:"booking_id"`
	InvoiceID  uuid.UUID       `json:"invoice_id"`
	BaseAmount money.Money     `json:"base_amount"`
	TaxAmount  money.Money     `json:"tax_amount"`
	Percentage decimal.Decimal `json:"percentage"`
}
