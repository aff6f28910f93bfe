// Package invoice models confirmed client and provider invoices.
package invoice

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/freight-commission-ledger/internal/domain/money"
	"github.com/freight-commission-ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var ErrInvoiceNotFound = shared.NotFound("invoice not found")

// DuplicateNumberError reports an invoice number already used by the same counterparty.
type DuplicateNumberError struct {
	Role           shared.Role
	InvoiceNumber  string
	CounterpartyID uuid.UUID
	ExistingID     uuid.UUID
}

func (e *DuplicateNumberError) Error() string {
	return fmt.Sprintf("invoice number %q already exists for this counterparty (invoice %s)", e.InvoiceNumber, e.ExistingID)
}

// Is makes the error match the shared validation kind and its own code.
func (e *DuplicateNumberError) Is(target error) bool {
	return (&shared.Error{Kind: shared.KindValidation, Code: shared.CodeDuplicateInvoiceNumber}).Is(target)
}

// Invoice is created when the user confirms an extraction. It is never deleted.
// TotalAmount always holds the full document total, even when the charges are
// spread across several bookings.
type Invoice struct {
	ID                 uuid.UUID       `json:"id"`
	Role               shared.Role     `json:"role"`
	InvoiceNumber      string          `json:"invoice_number"`
	CounterpartyID     uuid.UUID       `json:"counterparty_id"`
	DocumentID         *uuid.UUID      `json:"document_id,omitempty"`
	InvoiceDate        time.Time       `json:"invoice_date"`
	TotalAmount        money.Money     `json:"total_amount"`
	TaxAmount          money.Money     `json:"tax_amount"`
	BookingReferences  []string        `json:"booking_references"`
	ExtractionMetadata json.RawMessage `json:"extraction_metadata,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
}

// New validates the identity fields of an invoice.
func New(role shared.Role, number string, counterpartyID uuid.UUID, date time.Time, total, tax money.Money) (*Invoice, error) {
	if !role.Valid() {
		return nil, shared.Validation(shared.CodeInvalidField, "role", fmt.Sprintf("unknown invoice role %q", role))
	}
	number = strings.TrimSpace(number)
	if number == "" {
		return nil, shared.Validation(shared.CodeRequiredField, "invoice_number", "invoice number is required")
	}
	if counterpartyID == uuid.Nil {
		return nil, shared.Validation(shared.CodeRequiredField, "counterparty_id", "counterparty is required")
	}
	if date.IsZero() {
		return nil, shared.Validation(shared.CodeRequiredField, "invoice_date", "invoice date is required")
	}
	return &Invoice{
		ID:                uuid.New(),
		Role:              role,
		InvoiceNumber:     number,
		CounterpartyID:    counterpartyID,
		InvoiceDate:       date,
		TotalAmount:       total,
		TaxAmount:         tax,
		BookingReferences: []string{},
		CreatedAt:         time.Now().UTC(),
	}, nil
}

// ListFilter narrows the invoice search. Number and Party are case-insensitive
// substrings; the date bounds are inclusive.
type ListFilter struct {
	Role     *shared.Role
	Number   string
	Party    string
	DateFrom *time.Time
	DateTo   *time.Time
	Limit    int
	Offset   int
}

// NewListFilter builds a filter from the invoice type shown to users
// (CLIENT_INVOICE or PROVIDER_INVOICE); an empty type lists both.
func NewListFilter(invoiceType, number, party string, from, to *time.Time) (ListFilter, error) {
	f := ListFilter{
		Number:   strings.TrimSpace(number),
		Party:    strings.TrimSpace(party),
		DateFrom: from,
		DateTo:   to,
	}
	if strings.TrimSpace(invoiceType) != "" {
		docType, ok := shared.ParseDocumentType(invoiceType)
		role, isInvoice := docType.Role()
		if !ok || !isInvoice {
			return ListFilter{}, shared.Validation(shared.CodeInvalidFilter, "invoice_type",
				fmt.Sprintf("invalid invoice type %q", invoiceType))
		}
		f.Role = &role
	}
	if from != nil && to != nil && from.After(*to) {
		return ListFilter{}, shared.Validation(shared.CodeInvalidFilter, "date_from", "date_from cannot be after date_to")
	}
	return f, nil
}

// ListItem is one row of the invoice search, newest invoice date first.
type ListItem struct {
	ID                uuid.UUID   `json:"id"`
	Role              shared.Role `json:"role"`
	InvoiceNumber     string      `json:"invoice_number"`
	InvoiceDate       time.Time   `json:"invoice_date"`
	PartyName         string      `json:"party_name"`
	BookingReferences []string    `json:"booking_references"`
	TotalAmount       money.Money `json:"total_amount"`
	TaxAmount         money.Money `json:"tax_amount"`
}

// Repository persists invoices. The store enforces uniqueness of
// (role, counterparty_id, invoice_number).
type Repository interface {
	Get(ctx context.Context, role shared.Role, invoiceNumber string, counterpartyID uuid.UUID) (*Invoice, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	List(ctx context.Context, filter ListFilter) ([]*ListItem, error)
	Save(ctx context.Context, inv *Invoice) error
	WithTx(tx pgx.Tx) Repository
}
