package service

import (
	"context"
	"encoding/json"
	"io"

	"github.com/freight-commission-ledger/internal/domain/booking"
	"github.com/freight-commission-ledger/internal/domain/company"
	"github.com/freight-commission-ledger/internal/domain/document"
	"github.com/freight-commission-ledger/internal/domain/invoice"
	"github.com/freight-commission-ledger/internal/domain/journal"
	"github.com/freight-commission-ledger/internal/domain/party"
	"github.com/freight-commission-ledger/internal/domain/report"
	"github.com/freight-commission-ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// ConfirmationService turns a reviewed extraction into an invoice and updates
// the bookings it covers.
type ConfirmationService interface {
	Confirm(ctx context.Context, req ConfirmRequest) (*ConfirmResult, error)
}

// DocumentService manages the document lifecycle up to confirmation.
type DocumentService interface {
	Register(ctx context.Context, req RegisterRequest) (*document.Document, error)
	Get(ctx context.Context, id uuid.UUID) (*document.Document, error)
	List(ctx context.Context, status *shared.ProcessingStatus, limit, offset int) ([]*document.Document, error)
	StartProcessing(ctx context.Context, id uuid.UUID, reprocess bool) (*document.Document, error)
	MarkFailed(ctx context.Context, id uuid.UUID, errType shared.ErrorType, message string) (*document.Document, error)
}

// BookingService reads and edits bookings after they were created by a confirmation.
type BookingService interface {
	Get(ctx context.Context, id string) (*booking.Booking, error)
	TaxAllocations(ctx context.Context, id string) ([]booking.TaxAllocation, error)
	EditCharge(ctx context.Context, bookingID string, chargeID uuid.UUID, edit booking.ChargeEdit) (*booking.Booking, error)
	EditDetails(ctx context.Context, bookingID string, edit booking.DetailsEdit) (*booking.Booking, error)
	MarkComplete(ctx context.Context, id string) (*booking.Booking, error)
	RevertToPending(ctx context.Context, id string) (*booking.Booking, error)
	History(ctx context.Context, id string, limit, offset int) ([]*journal.Entry, int64, error)
}

// InvoiceService searches confirmed invoices.
type InvoiceService interface {
	List(ctx context.Context, filter invoice.ListFilter) ([]*invoice.ListItem, error)
	Get(ctx context.Context, id uuid.UUID) (*InvoiceDetail, error)
}

// CompanyService reads and updates the company settings.
type CompanyService interface {
	Get(ctx context.Context) (*company.Company, error)
	Update(ctx context.Context, req CompanyUpdate) (*CompanyUpdateResult, error)
}

// ReportService builds the commission report and its exports.
type ReportService interface {
	Build(ctx context.Context, q report.Query) (*report.Report, error)
	WriteCSV(ctx context.Context, w io.Writer, q report.Query) error
	WriteBookingPDF(ctx context.Context, w io.Writer, bookingID string) error
}

// Recalculator reapplies a commission rate to every booking.
type Recalculator interface {
	RecalculateAll(ctx context.Context, rate decimal.Decimal) (*RecalculationReport, error)
}

// BookingUpdater performs the locked read-modify-write cycle on one booking.
// Callers pass the transaction that holds the lock.
type BookingUpdater interface {
	ApplyInvoice(ctx context.Context, tx pgx.Tx, rate decimal.Decimal, app Application) (*booking.Booking, error)
	Modify(ctx context.Context, tx pgx.Tx, bookingID string, rate decimal.Decimal, fn Mutation) (*booking.Booking, bool, error)
}

// Mutation changes a locked booking and reports whether anything changed.
type Mutation func(b *booking.Booking) (bool, error)

// EventRecorder writes a booking-side event to the outbox inside tx.
type EventRecorder interface {
	Record(ctx context.Context, tx pgx.Tx, eventType shared.EventType, bookingID string, documentID *uuid.UUID, payload any) error
}

// FailureRecorder marks a locked document as failed and records why.
type FailureRecorder interface {
	RecordFailure(ctx context.Context, tx pgx.Tx, doc *document.Document, errType shared.ErrorType, message string) error
}

// ConfirmRequest carries the reviewed extraction for one document.
type ConfirmRequest struct {
	DocumentID   uuid.UUID
	DocumentType *shared.DocumentType // user override of the detected type
	Extraction   json.RawMessage
}

// ConfirmResult is what the reviewer sees after confirming.
type ConfirmResult struct {
	Document     *document.Document  `json:"document"`
	DocumentType shared.DocumentType `json:"document_type"`
	Invoice      *invoice.Invoice    `json:"invoice,omitempty"`
	Bookings     []*booking.Booking  `json:"bookings"`
	Warnings     []shared.Warning    `json:"warnings"`
	NeedsReview  bool                `json:"needs_review"`
}

// RegisterRequest is one incoming file.
type RegisterRequest struct {
	Filename      string
	Content       []byte
	Source        shared.DocumentSource
	EmailMetadata json.RawMessage
}

// Application is the part of one invoice applied to one booking.
type Application struct {
	Reference string
	Role      shared.Role
	InvoiceID uuid.UUID
	Charges   []booking.Charge
	Client    *booking.ClientInfo
	Shipping  booking.ShippingDetails
	// Tax is nil when the invoice tax could not be distributed.
	Tax *booking.TaxAllocation
}

// InvoiceDetail is an invoice with its counterparty. Exactly one of Client
// and Provider is set, unless the party record is missing.
type InvoiceDetail struct {
	Invoice  *invoice.Invoice `json:"invoice"`
	Client   *party.Client    `json:"client,omitempty"`
	Provider *party.Provider  `json:"provider,omitempty"`
}

type CompanyUpdate struct {
	Name           string
	TaxID          string
	CommissionRate decimal.Decimal
}

type CompanyUpdateResult struct {
	Company       *company.Company     `json:"company"`
	Recalculation *RecalculationReport `json:"recalculation,omitempty"`
}

// RecalculationReport summarizes a bulk commission recalculation.
type RecalculationReport struct {
	Total   int      `json:"total"`
	Updated int      `json:"updated"`
	Failed  []string `json:"failed,omitempty"`
}
