package service

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"github.com/freight-commission-ledger/internal/domain/booking"
	"github.com/freight-commission-ledger/internal/domain/company"
	"github.com/freight-commission-ledger/internal/domain/document"
	"github.com/freight-commission-ledger/internal/domain/invoice"
	"github.com/freight-commission-ledger/internal/domain/journal"
	"github.com/freight-commission-ledger/internal/domain/party"
	"github.com/freight-commission-ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// fakeTxExecutor runs fn without a real transaction. Repositories under test
// ignore the nil tx passed to WithTx.
type fakeTxExecutor struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeTxExecutor) ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return fn(nil)
}

type MockCompanyRepo struct {
	mock.Mock
}

func (m *MockCompanyRepo) Get(ctx context.Context) (*company.Company, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*company.Company), args.Error(1)
}

func (m *MockCompanyRepo) GetForShare(ctx context.Context) (*company.Company, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*company.Company), args.Error(1)
}

func (m *MockCompanyRepo) Save(ctx context.Context, c *company.Company) error {
	return m.Called(ctx, c).Error(0)
}

func (m *MockCompanyRepo) WithTx(tx pgx.Tx) company.Repository { return m }

type MockDocumentRepo struct {
	mock.Mock
}

func (m *MockDocumentRepo) Create(ctx context.Context, d *document.Document) error {
	return m.Called(ctx, d).Error(0)
}

func (m *MockDocumentRepo) GetByID(ctx context.Context, id uuid.UUID) (*document.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*document.Document), args.Error(1)
}

func (m *MockDocumentRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*document.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*document.Document), args.Error(1)
}

func (m *MockDocumentRepo) Update(ctx context.Context, d *document.Document) error {
	return m.Called(ctx, d).Error(0)
}

func (m *MockDocumentRepo) IsFileHashKnown(ctx context.Context, hash string) (bool, error) {
	args := m.Called(ctx, hash)
	return args.Bool(0), args.Error(1)
}

func (m *MockDocumentRepo) List(ctx context.Context, status *shared.ProcessingStatus, limit, offset int) ([]*document.Document, error) {
	args := m.Called(ctx, status, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*document.Document), args.Error(1)
}

func (m *MockDocumentRepo) WithTx(tx pgx.Tx) document.Repository { return m }

type MockPartyRepo struct {
	mock.Mock
}

func (m *MockPartyRepo) FindOrCreateClient(ctx context.Context, c *party.Client) (*party.Client, error) {
	args := m.Called(ctx, c)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*party.Client), args.Error(1)
}

func (m *MockPartyRepo) FindOrCreateProvider(ctx context.Context, p *party.Provider) (*party.Provider, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*party.Provider), args.Error(1)
}

func (m *MockPartyRepo) GetClient(ctx context.Context, id uuid.UUID) (*party.Client, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*party.Client), args.Error(1)
}

func (m *MockPartyRepo) GetProvider(ctx context.Context, id uuid.UUID) (*party.Provider, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*party.Provider), args.Error(1)
}

func (m *MockPartyRepo) WithTx(tx pgx.Tx) party.Repository { return m }

type MockInvoiceRepo struct {
	mock.Mock
}

func (m *MockInvoiceRepo) Get(ctx context.Context, role shared.Role, number string, counterpartyID uuid.UUID) (*invoice.Invoice, error) {
	args := m.Called(ctx, role, number, counterpartyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*invoice.Invoice), args.Error(1)
}

func (m *MockInvoiceRepo) GetByID(ctx context.Context, id uuid.UUID) (*invoice.Invoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*invoice.Invoice), args.Error(1)
}

func (m *MockInvoiceRepo) Save(ctx context.Context, inv *invoice.Invoice) error {
	return m.Called(ctx, inv).Error(0)
}

func (m *MockInvoiceRepo) List(ctx context.Context, filter invoice.ListFilter) ([]*invoice.ListItem, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*invoice.ListItem), args.Error(1)
}

func (m *MockInvoiceRepo) WithTx(tx pgx.Tx) invoice.Repository { return m }

type MockBookingRepo struct {
	mock.Mock
}

func (m *MockBookingRepo) Lock(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockBookingRepo) GetForUpdate(ctx context.Context, id string) (*booking.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *MockBookingRepo) Get(ctx context.Context, id string) (*booking.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *MockBookingRepo) Create(ctx context.Context, b *booking.Booking) error {
	return m.Called(ctx, b).Error(0)
}

func (m *MockBookingRepo) Update(ctx context.Context, b *booking.Booking) error {
	return m.Called(ctx, b).Error(0)
}

func (m *MockBookingRepo) AddCharges(ctx context.Context, charges []booking.Charge) error {
	return m.Called(ctx, charges).Error(0)
}

func (m *MockBookingRepo) UpdateCharge(ctx context.Context, c booking.Charge) error {
	return m.Called(ctx, c).Error(0)
}

func (m *MockBookingRepo) SaveTaxAllocation(ctx context.Context, a booking.TaxAllocation) error {
	return m.Called(ctx, a).Error(0)
}

func (m *MockBookingRepo) GetTaxAllocations(ctx context.Context, bookingID string) ([]booking.TaxAllocation, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]booking.TaxAllocation), args.Error(1)
}

func (m *MockBookingRepo) ListSummaries(ctx context.Context, filter booking.ListFilter) ([]booking.Summary, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]booking.Summary), args.Error(1)
}

func (m *MockBookingRepo) ListIDs(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockBookingRepo) WithTx(tx pgx.Tx) booking.Repository { return m }

type MockJournalRepo struct {
	mock.Mock
}

func (m *MockJournalRepo) Create(ctx context.Context, entry *journal.Entry) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *MockJournalRepo) GetByEventID(ctx context.Context, eventID uuid.UUID) (*journal.Entry, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*journal.Entry), args.Error(1)
}

func (m *MockJournalRepo) ListByBookingID(ctx context.Context, bookingID string, limit, offset int) ([]*journal.Entry, error) {
	args := m.Called(ctx, bookingID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*journal.Entry), args.Error(1)
}

func (m *MockJournalRepo) CountByBookingID(ctx context.Context, bookingID string) (int64, error) {
	args := m.Called(ctx, bookingID)
	return args.Get(0).(int64), args.Error(1)
}

type MockBookingUpdater struct {
	mock.Mock
}

func (m *MockBookingUpdater) ApplyInvoice(ctx context.Context, tx pgx.Tx, rate decimal.Decimal, app Application) (*booking.Booking, error) {
	args := m.Called(ctx, tx, rate, app)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

// Modify runs fn against the booking registered with On("Modify", ...) so
// services see the real mutation.
func (m *MockBookingUpdater) Modify(ctx context.Context, tx pgx.Tx, bookingID string, rate decimal.Decimal, fn Mutation) (*booking.Booking, bool, error) {
	args := m.Called(ctx, tx, bookingID, rate, fn)
	if err := args.Error(1); err != nil {
		return nil, false, err
	}
	b := args.Get(0).(*booking.Booking)
	changed, err := fn(b)
	if err != nil {
		return nil, false, err
	}
	if changed {
		b.Recompute(rate)
	}
	return b, changed, nil
}

type recordedEvent struct {
	Type       shared.EventType
	BookingID  string
	DocumentID *uuid.UUID
	Payload    any
}

// fakeEventRecorder keeps events in memory.
type fakeEventRecorder struct {
	mu     sync.Mutex
	events []recordedEvent
	err    error
}

func (f *fakeEventRecorder) Record(ctx context.Context, tx pgx.Tx, eventType shared.EventType, bookingID string, documentID *uuid.UUID, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, recordedEvent{Type: eventType, BookingID: bookingID, DocumentID: documentID, Payload: payload})
	return nil
}

func (f *fakeEventRecorder) types() []shared.EventType {
	out := make([]shared.EventType, len(f.events))
	for i, e := range f.events {
		out[i] = e.Type
	}
	return out
}

type MockFailureRecorder struct {
	mock.Mock
}

func (m *MockFailureRecorder) RecordFailure(ctx context.Context, tx pgx.Tx, doc *document.Document, errType shared.ErrorType, message string) error {
	return m.Called(ctx, tx, doc, errType, message).Error(0)
}

type MockRecalculator struct {
	mock.Mock
}

func (m *MockRecalculator) RecalculateAll(ctx context.Context, rate decimal.Decimal) (*RecalculationReport, error) {
	args := m.Called(ctx, rate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*RecalculationReport), args.Error(1)
}
