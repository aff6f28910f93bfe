package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/freight-commission-ledger/internal/booking_processor/service"
	"github.com/freight-commission-ledger/internal/domain/booking"
	"github.com/freight-commission-ledger/internal/domain/company"
	"github.com/freight-commission-ledger/internal/domain/document"
	"github.com/freight-commission-ledger/internal/domain/invoice"
	"github.com/freight-commission-ledger/internal/domain/journal"
	"github.com/freight-commission-ledger/internal/domain/report"
	"github.com/freight-commission-ledger/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

type testResponse struct {
	Data     json.RawMessage  `json:"data"`
	Error    *ErrorInfo       `json:"error"`
	Warnings []shared.Warning `json:"warnings"`
	Meta     *MetaInfo        `json:"meta"`
}

func decodeResponse(t *testing.T, rr *httptest.ResponseRecorder) testResponse {
	t.Helper()
	var resp testResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp), rr.Body.String())
	return resp
}

func serve(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

type MockDocumentService struct {
	mock.Mock
}

func (m *MockDocumentService) Register(ctx context.Context, req service.RegisterRequest) (*document.Document, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*document.Document), args.Error(1)
}

func (m *MockDocumentService) Get(ctx context.Context, id uuid.UUID) (*document.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*document.Document), args.Error(1)
}

func (m *MockDocumentService) List(ctx context.Context, status *shared.ProcessingStatus, limit, offset int) ([]*document.Document, error) {
	args := m.Called(ctx, status, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*document.Document), args.Error(1)
}

func (m *MockDocumentService) StartProcessing(ctx context.Context, id uuid.UUID, reprocess bool) (*document.Document, error) {
	args := m.Called(ctx, id, reprocess)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*document.Document), args.Error(1)
}

func (m *MockDocumentService) MarkFailed(ctx context.Context, id uuid.UUID, errType shared.ErrorType, message string) (*document.Document, error) {
	args := m.Called(ctx, id, errType, message)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*document.Document), args.Error(1)
}

type MockConfirmationService struct {
	mock.Mock
}

func (m *MockConfirmationService) Confirm(ctx context.Context, req service.ConfirmRequest) (*service.ConfirmResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ConfirmResult), args.Error(1)
}

type MockBookingService struct {
	mock.Mock
}

func (m *MockBookingService) bookingResult(args mock.Arguments) (*booking.Booking, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *MockBookingService) Get(ctx context.Context, id string) (*booking.Booking, error) {
	return m.bookingResult(m.Called(ctx, id))
}

func (m *MockBookingService) TaxAllocations(ctx context.Context, id string) ([]booking.TaxAllocation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]booking.TaxAllocation), args.Error(1)
}

func (m *MockBookingService) EditCharge(ctx context.Context, bookingID string, chargeID uuid.UUID, edit booking.ChargeEdit) (*booking.Booking, error) {
	return m.bookingResult(m.Called(ctx, bookingID, chargeID, edit))
}

func (m *MockBookingService) EditDetails(ctx context.Context, bookingID string, edit booking.DetailsEdit) (*booking.Booking, error) {
	return m.bookingResult(m.Called(ctx, bookingID, edit))
}

func (m *MockBookingService) MarkComplete(ctx context.Context, id string) (*booking.Booking, error) {
	return m.bookingResult(m.Called(ctx, id))
}

func (m *MockBookingService) RevertToPending(ctx context.Context, id string) (*booking.Booking, error) {
	return m.bookingResult(m.Called(ctx, id))
}

func (m *MockBookingService) History(ctx context.Context, id string, limit, offset int) ([]*journal.Entry, int64, error) {
	args := m.Called(ctx, id, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*journal.Entry), args.Get(1).(int64), args.Error(2)
}

type MockCompanyService struct {
	mock.Mock
}

func (m *MockCompanyService) Get(ctx context.Context) (*company.Company, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*company.Company), args.Error(1)
}

func (m *MockCompanyService) Update(ctx context.Context, req service.CompanyUpdate) (*service.CompanyUpdateResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.CompanyUpdateResult), args.Error(1)
}

type MockReportService struct {
	mock.Mock
}

func (m *MockReportService) Build(ctx context.Context, q report.Query) (*report.Report, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*report.Report), args.Error(1)
}

// WriteCSV writes the first return value, when it is a string, before returning the error.
func (m *MockReportService) WriteCSV(ctx context.Context, w io.Writer, q report.Query) error {
	args := m.Called(ctx, w, q)
	if body, ok := args.Get(0).(string); ok {
		_, _ = io.WriteString(w, body)
	}
	return args.Error(1)
}

func (m *MockReportService) WriteBookingPDF(ctx context.Context, w io.Writer, bookingID string) error {
	args := m.Called(ctx, w, bookingID)
	if body, ok := args.Get(0).(string); ok {
		_, _ = io.WriteString(w, body)
	}
	return args.Error(1)
}

var (
	_ service.DocumentService     = (*MockDocumentService)(nil)
	_ service.ConfirmationService = (*MockConfirmationService)(nil)
	_ service.BookingService      = (*MockBookingService)(nil)
	_ service.CompanyService      = (*MockCompanyService)(nil)
	_ service.ReportService       = (*MockReportService)(nil)
)

type MockInvoiceService struct {
	mock.Mock
}

func (m *MockInvoiceService) List(ctx context.Context, filter invoice.ListFilter) ([]*invoice.ListItem, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*invoice.ListItem), args.Error(1)
}

func (m *MockInvoiceService) Get(ctx context.Context, id uuid.UUID) (*service.InvoiceDetail, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.InvoiceDetail), args.Error(1)
}
