package handler

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/freight-commission-ledger/internal/booking_processor/service"
	"github.com/freight-commission-ledger/internal/domain/booking"
	"github.com/freight-commission-ledger/internal/domain/journal"
	"github.com/freight-commission-ledger/internal/domain/money"
	"github.com/freight-commission-ledger/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newBookingRouter(bookings *MockBookingService, reports *MockReportService) *gin.Engine {
	h := NewBookingHandler(testLogger(), bookings, reports)
	router := setupTestRouter()
	router.GET("/bookings/:id", h.Get)
	router.PATCH("/bookings/:id", h.EditDetails)
	router.GET("/bookings/:id/tax-allocations", h.TaxAllocations)
	router.PATCH("/bookings/:id/charges/:chargeId", h.EditCharge)
	router.POST("/bookings/:id/complete", h.Complete)
	router.POST("/bookings/:id/revert", h.Revert)
	router.GET("/bookings/:id/history", h.History)
	router.GET("/bookings/:id/pdf", h.PDF)
	return router
}

func testBooking(t *testing.T) *booking.Booking {
	t.Helper()
	b, err := booking.New("BK-001234", time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return b
}

func TestBookingHandler_Get(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		bookings := new(MockBookingService)
		bookings.On("Get", mock.Anything, "BK-001234").Return(testBooking(t), nil).Once()

		req, _ := http.NewRequest(http.MethodGet, "/bookings/BK-001234", nil)
		rr := serve(newBookingRouter(bookings, nil), req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, string(decodeResponse(t, rr).Data), `"id":"BK-001234"`)
	})

	t.Run("NotFound", func(t *testing.T) {
		bookings := new(MockBookingService)
		bookings.On("Get", mock.Anything, "BK-404").Return(nil, booking.ErrBookingNotFound).Once()

		req, _ := http.NewRequest(http.MethodGet, "/bookings/BK-404", nil)
		rr := serve(newBookingRouter(bookings, nil), req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
		resp := decodeResponse(t, rr)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "NOT_FOUND", resp.Error.Kind)
	})

	t.Run("StorageFailureIsHidden", func(t *testing.T) {
		bookings := new(MockBookingService)
		bookings.On("Get", mock.Anything, "BK-001234").Return(nil, assert.AnError).Once()

		req, _ := http.NewRequest(http.MethodGet, "/bookings/BK-001234", nil)
		rr := serve(newBookingRouter(bookings, nil), req)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.NotContains(t, rr.Body.String(), assert.AnError.Error())
	})
}

func TestBookingHandler_EditCharge(t *testing.T) {
	chargeID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		bookings := new(MockBookingService)
		bookings.On("EditCharge", mock.Anything, "BK-001234", chargeID, mock.MatchedBy(func(edit booking.ChargeEdit) bool {
			return edit.Amount != nil && edit.Amount.Equal(money.MustFromString("700.00")) &&
				edit.Category != nil && *edit.Category == shared.ChargeCategoryTransport &&
				edit.Description == nil
		})).Return(testBooking(t), nil).Once()

		req, _ := http.NewRequest(http.MethodPatch, "/bookings/BK-001234/charges/"+chargeID.String(),
			strings.NewReader(`{"amount":"700.00","category":"transport"}`))
		req.Header.Set("Content-Type", "application/json")
		rr := serve(newBookingRouter(bookings, nil), req)

		assert.Equal(t, http.StatusOK, rr.Code)
		bookings.AssertExpectations(t)
	})

	t.Run("InvalidChargeID", func(t *testing.T) {
		bookings := new(MockBookingService)

		req, _ := http.NewRequest(http.MethodPatch, "/bookings/BK-001234/charges/42", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")
		rr := serve(newBookingRouter(bookings, nil), req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		bookings.AssertNotCalled(t, "EditCharge", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("UnknownCharge", func(t *testing.T) {
		bookings := new(MockBookingService)
		bookings.On("EditCharge", mock.Anything, "BK-001234", chargeID, mock.Anything).
			Return(nil, booking.ErrChargeNotFound).Once()

		req, _ := http.NewRequest(http.MethodPatch, "/bookings/BK-001234/charges/"+chargeID.String(),
			strings.NewReader(`{"description":"Port dues"}`))
		req.Header.Set("Content-Type", "application/json")
		rr := serve(newBookingRouter(bookings, nil), req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestBookingHandler_EditDetails(t *testing.T) {
	bookings := new(MockBookingService)
	bookings.On("EditDetails", mock.Anything, "BK-001234", mock.MatchedBy(func(edit booking.DetailsEdit) bool {
		return edit.Vessel != nil && *edit.Vessel == "MSC AURORA" &&
			edit.POL != nil && edit.POL.Code != nil && *edit.POL.Code == "esvlc" &&
			edit.POD == nil && len(edit.Containers) == 1
	})).Return(testBooking(t), nil).Once()

	req, _ := http.NewRequest(http.MethodPatch, "/bookings/BK-001234",
		strings.NewReader(`{"vessel":"MSC AURORA","containers":["MSCU1234567"],"pol":{"code":"esvlc"}}`))
	req.Header.Set("Content-Type", "application/json")
	rr := serve(newBookingRouter(bookings, nil), req)

	assert.Equal(t, http.StatusOK, rr.Code)
	bookings.AssertExpectations(t)
}

func TestBookingHandler_StatusChanges(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		method string
	}{
		{name: "complete", path: "/bookings/BK-001234/complete", method: "MarkComplete"},
		{name: "revert", path: "/bookings/BK-001234/revert", method: "RevertToPending"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bookings := new(MockBookingService)
			bookings.On(tt.method, mock.Anything, "BK-001234").Return(testBooking(t), nil).Once()

			req, _ := http.NewRequest(http.MethodPost, tt.path, nil)
			rr := serve(newBookingRouter(bookings, nil), req)

			assert.Equal(t, http.StatusOK, rr.Code)
			bookings.AssertExpectations(t)
		})
	}
}

func TestBookingHandler_TaxAllocations(t *testing.T) {
	bookings := new(MockBookingService)
	bookings.On("TaxAllocations", mock.Anything, "BK-001234").Return([]booking.TaxAllocation{{
		BookingID:  "BK-001234",
		InvoiceID:  uuid.New(),
		BaseAmount: money.MustFromString("600.00"),
		TaxAmount:  money.MustFromString("126.00"),
	}}, nil).Once()

	req, _ := http.NewRequest(http.MethodGet, "/bookings/BK-001234/tax-allocations", nil)
	rr := serve(newBookingRouter(bookings, nil), req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, string(decodeResponse(t, rr).Data), `"tax_amount":"126.00"`)
}

func TestBookingHandler_History(t *testing.T) {
	t.Run("Paginated", func(t *testing.T) {
		entry, err := journal.NewEntry(shared.EventBookingUpdated, "BK-001234", nil, map[string]string{"reason": "charge_edited"}, time.Now())
		require.NoError(t, err)
		bookings := new(MockBookingService)
		bookings.On("History", mock.Anything, "BK-001234", 5, 5).Return([]*journal.Entry{entry}, int64(6), nil).Once()

		req, _ := http.NewRequest(http.MethodGet, "/bookings/BK-001234/history?page=2&per_page=5", nil)
		rr := serve(newBookingRouter(bookings, nil), req)

		assert.Equal(t, http.StatusOK, rr.Code)
		resp := decodeResponse(t, rr)
		require.NotNil(t, resp.Meta)
		assert.Equal(t, 2, resp.Meta.TotalPages)
		assert.Equal(t, 6, resp.Meta.TotalItems)
	})

	t.Run("JournalUnavailable", func(t *testing.T) {
		bookings := new(MockBookingService)
		bookings.On("History", mock.Anything, "BK-001234", 20, 0).Return(nil, int64(0), service.ErrHistoryUnavailable).Once()

		req, _ := http.NewRequest(http.MethodGet, "/bookings/BK-001234/history", nil)
		rr := serve(newBookingRouter(bookings, nil), req)

		assert.Equal(t, http.StatusPreconditionFailed, rr.Code)
	})

	t.Run("InvalidPagination", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/bookings/BK-001234/history?per_page=500", nil)
		rr := serve(newBookingRouter(new(MockBookingService), nil), req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestBookingHandler_PDF(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		reports := new(MockReportService)
		reports.On("WriteBookingPDF", mock.Anything, mock.Anything, "BK-001234").Return("%PDF-1.3 summary", nil).Once()

		req, _ := http.NewRequest(http.MethodGet, "/bookings/BK-001234/pdf", nil)
		rr := serve(newBookingRouter(nil, reports), req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "application/pdf", rr.Header().Get("Content-Type"))
		assert.Contains(t, rr.Header().Get("Content-Disposition"), "booking-BK-001234.pdf")
		assert.True(t, strings.HasPrefix(rr.Body.String(), "%PDF"))
	})

	t.Run("NotFound", func(t *testing.T) {
		reports := new(MockReportService)
		reports.On("WriteBookingPDF", mock.Anything, mock.Anything, "BK-404").Return(nil, booking.ErrBookingNotFound).Once()

		req, _ := http.NewRequest(http.MethodGet, "/bookings/BK-404/pdf", nil)
		rr := serve(newBookingRouter(nil, reports), req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")
	})
}
