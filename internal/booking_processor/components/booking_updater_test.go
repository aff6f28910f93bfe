package components

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/freight-commission-ledger/internal/booking_processor/service"
	"github.com/freight-commission-ledger/internal/domain/booking"
	"github.com/freight-commission-ledger/internal/domain/money"
	"github.com/freight-commission-ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	fixedNow = time.Date(2024, 3, 14, 12, 0, 0, 0, time.UTC)
	halfRate = decimal.RequireFromString("0.5")
)

func newTestUpdater(repo *MockBookingRepo) *BookingUpdaterImpl {
	u := NewBookingUpdater(repo, testLogger()).(*BookingUpdaterImpl)
	u.now = func() time.Time { return fixedNow }
	return u
}

func revenueApplication(reference string) service.Application {
	invoiceID := uuid.New()
	clientID := uuid.New()
	port := "ESVLC"
	return service.Application{
		Reference: reference,
		Role:      shared.RoleRevenue,
		InvoiceID: invoiceID,
		Charges: []booking.Charge{
			booking.NewCharge(reference, invoiceID, shared.RoleRevenue, shared.ChargeCategoryFreight, "Door to door", money.MustFromString("6500")),
		},
		Client:   &booking.ClientInfo{ID: clientID, Name: "Acme Imports", TaxID: "C11111111"},
		Shipping: booking.ShippingDetails{POL: &booking.Port{Code: port}, Vessel: "MSC Aurora"},
		Tax: &booking.TaxAllocation{
			BookingID: reference, InvoiceID: invoiceID,
			BaseAmount: money.MustFromString("6500"), TaxAmount: money.Zero(), Percentage: decimal.NewFromInt(100),
		},
	}
}

func TestBookingUpdater_ApplyInvoice(t *testing.T) {
	ctx := context.Background()

	t.Run("creates an unknown booking", func(t *testing.T) {
		repo := &MockBookingRepo{}
		app := revenueApplication("BK-001234")
		repo.On("Lock", mock.Anything, "BK-001234").Return(nil).Once()
		repo.On("GetForUpdate", mock.Anything, "BK-001234").Return(nil, booking.ErrBookingNotFound).Once()
		repo.On("Create", mock.Anything, mock.MatchedBy(func(b *booking.Booking) bool {
			return b.CreatedAt.Equal(fixedNow) && b.Totals.Revenue.String() == "6500.00"
		})).Return(nil).Once()
		repo.On("AddCharges", mock.Anything, app.Charges).Return(nil).Once()
		repo.On("SaveTaxAllocation", mock.Anything, *app.Tax).Return(nil).Once()

		b, err := newTestUpdater(repo).ApplyInvoice(ctx, nil, halfRate, app)
		require.NoError(t, err)

		assert.Equal(t, "BK-001234", b.ID)
		assert.Equal(t, shared.BookingStatusPending, b.Status)
		require.NotNil(t, b.Client)
		assert.Equal(t, "Acme Imports", b.Client.Name)
		assert.Equal(t, "ESVLC", b.POL.Code)
		assert.Equal(t, "3250.00", b.Totals.Commission.Round().String())
		repo.AssertExpectations(t)
		repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("adds costs to an existing booking", func(t *testing.T) {
		repo := &MockBookingRepo{}
		existing, err := booking.New("BK-001234", fixedNow.Add(-24*time.Hour))
		require.NoError(t, err)
		require.NoError(t, existing.ApplyCharges(shared.RoleRevenue, revenueApplication("BK-001234").Charges))
		existing.Vessel = "Original Vessel"

		invoiceID := uuid.New()
		app := service.Application{
			Reference: "BK-001234",
			Role:      shared.RoleCost,
			InvoiceID: invoiceID,
			Charges: []booking.Charge{
				booking.NewCharge("BK-001234", invoiceID, shared.RoleCost, shared.ChargeCategoryFreight, "Ocean freight", money.MustFromString("3800")),
				booking.NewCharge("BK-001234", invoiceID, shared.RoleCost, shared.ChargeCategoryTransport, "Trucking", money.MustFromString("1200")),
			},
			Client:   &booking.ClientInfo{Name: "ignored for costs"},
			Shipping: booking.ShippingDetails{Vessel: "Other Vessel"},
		}

		repo.On("Lock", mock.Anything, "BK-001234").Return(nil).Once()
		repo.On("GetForUpdate", mock.Anything, "BK-001234").Return(existing, nil).Once()
		repo.On("Update", mock.Anything, existing).Return(nil).Once()
		repo.On("AddCharges", mock.Anything, app.Charges).Return(nil).Once()

		b, err := newTestUpdater(repo).ApplyInvoice(ctx, nil, halfRate, app)
		require.NoError(t, err)

		assert.Equal(t, "5000.00", b.Totals.Costs.String())
		assert.Equal(t, "1500.00", b.Totals.Margin.String())
		assert.Equal(t, "750.00", b.Totals.Commission.Round().String())
		assert.True(t, decimal.RequireFromString("23.08").Equal(b.Totals.MarginPercentage))
		assert.Equal(t, "Original Vessel", b.Vessel)
		assert.Nil(t, b.Client)
		assert.Equal(t, fixedNow, b.UpdatedAt)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		repo.AssertNotCalled(t, "SaveTaxAllocation", mock.Anything, mock.Anything)
	})

	t.Run("charges for another booking are rejected", func(t *testing.T) {
		repo := &MockBookingRepo{}
		app := revenueApplication("BK-001234")
		app.Reference = "BK-999"
		repo.On("Lock", mock.Anything, "BK-999").Return(nil).Once()
		repo.On("GetForUpdate", mock.Anything, "BK-999").Return(nil, booking.ErrBookingNotFound).Once()

		_, err := newTestUpdater(repo).ApplyInvoice(ctx, nil, halfRate, app)
		assert.ErrorContains(t, err, "BK-999")
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("lock failure", func(t *testing.T) {
		repo := &MockBookingRepo{}
		repo.On("Lock", mock.Anything, "BK-001234").Return(errors.New("canceling statement due to lock timeout")).Once()

		_, err := newTestUpdater(repo).ApplyInvoice(ctx, nil, halfRate, revenueApplication("BK-001234"))
		assert.ErrorContains(t, err, "lock timeout")
		repo.AssertNotCalled(t, "GetForUpdate", mock.Anything, mock.Anything)
	})
}

func TestBookingUpdater_Modify(t *testing.T) {
	ctx := context.Background()

	newBooking := func(t *testing.T) *booking.Booking {
		b, err := booking.New("BK-001234", fixedNow.Add(-time.Hour))
		require.NoError(t, err)
		require.NoError(t, b.ApplyCharges(shared.RoleRevenue, revenueApplication("BK-001234").Charges))
		b.Recompute(halfRate)
		return b
	}

	t.Run("changed booking is recomputed and stored", func(t *testing.T) {
		repo := &MockBookingRepo{}
		b := newBooking(t)
		repo.On("Lock", mock.Anything, "BK-001234").Return(nil).Once()
		repo.On("GetForUpdate", mock.Anything, "BK-001234").Return(b, nil).Once()
		repo.On("Update", mock.Anything, b).Return(nil).Once()

		rate := decimal.RequireFromString("0.2")
		got, changed, err := newTestUpdater(repo).Modify(ctx, nil, "BK-001234", rate, func(b *booking.Booking) (bool, error) {
			return true, nil
		})
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, "1300.00", got.Totals.Commission.Round().String())
		assert.Equal(t, fixedNow, got.UpdatedAt)
		repo.AssertExpectations(t)
	})

	t.Run("unchanged booking is not written", func(t *testing.T) {
		repo := &MockBookingRepo{}
		b := newBooking(t)
		repo.On("Lock", mock.Anything, "BK-001234").Return(nil).Once()
		repo.On("GetForUpdate", mock.Anything, "BK-001234").Return(b, nil).Once()

		_, changed, err := newTestUpdater(repo).Modify(ctx, nil, "BK-001234", halfRate, func(b *booking.Booking) (bool, error) {
			return false, nil
		})
		require.NoError(t, err)
		assert.False(t, changed)
		repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("mutation error", func(t *testing.T) {
		repo := &MockBookingRepo{}
		b := newBooking(t)
		repo.On("Lock", mock.Anything, "BK-001234").Return(nil).Once()
		repo.On("GetForUpdate", mock.Anything, "BK-001234").Return(b, nil).Once()

		_, _, err := newTestUpdater(repo).Modify(ctx, nil, "BK-001234", halfRate, func(b *booking.Booking) (bool, error) {
			return false, booking.ErrChargeNotFound
		})
		assert.ErrorIs(t, err, booking.ErrChargeNotFound)
		repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("unknown booking", func(t *testing.T) {
		repo := &MockBookingRepo{}
		repo.On("Lock", mock.Anything, "BK-404").Return(nil).Once()
		repo.On("GetForUpdate", mock.Anything, "BK-404").Return(nil, booking.ErrBookingNotFound).Once()

		_, _, err := newTestUpdater(repo).Modify(ctx, nil, "BK-404", halfRate, func(b *booking.Booking) (bool, error) {
			t.Fatal("mutation must not run")
			return false, nil
		})
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}
