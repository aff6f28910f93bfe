package components

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/freight-commission-ledger/internal/booking_processor/service"
	"github.com/freight-commission-ledger/internal/domain/booking"
	"github.com/freight-commission-ledger/internal/domain/shared"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type BookingUpdaterImpl struct {
	bookingRepo booking.Repository
	logger      *slog.Logger
	now         func() time.Time
}

func NewBookingUpdater(bookingRepo booking.Repository, logger *slog.Logger) service.BookingUpdater {
	return &BookingUpdaterImpl{
		bookingRepo: bookingRepo,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// ApplyInvoice locks the booking, creates it when it does not exist yet, appends
// the invoice charges and persists the recomputed totals. The lock is taken
// before the lookup so two confirmations naming the same new reference cannot
// both create it.
func (u *BookingUpdaterImpl) ApplyInvoice(ctx context.Context, tx pgx.Tx, rate decimal.Decimal, app service.Application) (*booking.Booking, error) {
	logger := u.logger.With("booking_id", app.Reference, "invoice_id", app.InvoiceID.String())
	if id := shared.CorrelationID(ctx); id != "" {
		logger = logger.With("correlation_id", id)
	}
	repo := u.bookingRepo.WithTx(tx)

	if err := repo.Lock(ctx, app.Reference); err != nil {
		return nil, err
	}

	now := u.now()
	created := false
	b, err := repo.GetForUpdate(ctx, app.Reference)
	if errors.Is(err, booking.ErrBookingNotFound) {
		if b, err = booking.New(app.Reference, now); err != nil {
			return nil, err
		}
		created = true
	} else if err != nil {
		logger.Error("Failed to load booking for update", "error", err)
		return nil, err
	}

	if err := b.ApplyCharges(app.Role, app.Charges); err != nil {
		return nil, fmt.Errorf("failed to apply invoice to booking %s: %w", app.Reference, err)
	}
	if app.Client != nil && app.Role == shared.RoleRevenue {
		b.SetClient(*app.Client)
	}
	b.MergeShipping(app.Shipping)
	b.Recompute(rate)
	b.UpdatedAt = now

	if created {
		err = repo.Create(ctx, b)
	} else {
		err = repo.Update(ctx, b)
	}
	if err != nil {
		return nil, err
	}

	if err := repo.AddCharges(ctx, app.Charges); err != nil {
		return nil, err
	}
	if app.Tax != nil {
		if err := repo.SaveTaxAllocation(ctx, *app.Tax); err != nil {
			return nil, err
		}
	}

	logger.Info("Applied invoice to booking",
		"created", created,
		"role", string(app.Role),
		"charges", len(app.Charges),
		"margin", b.Totals.Margin.String(),
		"commission", b.Totals.Commission.String(),
	)
	return b, nil
}

// Modify runs fn on the locked booking. Totals are recomputed and persisted
// only when fn reports a change.
func (u *BookingUpdaterImpl) Modify(ctx context.Context, tx pgx.Tx, bookingID string, rate decimal.Decimal, fn service.Mutation) (*booking.Booking, bool, error) {
	repo := u.bookingRepo.WithTx(tx)

	if err := repo.Lock(ctx, bookingID); err != nil {
		return nil, false, err
	}
	b, err := repo.GetForUpdate(ctx, bookingID)
	if err != nil {
		return nil, false, err
	}

	changed, err := fn(b)
	if err != nil {
		return nil, false, err
	}
	if !changed {
		return b, false, nil
	}

	b.Recompute(rate)
	b.UpdatedAt = u.now()
	if err := repo.Update(ctx, b); err != nil {
		return nil, false, err
	}

	u.logger.Debug("Booking updated", "booking_id", bookingID, "commission", b.Totals.Commission.String())
	return b, true, nil
}
