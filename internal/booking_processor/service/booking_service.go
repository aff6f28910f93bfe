package service

import (
	"context"
	"log/slog"

	"github.com/freight-commission-ledger/internal/domain/booking"
	"github.com/freight-commission-ledger/internal/domain/company"
	"github.com/freight-commission-ledger/internal/domain/journal"
	"github.com/freight-commission-ledger/internal/domain/shared"
	"github.com/freight-commission-ledger/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const maxHistoryPage = 100

// ErrHistoryUnavailable is returned by processes started without a journal store.
var ErrHistoryUnavailable = shared.Precondition("JOURNAL_UNAVAILABLE", "booking history requires the event journal")

type BookingServiceImpl struct {
	txExecutor  persistence.TxExecutor
	bookingRepo booking.Repository
	companyRepo company.Repository
	journalRepo journal.Repository
	updater     BookingUpdater
	events      EventRecorder
	defaultRate decimal.Decimal
	logger      *slog.Logger
}

type BookingDeps struct {
	TxExecutor  persistence.TxExecutor
	BookingRepo booking.Repository
	CompanyRepo company.Repository
	JournalRepo journal.Repository
	Updater     BookingUpdater
	Events      EventRecorder
}

func NewBookingService(deps BookingDeps, defaultRate decimal.Decimal, logger *slog.Logger) BookingService {
	return &BookingServiceImpl{
		txExecutor:  deps.TxExecutor,
		bookingRepo: deps.BookingRepo,
		companyRepo: deps.CompanyRepo,
		journalRepo: deps.JournalRepo,
		updater:     deps.Updater,
		events:      deps.Events,
		defaultRate: defaultRate,
		logger:      logger,
	}
}

type statusChangedPayload struct {
	From shared.BookingStatus `json:"from"`
	To   shared.BookingStatus `json:"to"`
}

func (s *BookingServiceImpl) Get(ctx context.Context, id string) (*booking.Booking, error) {
	return s.bookingRepo.Get(ctx, id)
}

func (s *BookingServiceImpl) TaxAllocations(ctx context.Context, id string) ([]booking.TaxAllocation, error) {
	if _, err := s.bookingRepo.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.bookingRepo.GetTaxAllocations(ctx, id)
}

// EditCharge corrects one charge and recomputes the booking totals in the same transaction.
func (s *BookingServiceImpl) EditCharge(ctx context.Context, bookingID string, chargeID uuid.UUID, edit booking.ChargeEdit) (*booking.Booking, error) {
	rate, err := s.rate(ctx)
	if err != nil {
		return nil, err
	}

	var updated *booking.Booking
	err = s.txExecutor.ExecuteTx(ctx, func(tx pgx.Tx) error {
		var edited booking.Charge
		b, _, err := s.updater.Modify(ctx, tx, bookingID, rate, func(b *booking.Booking) (bool, error) {
			var err error
			edited, err = b.EditCharge(chargeID, edit)
			return err == nil, err
		})
		if err != nil {
			return err
		}
		if err := s.bookingRepo.WithTx(tx).UpdateCharge(ctx, edited); err != nil {
			return err
		}
		updated = b
		return s.recordUpdate(ctx, tx, b, "charge_edited")
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Charge edited", "booking_id", bookingID, "charge_id", chargeID.String())
	return updated, nil
}

// EditDetails changes vessel, containers and ports.
func (s *BookingServiceImpl) EditDetails(ctx context.Context, bookingID string, edit booking.DetailsEdit) (*booking.Booking, error) {
	rate, err := s.rate(ctx)
	if err != nil {
		return nil, err
	}

	var updated *booking.Booking
	err = s.txExecutor.ExecuteTx(ctx, func(tx pgx.Tx) error {
		b, _, err := s.updater.Modify(ctx, tx, bookingID, rate, func(b *booking.Booking) (bool, error) {
			return true, b.EditDetails(edit)
		})
		if err != nil {
			return err
		}
		updated = b
		return s.recordUpdate(ctx, tx, b, "details_edited")
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// MarkComplete is a no-op for a booking that is already COMPLETE.
func (s *BookingServiceImpl) MarkComplete(ctx context.Context, id string) (*booking.Booking, error) {
	return s.changeStatus(ctx, id, (*booking.Booking).MarkComplete)
}

// RevertToPending is a no-op for a booking that is already PENDING.
func (s *BookingServiceImpl) RevertToPending(ctx context.Context, id string) (*booking.Booking, error) {
	return s.changeStatus(ctx, id, (*booking.Booking).RevertToPending)
}

func (s *BookingServiceImpl) changeStatus(ctx context.Context, id string, transition func(*booking.Booking) bool) (*booking.Booking, error) {
	rate, err := s.rate(ctx)
	if err != nil {
		return nil, err
	}

	var updated *booking.Booking
	err = s.txExecutor.ExecuteTx(ctx, func(tx pgx.Tx) error {
		var from shared.BookingStatus
		b, changed, err := s.updater.Modify(ctx, tx, id, rate, func(b *booking.Booking) (bool, error) {
			from = b.Status
			return transition(b), nil
		})
		if err != nil {
			return err
		}
		updated = b
		if !changed {
			return nil
		}
		s.logger.Info("Booking status changed", "booking_id", id, "from", string(from), "to", string(b.Status))
		return s.events.Record(ctx, tx, shared.EventBookingStatusChanged, b.ID, nil, statusChangedPayload{From: from, To: b.Status})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// History pages through the journaled events of a booking, newest first.
func (s *BookingServiceImpl) History(ctx context.Context, id string, limit, offset int) ([]*journal.Entry, int64, error) {
	if s.journalRepo == nil {
		return nil, 0, ErrHistoryUnavailable
	}
	if _, err := s.bookingRepo.Get(ctx, id); err != nil {
		return nil, 0, err
	}
	if limit <= 0 || limit > maxHistoryPage {
		limit = maxHistoryPage
	}
	if offset < 0 {
		offset = 0
	}

	total, err := s.journalRepo.CountByBookingID(ctx, id)
	if err != nil {
		return nil, 0, err
	}
	entries, err := s.journalRepo.ListByBookingID(ctx, id, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func (s *BookingServiceImpl) recordUpdate(ctx context.Context, tx pgx.Tx, b *booking.Booking, reason string) error {
	return s.events.Record(ctx, tx, shared.EventBookingUpdated, b.ID, nil, bookingUpdatedPayload{
		Reason: reason,
		Status: string(b.Status),
		Totals: b.Totals,
	})
}

func (s *BookingServiceImpl) rate(ctx context.Context) (decimal.Decimal, error) {
	c, err := currentCompany(ctx, s.companyRepo, s.defaultRate)
	if err != nil {
		return decimal.Zero, err
	}
	return c.CommissionRate, nil
}
