package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/freight-commission-ledger/internal/domain/booking"
	"github.com/freight-commission-ledger/internal/domain/shared"
	"github.com/freight-commission-ledger/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
	"github.com/panjf2000/ants/v2"
	"github.com/shopspring/decimal"
)

// RecalculationPool reapplies a commission rate to all bookings on a bounded
// worker pool. Each booking is updated in its own transaction under its lock,
// so recalculation interleaves safely with confirmations.
type RecalculationPool struct {
	pool        *ants.Pool
	txExecutor  persistence.TxExecutor
	bookingRepo booking.Repository
	updater     BookingUpdater
	events      EventRecorder
	logger      *slog.Logger
}

type WorkerPoolConfig struct {
	Size int
}

func NewRecalculationPool(
	txExecutor persistence.TxExecutor,
	bookingRepo booking.Repository,
	updater BookingUpdater,
	events EventRecorder,
	config WorkerPoolConfig,
	logger *slog.Logger,
) (*RecalculationPool, error) {
	if config.Size <= 0 {
		return nil, fmt.Errorf("worker pool size must be positive, got %d", config.Size)
	}
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, err
	}

	return &RecalculationPool{
		pool:        pool,
		txExecutor:  txExecutor,
		bookingRepo: bookingRepo,
		updater:     updater,
		events:      events,
		logger:      logger,
	}, nil
}

// RecalculateAll waits until every booking was visited. Bookings that fail
// are listed in the report; the others keep their new commission.
func (p *RecalculationPool) RecalculateAll(ctx context.Context, rate decimal.Decimal) (*RecalculationReport, error) {
	ids, err := p.bookingRepo.ListIDs(ctx)
	if err != nil {
		return nil, err
	}

	p.logger.Info("Recalculating commissions", "bookings", len(ids), "commission_rate", rate.String())

	report := &RecalculationReport{Total: len(ids)}
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	record := func(id string, updated bool, err error) {
		mu.Lock()
		defer mu.Unlock()
		switch {
		case err != nil:
			report.Failed = append(report.Failed, id)
		case updated:
			report.Updated++
		}
	}

	for _, id := range ids {
		if ctx.Err() != nil {
			record(id, false, ctx.Err())
			continue
		}
		wg.Add(1)
		bookingID := id
		err := p.pool.Submit(func() {
			defer wg.Done()
			updated, err := p.recalculate(ctx, bookingID, rate)
			if err != nil {
				p.logger.Error("Failed to recalculate booking", "booking_id", bookingID, "error", err)
			}
			record(bookingID, updated, err)
		})
		if err != nil {
			wg.Done()
			p.logger.Error("Failed to submit booking to worker pool", "booking_id", bookingID, "error", err)
			record(bookingID, false, err)
		}
	}
	wg.Wait()

	sort.Strings(report.Failed)
	p.logger.Info("Commission recalculation finished",
		"total", report.Total,
		"updated", report.Updated,
		"failed", len(report.Failed),
	)
	return report, nil
}

func (p *RecalculationPool) recalculate(ctx context.Context, id string, rate decimal.Decimal) (bool, error) {
	var updated bool
	err := p.txExecutor.ExecuteTx(ctx, func(tx pgx.Tx) error {
		b, changed, err := p.updater.Modify(ctx, tx, id, rate, func(b *booking.Booking) (bool, error) {
			return !b.Totals.CommissionRate.Equal(rate), nil
		})
		if err != nil || !changed {
			return err
		}
		updated = true
		return p.events.Record(ctx, tx, shared.EventBookingUpdated, b.ID, nil, bookingUpdatedPayload{
			Reason: "commission_recalculated",
			Status: string(b.Status),
			Totals: b.Totals,
		})
	})
	return updated, err
}

// Shutdown gracefully shuts down the worker pool.
func (p *RecalculationPool) Shutdown() {
	p.logger.Info("Shutting down worker pool", "running_workers", p.pool.Running())
	p.pool.Release()
}

// Running returns the number of running workers in the pool.
func (p *RecalculationPool) Running() int {
	return p.pool.Running()
}

// Capacity returns the capacity of the worker pool.
func (p *RecalculationPool) Capacity() int {
	return p.pool.Cap()
}
