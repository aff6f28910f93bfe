package components

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/freight-commission-ledger/internal/booking_processor/service"
	"github.com/freight-commission-ledger/internal/domain/journal"
	"github.com/freight-commission-ledger/internal/domain/outbox"
	"github.com/freight-commission-ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type EventRecorderImpl struct {
	outboxRepo outbox.Repository
	logger     *slog.Logger
}

func NewEventRecorder(outboxRepo outbox.Repository, logger *slog.Logger) service.EventRecorder {
	return &EventRecorderImpl{
		outboxRepo: outboxRepo,
		logger:     logger,
	}
}

// Record writes the event to the outbox in the caller's transaction, so it is
// published only if the change it describes commits.
func (r *EventRecorderImpl) Record(ctx context.Context, tx pgx.Tx, eventType shared.EventType, bookingID string, documentID *uuid.UUID, payload any) error {
	correlationID := shared.CorrelationID(ctx)
	logger := r.logger
	if correlationID != "" {
		logger = r.logger.With("correlation_id", correlationID)
	}

	entry, err := journal.NewEntry(eventType, bookingID, documentID, payload, time.Now().UTC())
	if err != nil {
		logger.Error("Failed to build event", "event_type", string(eventType), "booking_id", bookingID, "error", err)
		return fmt.Errorf("failed to build %s event: %w", eventType, err)
	}
	entry.CorrelationID = correlationID

	message, err := outbox.NewMessage(entry)
	if err != nil {
		logger.Error("Failed to create new outbox message (marshal payload)",
			"event_id", entry.EventID.String(),
			"error", err,
		)
		return fmt.Errorf("failed to create outbox message payload for event %s: %w", entry.EventID, err)
	}

	if err := r.outboxRepo.WithTx(tx).Create(ctx, message); err != nil {
		logger.Error("Failed to create outbox message",
			"event_id", entry.EventID.String(),
			"event_type", string(eventType),
			"aggregate_id", message.AggregateID,
			"error", err,
		)
		return fmt.Errorf("failed to create outbox message for event %s: %w", entry.EventID, err)
	}

	logger.Debug("Outbox message created",
		"event_type", string(eventType),
		"aggregate_id", message.AggregateID,
		"outbox_id", message.ID,
	)
	return nil
}
