package outbox_poller

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/freight-commission-ledger/internal/domain/journal"
	"github.com/freight-commission-ledger/internal/domain/outbox"
	"github.com/freight-commission-ledger/internal/domain/shared"
	"github.com/freight-commission-ledger/internal/platform/messaging/producers"
)

// JournalPublisher moves one outbox message to the journal and the event stream
type JournalPublisher interface {
	Publish(ctx context.Context, message *outbox.Message) error
}

// JournalPublisherImpl implements JournalPublisher
type JournalPublisherImpl struct {
	outboxRepo  outbox.Repository
	journalRepo journal.Repository
	events      producers.EventPublisher
	logger      *slog.Logger
}

// NewJournalPublisher creates a new publisher. events may be nil, in which
// case messages are only journaled.
func NewJournalPublisher(
	outboxRepo outbox.Repository,
	journalRepo journal.Repository,
	events producers.EventPublisher,
	logger *slog.Logger,
) JournalPublisher {
	return &JournalPublisherImpl{
		outboxRepo:  outboxRepo,
		journalRepo: journalRepo,
		events:      events,
		logger:      logger,
	}
}

// Publish journals the event, republishes it and marks the message PROCESSED.
// Journal writes are idempotent on event id, so a retry after a partial
// failure does not duplicate history.
func (p *JournalPublisherImpl) Publish(ctx context.Context, message *outbox.Message) error {
	entry, err := message.GetJournalEntry()
	if err != nil {
		p.logger.Error("Failed to unmarshal journal entry from outbox payload",
			"outbox_id", message.ID, "event_id", message.EventID.String(), "error", err,
		)
		if updateErr := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusFailedToPublish); updateErr != nil {
			p.logger.Error("Also failed to update outbox status to FAILED_TO_PUBLISH after unmarshal error", "outbox_id", message.ID, "update_error", updateErr)
		}
		return fmt.Errorf("unmarshal payload for outbox %d failed: %w", message.ID, err)
	}

	logger := p.logger.With("event_id", entry.EventID.String(), "event_type", string(entry.EventType))
	if entry.CorrelationID != "" {
		logger = logger.With("correlation_id", entry.CorrelationID)
	}

	if err := p.journalRepo.Create(ctx, entry); err != nil {
		logger.Error("Failed to journal outbox message", "outbox_id", message.ID, "error", err)
		return fmt.Errorf("failed to journal event %s: %w", entry.EventID, err)
	}

	if p.events != nil {
		if err := p.events.PublishEvent(ctx, entry); err != nil {
			logger.Error("Failed to publish booking event", "outbox_id", message.ID, "error", err)
			return fmt.Errorf("failed to publish event %s: %w", entry.EventID, err)
		}
	}

	if err := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusProcessed); err != nil {
		logger.Error("Failed to update outbox message status to PROCESSED", "outbox_id", message.ID, "error", err)
		return fmt.Errorf("event %s journaled, but failed to mark outbox %d as PROCESSED: %w", entry.EventID, message.ID, err)
	}

	logger.Info("Outbox message journaled and published", "outbox_id", message.ID, "aggregate_id", message.AggregateID)
	return nil
}
