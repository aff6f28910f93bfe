package outbox_poller

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/freight-commission-ledger/internal/config"
	"github.com/freight-commission-ledger/internal/domain/outbox"
	"github.com/freight-commission-ledger/internal/domain/shared"
)

// maxBatchesPerTick bounds how long one tick may keep draining a backlog.
const maxBatchesPerTick = 20

// Poller moves booking events from the outbox into the journal.
type Poller struct {
	outboxRepo       outbox.Repository
	publisher        JournalPublisher
	logger           *slog.Logger
	pollInterval     time.Duration
	batchSize        int
	maxRetryAttempts int
}

// batchResult counts the outcome of one fetched batch.
type batchResult struct {
	fetched   int
	published int
	parked    int
}

func NewPoller(
	cfg *config.OutboxConfig,
	outboxRepo outbox.Repository,
	publisher JournalPublisher,
	logger *slog.Logger,
) *Poller {
	return &Poller{
		outboxRepo:       outboxRepo,
		publisher:        publisher,
		logger:           logger,
		pollInterval:     cfg.PollingInterval,
		batchSize:        cfg.BatchSize,
		maxRetryAttempts: cfg.MaxRetryAttempts,
	}
}

// Start polls until ctx is canceled.
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("Starting Outbox Poller",
		"poll_interval", p.pollInterval.String(),
		"batch_size", p.batchSize,
		"max_retry_attempts", p.maxRetryAttempts,
	)
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Outbox Poller stopping due to context cancellation.")
			return
		case <-ticker.C:
			p.drain(ctx)
		}
	}
}

// drain keeps fetching while batches come back full and fully published, so a
// burst of confirmations does not wait one interval per batch.
func (p *Poller) drain(ctx context.Context) {
	var total batchResult
	for i := 0; i < maxBatchesPerTick; i++ {
		res, err := p.processBatch(ctx)
		total.fetched += res.fetched
		total.published += res.published
		total.parked += res.parked
		if err != nil {
			p.logger.Error("Error during batch processing of pending outbox messages", "error", err)
			break
		}
		if res.fetched < p.batchSize || res.published < res.fetched {
			break
		}
	}
	if total.fetched > 0 {
		p.logger.Info("Outbox poll finished",
			"fetched", total.fetched,
			"published", total.published,
			"parked", total.parked,
		)
	}
}

// processBatch publishes one batch in creation order. A message that keeps
// failing is parked as FAILED_TO_PUBLISH once it reaches maxRetryAttempts.
func (p *Poller) processBatch(ctx context.Context) (batchResult, error) {
	var res batchResult
	messages, err := p.outboxRepo.GetPending(ctx, p.batchSize)
	if err != nil {
		return res, fmt.Errorf("failed to get pending outbox messages: %w", err)
	}
	res.fetched = len(messages)
	if res.fetched == 0 {
		p.logger.Debug("No pending outbox messages found.")
		return res, nil
	}

	for _, msg := range messages {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}

		err := p.publisher.Publish(ctx, msg)
		if err == nil {
			res.published++
			continue
		}

		logger := p.logger.With("outbox_id", msg.ID, "event_id", msg.EventID.String(), "aggregate_id", msg.AggregateID)
		logger.Error("Failed to publish outbox message", "current_attempts", msg.Attempts, "error", err)

		if errInc := p.outboxRepo.IncrementAttempts(ctx, msg.ID); errInc != nil {
			logger.Error("Failed to increment attempts for outbox message", "error", errInc)
			continue
		}

		if msg.Attempts+1 >= p.maxRetryAttempts {
			logger.Warn("Max retry attempts reached for outbox message, parking it",
				"attempts_made", msg.Attempts+1,
			)
			if errUpdate := p.outboxRepo.UpdateStatus(ctx, msg.ID, shared.OutboxStatusFailedToPublish); errUpdate != nil {
				logger.Error("Failed to park outbox message", "error", errUpdate)
				continue
			}
			res.parked++
		}
	}
	return res, nil
}
