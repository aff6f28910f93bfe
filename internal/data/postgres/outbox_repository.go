package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/freight-commission-ledger/internal/domain/outbox"
	"github.com/freight-commission-ledger/internal/domain/shared"
	"github.com/freight-commission-ledger/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const (
	outboxEventIDConstraint = "booking_outbox_event_id_key"

	outboxSelect = `
		SELECT id, event_id, event_type, aggregate_id, payload, status, attempts, created_at, last_attempt_at
		FROM booking_outbox`
)

// OutboxRepository keeps booking events in PostgreSQL next to the rows that
// produced them.
type OutboxRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewOutboxRepository(logger *slog.Logger, db *persistence.PostgresDB) outbox.Repository {
	return &OutboxRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx binds the repository to tx so the event is written in the same
// transaction as the booking change that produced it.
func (r *OutboxRepository) WithTx(tx pgx.Tx) outbox.Repository {
	return &OutboxRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func scanMessage(row pgx.Row) (*outbox.Message, error) {
	var m outbox.Message
	err := row.Scan(&m.ID, &m.EventID, &m.EventType, &m.AggregateID, &m.Payload,
		&m.Status, &m.Attempts, &m.CreatedAt, &m.LastAttemptAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Create stores a PENDING message. A reused event id is reported as ErrDuplicateMessage.
func (r *OutboxRepository) Create(ctx context.Context, message *outbox.Message) error {
	const query = `
		INSERT INTO booking_outbox (event_id, event_type, aggregate_id, payload, status, attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	err := r.querier.QueryRow(ctx, query,
		message.EventID,
		message.EventType,
		message.AggregateID,
		message.Payload,
		message.Status,
		message.Attempts,
		message.CreatedAt,
	).Scan(&message.ID)
	if err == nil {
		return nil
	}
	if persistence.IsUniqueViolation(err, outboxEventIDConstraint) {
		return outbox.ErrDuplicateMessage{EventID: message.EventID}
	}
	r.logger.Error("Failed to create outbox message",
		"event_id", message.EventID.String(),
		"event_type", string(message.EventType),
		"booking_id", message.AggregateID,
		"error", err,
	)
	return fmt.Errorf("failed to create outbox message: %w", err)
}

// GetPending returns up to limit pending messages in the order they were written.
func (r *OutboxRepository) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	rows, err := r.querier.Query(ctx, outboxSelect+`
		WHERE status = $1
		ORDER BY created_at ASC, id ASC
		LIMIT $2`, shared.OutboxStatusPending, limit)
	if err != nil {
		r.logger.Error("Failed to get pending outbox messages", "error", err)
		return nil, fmt.Errorf("failed to get pending outbox messages: %w", err)
	}
	defer rows.Close()

	var messages []*outbox.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan outbox message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over outbox messages: %w", err)
	}
	return messages, nil
}

// UpdateStatus sets the status and stamps the attempt time.
func (r *OutboxRepository) UpdateStatus(ctx context.Context, id int64, status shared.OutboxStatus) error {
	result, err := r.querier.Exec(ctx,
		`UPDATE booking_outbox SET status = $1, last_attempt_at = $2 WHERE id = $3`,
		status, time.Now(), id)
	if err != nil {
		r.logger.Error("Failed to update outbox message status", "id", id, "status", string(status), "error", err)
		return fmt.Errorf("failed to update outbox message status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return outbox.ErrMessageNotFound{ID: id}
	}
	return nil
}

func (r *OutboxRepository) IncrementAttempts(ctx context.Context, id int64) error {
	result, err := r.querier.Exec(ctx,
		`UPDATE booking_outbox SET attempts = attempts + 1, last_attempt_at = $1 WHERE id = $2`,
		time.Now(), id)
	if err != nil {
		r.logger.Error("Failed to increment outbox message attempts", "id", id, "error", err)
		return fmt.Errorf("failed to increment outbox message attempts: %w", err)
	}
	if result.RowsAffected() == 0 {
		return outbox.ErrMessageNotFound{ID: id}
	}
	return nil
}

func (r *OutboxRepository) GetByEventID(ctx context.Context, eventID uuid.UUID) (*outbox.Message, error) {
	m, err := scanMessage(r.querier.QueryRow(ctx, outboxSelect+` WHERE event_id = $1`, eventID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, outbox.ErrMessageNotFound{}
		}
		return nil, fmt.Errorf("failed to get outbox message by event ID: %w", err)
	}
	return m, nil
}

// Requeue gives parked messages another attempt budget. Journal writes are
// idempotent on event id, so a message that was journaled before it got
// parked is not duplicated.
func (r *OutboxRepository) Requeue(ctx context.Context) (int64, error) {
	result, err := r.querier.Exec(ctx,
		`UPDATE booking_outbox SET status = $1, attempts = 0 WHERE status = $2`,
		shared.OutboxStatusPending, shared.OutboxStatusFailedToPublish)
	if err != nil {
		return 0, fmt.Errorf("failed to requeue parked outbox messages: %w", err)
	}
	n := result.RowsAffected()
	r.logger.Info("Requeued parked outbox messages", "count", n)
	return n, nil
}

// CountByStatus returns the number of messages per status. Statuses with no
// messages are absent.
func (r *OutboxRepository) CountByStatus(ctx context.Context) (map[shared.OutboxStatus]int64, error) {
	rows, err := r.querier.Query(ctx, `SELECT status, COUNT(*) FROM booking_outbox GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count outbox messages: %w", err)
	}
	defer rows.Close()

	counts := make(map[shared.OutboxStatus]int64)
	for rows.Next() {
		var status shared.OutboxStatus
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan outbox count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}
