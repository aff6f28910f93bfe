package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/freight-commission-ledger/internal/booking_processor/service"
	"github.com/freight-commission-ledger/internal/domain/document"
	"github.com/freight-commission-ledger/internal/domain/shared"
	"github.com/freight-commission-ledger/internal/platform/messaging/producers"
)

// DocumentIntakeHandler registers documents published by the email fetcher.
type DocumentIntakeHandler struct {
	documentService service.DocumentService
	producer        producers.DeadLetterPublisher
	logger          *slog.Logger
}

func NewDocumentIntakeHandler(
	logger *slog.Logger,
	documentService service.DocumentService,
	producer producers.DeadLetterPublisher,
) *DocumentIntakeHandler {
	return &DocumentIntakeHandler{
		documentService: documentService,
		producer:        producer,
		logger:          logger,
	}
}

// HandleMessage registers one attachment. Messages that can never succeed go
// to the DLQ and are acknowledged; storage failures are returned so the
// consumer retries without committing the offset.
func (h *DocumentIntakeHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	msg, err := document.DecodeIntake(value)
	if err != nil {
		return h.deadLetter(ctx, key, value, "Failed to decode document intake message", err)
	}

	logger := h.logger.With("filename", msg.Filename, "message_key", string(key))
	ctx = shared.WithCorrelationID(ctx, string(key))

	doc, err := h.documentService.Register(ctx, service.RegisterRequest{
		Filename:      msg.Filename,
		Content:       msg.Content,
		Source:        shared.DocumentSourceEmail,
		EmailMetadata: msg.EmailMetadata,
	})
	if err != nil {
		if errors.Is(err, shared.ErrValidation) {
			return h.deadLetter(ctx, key, value, "Document intake message rejected", err)
		}
		logger.Error("Failed to register document from email", "error", err)
		return fmt.Errorf("registering %s failed: %w", msg.Filename, err)
	}

	if doc == nil {
		logger.Info("Duplicate email document ignored")
		return nil
	}
	logger.Info("Registered document from email", "document_id", doc.ID.String())
	return nil
}

func (h *DocumentIntakeHandler) deadLetter(ctx context.Context, key, value []byte, reason string, cause error) error {
	h.logger.Error(reason, "error", cause, "message_key", string(key))

	if h.producer != nil {
		dlqReason := fmt.Sprintf("%s: %s", reason, cause.Error())
		if dlqErr := h.producer.PublishToDLQ(ctx, string(key), value, dlqReason); dlqErr != nil {
			h.logger.Error("Failed to publish message to DLQ",
				"dlq_error", dlqErr,
				"original_error", cause,
				"message_key", string(key),
			)
		} else {
			h.logger.Info("Successfully published unprocessable message to DLQ", "message_key", string(key), "reason", dlqReason)
			return nil
		}
	}
	return fmt.Errorf("%s: %w", reason, cause)
}
