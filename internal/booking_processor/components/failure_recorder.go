package components

import (
	"context"
	"log/slog"

	"github.com/freight-commission-ledger/internal/booking_processor/service"
	"github.com/freight-commission-ledger/internal/domain/document"
	"github.com/freight-commission-ledger/internal/domain/shared"
	"github.com/jackc/pgx/v5"
)

type FailureRecorderImpl struct {
	documentRepo document.Repository
	events       service.EventRecorder
	logger       *slog.Logger
}

func NewFailureRecorder(documentRepo document.Repository, events service.EventRecorder, logger *slog.Logger) service.FailureRecorder {
	return &FailureRecorderImpl{
		documentRepo: documentRepo,
		events:       events,
		logger:       logger,
	}
}

type extractionFailedPayload struct {
	Filename     string           `json:"filename"`
	ErrorType    shared.ErrorType `json:"error_type"`
	ErrorMessage string           `json:"error_message"`
	CanRetry     bool             `json:"can_retry"`
}

// RecordFailure moves doc to ERROR and writes an ExtractionFailed event. doc
// must have been loaded for update in tx.
func (r *FailureRecorderImpl) RecordFailure(ctx context.Context, tx pgx.Tx, doc *document.Document, errType shared.ErrorType, message string) error {
	logger := r.logger.With("document_id", doc.ID.String())
	if id := shared.CorrelationID(ctx); id != "" {
		logger = logger.With("correlation_id", id)
	}

	if err := doc.MarkFailed(shared.ParseErrorType(string(errType)), message); err != nil {
		logger.Warn("Refusing to fail document", "status", string(doc.Status), "error", err)
		return err
	}

	if err := r.documentRepo.WithTx(tx).Update(ctx, doc); err != nil {
		logger.Error("Failed to store document failure", "error", err)
		return err
	}

	payload := extractionFailedPayload{
		Filename:     doc.Filename,
		ErrorType:    *doc.ErrorType,
		ErrorMessage: message,
		CanRetry:     doc.CanRetry(),
	}
	if err := r.events.Record(ctx, tx, shared.EventExtractionFailed, "", &doc.ID, payload); err != nil {
		return err
	}

	logger.Info("Recorded document failure", "error_type", string(*doc.ErrorType), "can_retry", payload.CanRetry)
	return nil
}
