// Package document tracks ingested source files through extraction and confirmation.
package document

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/freight-commission-ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var (
	ErrDocumentNotFound = shared.NotFound("document not found")
	ErrEmptyContent     = shared.Validation(shared.CodeRequiredField, "content", "document content is empty")
	ErrEmptyFilename    = shared.Validation(shared.CodeRequiredField, "filename", "filename is required")
)

// TransitionError reports a lifecycle move that is not allowed from the current status.
type TransitionError struct {
	From   shared.ProcessingStatus
	Action string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s a document in status %s", e.Action, e.From)
}

func (e *TransitionError) Is(target error) bool {
	return (&shared.Error{Kind: shared.KindValidation, Code: shared.CodeInvalidTransition}).Is(target)
}

// HashContent returns the lowercase hex SHA-256 of the raw file bytes.
func HashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// Document is one source file. FileHash identifies its content regardless of
// filename or extraction outcome.
type Document struct {
	ID            uuid.UUID               `json:"id"`
	FileHash      string                  `json:"file_hash"`
	Filename      string                  `json:"filename"`
	Source        shared.DocumentSource   `json:"source"`
	Status        shared.ProcessingStatus `json:"status"`
	DocumentType  *shared.DocumentType    `json:"document_type,omitempty"`
	InvoiceID     *uuid.UUID              `json:"invoice_id,omitempty"`
	ErrorType     *shared.ErrorType       `json:"error_type,omitempty"`
	ErrorMessage  string                  `json:"error_message,omitempty"`
	EmailMetadata json.RawMessage         `json:"email_metadata,omitempty"`
	CreatedAt     time.Time               `json:"created_at"`
	ProcessedAt   *time.Time              `json:"processed_at,omitempty"`
}

// New hashes content and returns a PENDING document.
func New(filename string, content []byte, source shared.DocumentSource, emailMetadata json.RawMessage) (*Document, error) {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return nil, ErrEmptyFilename
	}
	if len(content) == 0 {
		return nil, ErrEmptyContent
	}
	return &Document{
		ID:            uuid.New(),
		FileHash:      HashContent(content),
		Filename:      filename,
		Source:        source,
		Status:        shared.ProcessingStatusPending,
		EmailMetadata: emailMetadata,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

// StartProcessing moves the document to PROCESSING. PENDING and ERROR documents
// may always start; PROCESSED ones only when reprocess is requested.
func (d *Document) StartProcessing(reprocess bool) error {
	switch d.Status {
	case shared.ProcessingStatusPending, shared.ProcessingStatusError:
	case shared.ProcessingStatusProcessed:
		if !reprocess {
			return &TransitionError{From: d.Status, Action: "start processing"}
		}
	default:
		return &TransitionError{From: d.Status, Action: "start processing"}
	}
	d.Status = shared.ProcessingStatusProcessing
	d.ErrorType = nil
	d.ErrorMessage = ""
	return nil
}

// CanConfirm reports whether an extraction for this document may be confirmed.
func (d *Document) CanConfirm() error {
	switch d.Status {
	case shared.ProcessingStatusPending, shared.ProcessingStatusProcessing, shared.ProcessingStatusError:
		return nil
	}
	return &TransitionError{From: d.Status, Action: "confirm"}
}

// MarkProcessed records the reviewed type and, for invoices, the created invoice.
func (d *Document) MarkProcessed(docType shared.DocumentType, invoiceID *uuid.UUID, at time.Time) {
	d.Status = shared.ProcessingStatusProcessed
	d.DocumentType = &docType
	d.InvoiceID = invoiceID
	d.ErrorType = nil
	d.ErrorMessage = ""
	d.ProcessedAt = &at
}

// MarkFailed records an extraction or processing failure.
func (d *Document) MarkFailed(errType shared.ErrorType, message string) error {
	if d.Status == shared.ProcessingStatusProcessed {
		return &TransitionError{From: d.Status, Action: "fail"}
	}
	d.Status = shared.ProcessingStatusError
	d.ErrorType = &errType
	d.ErrorMessage = message
	return nil
}

// CanRetry is true for ERROR documents whose failure is transient.
func (d *Document) CanRetry() bool {
	return d.Status == shared.ProcessingStatusError && d.ErrorType != nil && d.ErrorType.Retryable()
}

// Repository persists documents. FileHash is unique across all statuses.
type Repository interface {
	Create(ctx context.Context, d *Document) error
	GetByID(ctx context.Context, id uuid.UUID) (*Document, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*Document, error)
	Update(ctx context.Context, d *Document) error
	IsFileHashKnown(ctx context.Context, hash string) (bool, error)
	List(ctx context.Context, status *shared.ProcessingStatus, limit, offset int) ([]*Document, error)
	WithTx(tx pgx.Tx) Repository
}
