package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/freight-commission-ledger/internal/domain/document"
	"github.com/freight-commission-ledger/internal/domain/shared"
	"github.com/freight-commission-ledger/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const documentFileHashConstraint = "documents_file_hash_key"

// DocumentRepository implements document.Repository for PostgreSQL
type DocumentRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewDocumentRepository(logger *slog.Logger, db *persistence.PostgresDB) document.Repository {
	return &DocumentRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *DocumentRepository) WithTx(tx pgx.Tx) document.Repository {
	return &DocumentRepository{
		querier: tx,
		logger:  r.logger,
	}
}

const documentColumns = `id, file_hash, filename, source, status, document_type, invoice_id,
		error_type, error_message, email_metadata, created_at, processed_at`

// Create inserts a new document. A second document with the same file hash is
// reported as a DUPLICATE_DOCUMENT conflict.
func (r *DocumentRepository) Create(ctx context.Context, d *document.Document) error {
	query := `
		INSERT INTO documents (` + documentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.querier.Exec(ctx, query,
		d.ID,
		d.FileHash,
		d.Filename,
		d.Source,
		d.Status,
		d.DocumentType,
		d.InvoiceID,
		d.ErrorType,
		d.ErrorMessage,
		nullJSON(d.EmailMetadata),
		d.CreatedAt,
		d.ProcessedAt,
	)
	if err != nil {
		if persistence.IsUniqueViolation(err, documentFileHashConstraint) {
			return shared.Conflict(shared.CodeDuplicateDocument, "a document with the same content was already uploaded")
		}
		r.logger.Error("Failed to create document", "document_id", d.ID.String(), "error", err)
		return fmt.Errorf("failed to create document: %w", err)
	}
	return nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id uuid.UUID) (*document.Document, error) {
	return r.get(ctx, id, false)
}

// GetForUpdate row-locks the document for the rest of the transaction.
func (r *DocumentRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*document.Document, error) {
	return r.get(ctx, id, true)
}

func (r *DocumentRepository) get(ctx context.Context, id uuid.UUID, forUpdate bool) (*document.Document, error) {
	query := `SELECT ` + documentColumns + `
		FROM documents
		WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	d, err := scanDocument(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, document.ErrDocumentNotFound
		}
		r.logger.Error("Failed to get document", "document_id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return d, nil
}

func scanDocument(row pgx.Row) (*document.Document, error) {
	var (
		d            document.Document
		documentType *string
		errorType    *string
	)
	err := row.Scan(
		&d.ID,
		&d.FileHash,
		&d.Filename,
		&d.Source,
		&d.Status,
		&documentType,
		&d.InvoiceID,
		&errorType,
		&d.ErrorMessage,
		&d.EmailMetadata,
		&d.CreatedAt,
		&d.ProcessedAt,
	)
	if err != nil {
		return nil, err
	}
	if documentType != nil {
		t := shared.DocumentType(*documentType)
		d.DocumentType = &t
	}
	if errorType != nil {
		e := shared.ParseErrorType(*errorType)
		d.ErrorType = &e
	}
	return &d, nil
}

// Update writes the lifecycle fields of a document.
func (r *DocumentRepository) Update(ctx context.Context, d *document.Document) error {
	query := `
		UPDATE documents
		SET status = $2, document_type = $3, invoice_id = $4, error_type = $5, error_message = $6, processed_at = $7
		WHERE id = $1
	`

	result, err := r.querier.Exec(ctx, query,
		d.ID,
		d.Status,
		d.DocumentType,
		d.InvoiceID,
		d.ErrorType,
		d.ErrorMessage,
		d.ProcessedAt,
	)
	if err != nil {
		r.logger.Error("Failed to update document", "document_id", d.ID.String(), "error", err)
		return fmt.Errorf("failed to update document: %w", err)
	}
	if result.RowsAffected() == 0 {
		return document.ErrDocumentNotFound
	}
	return nil
}

// IsFileHashKnown reports whether any document, in any status, has this hash.
func (r *DocumentRepository) IsFileHashKnown(ctx context.Context, hash string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM documents WHERE file_hash = $1)`

	var known bool
	if err := r.querier.QueryRow(ctx, query, hash).Scan(&known); err != nil {
		r.logger.Error("Failed to check file hash", "error", err)
		return false, fmt.Errorf("failed to check file hash: %w", err)
	}
	return known, nil
}

// List returns documents newest first, optionally restricted to one status.
func (r *DocumentRepository) List(ctx context.Context, status *shared.ProcessingStatus, limit, offset int) ([]*document.Document, error) {
	query := `SELECT ` + documentColumns + `
		FROM documents
		WHERE ($1::text IS NULL OR status = $1)
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`

	var statusArg *string
	if status != nil {
		s := string(*status)
		statusArg = &s
	}

	rows, err := r.querier.Query(ctx, query, statusArg, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list documents", "error", err)
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	documents := []*document.Document{}
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			r.logger.Error("Failed to scan document", "error", err)
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		documents = append(documents, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over documents: %w", err)
	}
	return documents, nil
}

// nullJSON stores an empty document as SQL NULL rather than invalid JSONB.
func nullJSON(raw []byte) []byte {
	if len(raw) == 0 {
		return nil
	}
	return raw
}
