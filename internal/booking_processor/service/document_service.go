package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/freight-commission-ledger/internal/domain/document"
	"github.com/freight-commission-ledger/internal/domain/shared"
	"github.com/freight-commission-ledger/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const maxDocumentPage = 200

// ErrDuplicateDocument is returned for a manual upload whose content was seen before.
var ErrDuplicateDocument = shared.Conflict(shared.CodeDuplicateDocument,
	"a document with the same content has already been registered")

type DocumentServiceImpl struct {
	txExecutor      persistence.TxExecutor
	documentRepo    document.Repository
	events          EventRecorder
	failureRecorder FailureRecorder
	logger          *slog.Logger
}

func NewDocumentService(
	txExecutor persistence.TxExecutor,
	documentRepo document.Repository,
	events EventRecorder,
	failureRecorder FailureRecorder,
	logger *slog.Logger,
) DocumentService {
	return &DocumentServiceImpl{
		txExecutor:      txExecutor,
		documentRepo:    documentRepo,
		events:          events,
		failureRecorder: failureRecorder,
		logger:          logger,
	}
}

type documentReceivedPayload struct {
	Filename string                `json:"filename"`
	FileHash string                `json:"file_hash"`
	Source   shared.DocumentSource `json:"source"`
}

// Register stores a new PENDING document. Content seen before is a conflict
// for manual uploads; for the email source it is only logged and Register
// returns a nil document without error.
func (s *DocumentServiceImpl) Register(ctx context.Context, req RegisterRequest) (*document.Document, error) {
	doc, err := document.New(req.Filename, req.Content, req.Source, req.EmailMetadata)
	if err != nil {
		return nil, err
	}
	logger := s.logger.With("filename", doc.Filename, "file_hash", doc.FileHash, "source", string(doc.Source))
	if id := shared.CorrelationID(ctx); id != "" {
		logger = logger.With("correlation_id", id)
	}

	known, err := s.documentRepo.IsFileHashKnown(ctx, doc.FileHash)
	if err != nil {
		return nil, err
	}
	if known {
		return s.duplicate(logger, doc)
	}

	err = s.txExecutor.ExecuteTx(ctx, func(tx pgx.Tx) error {
		if err := s.documentRepo.WithTx(tx).Create(ctx, doc); err != nil {
			return err
		}
		return s.events.Record(ctx, tx, shared.EventDocumentReceived, "", &doc.ID, documentReceivedPayload{
			Filename: doc.Filename,
			FileHash: doc.FileHash,
			Source:   doc.Source,
		})
	})
	if errors.Is(err, &shared.Error{Kind: shared.KindConflict, Code: shared.CodeDuplicateDocument}) {
		// Lost a race with a concurrent registration of the same bytes.
		return s.duplicate(logger, doc)
	}
	if err != nil {
		logger.Error("Failed to register document", "error", err)
		return nil, err
	}

	logger.Info("Document registered", "document_id", doc.ID.String())
	return doc, nil
}

func (s *DocumentServiceImpl) duplicate(logger *slog.Logger, doc *document.Document) (*document.Document, error) {
	if doc.Source == shared.DocumentSourceEmail {
		logger.Info("Skipping duplicate document from email")
		return nil, nil
	}
	logger.Info("Rejected duplicate document upload")
	return nil, ErrDuplicateDocument
}

func (s *DocumentServiceImpl) Get(ctx context.Context, id uuid.UUID) (*document.Document, error) {
	return s.documentRepo.GetByID(ctx, id)
}

// List pages through documents, newest first. The limit is clamped to [1, 200].
func (s *DocumentServiceImpl) List(ctx context.Context, status *shared.ProcessingStatus, limit, offset int) ([]*document.Document, error) {
	if limit <= 0 || limit > maxDocumentPage {
		limit = maxDocumentPage
	}
	if offset < 0 {
		offset = 0
	}
	return s.documentRepo.List(ctx, status, limit, offset)
}

// StartProcessing marks the document as being extracted.
func (s *DocumentServiceImpl) StartProcessing(ctx context.Context, id uuid.UUID, reprocess bool) (*document.Document, error) {
	var doc *document.Document
	err := s.txExecutor.ExecuteTx(ctx, func(tx pgx.Tx) error {
		repo := s.documentRepo.WithTx(tx)
		var err error
		if doc, err = repo.GetForUpdate(ctx, id); err != nil {
			return err
		}
		if err := doc.StartProcessing(reprocess); err != nil {
			return err
		}
		return repo.Update(ctx, doc)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Document processing started", "document_id", id.String(), "reprocess", reprocess)
	return doc, nil
}

// MarkFailed records an extraction failure reported by the extractor.
func (s *DocumentServiceImpl) MarkFailed(ctx context.Context, id uuid.UUID, errType shared.ErrorType, message string) (*document.Document, error) {
	var doc *document.Document
	err := s.txExecutor.ExecuteTx(ctx, func(tx pgx.Tx) error {
		var err error
		if doc, err = s.documentRepo.WithTx(tx).GetForUpdate(ctx, id); err != nil {
			return err
		}
		return s.failureRecorder.RecordFailure(ctx, tx, doc, errType, message)
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}
