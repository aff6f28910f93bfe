package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/freight-commission-ledger/internal/booking_processor/service"
	"github.com/freight-commission-ledger/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// DocumentHandler handles HTTP requests for the document lifecycle
type DocumentHandler struct {
	documentService     service.DocumentService
	confirmationService service.ConfirmationService
	maxUploadBytes      int64
	logger              *slog.Logger
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(
	logger *slog.Logger,
	documentService service.DocumentService,
	confirmationService service.ConfirmationService,
	maxUploadBytes int64,
) *DocumentHandler {
	return &DocumentHandler{
		documentService:     documentService,
		confirmationService: confirmationService,
		maxUploadBytes:      maxUploadBytes,
		logger:              logger,
	}
}

// Upload registers a manually uploaded file sent as multipart field "file".
func (h *DocumentHandler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			RespondWithError(c, http.StatusRequestEntityTooLarge, string(shared.ErrorTypeFileTooLarge),
				"file exceeds the upload limit of "+strconv.FormatInt(h.maxUploadBytes, 10)+" bytes")
			return
		}
		h.logger.Error("Invalid upload", "error", err)
		RespondBadRequest(c, "A file must be sent in the multipart field \"file\"")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.logger.Error("Failed to open uploaded file", "filename", fileHeader.Filename, "error", err)
		RespondInternalError(c)
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		h.logger.Error("Failed to read uploaded file", "filename", fileHeader.Filename, "error", err)
		RespondInternalError(c)
		return
	}

	doc, err := h.documentService.Register(c.Request.Context(), service.RegisterRequest{
		Filename: fileHeader.Filename,
		Content:  content,
		Source:   shared.DocumentSourceManual,
	})
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	RespondCreated(c, doc)
}

// List returns documents newest first, optionally filtered by status.
func (h *DocumentHandler) List(c *gin.Context) {
	var params DocumentListParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	var status *shared.ProcessingStatus
	if params.Status != "" {
		s := shared.ProcessingStatus(params.Status)
		status = &s
	}

	docs, err := h.documentService.List(c.Request.Context(), status, params.PerPage, params.offset())
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	response := NewResponse(docs)
	response.Meta = &MetaInfo{Page: params.Page, PerPage: params.PerPage}
	respond(c, http.StatusOK, response)
}

func (h *DocumentHandler) Get(c *gin.Context) {
	id, ok := h.documentID(c)
	if !ok {
		return
	}
	doc, err := h.documentService.Get(c.Request.Context(), id)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	RespondOK(c, doc)
}

// StartProcessing moves a document to PROCESSING before extraction. Passing
// reprocess=true reopens a processed document.
func (h *DocumentHandler) StartProcessing(c *gin.Context) {
	id, ok := h.documentID(c)
	if !ok {
		return
	}
	reprocess, err := strconv.ParseBool(c.DefaultQuery("reprocess", "false"))
	if err != nil {
		RespondBadRequest(c, "reprocess must be a boolean")
		return
	}

	doc, err := h.documentService.StartProcessing(c.Request.Context(), id, reprocess)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	RespondOK(c, doc)
}

// Fail records an extraction failure reported by the extractor.
func (h *DocumentHandler) Fail(c *gin.Context) {
	id, ok := h.documentID(c)
	if !ok {
		return
	}
	var req FailDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	doc, err := h.documentService.MarkFailed(c.Request.Context(), id, shared.ParseErrorType(req.ErrorType), req.ErrorMessage)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	RespondOK(c, doc)
}

// Confirm applies the reviewed extraction to the bookings it references.
func (h *DocumentHandler) Confirm(c *gin.Context) {
	id, ok := h.documentID(c)
	if !ok {
		return
	}
	var req ConfirmDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	confirm := service.ConfirmRequest{DocumentID: id, Extraction: req.Extraction}
	if req.DocumentType != "" {
		docType, ok := shared.ParseDocumentType(req.DocumentType)
		if !ok {
			RespondBadRequest(c, "document_type must be CLIENT_INVOICE, PROVIDER_INVOICE or OTHER")
			return
		}
		confirm.DocumentType = &docType
	}

	result, err := h.confirmationService.Confirm(c.Request.Context(), confirm)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	RespondWithWarnings(c, http.StatusOK, result, result.Warnings)
}

func (h *DocumentHandler) documentID(c *gin.Context) (uuid.UUID, bool) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Warn("Invalid document ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid document ID")
		return uuid.Nil, false
	}
	return id, true
}
