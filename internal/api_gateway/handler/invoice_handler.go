package handler

import (
	"log/slog"
	"net/http"

	"github.com/freight-commission-ledger/internal/booking_processor/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// InvoiceHandler serves the confirmed client and provider invoices.
type InvoiceHandler struct {
	invoiceService service.InvoiceService
	logger         *slog.Logger
}

func NewInvoiceHandler(logger *slog.Logger, invoiceService service.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{invoiceService: invoiceService, logger: logger}
}

// List returns invoices newest first. Number and party match by substring.
func (h *InvoiceHandler) List(c *gin.Context) {
	var params InvoiceListParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}
	filter, err := params.toFilter()
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	items, err := h.invoiceService.List(c.Request.Context(), filter)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	response := NewResponse(items)
	response.Meta = &MetaInfo{Page: params.Page, PerPage: params.PerPage}
	respond(c, http.StatusOK, response)
}

// Get returns one invoice with its client or provider.
func (h *InvoiceHandler) Get(c *gin.Context) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Warn("Invalid invoice ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid invoice ID")
		return
	}
	detail, err := h.invoiceService.Get(c.Request.Context(), id)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	RespondOK(c, detail)
}
