package handler

import (
	"bytes"
	"log/slog"
	"net/http"

	"github.com/freight-commission-ledger/internal/booking_processor/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// BookingHandler handles HTTP requests for bookings
type BookingHandler struct {
	bookingService service.BookingService
	reportService  service.ReportService
	logger         *slog.Logger
}

// NewBookingHandler creates a new booking handler
func NewBookingHandler(logger *slog.Logger, bookingService service.BookingService, reportService service.ReportService) *BookingHandler {
	return &BookingHandler{
		bookingService: bookingService,
		reportService:  reportService,
		logger:         logger,
	}
}

func (h *BookingHandler) Get(c *gin.Context) {
	b, err := h.bookingService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	RespondOK(c, b)
}

// TaxAllocations returns the share of each invoice's tax attributed to the booking.
func (h *BookingHandler) TaxAllocations(c *gin.Context) {
	allocations, err := h.bookingService.TaxAllocations(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	RespondOK(c, allocations)
}

// EditCharge corrects one charge and recomputes the booking totals.
func (h *BookingHandler) EditCharge(c *gin.Context) {
	chargeParam := c.Param("chargeId")
	chargeID, err := uuid.Parse(chargeParam)
	if err != nil {
		h.logger.Warn("Invalid charge ID", "id", chargeParam, "error", err)
		RespondBadRequest(c, "Invalid charge ID")
		return
	}
	var req EditChargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	b, err := h.bookingService.EditCharge(c.Request.Context(), c.Param("id"), chargeID, req.toEdit())
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	RespondOK(c, b)
}

// EditDetails changes vessel, containers or ports.
func (h *BookingHandler) EditDetails(c *gin.Context) {
	var req EditDetailsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	b, err := h.bookingService.EditDetails(c.Request.Context(), c.Param("id"), req.toEdit())
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	RespondOK(c, b)
}

func (h *BookingHandler) Complete(c *gin.Context) {
	b, err := h.bookingService.MarkComplete(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	RespondOK(c, b)
}

func (h *BookingHandler) Revert(c *gin.Context) {
	b, err := h.bookingService.RevertToPending(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	RespondOK(c, b)
}

// History lists journaled events for the booking, newest first.
func (h *BookingHandler) History(c *gin.Context) {
	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		h.logger.Error("Invalid pagination parameters", "error", err)
		RespondBadRequest(c, "Invalid pagination parameters: "+err.Error())
		return
	}

	entries, total, err := h.bookingService.History(c.Request.Context(), c.Param("id"), pagination.PerPage, pagination.offset())
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	RespondWithPaginatedData(c, http.StatusOK, entries, pagination.Page, pagination.PerPage, int(total))
}

// PDF renders the booking summary. The document is buffered so a render
// failure can still produce a JSON error.
func (h *BookingHandler) PDF(c *gin.Context) {
	id := c.Param("id")
	var buf bytes.Buffer
	if err := h.reportService.WriteBookingPDF(c.Request.Context(), &buf, id); err != nil {
		RespondError(c, h.logger, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="booking-`+id+`.pdf"`)
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}
