package handler

import (
	"log/slog"

	"github.com/freight-commission-ledger/internal/booking_processor/service"
	"github.com/gin-gonic/gin"
)

// CompanyHandler exposes the company settings.
type CompanyHandler struct {
	companyService service.CompanyService
	logger         *slog.Logger
}

func NewCompanyHandler(logger *slog.Logger, companyService service.CompanyService) *CompanyHandler {
	return &CompanyHandler{companyService: companyService, logger: logger}
}

func (h *CompanyHandler) Get(c *gin.Context) {
	co, err := h.companyService.Get(c.Request.Context())
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	RespondOK(c, co)
}

// Update stores the settings. A changed commission rate is reapplied to every
// booking and the outcome is returned alongside the company.
func (h *CompanyHandler) Update(c *gin.Context) {
	var req CompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.companyService.Update(c.Request.Context(), service.CompanyUpdate{
		Name:           req.Name,
		TaxID:          req.TaxID,
		CommissionRate: *req.CommissionRate,
	})
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	if result.Recalculation != nil && len(result.Recalculation.Failed) > 0 {
		h.logger.Warn("Commission recalculation left bookings behind", "failed", result.Recalculation.Failed)
	}
	RespondOK(c, result)
}
