package handler

import (
	"bytes"
	"log/slog"
	"net/http"
	"time"

	"github.com/freight-commission-ledger/internal/booking_processor/service"
	"github.com/gin-gonic/gin"
)

// ReportHandler serves the commission report.
type ReportHandler struct {
	reportService service.ReportService
	logger        *slog.Logger
}

func NewReportHandler(logger *slog.Logger, reportService service.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService, logger: logger}
}

func (h *ReportHandler) Commissions(c *gin.Context) {
	var params ReportQueryParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}
	q, err := params.toQuery()
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	rep, err := h.reportService.Build(c.Request.Context(), q)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	RespondOK(c, rep)
}

// CommissionsCSV exports the same report as a CSV attachment.
func (h *ReportHandler) CommissionsCSV(c *gin.Context) {
	var params ReportQueryParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}
	q, err := params.toQuery()
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	var buf bytes.Buffer
	if err := h.reportService.WriteCSV(c.Request.Context(), &buf, q); err != nil {
		RespondError(c, h.logger, err)
		return
	}
	filename := "commissions-" + time.Now().UTC().Format("20060102") + ".csv"
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}
