package api_gateway

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/freight-commission-ledger/internal/api_gateway/handler"
	"github.com/freight-commission-ledger/internal/api_gateway/middleware"
	"github.com/gin-gonic/gin"
)

type routeHandlers struct {
	documents *handler.DocumentHandler
	bookings  *handler.BookingHandler
	company   *handler.CompanyHandler
	reports   *handler.ReportHandler
	invoices  *handler.InvoiceHandler
}

// setupRouter configures API routes and middleware for the application
func setupRouter(logger *slog.Logger, r *gin.Engine, h routeHandlers, health Pinger) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Logger(logger))

	v1 := r.Group("/api/v1")
	{
		documents := v1.Group("/documents")
		{
			documents.POST("", h.documents.Upload)
			documents.GET("", h.documents.List)
			documents.GET("/:id", h.documents.Get)
			documents.POST("/:id/processing", h.documents.StartProcessing)
			documents.POST("/:id/failure", h.documents.Fail)
			documents.POST("/:id/confirm", h.documents.Confirm)
		}

		bookings := v1.Group("/bookings")
		{
			bookings.GET("/:id", h.bookings.Get)
			bookings.PATCH("/:id", h.bookings.EditDetails)
			bookings.GET("/:id/tax-allocations", h.bookings.TaxAllocations)
			bookings.PATCH("/:id/charges/:chargeId", h.bookings.EditCharge)
			bookings.POST("/:id/complete", h.bookings.Complete)
			bookings.POST("/:id/revert", h.bookings.Revert)
			bookings.GET("/:id/history", h.bookings.History)
			bookings.GET("/:id/pdf", h.bookings.PDF)
		}

		invoices := v1.Group("/invoices")
		{
			invoices.GET("", h.invoices.List)
			invoices.GET("/:id", h.invoices.Get)
		}

		v1.GET("/company", h.company.Get)
		v1.PUT("/company", h.company.Update)

		reports := v1.Group("/reports")
		{
			reports.GET("/commissions", h.reports.Commissions)
			reports.GET("/commissions.csv", h.reports.CommissionsCSV)
		}
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		status, code := "ok", http.StatusOK
		if health != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := health.Ping(ctx); err != nil {
				logger.Warn("Health check failed", "error", err)
				status, code = "degraded", http.StatusServiceUnavailable
			}
		}
		c.JSON(code, gin.H{"status": status, "timestamp": time.Now().UTC()})
	})
}
