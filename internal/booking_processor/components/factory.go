package components

import (
	"fmt"
	"log/slog"

	"github.com/freight-commission-ledger/internal/booking_processor/service"
	"github.com/freight-commission-ledger/internal/config"
	"github.com/freight-commission-ledger/internal/domain/booking"
	"github.com/freight-commission-ledger/internal/domain/company"
	"github.com/freight-commission-ledger/internal/domain/document"
	"github.com/freight-commission-ledger/internal/domain/extraction"
	"github.com/freight-commission-ledger/internal/domain/invoice"
	"github.com/freight-commission-ledger/internal/domain/journal"
	"github.com/freight-commission-ledger/internal/domain/outbox"
	"github.com/freight-commission-ledger/internal/domain/party"
	"github.com/freight-commission-ledger/internal/platform/persistence"
)

// Repositories groups the stores the services are built on. Journal may be
// nil for processes that never read booking history.
type Repositories struct {
	Booking  booking.Repository
	Company  company.Repository
	Document document.Repository
	Invoice  invoice.Repository
	Party    party.Repository
	Outbox   outbox.Repository
	Journal  journal.Repository
}

// Services is everything the gateway, the worker and the CLI call into.
type Services struct {
	Confirmation  service.ConfirmationService
	Documents     service.DocumentService
	Bookings      service.BookingService
	Company       service.CompanyService
	Reports       service.ReportService
	Invoices      service.InvoiceService
	Recalculation *service.RecalculationPool
}

// CreateServices wires the components and services with all their dependencies.
func CreateServices(
	txExecutor persistence.TxExecutor,
	repos Repositories,
	logger *slog.Logger,
	cfg *config.Config,
) (*Services, error) {
	events := NewEventRecorder(repos.Outbox, logger.With("component", "event_recorder"))
	updater := NewBookingUpdater(repos.Booking, logger.With("component", "booking_updater"))
	failureRecorder := NewFailureRecorder(repos.Document, events, logger.With("component", "failure_recorder"))
	defaultRate := cfg.Company.DefaultCommissionRate

	recalculation, err := service.NewRecalculationPool(
		txExecutor,
		repos.Booking,
		updater,
		events,
		service.WorkerPoolConfig{Size: cfg.WorkerPool.Size},
		logger.With("component", "worker_pool"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create recalculation worker pool: %w", err)
	}
	logger.Info("Created recalculation worker pool", "pool_size", cfg.WorkerPool.Size)

	return &Services{
		Confirmation: service.NewConfirmationService(service.ConfirmationDeps{
			TxExecutor:   txExecutor,
			CompanyRepo:  repos.Company,
			DocumentRepo: repos.Document,
			PartyRepo:    repos.Party,
			InvoiceRepo:  repos.Invoice,
			Updater:      updater,
			Events:       events,
		}, extraction.Options{
			ConfidenceThreshold: cfg.Extraction.ConfidenceThreshold,
			ChargeTolerance:     cfg.Extraction.ChargeTolerance,
		}, defaultRate, logger.With("component", "confirmation")),
		Documents: service.NewDocumentService(txExecutor, repos.Document, events, failureRecorder,
			logger.With("component", "documents")),
		Bookings: service.NewBookingService(service.BookingDeps{
			TxExecutor:  txExecutor,
			BookingRepo: repos.Booking,
			CompanyRepo: repos.Company,
			JournalRepo: repos.Journal,
			Updater:     updater,
			Events:      events,
		}, defaultRate, logger.With("component", "bookings")),
		Company:       service.NewCompanyService(repos.Company, recalculation, defaultRate, logger.With("component", "company")),
		Reports:       service.NewReportService(repos.Booking, logger.With("component", "reports")),
		Invoices:      service.NewInvoiceService(repos.Invoice, repos.Party, logger.With("component", "invoices")),
		Recalculation: recalculation,
	}, nil
}

// Shutdown releases the worker pool.
func (s *Services) Shutdown() {
	if s.Recalculation != nil {
		s.Recalculation.Shutdown()
	}
}
