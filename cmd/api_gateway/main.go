package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/freight-commission-ledger/internal/api_gateway"
	"github.com/freight-commission-ledger/internal/booking_processor/components"
	"github.com/freight-commission-ledger/internal/config"
	"github.com/freight-commission-ledger/internal/data/mongo"
	"github.com/freight-commission-ledger/internal/data/postgres"
	"github.com/freight-commission-ledger/internal/logger"
	"github.com/freight-commission-ledger/internal/platform/persistence"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("api_gateway")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	repos := components.Repositories{
		Booking:  postgres.NewBookingRepository(log, postgresDB),
		Company:  postgres.NewCompanyRepository(log, postgresDB),
		Document: postgres.NewDocumentRepository(log, postgresDB),
		Invoice:  postgres.NewInvoiceRepository(log, postgresDB),
		Party:    postgres.NewPartyRepository(log, postgresDB),
		Outbox:   postgres.NewOutboxRepository(log, postgresDB),
		Journal:  mongo.NewJournalRepository(log, mongoDB.Database(), cfg.MongoDB.JournalCollection),
	}

	services, err := components.CreateServices(postgresDB, repos, log, cfg)
	if err != nil {
		log.Error("Failed to create services", "error", err)
		os.Exit(1)
	}

	server := api_gateway.NewServer(log, cfg, api_gateway.Dependencies{
		Documents:    services.Documents,
		Confirmation: services.Confirmation,
		Bookings:     services.Bookings,
		Company:      services.Company,
		Reports:      services.Reports,
		Invoices:     services.Invoices,
		Health:       postgresDB,
	})
	log.Info("REST server initialized")

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	cancelAppCtx()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	// Stop accepting requests before the pools they use go away.
	var shutdownErr error
	if err := server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
		shutdownErr = err
	}

	services.Shutdown()
	postgresDB.Close()

	if err := mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
		shutdownErr = err
	}

	if serverErr != nil || shutdownErr != nil {
		log.Error("Server shutdown completed with errors")
		os.Exit(1)
	}
	log.Info("Server shutdown completed successfully")
}
