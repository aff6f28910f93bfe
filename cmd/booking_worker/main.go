package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/freight-commission-ledger/internal/booking_processor/components"
	"github.com/freight-commission-ledger/internal/booking_processor/consumer"
	"github.com/freight-commission-ledger/internal/booking_processor/outbox_poller"
	"github.com/freight-commission-ledger/internal/config"
	"github.com/freight-commission-ledger/internal/data/mongo"
	"github.com/freight-commission-ledger/internal/data/postgres"
	"github.com/freight-commission-ledger/internal/logger"
	"github.com/freight-commission-ledger/internal/platform/messaging/consumers"
	"github.com/freight-commission-ledger/internal/platform/messaging/producers"
	"github.com/freight-commission-ledger/internal/platform/persistence"
)

func main() {
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("booking_worker")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)
	log.Info("Starting Booking Worker",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

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

	journalRepo := mongo.NewJournalRepository(log, mongoDB.Database(), cfg.MongoDB.JournalCollection)
	if err := journalRepo.EnsureIndexes(appCtx); err != nil {
		log.Error("Failed to ensure journal indexes", "error", err)
		os.Exit(1)
	}

	repos := components.Repositories{
		Booking:  postgres.NewBookingRepository(log, postgresDB),
		Company:  postgres.NewCompanyRepository(log, postgresDB),
		Document: postgres.NewDocumentRepository(log, postgresDB),
		Invoice:  postgres.NewInvoiceRepository(log, postgresDB),
		Party:    postgres.NewPartyRepository(log, postgresDB),
		Outbox:   postgres.NewOutboxRepository(log, postgresDB),
		Journal:  journalRepo,
	}

	services, err := components.CreateServices(postgresDB, repos, log, cfg)
	if err != nil {
		log.Error("Failed to create services", "error", err)
		os.Exit(1)
	}

	eventProducer, err := producers.NewBookingEventProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize booking events producer", "error", err)
		os.Exit(1)
	}

	// The DLQ is optional; a nil producer must not reach the handler as a typed nil.
	var deadLetters producers.DeadLetterPublisher
	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}
	if dlqProducer != nil {
		deadLetters = dlqProducer
	}

	intakeHandler := consumer.NewDocumentIntakeHandler(log.With("component", "document_intake"), services.Documents, deadLetters)
	kafkaConsumer := consumers.NewKafkaConsumer(appCtx, log, &cfg.Kafka, cfg.Kafka.DocumentIntakeTopic)
	if err := kafkaConsumer.Subscribe(appCtx, intakeHandler.HandleMessage); err != nil {
		log.Error("Failed to subscribe to document intake", "error", err)
		os.Exit(1)
	}

	publisher := outbox_poller.NewJournalPublisher(repos.Outbox, journalRepo, eventProducer, log.With("component", "journal_publisher"))
	poller := outbox_poller.NewPoller(&cfg.Outbox, repos.Outbox, publisher, log.With("component", "outbox_poller"))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		poller.Start(appCtx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	<-quit
	log.Info("Shutdown signal received")

	cancelAppCtx()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(wgChan)
	}()
	select {
	case <-wgChan:
		log.Info("Outbox poller stopped")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	failed := false
	if err := kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
		failed = true
	}
	if dlqProducer != nil {
		if err := dlqProducer.Close(); err != nil {
			log.Error("Error closing DLQ Kafka producer", "error", err)
			failed = true
		}
	}
	if err := eventProducer.Close(); err != nil {
		log.Error("Error closing booking events producer", "error", err)
		failed = true
	}

	services.Shutdown()
	postgresDB.Close()

	if err := mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
		failed = true
	}

	if failed {
		log.Error("Booking Worker shutdown completed with errors")
		os.Exit(1)
	}
	log.Info("Booking Worker shutdown completed successfully")
}
