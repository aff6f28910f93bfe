package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/freight-commission-ledger/internal/booking_processor/components"
	"github.com/freight-commission-ledger/internal/cli"
	"github.com/freight-commission-ledger/internal/config"
	"github.com/freight-commission-ledger/internal/data/postgres"
	"github.com/freight-commission-ledger/internal/logger"
	"github.com/freight-commission-ledger/internal/platform/messaging/producers"
	"github.com/freight-commission-ledger/internal/platform/persistence"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCommand(openEnv).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// openEnv connects to PostgreSQL only. Booking history lives in the journal,
// which no ledgerctl command reads.
func openEnv(ctx context.Context, configName string) (*cli.Env, error) {
	cfg, err := config.LoadConfig(configName)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	log := logger.NewLoggerTo(cfg, os.Stderr)

	postgresDB, err := persistence.NewPostgresDB(ctx, log, &cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}

	repos := components.Repositories{
		Booking:  postgres.NewBookingRepository(log, postgresDB),
		Company:  postgres.NewCompanyRepository(log, postgresDB),
		Document: postgres.NewDocumentRepository(log, postgresDB),
		Invoice:  postgres.NewInvoiceRepository(log, postgresDB),
		Party:    postgres.NewPartyRepository(log, postgresDB),
		Outbox:   postgres.NewOutboxRepository(log, postgresDB),
	}
	services, err := components.CreateServices(postgresDB, repos, log, cfg)
	if err != nil {
		postgresDB.Close()
		return nil, err
	}

	return &cli.Env{
		Reports:      services.Reports,
		Company:      services.Company,
		Recalculator: services.Recalculation,
		Outbox:       repos.Outbox,
		NewIntakePublisher: func(ctx context.Context) (producers.MessagePublisher, error) {
			return producers.NewTopicProducer(ctx, log, &cfg.Kafka, cfg.Kafka.DocumentIntakeTopic)
		},
		Close: func() {
			services.Shutdown()
			postgresDB.Close()
		},
	}, nil
}
