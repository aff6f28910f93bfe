// Package cli implements ledgerctl, the operator command line for exports,
// bulk recalculation and manual document intake.
package cli

import (
	"context"
	"errors"

	"github.com/freight-commission-ledger/internal/booking_processor/service"
	"github.com/freight-commission-ledger/internal/domain/outbox"
	"github.com/freight-commission-ledger/internal/platform/messaging/producers"
	"github.com/spf13/cobra"
)

var version = "dev"

// Env is what the commands run against. Close releases every connection.
type Env struct {
	Reports      service.ReportService
	Company      service.CompanyService
	Recalculator service.Recalculator
	Outbox       outbox.Repository
	// NewIntakePublisher connects to the document intake topic on demand, so
	// commands that never publish do not need a reachable broker.
	NewIntakePublisher func(ctx context.Context) (producers.MessagePublisher, error)
	Close              func()
}

// Opener builds an Env from the named config file.
type Opener func(ctx context.Context, configName string) (*Env, error)

type app struct {
	open       Opener
	configName string
}

// NewRootCommand assembles ledgerctl. Each subcommand opens its own Env.
func NewRootCommand(open Opener) *cobra.Command {
	a := &app{open: open}

	root := &cobra.Command{
		Use:   "ledgerctl",
		Short: "Operate the freight commission ledger",
		Long: `ledgerctl works directly against the ledger database.

It exports the commission report, reapplies the commission rate to every
booking, feeds PDF files into the document intake topic and inspects the
booking event outbox.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&a.configName, "config", "ledgerctl", "config file name, without the .env suffix")

	root.AddCommand(
		newReportCommand(a),
		newRecalculateCommand(a),
		newIngestCommand(a),
		newBookingPDFCommand(a),
		newOutboxCommand(a),
	)
	return root
}

// withEnv opens the Env for one command run and always closes it.
func (a *app) withEnv(ctx context.Context, fn func(env *Env) error) error {
	if a.open == nil {
		return errors.New("no environment opener configured")
	}
	env, err := a.open(ctx, a.configName)
	if err != nil {
		return err
	}
	if env.Close != nil {
		defer env.Close()
	}
	return fn(env)
}
