package cli

import (
	"fmt"

	"github.com/freight-commission-ledger/internal/domain/shared"
	"github.com/spf13/cobra"
)

var outboxStatuses = []shared.OutboxStatus{
	shared.OutboxStatusPending,
	shared.OutboxStatusProcessed,
	shared.OutboxStatusFailedToPublish,
}

func newOutboxCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "outbox",
		Short: "Inspect and requeue booking events waiting for the journal",
	}
	cmd.AddCommand(newOutboxStatusCommand(a), newOutboxRequeueCommand(a))
	return cmd
}

func newOutboxStatusCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Count outbox events per status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withEnv(cmd.Context(), func(env *Env) error {
				counts, err := env.Outbox.CountByStatus(cmd.Context())
				if err != nil {
					return err
				}
				for _, status := range outboxStatuses {
					fmt.Fprintf(cmd.OutOrStdout(), "%-18s %d\n", status, counts[status])
				}
				return nil
			})
		},
	}
}

func newOutboxRequeueCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "requeue",
		Short: "Move parked events back to PENDING",
		Long: `Events that exhausted their publish attempts are parked as FAILED_TO_PUBLISH.
Once the journal is reachable again, requeue hands them back to the worker's
poller with a fresh attempt budget.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withEnv(cmd.Context(), func(env *Env) error {
				n, err := env.Outbox.Requeue(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "requeued %d events\n", n)
				return nil
			})
		},
	}
}
