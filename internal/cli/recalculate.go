package cli

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func newRecalculateCommand(a *app) *cobra.Command {
	var rate string
	cmd := &cobra.Command{
		Use:   "recalculate",
		Short: "Reapply a commission rate to every booking",
		Long: `Recomputes totals and commission for every booking.

Without --rate the company's configured rate is used, which repairs bookings
left behind by an interrupted rate change. Bookings already at the rate are
left untouched.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withEnv(cmd.Context(), func(env *Env) error {
				target, err := resolveRate(cmd, env, rate)
				if err != nil {
					return err
				}
				result, err := env.Recalculator.RecalculateAll(cmd.Context(), target)
				if err != nil {
					return fmt.Errorf("recalculation failed: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "rate %s: %d bookings, %d updated, %d failed\n",
					target.String(), result.Total, result.Updated, len(result.Failed))
				for _, id := range result.Failed {
					fmt.Fprintf(cmd.OutOrStdout(), "  failed: %s\n", id)
				}
				if len(result.Failed) > 0 {
					return fmt.Errorf("%d bookings were not recalculated", len(result.Failed))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&rate, "rate", "", "commission rate between 0 and 1; defaults to the configured company rate")
	return cmd
}

func resolveRate(cmd *cobra.Command, env *Env, raw string) (decimal.Decimal, error) {
	if raw == "" {
		co, err := env.Company.Get(cmd.Context())
		if err != nil {
			return decimal.Zero, fmt.Errorf("reading company rate: %w", err)
		}
		return co.CommissionRate, nil
	}
	rate, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("--rate: %w", err)
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.Zero, fmt.Errorf("--rate must be between 0 and 1, got %s", raw)
	}
	return rate, nil
}
