package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/freight-commission-ledger/internal/domain/report"
	"github.com/spf13/cobra"
)

type reportOptions struct {
	from, to    string
	status      string
	client      string
	reference   string
	invoiceType string
	sortBy      string
	order       string
	format      string
}

func newReportCommand(a *app) *cobra.Command {
	var opts reportOptions
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Export the commission report",
		Example: `  # All bookings as CSV
  ledgerctl report > commissions.csv

  # Pending bookings created in March, highest margin first
  ledgerctl report --status PENDING --from 2024-03-01 --to 2024-03-31 --sort margin --order desc --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := opts.query()
			if err != nil {
				return err
			}
			return a.withEnv(cmd.Context(), func(env *Env) error {
				switch opts.format {
				case "csv":
					return env.Reports.WriteCSV(cmd.Context(), cmd.OutOrStdout(), q)
				case "json":
					rep, err := env.Reports.Build(cmd.Context(), q)
					if err != nil {
						return err
					}
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(rep)
				default:
					return fmt.Errorf("unknown format %q, use csv or json", opts.format)
				}
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.from, "from", "", "first creation date to include (YYYY-MM-DD)")
	f.StringVar(&opts.to, "to", "", "last creation date to include (YYYY-MM-DD)")
	f.StringVar(&opts.status, "status", "", "PENDING or COMPLETE")
	f.StringVar(&opts.client, "client", "", "client name substring")
	f.StringVar(&opts.reference, "booking", "", "booking reference substring")
	f.StringVar(&opts.invoiceType, "type", "", "only bookings with CLIENT_INVOICE or PROVIDER_INVOICE charges")
	f.StringVar(&opts.sortBy, "sort", "", "created_at, margin or commission")
	f.StringVar(&opts.order, "order", "", "asc or desc")
	f.StringVar(&opts.format, "format", "csv", "csv or json")
	return cmd
}

func (o reportOptions) query() (report.Query, error) {
	q := report.Query{
		Status:      o.status,
		Client:      o.client,
		Reference:   o.reference,
		InvoiceType: o.invoiceType,
		SortBy:      o.sortBy,
		Direction:   o.order,
	}
	var err error
	if q.DateFrom, err = parseDay("from", o.from); err != nil {
		return report.Query{}, err
	}
	if q.DateTo, err = parseDay("to", o.to); err != nil {
		return report.Query{}, err
	}
	return q, nil
}

func parseDay(flag, raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, fmt.Errorf("--%s must be formatted as YYYY-MM-DD: %w", flag, err)
	}
	return &t, nil
}
