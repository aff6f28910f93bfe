// Package export renders the commission report and booking statements into
// downloadable formats.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/freight-commission-ledger/internal/domain/report"
)

var reportHeader = []string{"Booking ID", "Client", "Created At", "Status", "Revenue", "Costs", "Margin", "Commission"}

// WriteReportCSV writes one row per report item followed by a TOTAL row.
// Amounts always carry two decimals.
func WriteReportCSV(w io.Writer, r *report.Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(reportHeader); err != nil {
		return fmt.Errorf("export: write csv header: %w", err)
	}

	for _, it := range r.Items {
		row := []string{
			it.BookingID,
			it.ClientName,
			it.CreatedAt.UTC().Format(time.DateOnly),
			string(it.Status),
			it.TotalRevenue.String(),
			it.TotalCosts.String(),
			it.Margin.String(),
			it.Commission.String(),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("export: write csv row %s: %w", it.BookingID, err)
		}
	}

	total := []string{
		"TOTAL",
		fmt.Sprintf("%d bookings", r.Totals.BookingCount),
		"",
		"",
		r.Totals.TotalRevenue.String(),
		r.Totals.TotalCosts.String(),
		r.Totals.Margin.String(),
		r.Totals.Commission.String(),
	}
	if err := cw.Write(total); err != nil {
		return fmt.Errorf("export: write csv totals: %w", err)
	}

	cw.Flush()
	return cw.Error()
}
