package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/freight-commission-ledger/internal/domain/booking"
	"github.com/freight-commission-ledger/internal/domain/money"
	"github.com/go-pdf/fpdf"
)

const maxDescriptionRunes = 48

// WriteBookingPDF renders a one-booking statement: header block, totals and
// the full charge table.
func WriteBookingPDF(w io.Writer, b *booking.Booking, generatedAt time.Time) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetTitle("Booking "+b.ID, true)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 30

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(contentW, 9, tr("Booking statement "+b.ID), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(contentW, 5, "Generated "+generatedAt.UTC().Format("2006-01-02 15:04 MST"), "", 1, "L", false, 0, "")
	pdf.Ln(3)

	labelW, valueW := contentW*0.25, contentW*0.75
	field := func(label, value string) {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.CellFormat(labelW, 6, label, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		pdf.CellFormat(valueW, 6, tr(value), "", 1, "L", false, 0, "")
	}

	field("Status", string(b.Status))
	field("Created", b.CreatedAt.UTC().Format(time.DateOnly))
	if b.Client != nil {
		field("Client", b.Client.Name)
		field("Client tax ID", b.Client.TaxID)
	} else {
		field("Client", "-")
	}
	field("POL", portLabel(b.POL))
	field("POD", portLabel(b.POD))
	field("Vessel", orDash(b.Vessel))
	field("Containers", orDash(strings.Join(b.Containers, ", ")))
	pdf.Ln(2)

	pdf.Line(15, pdf.GetY(), pageW-15, pdf.GetY())
	pdf.Ln(2)

	amount := func(label string, m money.Money, bold bool) {
		style := ""
		if bold {
			style = "B"
		}
		pdf.SetFont("Helvetica", style, 10)
		pdf.CellFormat(contentW*0.7, 6, label, "", 0, "L", false, 0, "")
		pdf.CellFormat(contentW*0.3, 6, tr(formatEUR(m)), "", 1, "R", false, 0, "")
	}
	amount("Total revenue", b.Totals.Revenue, false)
	amount("Total costs", b.Totals.Costs, false)
	amount(fmt.Sprintf("Margin (%s%%)", b.Totals.MarginPercentage.StringFixed(2)), b.Totals.Margin, false)
	amount(fmt.Sprintf("Commission (%s%%)", b.Totals.CommissionRate.Shift(2).StringFixed(2)), b.Totals.Commission, true)
	pdf.Ln(4)

	cols := []struct {
		title string
		width float64
		align string
	}{
		{"Type", 0.12, "L"},
		{"Category", 0.16, "L"},
		{"Description", 0.40, "L"},
		{"Container", 0.14, "L"},
		{"Amount", 0.18, "R"},
	}

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	for i, c := range cols {
		ln := 0
		if i == len(cols)-1 {
			ln = 1
		}
		pdf.CellFormat(contentW*c.width, 7, c.title, "1", ln, c.align, true, 0, "")
	}

	pdf.SetFont("Helvetica", "", 8)
	row := func(kind string, c booking.Charge) {
		values := []string{kind, string(c.Category), truncate(c.Description, maxDescriptionRunes), c.Container, formatEUR(c.Amount)}
		for i, col := range cols {
			ln := 0
			if i == len(cols)-1 {
				ln = 1
			}
			pdf.CellFormat(contentW*col.width, 6, tr(values[i]), "1", ln, col.align, false, 0, "")
		}
	}
	for _, c := range b.RevenueCharges {
		row("Revenue", c)
	}
	for _, c := range b.CostCharges {
		row("Cost", c)
	}
	if len(b.RevenueCharges)+len(b.CostCharges) == 0 {
		pdf.CellFormat(contentW, 6, "No charges", "1", 1, "C", false, 0, "")
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("export: render booking pdf: %w", err)
	}
	return nil
}

func formatEUR(m money.Money) string {
	return m.Round().String() + " EUR"
}

func portLabel(p *booking.Port) string {
	switch {
	case p == nil:
		return "-"
	case p.Name == "":
		return p.Code
	}
	return fmt.Sprintf("%s (%s)", p.Code, p.Name)
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
