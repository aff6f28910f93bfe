package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/freight-commission-ledger/internal/domain/invoice"
	"github.com/freight-commission-ledger/internal/domain/shared"
	"github.com/freight-commission-ledger/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const invoiceNumberConstraint = "invoices_role_counterparty_number_key"

// InvoiceRepository implements invoice.Repository for PostgreSQL
type InvoiceRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewInvoiceRepository(logger *slog.Logger, db *persistence.PostgresDB) invoice.Repository {
	return &InvoiceRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *InvoiceRepository) WithTx(tx pgx.Tx) invoice.Repository {
	return &InvoiceRepository{
		querier: tx,
		logger:  r.logger,
	}
}

const invoiceColumns = `id, role, invoice_number, counterparty_id, document_id, invoice_date,
		total_amount, tax_amount, booking_references, extraction_metadata, created_at`

// Get looks an invoice up by its natural key. It returns ErrInvoiceNotFound
// when the number is free for this counterparty.
func (r *InvoiceRepository) Get(ctx context.Context, role shared.Role, invoiceNumber string, counterpartyID uuid.UUID) (*invoice.Invoice, error) {
	query := `SELECT ` + invoiceColumns + `
		FROM invoices
		WHERE role = $1 AND counterparty_id = $2 AND invoice_number = $3`

	inv, err := scanInvoice(r.querier.QueryRow(ctx, query, role, counterpartyID, invoiceNumber))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, invoice.ErrInvoiceNotFound
		}
		r.logger.Error("Failed to get invoice",
			"role", string(role),
			"invoice_number", invoiceNumber,
			"error", err,
		)
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}
	return inv, nil
}

func (r *InvoiceRepository) GetByID(ctx context.Context, id uuid.UUID) (*invoice.Invoice, error) {
	query := `SELECT ` + invoiceColumns + `
		FROM invoices
		WHERE id = $1`

	inv, err := scanInvoice(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, invoice.ErrInvoiceNotFound
		}
		r.logger.Error("Failed to get invoice", "invoice_id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}
	return inv, nil
}

// List joins the counterparty so the party filter and the listed name come
// from the same row. Substring matches use strpos, so '%' and '_' in the
// search text are taken literally.
func (r *InvoiceRepository) List(ctx context.Context, filter invoice.ListFilter) ([]*invoice.ListItem, error) {
	query := `
		SELECT i.id, i.role, i.invoice_number, i.invoice_date,
			COALESCE(c.name, p.name, '') AS party_name,
			i.booking_references, i.total_amount, i.tax_amount
		FROM invoices i
		LEFT JOIN clients c ON i.role = 'REVENUE' AND c.id = i.counterparty_id
		LEFT JOIN providers p ON i.role = 'COST' AND p.id = i.counterparty_id
		WHERE ($1::text IS NULL OR i.role = $1)
			AND ($2::text = '' OR strpos(lower(i.invoice_number), lower($2)) > 0)
			AND ($3::text = '' OR strpos(lower(COALESCE(c.name, p.name, '')), lower($3)) > 0)
			AND ($4::date IS NULL OR i.invoice_date >= $4)
			AND ($5::date IS NULL OR i.invoice_date <= $5)
		ORDER BY i.invoice_date DESC, i.created_at DESC, i.id
		LIMIT $6 OFFSET $7`

	rows, err := r.querier.Query(ctx, query,
		filter.Role, filter.Number, filter.Party, filter.DateFrom, filter.DateTo, filter.Limit, filter.Offset)
	if err != nil {
		r.logger.Error("Failed to list invoices", "error", err)
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()

	items := []*invoice.ListItem{}
	for rows.Next() {
		var item invoice.ListItem
		if err := rows.Scan(&item.ID, &item.Role, &item.InvoiceNumber, &item.InvoiceDate, &item.PartyName,
			&item.BookingReferences, &item.TotalAmount, &item.TaxAmount); err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		if item.BookingReferences == nil {
			item.BookingReferences = []string{}
		}
		items = append(items, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over invoices: %w", err)
	}
	return items, nil
}

func scanInvoice(row pgx.Row) (*invoice.Invoice, error) {
	var inv invoice.Invoice
	err := row.Scan(
		&inv.ID,
		&inv.Role,
		&inv.InvoiceNumber,
		&inv.CounterpartyID,
		&inv.DocumentID,
		&inv.InvoiceDate,
		&inv.TotalAmount,
		&inv.TaxAmount,
		&inv.BookingReferences,
		&inv.ExtractionMetadata,
		&inv.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if inv.BookingReferences == nil {
		inv.BookingReferences = []string{}
	}
	return &inv, nil
}

// Save inserts the invoice. Reusing a number for the same counterparty and
// role returns *invoice.DuplicateNumberError.
func (r *InvoiceRepository) Save(ctx context.Context, inv *invoice.Invoice) error {
	query := `
		INSERT INTO invoices (` + invoiceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	refs := inv.BookingReferences
	if refs == nil {
		refs = []string{}
	}

	_, err := r.querier.Exec(ctx, query,
		inv.ID,
		inv.Role,
		inv.InvoiceNumber,
		inv.CounterpartyID,
		inv.DocumentID,
		inv.InvoiceDate,
		inv.TotalAmount.Round().String(),
		inv.TaxAmount.Round().String(),
		refs,
		nullJSON(inv.ExtractionMetadata),
		inv.CreatedAt,
	)
	if err != nil {
		if persistence.IsUniqueViolation(err, invoiceNumberConstraint) {
			return &invoice.DuplicateNumberError{
				Role:           inv.Role,
				InvoiceNumber:  inv.InvoiceNumber,
				CounterpartyID: inv.CounterpartyID,
			}
		}
		r.logger.Error("Failed to save invoice", "invoice_id", inv.ID.String(), "error", err)
		return fmt.Errorf("failed to save invoice: %w", err)
	}
	return nil
}
