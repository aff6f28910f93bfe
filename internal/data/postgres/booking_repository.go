// Package postgres provides PostgreSQL implementations of the domain repositories.
//
// Amounts are written as their rounded two-decimal text and read back through
// money.Money's sql.Scanner, so NUMERIC columns never pass through float64.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/freight-commission-ledger/internal/domain/booking"
	"github.com/freight-commission-ledger/internal/domain/shared"
	"github.com/freight-commission-ledger/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// BookingRepository implements booking.Repository for PostgreSQL
type BookingRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewBookingRepository creates a new PostgreSQL booking repository.
func NewBookingRepository(logger *slog.Logger, db *persistence.PostgresDB) booking.Repository {
	return &BookingRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx returns a repository that runs every statement on tx.
func (r *BookingRepository) WithTx(tx pgx.Tx) booking.Repository {
	return &BookingRepository{
		querier: tx,
		logger:  r.logger,
	}
}

const bookingColumns = `id, client_id, client_name, client_tax_id, pol_code, pol_name, pod_code, pod_name,
		vessel, containers, status, total_revenue, total_costs, margin, margin_percentage,
		commission, commission_rate, created_at, updated_at`

const chargeColumns = `id, booking_id, invoice_id, role, category, provider_type, container, description, amount, created_at`

// Lock takes a transaction-scoped advisory lock on the booking id. It works
// for ids that have no row yet, which FOR UPDATE cannot cover.
func (r *BookingRepository) Lock(ctx context.Context, id string) error {
	query := `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`

	if _, err := r.querier.Exec(ctx, query, id); err != nil {
		r.logger.Error("Failed to lock booking", "booking_id", id, "error", err)
		return fmt.Errorf("failed to lock booking: %w", err)
	}
	return nil
}

// GetForUpdate loads a booking with its charges and row-locks it.
func (r *BookingRepository) GetForUpdate(ctx context.Context, id string) (*booking.Booking, error) {
	return r.load(ctx, id, true)
}

// Get loads a booking with its charges.
func (r *BookingRepository) Get(ctx context.Context, id string) (*booking.Booking, error) {
	return r.load(ctx, id, false)
}

func (r *BookingRepository) load(ctx context.Context, id string, forUpdate bool) (*booking.Booking, error) {
	query := `SELECT ` + bookingColumns + `
		FROM bookings
		WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	b, err := scanBooking(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, booking.ErrBookingNotFound
		}
		r.logger.Error("Failed to get booking", "booking_id", id, "error", err)
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}

	charges, err := r.charges(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, c := range charges {
		switch c.Role {
		case shared.RoleRevenue:
			b.RevenueCharges = append(b.RevenueCharges, c)
		case shared.RoleCost:
			b.CostCharges = append(b.CostCharges, c)
		}
	}
	return b, nil
}

func scanBooking(row pgx.Row) (*booking.Booking, error) {
	var (
		b                                  booking.Booking
		clientID                           *uuid.UUID
		clientName, clientTaxID            string
		polCode, polName, podCode, podName *string
	)
	err := row.Scan(
		&b.ID,
		&clientID,
		&clientName,
		&clientTaxID,
		&polCode,
		&polName,
		&podCode,
		&podName,
		&b.Vessel,
		&b.Containers,
		&b.Status,
		&b.Totals.Revenue,
		&b.Totals.Costs,
		&b.Totals.Margin,
		&b.Totals.MarginPercentage,
		&b.Totals.Commission,
		&b.Totals.CommissionRate,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if clientID != nil {
		b.Client = &booking.ClientInfo{ID: *clientID, Name: clientName, TaxID: clientTaxID}
	}
	b.POL = port(polCode, polName)
	b.POD = port(podCode, podName)
	if b.Containers == nil {
		b.Containers = []string{}
	}
	b.RevenueCharges = []booking.Charge{}
	b.CostCharges = []booking.Charge{}
	return &b, nil
}

func port(code, name *string) *booking.Port {
	if code == nil || *code == "" {
		return nil
	}
	p := &booking.Port{Code: *code, Name: *code}
	if name != nil && *name != "" {
		p.Name = *name
	}
	return p
}

func (r *BookingRepository) charges(ctx context.Context, bookingID string) ([]booking.Charge, error) {
	query := `SELECT ` + chargeColumns + `
		FROM booking_charges
		WHERE booking_id = $1
		ORDER BY position ASC`

	rows, err := r.querier.Query(ctx, query, bookingID)
	if err != nil {
		r.logger.Error("Failed to get booking charges", "booking_id", bookingID, "error", err)
		return nil, fmt.Errorf("failed to get booking charges: %w", err)
	}
	defer rows.Close()

	var charges []booking.Charge
	for rows.Next() {
		var (
			c            booking.Charge
			providerType *string
		)
		err := rows.Scan(
			&c.ID,
			&c.BookingID,
			&c.InvoiceID,
			&c.Role,
			&c.Category,
			&providerType,
			&c.Container,
			&c.Description,
			&c.Amount,
			&c.CreatedAt,
		)
		if err != nil {
			r.logger.Error("Failed to scan booking charge", "booking_id", bookingID, "error", err)
			return nil, fmt.Errorf("failed to scan booking charge: %w", err)
		}
		if providerType != nil {
			c.ProviderType = shared.ProviderType(*providerType)
		}
		charges = append(charges, c)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over booking charges", "booking_id", bookingID, "error", err)
		return nil, fmt.Errorf("error iterating over booking charges: %w", err)
	}
	return charges, nil
}

// Create inserts the booking row. Charges are added separately.
func (r *BookingRepository) Create(ctx context.Context, b *booking.Booking) error {
	query := `
		INSERT INTO bookings (` + bookingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`

	if _, err := r.querier.Exec(ctx, query, bookingArgs(b)...); err != nil {
		r.logger.Error("Failed to create booking", "booking_id", b.ID, "error", err)
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

// Update writes every mutable column. created_at is never rewritten.
func (r *BookingRepository) Update(ctx context.Context, b *booking.Booking) error {
	query := `
		UPDATE bookings
		SET client_id = $2, client_name = $3, client_tax_id = $4, pol_code = $5, pol_name = $6,
			pod_code = $7, pod_name = $8, vessel = $9, containers = $10, status = $11,
			total_revenue = $12, total_costs = $13, margin = $14, margin_percentage = $15,
			commission = $16, commission_rate = $17, updated_at = $18
		WHERE id = $1
	`

	args := append(bookingArgs(b)[:17], b.UpdatedAt)
	result, err := r.querier.Exec(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to update booking", "booking_id", b.ID, "error", err)
		return fmt.Errorf("failed to update booking: %w", err)
	}
	if result.RowsAffected() == 0 {
		return booking.ErrBookingNotFound
	}
	return nil
}

// bookingArgs lists the values in bookingColumns order.
func bookingArgs(b *booking.Booking) []interface{} {
	var (
		clientID                *uuid.UUID
		clientName, clientTaxID string
		polCode, polName        *string
		podCode, podName        *string
	)
	if b.Client != nil {
		id := b.Client.ID
		clientID, clientName, clientTaxID = &id, b.Client.Name, b.Client.TaxID
	}
	if b.POL != nil {
		polCode, polName = &b.POL.Code, &b.POL.Name
	}
	if b.POD != nil {
		podCode, podName = &b.POD.Code, &b.POD.Name
	}
	containers := b.Containers
	if containers == nil {
		containers = []string{}
	}

	return []interface{}{
		b.ID,
		clientID,
		clientName,
		clientTaxID,
		polCode,
		polName,
		podCode,
		podName,
		b.Vessel,
		containers,
		b.Status,
		b.Totals.Revenue.Round().String(),
		b.Totals.Costs.Round().String(),
		b.Totals.Margin.Round().String(),
		b.Totals.MarginPercentage.StringFixed(2),
		b.Totals.Commission.Round().String(),
		b.Totals.CommissionRate.String(),
		b.CreatedAt,
		b.UpdatedAt,
	}
}

// AddCharges inserts the charges in slice order; position keeps that order on read.
func (r *BookingRepository) AddCharges(ctx context.Context, charges []booking.Charge) error {
	query := `
		INSERT INTO booking_charges (` + chargeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	for _, c := range charges {
		_, err := r.querier.Exec(ctx, query,
			c.ID,
			c.BookingID,
			c.InvoiceID,
			c.Role,
			c.Category,
			nullable(string(c.ProviderType)),
			c.Container,
			c.Description,
			c.Amount.Round().String(),
			c.CreatedAt,
		)
		if err != nil {
			r.logger.Error("Failed to add booking charge",
				"booking_id", c.BookingID,
				"charge_id", c.ID.String(),
				"error", err,
			)
			return fmt.Errorf("failed to add booking charge: %w", err)
		}
	}
	return nil
}

// UpdateCharge rewrites the user-editable fields of one charge.
func (r *BookingRepository) UpdateCharge(ctx context.Context, c booking.Charge) error {
	query := `
		UPDATE booking_charges
		SET category = $3, description = $4, amount = $5
		WHERE id = $1 AND booking_id = $2
	`

	result, err := r.querier.Exec(ctx, query, c.ID, c.BookingID, c.Category, c.Description, c.Amount.Round().String())
	if err != nil {
		r.logger.Error("Failed to update booking charge", "charge_id", c.ID.String(), "error", err)
		return fmt.Errorf("failed to update booking charge: %w", err)
	}
	if result.RowsAffected() == 0 {
		return booking.ErrChargeNotFound
	}
	return nil
}

// SaveTaxAllocation upserts the tax share of one invoice on one booking.
func (r *BookingRepository) SaveTaxAllocation(ctx context.Context, a booking.TaxAllocation) error {
	query := `
		INSERT INTO tax_allocations (booking_id, invoice_id, base_amount, tax_amount, percentage)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (booking_id, invoice_id)
		DO UPDATE SET base_amount = EXCLUDED.base_amount, tax_amount = EXCLUDED.tax_amount, percentage = EXCLUDED.percentage
	`

	_, err := r.querier.Exec(ctx, query,
		a.BookingID,
		a.InvoiceID,
		a.BaseAmount.Round().String(),
		a.TaxAmount.Round().String(),
		a.Percentage.StringFixed(2),
	)
	if err != nil {
		r.logger.Error("Failed to save tax allocation",
			"booking_id", a.BookingID,
			"invoice_id", a.InvoiceID.String(),
			"error", err,
		)
		return fmt.Errorf("failed to save tax allocation: %w", err)
	}
	return nil
}

func (r *BookingRepository) GetTaxAllocations(ctx context.Context, bookingID string) ([]booking.TaxAllocation, error) {
	query := `
		SELECT booking_id, invoice_id, base_amount, tax_amount, percentage
		FROM tax_allocations
		WHERE booking_id = $1
		ORDER BY invoice_id
	`

	rows, err := r.querier.Query(ctx, query, bookingID)
	if err != nil {
		r.logger.Error("Failed to get tax allocations", "booking_id", bookingID, "error", err)
		return nil, fmt.Errorf("failed to get tax allocations: %w", err)
	}
	defer rows.Close()

	allocations := []booking.TaxAllocation{}
	for rows.Next() {
		var a booking.TaxAllocation
		if err := rows.Scan(&a.BookingID, &a.InvoiceID, &a.BaseAmount, &a.TaxAmount, &a.Percentage); err != nil {
			r.logger.Error("Failed to scan tax allocation", "booking_id", bookingID, "error", err)
			return nil, fmt.Errorf("failed to scan tax allocation: %w", err)
		}
		allocations = append(allocations, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over tax allocations: %w", err)
	}
	return allocations, nil
}

// ListSummaries returns the report rows matching filter, newest first.
func (r *BookingRepository) ListSummaries(ctx context.Context, filter booking.ListFilter) ([]booking.Summary, error) {
	query, args := summaryQuery(filter)

	rows, err := r.querier.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list booking summaries", "error", err)
		return nil, fmt.Errorf("failed to list booking summaries: %w", err)
	}
	defer rows.Close()

	summaries := []booking.Summary{}
	for rows.Next() {
		var s booking.Summary
		err := rows.Scan(
			&s.ID,
			&s.ClientID,
			&s.ClientName,
			&s.CreatedAt,
			&s.Status,
			&s.TotalRevenue,
			&s.TotalCosts,
			&s.Margin,
			&s.Commission,
			&s.HasRevenue,
			&s.HasCosts,
		)
		if err != nil {
			r.logger.Error("Failed to scan booking summary", "error", err)
			return nil, fmt.Errorf("failed to scan booking summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over booking summaries", "error", err)
		return nil, fmt.Errorf("error iterating over booking summaries: %w", err)
	}
	return summaries, nil
}

func summaryQuery(filter booking.ListFilter) (string, []interface{}) {
	var (
		conditions []string
		args       []interface{}
	)
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}
	if filter.Status != nil {
		add("b.status = $%d", *filter.Status)
	}
	if filter.ClientID != nil {
		add("b.client_id = $%d", *filter.ClientID)
	}
	if filter.CreatedFrom != nil {
		add("b.created_at >= $%d", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		add("b.created_at < $%d", *filter.CreatedTo)
	}

	query := `SELECT b.id, b.client_id, b.client_name, b.created_at, b.status,
		b.total_revenue, b.total_costs, b.margin, b.commission,
		EXISTS (SELECT 1 FROM booking_charges c WHERE c.booking_id = b.id AND c.role = 'REVENUE'),
		EXISTS (SELECT 1 FROM booking_charges c WHERE c.booking_id = b.id AND c.role = 'COST')
		FROM bookings b`
	if len(conditions) > 0 {
		query += "\n\t\tWHERE " + strings.Join(conditions, " AND ")
	}
	query += "\n\t\tORDER BY b.created_at DESC, b.id ASC"
	return query, args
}

// ListIDs returns every booking id in ascending order.
func (r *BookingRepository) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := r.querier.Query(ctx, `SELECT id FROM bookings ORDER BY id ASC`)
	if err != nil {
		r.logger.Error("Failed to list booking ids", "error", err)
		return nil, fmt.Errorf("failed to list booking ids: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan booking id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over booking ids: %w", err)
	}
	return ids, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
