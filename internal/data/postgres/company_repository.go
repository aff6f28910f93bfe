package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/freight-commission-ledger/internal/domain/company"
	"github.com/freight-commission-ledger/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
)

// CompanyRepository stores the singleton company row (id = 1).
type CompanyRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewCompanyRepository(logger *slog.Logger, db *persistence.PostgresDB) company.Repository {
	return &CompanyRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *CompanyRepository) WithTx(tx pgx.Tx) company.Repository {
	return &CompanyRepository{
		querier: tx,
		logger:  r.logger,
	}
}

const selectCompany = `SELECT name, tax_id, commission_rate, updated_at FROM company WHERE id = 1`

// Get returns the company row. An unconfigured company has an empty tax ID.
func (r *CompanyRepository) Get(ctx context.Context) (*company.Company, error) {
	return r.get(ctx, selectCompany)
}

// GetForShare blocks a concurrent Save until the calling transaction ends.
func (r *CompanyRepository) GetForShare(ctx context.Context) (*company.Company, error) {
	return r.get(ctx, selectCompany+` FOR SHARE`)
}

func (r *CompanyRepository) get(ctx context.Context, query string) (*company.Company, error) {
	var c company.Company
	err := r.querier.QueryRow(ctx, query).Scan(&c.Name, &c.TaxID, &c.CommissionRate, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, company.ErrCompanyNotFound
		}
		r.logger.Error("Failed to get company", "error", err)
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	return &c, nil
}

// Save upserts the company row.
func (r *CompanyRepository) Save(ctx context.Context, c *company.Company) error {
	query := `
		INSERT INTO company (id, name, tax_id, commission_rate, updated_at)
		VALUES (1, $1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, tax_id = EXCLUDED.tax_id,
			commission_rate = EXCLUDED.commission_rate, updated_at = EXCLUDED.updated_at
	`

	if _, err := r.querier.Exec(ctx, query, c.Name, c.TaxID, c.CommissionRate.String(), c.UpdatedAt); err != nil {
		r.logger.Error("Failed to save company", "error", err)
		return fmt.Errorf("failed to save company: %w", err)
	}
	return nil
}
