package company

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/freight-commission-ledger/internal/domain/party"
	"github.com/freight-commission-ledger/internal/domain/shared"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// DefaultCommissionRate applies until the user configures one.
var DefaultCommissionRate = decimal.RequireFromString("0.50")

var (
	ErrCompanyNotFound = errors.New("company not configured")

	ErrNotConfigured = shared.Precondition(shared.CodeNIFNotConfigured,
		"company tax ID must be configured before invoices can be processed")
	ErrInvalidCommissionRate = shared.Validation(shared.CodeInvalidField, "commission_rate",
		"commission rate must be between 0 and 1")
)

// Company is the agent's own company. Its tax ID decides whether an invoice is
// revenue or cost and its rate turns margin into commission.
type Company struct {
	Name           string          `json:"name"`
	TaxID          string          `json:"tax_id"`
	CommissionRate decimal.Decimal `json:"commission_rate"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// New normalizes the tax ID and validates the rate.
func New(name, taxID string, rate decimal.Decimal) (*Company, error) {
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return nil, ErrInvalidCommissionRate
	}
	return &Company{
		Name:           strings.TrimSpace(name),
		TaxID:          party.NormalizeTaxID(taxID),
		CommissionRate: rate,
		UpdatedAt:      time.Now().UTC(),
	}, nil
}

// Unconfigured is the placeholder returned before the first save.
func Unconfigured(rate decimal.Decimal) *Company {
	return &Company{CommissionRate: rate}
}

func (c *Company) IsConfigured() bool { return c != nil && c.TaxID != "" }

// RequireConfigured returns ErrNotConfigured unless a tax ID is set.
func (c *Company) RequireConfigured() error {
	if !c.IsConfigured() {
		return ErrNotConfigured
	}
	return nil
}

// Repository stores the singleton company row.
type Repository interface {
	Get(ctx context.Context) (*Company, error)
	// GetForShare reads the company row under a share lock. Use it inside a
	// transaction that books amounts with the current rate.
	GetForShare(ctx context.Context) (*Company, error)
	Save(ctx context.Context, c *Company) error
	WithTx(tx pgx.Tx) Repository
}
