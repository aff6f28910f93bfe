package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/freight-commission-ledger/internal/domain/party"
	"github.com/freight-commission-ledger/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PartyRepository implements party.Repository for PostgreSQL
type PartyRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewPartyRepository(logger *slog.Logger, db *persistence.PostgresDB) party.Repository {
	return &PartyRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *PartyRepository) WithTx(tx pgx.Tx) party.Repository {
	return &PartyRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// FindOrCreateClient inserts c unless a client with the same tax ID exists, and
// returns the stored row either way. The no-op update makes RETURNING yield the
// existing row on conflict.
func (r *PartyRepository) FindOrCreateClient(ctx context.Context, c *party.Client) (*party.Client, error) {
	query := `
		INSERT INTO clients (id, tax_id, name, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (tax_id) DO UPDATE SET tax_id = EXCLUDED.tax_id
		RETURNING id, tax_id, name, created_at
	`

	var stored party.Client
	err := r.querier.QueryRow(ctx, query, c.ID, c.TaxID, c.Name, c.CreatedAt).
		Scan(&stored.ID, &stored.TaxID, &stored.Name, &stored.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to find or create client", "tax_id", c.TaxID, "error", err)
		return nil, fmt.Errorf("failed to find or create client: %w", err)
	}
	return &stored, nil
}

// FindOrCreateProvider is FindOrCreateClient for providers. The provider type
// of an existing row is kept.
func (r *PartyRepository) FindOrCreateProvider(ctx context.Context, p *party.Provider) (*party.Provider, error) {
	query := `
		INSERT INTO providers (id, tax_id, name, provider_type, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (tax_id) DO UPDATE SET tax_id = EXCLUDED.tax_id
		RETURNING id, tax_id, name, provider_type, created_at
	`

	var stored party.Provider
	err := r.querier.QueryRow(ctx, query, p.ID, p.TaxID, p.Name, p.ProviderType, p.CreatedAt).
		Scan(&stored.ID, &stored.TaxID, &stored.Name, &stored.ProviderType, &stored.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to find or create provider", "tax_id", p.TaxID, "error", err)
		return nil, fmt.Errorf("failed to find or create provider: %w", err)
	}
	return &stored, nil
}

func (r *PartyRepository) GetClient(ctx context.Context, id uuid.UUID) (*party.Client, error) {
	query := `SELECT id, tax_id, name, created_at FROM clients WHERE id = $1`

	var c party.Client
	err := r.querier.QueryRow(ctx, query, id).Scan(&c.ID, &c.TaxID, &c.Name, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, party.ErrPartyNotFound
		}
		r.logger.Error("Failed to get client", "client_id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	return &c, nil
}

func (r *PartyRepository) GetProvider(ctx context.Context, id uuid.UUID) (*party.Provider, error) {
	query := `SELECT id, tax_id, name, provider_type, created_at FROM providers WHERE id = $1`

	var p party.Provider
	err := r.querier.QueryRow(ctx, query, id).Scan(&p.ID, &p.TaxID, &p.Name, &p.ProviderType, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, party.ErrPartyNotFound
		}
		r.logger.Error("Failed to get provider", "provider_id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get provider: %w", err)
	}
	return &p, nil
}
