// Package party holds the clients and providers that invoices are exchanged with.
package party

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/freight-commission-ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const (
	UnknownClientName   = "Unknown Client"
	UnknownProviderName = "Unknown Provider"
)

var (
	ErrEmptyTaxID    = errors.New("tax ID cannot be empty")
	ErrPartyNotFound = errors.New("party not found")
)

var taxIDNoise = strings.NewReplacer(" ", "", "\t", "", "\n", "", "\r", "", "-", "", ".", "")

// NormalizeTaxID strips whitespace, dashes and dots and uppercases the rest so
// "b-12.345.678" and "B12345678" compare equal.
func NormalizeTaxID(taxID string) string {
	return strings.ToUpper(taxIDNoise.Replace(taxID))
}

// Client is the counterparty of a revenue invoice.
type Client struct {
	ID        uuid.UUID `json:"id"`
	TaxID     string    `json:"tax_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// NewClient builds a client keyed by its normalized tax ID.
func NewClient(name, taxID string) (*Client, error) {
	normalized := NormalizeTaxID(taxID)
	if normalized == "" {
		return nil, ErrEmptyTaxID
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = UnknownClientName
	}
	return &Client{ID: uuid.New(), TaxID: normalized, Name: name, CreatedAt: time.Now().UTC()}, nil
}

// Provider is the counterparty of a cost invoice.
type Provider struct {
	ID           uuid.UUID           `json:"id"`
	TaxID        string              `json:"tax_id"`
	Name         string              `json:"name"`
	ProviderType shared.ProviderType `json:"provider_type"`
	CreatedAt    time.Time           `json:"created_at"`
}

// NewProvider builds a provider; an empty provider type becomes OTHER.
func NewProvider(name, taxID string, providerType shared.ProviderType) (*Provider, error) {
	normalized := NormalizeTaxID(taxID)
	if normalized == "" {
		return nil, ErrEmptyTaxID
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = UnknownProviderName
	}
	return &Provider{
		ID:           uuid.New(),
		TaxID:        normalized,
		Name:         name,
		ProviderType: shared.ParseProviderType(string(providerType)),
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// Repository persists parties. The FindOrCreate methods are idempotent on tax ID:
// an existing record is returned unchanged.
type Repository interface {
	FindOrCreateClient(ctx context.Context, c *Client) (*Client, error)
	FindOrCreateProvider(ctx context.Context, p *Provider) (*Provider, error)
	GetClient(ctx context.Context, id uuid.UUID) (*Client, error)
	GetProvider(ctx context.Context, id uuid.UUID) (*Provider, error)
	WithTx(tx pgx.Tx) Repository
}
