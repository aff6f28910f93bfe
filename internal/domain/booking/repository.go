package booking

import (
	"context"
	"time"

	"github.com/freight-commission-ledger/internal/domain/money"
	"github.com/freight-commission-ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Summary is the read-side row used by listings and the commission report.
type Summary struct {
	ID           string               `json:"booking_id"`
	ClientID     *uuid.UUID           `json:"client_id,omitempty"`
	ClientName   string               `json:"client_name"`
	CreatedAt    time.Time            `json:"created_at"`
	Status       shared.BookingStatus `json:"status"`
	TotalRevenue money.Money          `json:"total_revenue"`
	TotalCosts   money.Money          `json:"total_costs"`
	Margin       money.Money          `json:"margin"`
	Commission   money.Money          `json:"commission"`
	HasRevenue   bool                 `json:"has_revenue"`
	HasCosts     bool                 `json:"has_costs"`
}

// ListFilter narrows a listing in storage. Nil fields do not filter.
type ListFilter struct {
	Status      *shared.BookingStatus
	ClientID    *uuid.UUID
	CreatedFrom *time.Time // inclusive
	CreatedTo   *time.Time // exclusive
}

// Repository persists bookings, their charges and tax allocations.
//
// Writers must call Lock inside a transaction before reading a booking for
// update; the lock is held until the transaction ends and serializes every
// mutation of that booking id, including its creation.
type Repository interface {
	Lock(ctx context.Context, id string) error
	GetForUpdate(ctx context.Context, id string) (*Booking, error)
	Get(ctx context.Context, id string) (*Booking, error)
	Create(ctx context.Context, b *Booking) error
	Update(ctx context.Context, b *Booking) error
	AddCharges(ctx context.Context, charges []Charge) error
	UpdateCharge(ctx context.Context, c Charge) error
	SaveTaxAllocation(ctx context.Context, a TaxAllocation) error
	GetTaxAllocations(ctx context.Context, bookingID string) ([]TaxAllocation, error)
	ListSummaries(ctx context.Context, filter ListFilter) ([]Summary, error)
	ListIDs(ctx context.Context) ([]string, error)
	WithTx(tx pgx.Tx) Repository
}

// ToSummary projects a loaded booking onto its summary row.
func (b *Booking) ToSummary() Summary {
	s := Summary{
		ID:           b.ID,
		CreatedAt:    b.CreatedAt,
		Status:       b.Status,
		TotalRevenue: b.Totals.Revenue,
		TotalCosts:   b.Totals.Costs,
		Margin:       b.Totals.Margin,
		Commission:   b.Totals.Commission,
		HasRevenue:   b.HasRevenue(),
		HasCosts:     b.HasCosts(),
	}
	if b.Client != nil {
		id := b.Client.ID
		s.ClientID = &id
		s.ClientName = b.Client.Name
	}
	return s
}
