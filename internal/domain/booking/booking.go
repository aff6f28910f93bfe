// Package booking implements the shipment aggregate that accumulates revenue
// and cost charges and derives margin and commission from them.
package booking

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/freight-commission-ledger/internal/domain/money"
	"github.com/freight-commission-ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrBookingNotFound = shared.NotFound("booking not found")
	ErrChargeNotFound  = shared.NotFound("charge not found on booking")

	ErrEmptyReference   = shared.Validation(shared.CodeRequiredField, "booking_id", "booking reference cannot be empty")
	ErrPortCodeRequired = errors.New("port code is required when a port name is set")
)

var hundred = decimal.NewFromInt(100)

// Port is a port of loading or discharge.
type Port struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// ClientInfo is the denormalized client copied onto a booking from its revenue invoice.
type ClientInfo struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	TaxID string    `json:"tax_id"`
}

// Totals are derived from the charge lists and the company rate. They are
// recomputed on every write.
type Totals struct {
	Revenue          money.Money     `json:"total_revenue"`
	Costs            money.Money     `json:"total_costs"`
	Margin           money.Money     `json:"margin"`
	MarginPercentage decimal.Decimal `json:"margin_percentage"`
	Commission       money.Money     `json:"commission"`
	CommissionRate   decimal.Decimal `json:"commission_rate"`
}

// Booking is keyed by its BL reference. The key is matched exactly: no case
// folding or trimming is applied beyond what the user typed.
type Booking struct {
	ID             string               `json:"id"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
	Client         *ClientInfo          `json:"client,omitempty"`
	POL            *Port                `json:"pol,omitempty"`
	POD            *Port                `json:"pod,omitempty"`
	Vessel         string               `json:"vessel,omitempty"`
	Containers     []string             `json:"containers"`
	Status         shared.BookingStatus `json:"status"`
	RevenueCharges []Charge             `json:"revenue_charges"`
	CostCharges    []Charge             `json:"cost_charges"`
	Totals         Totals               `json:"totals"`
}

// New starts an empty PENDING booking. created_at is fixed here and never changes.
func New(reference string, now time.Time) (*Booking, error) {
	if strings.TrimSpace(reference) == "" {
		return nil, ErrEmptyReference
	}
	return &Booking{
		ID:             reference,
		CreatedAt:      now,
		UpdatedAt:      now,
		Containers:     []string{},
		Status:         shared.BookingStatusPending,
		RevenueCharges: []Charge{},
		CostCharges:    []Charge{},
	}, nil
}

// ApplyCharges appends a batch of charges from one invoice to the list
// matching role. Totals are not touched; call Recompute afterwards.
func (b *Booking) ApplyCharges(role shared.Role, charges []Charge) error {
	for _, c := range charges {
		if c.BookingID != b.ID {
			return fmt.Errorf("charge %s belongs to booking %q, not %q", c.ID, c.BookingID, b.ID)
		}
		if c.Role != role {
			return fmt.Errorf("charge %s has role %s, expected %s", c.ID, c.Role, role)
		}
	}
	switch role {
	case shared.RoleRevenue:
		b.RevenueCharges = append(b.RevenueCharges, charges...)
	case shared.RoleCost:
		b.CostCharges = append(b.CostCharges, charges...)
	default:
		return fmt.Errorf("unknown role %q", role)
	}
	return nil
}

// EditCharge replaces the mutable fields of one charge and returns the new value.
func (b *Booking) EditCharge(chargeID uuid.UUID, edit ChargeEdit) (Charge, error) {
	for _, list := range [][]Charge{b.RevenueCharges, b.CostCharges} {
		for i := range list {
			if list[i].ID != chargeID {
				continue
			}
			updated, err := list[i].apply(edit)
			if err != nil {
				return Charge{}, err
			}
			list[i] = updated
			return updated, nil
		}
	}
	return Charge{}, ErrChargeNotFound
}

// FindCharge returns the charge with the given id.
func (b *Booking) FindCharge(chargeID uuid.UUID) (Charge, bool) {
	for _, c := range b.Charges() {
		if c.ID == chargeID {
			return c, true
		}
	}
	return Charge{}, false
}

// Charges returns revenue charges followed by cost charges.
func (b *Booking) Charges() []Charge {
	all := make([]Charge, 0, len(b.RevenueCharges)+len(b.CostCharges))
	all = append(all, b.RevenueCharges...)
	return append(all, b.CostCharges...)
}

func (b *Booking) HasRevenue() bool { return len(b.RevenueCharges) > 0 }

func (b *Booking) HasCosts() bool { return len(b.CostCharges) > 0 }

// MarkComplete moves PENDING to COMPLETE. It reports whether the status changed;
// calling it on a COMPLETE booking is a no-op.
func (b *Booking) MarkComplete() bool {
	if b.Status == shared.BookingStatusComplete {
		return false
	}
	b.Status = shared.BookingStatusComplete
	return true
}

// RevertToPending moves COMPLETE back to PENDING; a no-op when already PENDING.
func (b *Booking) RevertToPending() bool {
	if b.Status == shared.BookingStatusPending {
		return false
	}
	b.Status = shared.BookingStatusPending
	return true
}

// Recompute derives the totals from the charge lists. Margin and commission may
// be negative; margin percentage is zero when there is no revenue.
func (b *Booking) Recompute(rate decimal.Decimal) Totals {
	revenue := money.Zero()
	for _, c := range b.RevenueCharges {
		revenue = revenue.Add(c.Amount)
	}
	costs := money.Zero()
	for _, c := range b.CostCharges {
		costs = costs.Add(c.Amount)
	}
	margin := revenue.Sub(costs)

	percentage := decimal.Zero
	if !revenue.IsZero() {
		percentage = margin.Decimal().Div(revenue.Decimal()).Mul(hundred).Round(money.Scale)
	}

	b.Totals = Totals{
		Revenue:          revenue,
		Costs:            costs,
		Margin:           margin,
		MarginPercentage: percentage,
		Commission:       margin.Mul(rate),
		CommissionRate:   rate,
	}
	return b.Totals
}

// SetClient records the client of a revenue invoice on the booking.
func (b *Booking) SetClient(client ClientInfo) {
	b.Client = &client
}

// ShippingDetails are the optional shipment fields an invoice or the user can supply.
type ShippingDetails struct {
	POL        *Port
	POD        *Port
	Vessel     string
	Containers []string
}

// MergeShipping fills fields that are still empty; it never overwrites what is already set.
func (b *Booking) MergeShipping(details ShippingDetails) {
	if b.POL == nil && details.POL != nil && details.POL.Code != "" {
		b.POL = normalizePort(*details.POL)
	}
	if b.POD == nil && details.POD != nil && details.POD.Code != "" {
		b.POD = normalizePort(*details.POD)
	}
	if b.Vessel == "" {
		b.Vessel = strings.TrimSpace(details.Vessel)
	}
	b.addContainers(details.Containers)
}

// PortEdit is a requested change to one port. Nil fields keep the current value.
type PortEdit struct {
	Code *string
	Name *string
}

// DetailsEdit is a user edit of the shipping fields. Nil means unchanged.
type DetailsEdit struct {
	Vessel     *string
	Containers []string // nil keeps, empty clears
	POL        *PortEdit
	POD        *PortEdit
}

// EditDetails applies a user edit of vessel, containers and ports.
func (b *Booking) EditDetails(edit DetailsEdit) error {
	pol, err := editPort(b.POL, edit.POL, "pol")
	if err != nil {
		return err
	}
	pod, err := editPort(b.POD, edit.POD, "pod")
	if err != nil {
		return err
	}
	b.POL, b.POD = pol, pod

	if edit.Vessel != nil {
		b.Vessel = strings.TrimSpace(*edit.Vessel)
	}
	if edit.Containers != nil {
		b.Containers = []string{}
		b.addContainers(edit.Containers)
	}
	return nil
}

func (b *Booking) addContainers(containers []string) {
	for _, c := range containers {
		c = strings.TrimSpace(c)
		if c == "" || slices.Contains(b.Containers, c) {
			continue
		}
		b.Containers = append(b.Containers, c)
	}
}

func editPort(current *Port, edit *PortEdit, field string) (*Port, error) {
	if edit == nil || (edit.Code == nil && edit.Name == nil) {
		return current, nil
	}

	var code, name string
	if current != nil {
		code, name = current.Code, current.Name
	}
	if edit.Code != nil {
		code = strings.TrimSpace(*edit.Code)
	}
	if edit.Name != nil {
		name = strings.TrimSpace(*edit.Name)
	}

	if code == "" {
		if name != "" {
			return nil, &shared.Error{
				Kind:    shared.KindValidation,
				Code:    shared.CodeRequiredField,
				Field:   field,
				Message: ErrPortCodeRequired.Error(),
				Err:     ErrPortCodeRequired,
			}
		}
		return nil, nil
	}
	return normalizePort(Port{Code: code, Name: name}), nil
}

func normalizePort(p Port) *Port {
	code := strings.ToUpper(strings.TrimSpace(p.Code))
	name := strings.TrimSpace(p.Name)
	if name == "" {
		name = code
	}
	return &Port{Code: code, Name: name}
}
