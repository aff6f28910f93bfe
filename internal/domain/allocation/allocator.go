// Package allocation splits one invoice's charges and tax across the bookings
// the invoice covers.
package allocation

import (
	"fmt"
	"slices"
	"strings"

	"github.com/freight-commission-ledger/internal/domain/money"
	"github.com/freight-commission-ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

var ErrMissingBookingReference = shared.Validation(shared.CodeMissingBookingReference, "bl_references",
	"charges reference no booking and the invoice carries no BL reference")

var hundred = decimal.NewFromInt(100)

// AmbiguousReferenceError is returned when untagged charges cannot inherit a
// booking because the invoice names more than one.
type AmbiguousReferenceError struct {
	UntaggedIndexes []int
	References      []string
}

func (e *AmbiguousReferenceError) Error() string {
	return fmt.Sprintf("charges %v have no BL reference and the invoice references several bookings (%s)",
		e.UntaggedIndexes, strings.Join(e.References, ", "))
}

func (e *AmbiguousReferenceError) Is(target error) bool {
	return (&shared.Error{Kind: shared.KindValidation, Code: shared.CodeAmbiguousBookingReference}).Is(target)
}

// Candidate is a validated charge line that has not been attributed to a booking yet.
type Candidate struct {
	BookingRef   string // empty when the extraction found no tag
	Category     shared.ChargeCategory
	ProviderType shared.ProviderType
	Container    string
	Description  string
	Amount       money.Money
}

// Input is one invoice's charge lines plus the invoice-level fields the split needs.
type Input struct {
	Candidates []Candidate
	TaxAmount  money.Money
	// InvoiceReferences are BL references found on the invoice header. They
	// tag the charges only when no charge carries a tag of its own.
	InvoiceReferences []string
}

// BookingAllocation is the part of the invoice attributed to one booking.
type BookingAllocation struct {
	BookingRef string
	Candidates []Candidate
	Base       money.Money     // Sr, sum of this booking's charges
	Tax        money.Money     // share of the invoice tax
	Percentage decimal.Decimal // Sr / St, in percent with two decimals
}

// Result lists allocations sorted by booking reference.
type Result struct {
	Allocations    []BookingAllocation
	ChargeTotal    money.Money // St
	TaxDistributed bool
	Warnings       []shared.Warning
}

// References returns the booking references in allocation order.
func (r Result) References() []string {
	refs := make([]string, len(r.Allocations))
	for i, a := range r.Allocations {
		refs[i] = a.BookingRef
	}
	return refs
}

// Allocate groups candidates by booking reference and distributes the invoice
// tax proportionally to each group's charge total. An empty invoice yields an
// empty result. When the charge total is zero across several bookings the tax
// is left undistributed and a warning explains why.
func Allocate(in Input) (Result, error) {
	if len(in.Candidates) == 0 {
		return Result{ChargeTotal: money.Zero()}, nil
	}

	tagged, err := resolveTags(in)
	if err != nil {
		return Result{}, err
	}

	groups := map[string]*BookingAllocation{}
	var refs []string
	chargeTotal := money.Zero()
	for _, c := range tagged {
		g, ok := groups[c.BookingRef]
		if !ok {
			g = &BookingAllocation{BookingRef: c.BookingRef, Base: money.Zero(), Tax: money.Zero(), Percentage: decimal.Zero}
			groups[c.BookingRef] = g
			refs = append(refs, c.BookingRef)
		}
		g.Candidates = append(g.Candidates, c)
		g.Base = g.Base.Add(c.Amount)
		chargeTotal = chargeTotal.Add(c.Amount)
	}
	slices.Sort(refs)

	result := Result{ChargeTotal: chargeTotal, Allocations: make([]BookingAllocation, 0, len(refs))}
	for _, ref := range refs {
		result.Allocations = append(result.Allocations, *groups[ref])
	}

	if len(result.Allocations) == 1 {
		result.Allocations[0].Tax = in.TaxAmount.Round()
		result.Allocations[0].Percentage = hundred
		result.TaxDistributed = true
		return result, nil
	}

	if chargeTotal.IsZero() {
		result.Warnings = append(result.Warnings, shared.Warning{
			Code:    shared.WarningTaxNotDistributed,
			Field:   "tax_amount",
			Message: "charges across bookings sum to zero; tax was not distributed",
		})
		return result, nil
	}

	shares := make([]Share, len(result.Allocations))
	for i, a := range result.Allocations {
		shares[i] = Share{Key: a.BookingRef, Weight: a.Base.Decimal()}
	}
	parts, err := DistributeProportionally(shares, in.TaxAmount)
	if err != nil {
		return Result{}, err
	}
	for i := range result.Allocations {
		a := &result.Allocations[i]
		a.Tax = parts[i]
		a.Percentage = a.Base.Decimal().Div(chargeTotal.Decimal()).Mul(hundred).Round(money.Scale)
	}
	result.TaxDistributed = true
	return result, nil
}

// resolveTags returns a copy of the candidates with every booking reference filled in.
func resolveTags(in Input) ([]Candidate, error) {
	var tags, untagged []int
	distinct := map[string]struct{}{}
	for i, c := range in.Candidates {
		if c.BookingRef == "" {
			untagged = append(untagged, i)
			continue
		}
		tags = append(tags, i)
		distinct[c.BookingRef] = struct{}{}
	}

	if len(untagged) == 0 {
		return slices.Clone(in.Candidates), nil
	}

	var known []string
	if len(tags) > 0 {
		for ref := range distinct {
			known = append(known, ref)
		}
	} else {
		known = distinctNonEmpty(in.InvoiceReferences)
	}
	slices.Sort(known)

	switch len(known) {
	case 0:
		return nil, ErrMissingBookingReference
	case 1:
		out := slices.Clone(in.Candidates)
		for _, i := range untagged {
			out[i].BookingRef = known[0]
		}
		return out, nil
	default:
		return nil, &AmbiguousReferenceError{UntaggedIndexes: untagged, References: known}
	}
}

func distinctNonEmpty(values []string) []string {
	var out []string
	for _, v := range values {
		if v == "" || slices.Contains(out, v) {
			continue
		}
		out = append(out, v)
	}
	return out
}
