package allocation

import (
	"errors"
	"testing"

	"github.com/freight-commission-ledger/internal/domain/money"
	"github.com/freight-commission-ledger/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidate(ref, amount string) Candidate {
	return Candidate{
		BookingRef:  ref,
		Category:    shared.ChargeCategoryFreight,
		Description: "ocean freight",
		Amount:      money.MustFromString(amount),
	}
}

func TestAllocate_CarrierInvoiceAcrossTwoBookings(t *testing.T) {
	result, err := Allocate(Input{
		Candidates: []Candidate{
			candidate("BL-002", "150"),
			candidate("BL-001", "600"),
			candidate("BL-002", "250"),
		},
		TaxAmount: money.MustFromString("210"),
	})
	require.NoError(t, err)

	require.Len(t, result.Allocations, 2)
	assert.Equal(t, []string{"BL-001", "BL-002"}, result.References())
	assert.Equal(t, "1000.00", result.ChargeTotal.String())
	assert.True(t, result.TaxDistributed)

	first, second := result.Allocations[0], result.Allocations[1]
	assert.Equal(t, "600.00", first.Base.String())
	assert.Equal(t, "126.00", first.Tax.String())
	assert.Equal(t, "60.00", first.Percentage.StringFixed(2))
	assert.Len(t, first.Candidates, 1)

	assert.Equal(t, "400.00", second.Base.String())
	assert.Equal(t, "84.00", second.Tax.String())
	assert.Equal(t, "40.00", second.Percentage.StringFixed(2))
	assert.Len(t, second.Candidates, 2)

	assert.Equal(t, "210.00", first.Tax.Add(second.Tax).String())
}

func TestAllocate_UntaggedChargesInheritTheOnlyTag(t *testing.T) {
	in := Input{
		Candidates: []Candidate{candidate("BK-001234", "2500"), candidate("", "100")},
		TaxAmount:  money.MustFromString("546"),
	}

	result, err := Allocate(in)
	require.NoError(t, err)

	require.Len(t, result.Allocations, 1)
	a := result.Allocations[0]
	assert.Equal(t, "BK-001234", a.BookingRef)
	assert.Equal(t, "2600.00", a.Base.String())
	assert.Equal(t, "546.00", a.Tax.String())
	assert.Equal(t, "100", a.Percentage.String())
	for _, c := range a.Candidates {
		assert.Equal(t, "BK-001234", c.BookingRef)
	}

	// the input is not modified
	assert.Empty(t, in.Candidates[1].BookingRef)
}

func TestAllocate_InvoiceLevelReference(t *testing.T) {
	result, err := Allocate(Input{
		Candidates:        []Candidate{candidate("", "10"), candidate("", "20")},
		TaxAmount:         money.MustFromString("6.30"),
		InvoiceReferences: []string{"BL-9", "", "BL-9"},
	})
	require.NoError(t, err)
	require.Len(t, result.Allocations, 1)
	assert.Equal(t, "BL-9", result.Allocations[0].BookingRef)
	assert.Equal(t, "6.30", result.Allocations[0].Tax.String())
}

func TestAllocate_AmbiguousUntaggedCharges(t *testing.T) {
	_, err := Allocate(Input{
		Candidates: []Candidate{candidate("BL-1", "10"), candidate("", "5"), candidate("BL-2", "10")},
		TaxAmount:  money.MustFromString("5"),
	})
	require.Error(t, err)

	var ambiguous *AmbiguousReferenceError
	require.True(t, errors.As(err, &ambiguous))
	assert.Equal(t, []int{1}, ambiguous.UntaggedIndexes)
	assert.Equal(t, []string{"BL-1", "BL-2"}, ambiguous.References)
	assert.ErrorIs(t, err, shared.ErrValidation)
	assert.ErrorIs(t, err, &shared.Error{Code: shared.CodeAmbiguousBookingReference})

	t.Run("several invoice-level references", func(t *testing.T) {
		_, err := Allocate(Input{
			Candidates:        []Candidate{candidate("", "10")},
			InvoiceReferences: []string{"BL-1", "BL-2"},
		})
		assert.ErrorIs(t, err, &shared.Error{Code: shared.CodeAmbiguousBookingReference})
	})
}

func TestAllocate_NoReferenceAnywhere(t *testing.T) {
	_, err := Allocate(Input{Candidates: []Candidate{candidate("", "10")}})
	assert.ErrorIs(t, err, ErrMissingBookingReference)
}

func TestAllocate_EmptyInvoiceIsANoOp(t *testing.T) {
	result, err := Allocate(Input{TaxAmount: money.MustFromString("21")})
	require.NoError(t, err)
	assert.Empty(t, result.Allocations)
	assert.True(t, result.ChargeTotal.IsZero())
	assert.False(t, result.TaxDistributed)
}

func TestAllocate_ZeroChargeTotalSkipsTaxDistribution(t *testing.T) {
	result, err := Allocate(Input{
		Candidates: []Candidate{candidate("BL-1", "100"), candidate("BL-2", "-100")},
		TaxAmount:  money.MustFromString("21"),
	})
	require.NoError(t, err)

	assert.False(t, result.TaxDistributed)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, shared.WarningTaxNotDistributed, result.Warnings[0].Code)
	for _, a := range result.Allocations {
		assert.True(t, a.Tax.IsZero())
	}
}

func TestAllocate_TaxSharesAlwaysSumToInvoiceTax(t *testing.T) {
	amounts := []string{"0.01", "1500.00", "0.02", "33.33", "7.77", "0.01"}
	candidates := make([]Candidate, len(amounts))
	for i, a := range amounts {
		candidates[i] = candidate(string(rune('A'+i)), a)
	}

	for _, tax := range []string{"0.01", "0.05", "315.26", "1000000.00"} {
		t.Run(tax, func(t *testing.T) {
			result, err := Allocate(Input{Candidates: candidates, TaxAmount: money.MustFromString(tax)})
			require.NoError(t, err)

			total := money.Zero()
			for _, a := range result.Allocations {
				total = total.Add(a.Tax)
			}
			assert.Equal(t, money.MustFromString(tax).String(), total.String())
		})
	}
}
