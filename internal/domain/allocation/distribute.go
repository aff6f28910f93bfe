package allocation

import (
	"cmp"
	"slices"

	"github.com/freight-commission-ledger/internal/domain/money"
	"github.com/freight-commission-ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

var (
	ErrNoShares        = shared.Validation(shared.CodeEmptyCharges, "shares", "proportional distribution needs at least one share")
	ErrZeroWeightTotal = shared.Validation(shared.CodeZeroChargeTotal, "shares", "tax distribution requires non-zero charge total")
)

// Share is one recipient of a proportional split, weighted by its charge total.
type Share struct {
	Key    string
	Weight decimal.Decimal
}

// DistributeProportionally splits total (rounded to cents) across shares by
// weight. Each part is round(total × w / Σw, 2); the cents lost or gained by
// rounding each part on its own are added to the share with the largest
// absolute weight, ties going to the lexicographically first key. The parts,
// returned in input order, always sum exactly to the rounded total.
func DistributeProportionally(shares []Share, total money.Money) ([]money.Money, error) {
	if len(shares) == 0 {
		return nil, ErrNoShares
	}

	weightTotal := decimal.Zero
	for _, s := range shares {
		weightTotal = weightTotal.Add(s.Weight)
	}
	if weightTotal.IsZero() {
		return nil, ErrZeroWeightTotal
	}

	target := total.Round().Decimal()
	parts := make([]money.Money, len(shares))
	allocated := decimal.Zero
	for i, s := range shares {
		part := target.Mul(s.Weight).DivRound(weightTotal, money.Scale)
		parts[i] = money.New(part)
		allocated = allocated.Add(part)
	}

	if remainder := target.Sub(allocated); !remainder.IsZero() {
		i := largestShare(shares)
		parts[i] = parts[i].Add(money.New(remainder))
	}
	return parts, nil
}

func largestShare(shares []Share) int {
	order := make([]int, len(shares))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		if c := shares[b].Weight.Abs().Cmp(shares[a].Weight.Abs()); c != 0 {
			return c
		}
		return cmp.Compare(shares[a].Key, shares[b].Key)
	})
	return order[0]
}
