// Package money implements the EUR amount used by every booking, charge and report.
//
// Amounts keep full decimal precision while they are accumulated and are only
// rounded (half-up, two places) when persisted or displayed.
package money

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Currency is the only currency the ledger accepts.
const Currency = "EUR"

// Scale is the number of decimals used when an amount is persisted or displayed.
const Scale = 2

// Money is an immutable EUR amount.
type Money struct {
	amount decimal.Decimal
}

// Zero is €0.00.
func Zero() Money { return Money{amount: decimal.Zero} }

// New wraps a decimal amount.
func New(amount decimal.Decimal) Money { return Money{amount: amount} }

// FromCents builds an amount from an integer number of cents.
func FromCents(cents int64) Money { return Money{amount: decimal.New(cents, -Scale)} }

// FromString parses amounts such as "1250.5" or "-3.10".
func FromString(s string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return Money{amount: d}, nil
}

// MustFromString is FromString for literals known to be valid.
func MustFromString(s string) Money {
	m, err := FromString(s)
	if err != nil {
		panic(err)
	}
	return m
}

// ValidateCurrency rejects anything that is not EUR. Amounts in other
// currencies never become Money.
func ValidateCurrency(code string) error {
	if !strings.EqualFold(strings.TrimSpace(code), Currency) {
		return fmt.Errorf("unsupported currency %q: only %s is accepted", code, Currency)
	}
	return nil
}

func (m Money) Add(other Money) Money { return Money{amount: m.amount.Add(other.amount)} }

func (m Money) Sub(other Money) Money { return Money{amount: m.amount.Sub(other.amount)} }

// Mul multiplies by a fraction such as a commission rate.
func (m Money) Mul(fraction decimal.Decimal) Money { return Money{amount: m.amount.Mul(fraction)} }

func (m Money) Neg() Money { return Money{amount: m.amount.Neg()} }

func (m Money) Abs() Money { return Money{amount: m.amount.Abs()} }

// Round rounds half away from zero to two decimals.
func (m Money) Round() Money { return Money{amount: m.amount.Round(Scale)} }

// Decimal exposes the unrounded amount.
func (m Money) Decimal() decimal.Decimal { return m.amount }

func (m Money) IsZero() bool { return m.amount.IsZero() }

func (m Money) IsNegative() bool { return m.amount.IsNegative() }

func (m Money) IsPositive() bool { return m.amount.IsPositive() }

func (m Money) Cmp(other Money) int { return m.amount.Cmp(other.amount) }

func (m Money) Equal(other Money) bool { return m.amount.Equal(other.amount) }

func (m Money) GreaterThan(other Money) bool { return m.amount.GreaterThan(other.amount) }

// String renders the rounded amount with exactly two decimals, e.g. "1000.00".
func (m Money) String() string { return m.amount.StringFixed(Scale) }

// Sum adds amounts in order.
func Sum(amounts ...Money) Money {
	total := Zero()
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// MarshalJSON encodes the amount as a fixed two-decimal string so clients never
// see binary floating point.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts both "12.30" and 12.30.
func (m *Money) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "" || raw == "null" {
		*m = Zero()
		return nil
	}
	parsed, err := FromString(raw)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Scan reads a NUMERIC column. The postgres driver hands numerics to
// sql.Scanner destinations as their text form.
func (m *Money) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*m = Zero()
		return nil
	case string:
		parsed, err := FromString(v)
		if err != nil {
			return err
		}
		*m = parsed
		return nil
	case []byte:
		return m.Scan(string(v))
	case int64:
		*m = Money{amount: decimal.NewFromInt(v)}
		return nil
	case float64:
		*m = Money{amount: decimal.NewFromFloat(v)}
		return nil
	}
	return fmt.Errorf("cannot scan %T into money", src)
}
