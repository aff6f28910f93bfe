package money

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoney_Arithmetic(t *testing.T) {
	a := MustFromString("2500.00")
	b := MustFromString("3000")

	assert.Equal(t, "5500.00", a.Add(b).String())
	assert.Equal(t, "-500.00", a.Sub(b).String())
	assert.Equal(t, "1250.00", a.Mul(decimal.RequireFromString("0.5")).String())
	assert.True(t, a.Sub(b).IsNegative())
	assert.Equal(t, "500.00", a.Sub(b).Abs().String())
	assert.Equal(t, "-2500.00", a.Neg().String())
}

func TestMoney_RepeatedAdditionDoesNotDrift(t *testing.T) {
	total := Zero()
	for i := 0; i < 1000; i++ {
		total = total.Add(MustFromString("0.10"))
	}
	assert.True(t, total.Equal(MustFromString("100")))
}

func TestMoney_RoundHalfUp(t *testing.T) {
	testCases := []struct {
		in       string
		expected string
	}{
		{"1.005", "1.01"},
		{"1.004", "1.00"},
		{"2.675", "2.68"},
		{"-1.005", "-1.01"},
		{"0.125", "0.13"},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			rounded := MustFromString(tc.in).Round()
			assert.Equal(t, tc.expected, rounded.Decimal().StringFixed(2))
			assert.Equal(t, tc.expected, MustFromString(tc.in).String())
		})
	}
}

func TestMoney_KeepsFullPrecisionUntilRounded(t *testing.T) {
	third := MustFromString("10").Mul(decimal.RequireFromString("0.3333333"))
	assert.Equal(t, "3.333333", third.Decimal().String())
	assert.Equal(t, "3.33", third.String())
}

func TestFromCents(t *testing.T) {
	assert.Equal(t, "12.34", FromCents(1234).String())
	assert.Equal(t, "-0.01", FromCents(-1).String())
}

func TestFromString_Invalid(t *testing.T) {
	_, err := FromString("12,50")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid amount")
}

func TestValidateCurrency(t *testing.T) {
	assert.NoError(t, ValidateCurrency("EUR"))
	assert.NoError(t, ValidateCurrency(" eur "))
	assert.Error(t, ValidateCurrency("USD"))
	assert.Error(t, ValidateCurrency(""))
}

func TestSum(t *testing.T) {
	assert.True(t, Sum().IsZero())
	assert.Equal(t, "6500.00", Sum(MustFromString("6000"), MustFromString("499.995"), MustFromString("0.005")).String())
}

func TestMoney_JSON(t *testing.T) {
	payload, err := json.Marshal(struct {
		Amount Money `json:"amount"`
	}{Amount: MustFromString("1000")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":"1000.00"}`, string(payload))

	var decoded struct {
		Quoted   Money `json:"quoted"`
		Unquoted Money `json:"unquoted"`
		Missing  Money `json:"missing"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"quoted":"12.30","unquoted":45.5,"missing":null}`), &decoded))
	assert.Equal(t, "12.30", decoded.Quoted.String())
	assert.Equal(t, "45.50", decoded.Unquoted.String())
	assert.True(t, decoded.Missing.IsZero())

	assert.Error(t, json.Unmarshal([]byte(`{"quoted":"abc"}`), &decoded))
}

func TestMoney_Scan(t *testing.T) {
	var m Money
	require.NoError(t, m.Scan("1210.50"))
	assert.Equal(t, "1210.50", m.String())

	require.NoError(t, m.Scan([]byte("-3.1")))
	assert.Equal(t, "-3.10", m.String())

	require.NoError(t, m.Scan(int64(7)))
	assert.Equal(t, "7.00", m.String())

	require.NoError(t, m.Scan(nil))
	assert.True(t, m.IsZero())

	assert.Error(t, m.Scan("abc"))
	assert.Error(t, m.Scan(true))
}
