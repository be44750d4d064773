package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToCents(t *testing.T) {
	c, err := ToCents(decimal.RequireFromString("100.00"))
	require.NoError(t, err)
	assert.Equal(t, Cents(10000), c)

	c, err = ToCents(decimal.RequireFromString("0.5"))
	require.NoError(t, err)
	assert.Equal(t, Cents(50), c)

	_, err = ToCents(decimal.RequireFromString("1.005"))
	assert.Error(t, err)

	_, err = ToCents(decimal.RequireFromString("-1"))
	assert.Error(t, err)

	c, err = ToCents(MaxCents.Decimal())
	require.NoError(t, err)
	assert.Equal(t, MaxCents, c)

	_, err = ToCents(MaxCents.Decimal().Add(decimal.RequireFromString("0.01")))
	assert.Error(t, err)
}

func TestToCents_RejectsAmountsThatWouldWrap(t *testing.T) {
	// 2^64 cents truncates to zero in int64
	for _, s := range []string{"184467440737095516.16", "92233720368547758.08", "1e30"} {
		_, err := ParseCents(s)
		assert.Error(t, err, s)
	}
}

func TestParseCents(t *testing.T) {
	c, err := ParseCents("49.99")
	require.NoError(t, err)
	assert.Equal(t, "49.99", c.String())

	_, err = ParseCents("abc")
	assert.Error(t, err)
}

func TestCentsArithmetic(t *testing.T) {
	unit := Cents(5000)
	assert.Equal(t, Cents(10000), unit.Mul(2))
	assert.Equal(t, "100.00", unit.Mul(2).String())
	assert.InDelta(t, 100.0, unit.Mul(2).Float64(), 0.0001)
}
