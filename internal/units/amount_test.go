package units

import (
	"math/big"
	"testing"

	"github.com/rovshanmuradov/launchpad/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAmountParseAndString(t *testing.T) {
	a, err := Parse("100000", 18)
	require.NoError(t, err)
	assert.Equal(t, "100000", a.String())
	assert.Equal(t, uint8(18), a.Decimals())
	assert.Equal(t, "100000000000000000000000", a.Int().String())
}

func TestAmountIntIsACopy(t *testing.T) {
	a := MustAmount(big.NewInt(10), 0)
	a.Int().SetInt64(99)
	assert.Equal(t, int64(10), a.Int().Int64())
}

func TestNewAmountRejectsNegative(t *testing.T) {
	_, err := NewAmount(big.NewInt(-1), 6)
	assert.ErrorIs(t, err, types.ErrInvalidAmount)
}

func TestAmountDecimalsMustMatch(t *testing.T) {
	a := One(18)
	b := One(6)

	_, err := a.Cmp(b)
	assert.True(t, IsDecimalsMismatch(err))
	assert.ErrorIs(t, err, types.ErrInvalidAmount)

	_, err = a.Add(b)
	assert.ErrorIs(t, err, ErrDecimalsMismatch)

	c, err := a.Cmp(b.Normalize(18))
	require.NoError(t, err)
	assert.Equal(t, 0, c)
}

func TestAmountArithmetic(t *testing.T) {
	a, _ := Parse("1.5", 6)
	b, _ := Parse("0.25", 6)

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.Equal(t, "1.75", sum.String())

	diff, err := a.Sub(b)
	require.NoError(t, err)
	assert.Equal(t, "1.25", diff.String())

	_, err = b.Sub(a)
	assert.ErrorIs(t, err, types.ErrInvalidAmount)
}

func TestNormalizeTruncates(t *testing.T) {
	a, _ := Parse("1.23456789", 18)
	n := a.Normalize(6)
	assert.Equal(t, "1.234567", n.String())
	assert.Equal(t, uint8(6), n.Decimals())

	up := n.Normalize(18)
	assert.Equal(t, "1.234567", up.String())
}

func TestZeroAndOne(t *testing.T) {
	assert.True(t, Zero(18).IsZero())
	assert.True(t, Amount{}.IsZero())
	assert.Equal(t, "1", One(18).String())
	assert.Equal(t, "1000000", One(6).Int().String())
}
