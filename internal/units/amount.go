// internal/units/amount.go
package units

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/rovshanmuradov/launchpad/internal/types"
)

// ErrDecimalsMismatch is returned when two amounts of different precision are
// combined without normalizing first.
var ErrDecimalsMismatch = fmt.Errorf("%w: decimals mismatch", types.ErrInvalidAmount)

// Amount is a non-negative token amount in base units together with the
// token's decimal precision.
type Amount struct {
	value    *big.Int
	decimals uint8
}

// NewAmount copies v into an Amount. Negative values are rejected.
func NewAmount(v *big.Int, decimals uint8) (Amount, error) {
	if v == nil {
		return Zero(decimals), nil
	}
	if v.Sign() < 0 {
		return Amount{}, fmt.Errorf("%w: negative magnitude %s", types.ErrInvalidAmount, v)
	}
	return Amount{value: new(big.Int).Set(v), decimals: decimals}, nil
}

// MustAmount is NewAmount for values known to be valid.
func MustAmount(v *big.Int, decimals uint8) Amount {
	a, err := NewAmount(v, decimals)
	if err != nil {
		panic(err)
	}
	return a
}

// Parse converts a human string into an Amount.
func Parse(human string, decimals uint8) (Amount, error) {
	v, err := ToBaseUnits(human, int(decimals))
	if err != nil {
		return Amount{}, err
	}
	return Amount{value: v, decimals: decimals}, nil
}

// Zero returns a zero amount.
func Zero(decimals uint8) Amount {
	return Amount{value: new(big.Int), decimals: decimals}
}

// One returns the canonical single unit, 10^decimals base units.
func One(decimals uint8) Amount {
	return Amount{value: Pow10(int(decimals)), decimals: decimals}
}

// Int returns a copy of the magnitude.
func (a Amount) Int() *big.Int {
	if a.value == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(a.value)
}

// Decimals returns the precision.
func (a Amount) Decimals() uint8 { return a.decimals }

// IsZero reports whether the magnitude is zero.
func (a Amount) IsZero() bool { return a.value == nil || a.value.Sign() == 0 }

// String renders the human representation.
func (a Amount) String() string { return FromBaseUnits(a.value, int(a.decimals)) }

// Cmp compares two amounts of equal precision.
func (a Amount) Cmp(b Amount) (int, error) {
	if a.decimals != b.decimals {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDecimalsMismatch, a.decimals, b.decimals)
	}
	return a.Int().Cmp(b.Int()), nil
}

// Add returns a+b.
func (a Amount) Add(b Amount) (Amount, error) {
	if a.decimals != b.decimals {
		return Amount{}, fmt.Errorf("%w: %d vs %d", ErrDecimalsMismatch, a.decimals, b.decimals)
	}
	return Amount{value: new(big.Int).Add(a.Int(), b.Int()), decimals: a.decimals}, nil
}

// Sub returns a-b; the result may not go negative.
func (a Amount) Sub(b Amount) (Amount, error) {
	if a.decimals != b.decimals {
		return Amount{}, fmt.Errorf("%w: %d vs %d", ErrDecimalsMismatch, a.decimals, b.decimals)
	}
	d := new(big.Int).Sub(a.Int(), b.Int())
	if d.Sign() < 0 {
		return Amount{}, fmt.Errorf("%w: %s - %s is negative", types.ErrInvalidAmount, a, b)
	}
	return Amount{value: d, decimals: a.decimals}, nil
}

// Normalize rescales the amount to another precision. Scaling down
// truncates toward zero like ToBaseUnits does.
func (a Amount) Normalize(decimals uint8) Amount {
	v := a.Int()
	switch {
	case decimals > a.decimals:
		v.Mul(v, Pow10(int(decimals-a.decimals)))
	case decimals < a.decimals:
		v.Quo(v, Pow10(int(a.decimals-decimals)))
	}
	return Amount{value: v, decimals: decimals}
}

// IsDecimalsMismatch reports whether err came from mixing precisions.
func IsDecimalsMismatch(err error) bool {
	return errors.Is(err, ErrDecimalsMismatch)
}
