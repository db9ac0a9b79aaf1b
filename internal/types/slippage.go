// internal/types/slippage.go
package types

import (
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// MaxTolerancePercent is the widest slippage a user may accept.
	MaxTolerancePercent = 50
	bpsDenominator      = 10000
)

var (
	maxTolerance = decimal.NewFromInt(MaxTolerancePercent)
	hundred      = decimal.NewFromInt(100)
	bpsDenom     = big.NewInt(bpsDenominator)
)

// Tolerance is a slippage tolerance held in whole basis points. The zero
// value is a valid 0% tolerance.
type Tolerance struct {
	bps int64
}

// NewTolerance converts a percentage in [0, 50] into basis points.
// Precision finer than one basis point is truncated, which tightens the guard.
func NewTolerance(percent decimal.Decimal) (Tolerance, error) {
	if percent.IsNegative() || percent.GreaterThan(maxTolerance) {
		return Tolerance{}, fmt.Errorf("%w: %s%% is outside [0, %d]", ErrInvalidTolerance, percent.String(), MaxTolerancePercent)
	}
	return Tolerance{bps: percent.Mul(hundred).Truncate(0).IntPart()}, nil
}

// ParseTolerance parses "0.5", "3" or "1.25%".
func ParseTolerance(s string) (Tolerance, error) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Tolerance{}, fmt.Errorf("%w: %q", ErrInvalidTolerance, s)
	}
	return NewTolerance(d)
}

// TolerancePercent builds a Tolerance from a float percentage. The float is
// converted through its shortest decimal representation so 0.29 stays 29 bps.
func TolerancePercent(p float64) (Tolerance, error) {
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return Tolerance{}, fmt.Errorf("%w: %v", ErrInvalidTolerance, p)
	}
	return NewTolerance(decimal.NewFromFloat(p))
}

// MustTolerance is TolerancePercent for constants; it panics on bad input.
func MustTolerance(p float64) Tolerance {
	t, err := TolerancePercent(p)
	if err != nil {
		panic(err)
	}
	return t
}

// BasisPoints returns the tolerance in basis points.
func (t Tolerance) BasisPoints() int64 { return t.bps }

// Percent returns the tolerance as a percentage.
func (t Tolerance) Percent() decimal.Decimal {
	return decimal.New(t.bps, -2)
}

func (t Tolerance) String() string {
	return t.Percent().String() + "%"
}

// MinOutput returns floor(quoted * (10000 - bps) / 10000): the least output
// a seller accepts before the pool call reverts.
func MinOutput(quoted *big.Int, t Tolerance) *big.Int {
	if quoted == nil || quoted.Sign() <= 0 {
		return new(big.Int)
	}
	n := new(big.Int).Mul(quoted, big.NewInt(bpsDenominator-t.bps))
	return n.Quo(n, bpsDenom)
}

// MaxInput returns ceil(quoted * (10000 + bps) / 10000): the most input a
// buyer is willing to spend for an exact output.
func MaxInput(quoted *big.Int, t Tolerance) *big.Int {
	if quoted == nil || quoted.Sign() <= 0 {
		return new(big.Int)
	}
	n := new(big.Int).Mul(quoted, big.NewInt(bpsDenominator+t.bps))
	n.Add(n, big.NewInt(bpsDenominator-1))
	return n.Quo(n, bpsDenom)
}

// Revert reasons emitted by the pool router when a guard trips.
var (
	slippageReasons = []string{
		"INSUFFICIENT_OUTPUT_AMOUNT",
		"INSUFFICIENT_A_AMOUNT",
		"INSUFFICIENT_B_AMOUNT",
		"EXCESSIVE_INPUT_AMOUNT",
	}
	deadlineReason = "EXPIRED"
)

// SlippageExceededError reports that the on-chain guard rejected a trade.
type SlippageExceededError struct {
	Tolerance     Tolerance
	Guard         *big.Int
	OriginalError error
}

func (e *SlippageExceededError) Error() string {
	return fmt.Sprintf("slippage exceeded: price moved beyond %s tolerance (guard %s): %v",
		e.Tolerance, e.Guard, e.OriginalError)
}

func (e *SlippageExceededError) Unwrap() error {
	return e.OriginalError
}

// IsSlippageExceeded reports whether err carries a router slippage revert.
func IsSlippageExceeded(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, r := range slippageReasons {
		if strings.Contains(msg, r) {
			return true
		}
	}
	return false
}

// IsDeadlineExpired reports whether err carries a router deadline revert.
func IsDeadlineExpired(err error) bool {
	return err != nil && strings.Contains(err.Error(), deadlineReason)
}
