// internal/units/units.go

// Package units converts between human-readable decimal strings and the
// integer base units tokens use on-chain. All arithmetic is exact.
package units

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/rovshanmuradov/launchpad/internal/types"
)

// MaxDecimals bounds the precision the codec accepts; a uint256 has 78 digits.
const MaxDecimals = 77

var ten = big.NewInt(10)

// Pow10 returns 10^d.
func Pow10(d int) *big.Int {
	return new(big.Int).Exp(ten, big.NewInt(int64(d)), nil)
}

// ToBaseUnits parses a human amount such as "1,000.25" or "1_000" into base units for a
// token with the given decimals. Blank input is zero. Fraction digits beyond
// decimals are truncated, never rounded.
func ToBaseUnits(human string, decimals int) (*big.Int, error) {
	if decimals < 0 || decimals > MaxDecimals {
		return nil, fmt.Errorf("%w: decimals %d out of range", types.ErrInvalidAmount, decimals)
	}

	s := strings.TrimSpace(human)
	if s == "" {
		return new(big.Int), nil
	}

	whole, frac, _ := strings.Cut(s, ".")
	if strings.Contains(frac, ".") {
		return nil, fmt.Errorf("%w: %q has more than one decimal point", types.ErrInvalidAmount, human)
	}
	whole, ok := ungroup(whole)
	if !ok {
		return nil, fmt.Errorf("%w: %q has misplaced digit separators", types.ErrInvalidAmount, human)
	}
	if whole == "" && frac == "" {
		return nil, fmt.Errorf("%w: %q has no digits", types.ErrInvalidAmount, human)
	}
	if !allDigits(whole) || !allDigits(frac) {
		return nil, fmt.Errorf("%w: %q contains non-numeric characters", types.ErrInvalidAmount, human)
	}

	if len(frac) > decimals {
		frac = frac[:decimals]
	} else {
		frac += strings.Repeat("0", decimals-len(frac))
	}

	digits := strings.TrimLeft(whole+frac, "0")
	if digits == "" {
		return new(big.Int), nil
	}
	v, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q", types.ErrInvalidAmount, human)
	}
	return v, nil
}

// FromBaseUnits renders base units as the shortest exact decimal string:
// trailing fraction zeros are dropped and no point is emitted for integers.
func FromBaseUnits(m *big.Int, decimals int) string {
	if m == nil || m.Sign() == 0 {
		return "0"
	}
	if decimals <= 0 {
		return m.String()
	}

	neg := m.Sign() < 0
	s := new(big.Int).Abs(m).String()
	if len(s) <= decimals {
		s = strings.Repeat("0", decimals-len(s)+1) + s
	}
	i := len(s) - decimals
	whole, frac := s[:i], strings.TrimRight(s[i:], "0")

	out := whole
	if frac != "" {
		out += "." + frac
	}
	if neg {
		out = "-" + out
	}
	return out
}

// FormatDisplay renders base units with at most maxFrac fraction digits,
// truncating the rest. It is for display only and does not round-trip.
func FormatDisplay(m *big.Int, decimals, maxFrac int) string {
	full := FromBaseUnits(m, decimals)
	whole, frac, ok := strings.Cut(full, ".")
	if !ok || maxFrac < 0 {
		return full
	}
	if len(frac) > maxFrac {
		frac = strings.TrimRight(frac[:maxFrac], "0")
	}
	if frac == "" {
		return whole
	}
	return whole + "." + frac
}

// ungroup drops thousands separators from the whole part. One separator
// kind is allowed, and every group after the first has three characters.
func ungroup(whole string) (string, bool) {
	sep := ""
	for _, c := range []string{",", "_"} {
		if strings.Contains(whole, c) {
			if sep != "" {
				return "", false
			}
			sep = c
		}
	}
	if sep == "" {
		return whole, true
	}

	groups := strings.Split(whole, sep)
	if n := len(groups[0]); n == 0 || n > 3 {
		return "", false
	}
	for _, g := range groups[1:] {
		if len(g) != 3 {
			return "", false
		}
	}
	return strings.Join(groups, ""), true
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
