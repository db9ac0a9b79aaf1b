// internal/types/types.go
package types

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// TradePath is an ordered list of token addresses describing the pools a
// trade hops through. A valid path has at least two entries and no two
// adjacent entries are equal.
type TradePath []common.Address

// NewTradePath validates hops and returns them as a TradePath.
func NewTradePath(hops ...common.Address) (TradePath, error) {
	p := TradePath(append([]common.Address(nil), hops...))
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// ParseTradePath parses hex addresses into a TradePath.
func ParseTradePath(hops ...string) (TradePath, error) {
	addrs := make([]common.Address, 0, len(hops))
	for _, h := range hops {
		h = strings.TrimSpace(h)
		if !common.IsHexAddress(h) {
			return nil, fmt.Errorf("%w: %q is not an address", ErrInvalidPath, h)
		}
		addrs = append(addrs, common.HexToAddress(h))
	}
	return NewTradePath(addrs...)
}

// Validate checks the path invariants.
func (p TradePath) Validate() error {
	if len(p) < 2 {
		return fmt.Errorf("%w: need at least 2 tokens, got %d", ErrInvalidPath, len(p))
	}
	for i, a := range p {
		if a == (common.Address{}) {
			return fmt.Errorf("%w: zero address at hop %d", ErrInvalidPath, i)
		}
		if i > 0 && p[i-1] == a {
			return fmt.Errorf("%w: hop %d repeats %s", ErrInvalidPath, i, a.Hex())
		}
	}
	return nil
}

// In returns the input token.
func (p TradePath) In() common.Address { return p[0] }

// Out returns the output token.
func (p TradePath) Out() common.Address { return p[len(p)-1] }

// Addresses returns a copy of the hops.
func (p TradePath) Addresses() []common.Address {
	return append([]common.Address(nil), p...)
}

// Reverse returns the path traversed in the opposite direction.
func (p TradePath) Reverse() TradePath {
	r := make(TradePath, len(p))
	for i, a := range p {
		r[len(p)-1-i] = a
	}
	return r
}

// Equal reports whether two paths visit the same tokens in the same order.
func (p TradePath) Equal(o TradePath) bool {
	if len(p) != len(o) {
		return false
	}
	for i := range p {
		if p[i] != o[i] {
			return false
		}
	}
	return true
}

func (p TradePath) String() string {
	parts := make([]string, len(p))
	for i, a := range p {
		parts[i] = a.Hex()
	}
	return strings.Join(parts, " -> ")
}
