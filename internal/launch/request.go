// internal/launch/request.go
package launch

import (
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/rovshanmuradov/launchpad/internal/metadata"
	"github.com/rovshanmuradov/launchpad/internal/types"
	"github.com/rovshanmuradov/launchpad/internal/units"
)

const (
	MinDecimals = 6
	MaxDecimals = 18
)

var (
	ErrInvalidRequest = errors.New("invalid launch request")

	symbolPattern = regexp.MustCompile(`^[A-Za-z0-9]{2,11}$`)
)

// Seed asks for an initial pool of Tokens new tokens against Base native
// currency, both as human decimal strings.
type Seed struct {
	Tokens string
	Base   string
}

// Request is one "create token" submission.
type Request struct {
	Name          string
	Symbol        string
	Description   string
	Decimals      uint8
	InitialSupply string
	Links         metadata.Links
	// Image is the raw token image, optional.
	Image        []byte
	AutoRenounce bool
	LockLP       bool
	// Seed is nil when no liquidity is requested.
	Seed     *Seed
	Slippage types.Tolerance
}

// plan holds the request amounts in base units.
type plan struct {
	supply     *big.Int
	seedTokens *big.Int
	seedBase   *big.Int
}

func (p plan) seeding() bool { return p.seedTokens != nil }

// Validate runs every local check. It never touches the chain.
func (r Request) Validate() error {
	_, err := r.plan()
	return err
}

func (r Request) plan() (plan, error) {
	var p plan

	if strings.TrimSpace(r.Name) == "" {
		return p, fmt.Errorf("%w: token name required", ErrInvalidRequest)
	}
	if !symbolPattern.MatchString(r.Symbol) {
		return p, fmt.Errorf("%w: symbol must be 2-11 alphanumeric characters", ErrInvalidRequest)
	}
	if r.Decimals < MinDecimals || r.Decimals > MaxDecimals {
		return p, fmt.Errorf("%w: decimals must be between %d and %d", ErrInvalidRequest, MinDecimals, MaxDecimals)
	}

	supply, err := units.ToBaseUnits(r.InitialSupply, int(r.Decimals))
	if err != nil {
		return p, fmt.Errorf("initial supply: %w", err)
	}
	if supply.Sign() <= 0 {
		return p, fmt.Errorf("%w: initial supply must be positive", types.ErrInvalidAmount)
	}
	p.supply = supply

	if len(r.Image) > 0 {
		if _, err := metadata.ValidateImage(r.Image); err != nil {
			return p, err
		}
	}

	if r.Seed == nil {
		return p, nil
	}
	tokens, err := units.ToBaseUnits(r.Seed.Tokens, int(r.Decimals))
	if err != nil {
		return p, fmt.Errorf("liquidity tokens: %w", err)
	}
	base, err := units.ToBaseUnits(r.Seed.Base, nativeDecimals)
	if err != nil {
		return p, fmt.Errorf("liquidity base amount: %w", err)
	}
	p.seedTokens, p.seedBase = tokens, base
	return p, checkSeed(tokens, base, supply)
}

// checkSeed holds both before any external call and again once the token
// exists.
func checkSeed(tokens, base, supply *big.Int) error {
	if tokens.Sign() <= 0 || base.Sign() <= 0 {
		return fmt.Errorf("%w: both liquidity amounts must be positive", types.ErrPreconditionViolated)
	}
	if tokens.Cmp(supply) > 0 {
		return fmt.Errorf("%w: liquidity tokens %s exceed initial supply %s",
			types.ErrPreconditionViolated, tokens, supply)
	}
	return nil
}

func (r Request) document(owner string) metadata.Document {
	return metadata.Document{
		Name:        r.Name,
		Symbol:      r.Symbol,
		Description: r.Description,
		Links:       r.Links,
		Options:     metadata.Options{AutoRenounce: r.AutoRenounce, LockLP: r.LockLP},
		Owner:       owner,
	}
}
