// internal/blockchain/types.go
package blockchain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// TokenInfo is the factory's record for a launched token. The legacy
// getTokenMetadata accessor fills only the descriptive strings.
type TokenInfo struct {
	Token       common.Address
	Creator     common.Address
	Name        string
	Symbol      string
	Description string
	ImageURI    string
	Twitter     string
	Telegram    string
	Website     string
	CreatedAt   *big.Int
	LPLocked    bool
	LockID      *big.Int
}

// CreateTokenParams are the factory createToken arguments. Fee is sent as
// the call value.
type CreateTokenParams struct {
	Name          string
	Symbol        string
	Decimals      uint8
	InitialSupply *big.Int
	MetadataURI   string
	AutoRenounce  bool
	Fee           *big.Int
}

// AddLiquidityParams are the router addLiquidity arguments.
type AddLiquidityParams struct {
	TokenA         common.Address
	TokenB         common.Address
	AmountADesired *big.Int
	AmountBDesired *big.Int
	AmountAMin     *big.Int
	AmountBMin     *big.Int
	To             common.Address
	Deadline       *big.Int
}

// SwapParams are the router swapExactTokensForTokens arguments.
type SwapParams struct {
	AmountIn     *big.Int
	AmountOutMin *big.Int
	Path         []common.Address
	To           common.Address
	Deadline     *big.Int
}

// Factory is the launchpad factory contract.
type Factory interface {
	Address() common.Address
	// Number of tokens the factory has created.
	TotalTokens(ctx context.Context) (*big.Int, error)
	// Token address at index (current accessor).
	TokenAt(ctx context.Context, index *big.Int) (common.Address, error)
	// Token address at index (legacy tokensList accessor).
	LegacyTokenAt(ctx context.Context, index *big.Int) (common.Address, error)
	// Wrapped native currency the factory pairs against.
	WrappedNative(ctx context.Context) (common.Address, error)
	// AMM router the factory is wired to.
	Router(ctx context.Context) (common.Address, error)
	// Token record (getTokenInfo).
	TokenInfo(ctx context.Context, token common.Address) (*TokenInfo, error)
	// Token record (legacy getTokenMetadata).
	LegacyTokenMetadata(ctx context.Context, token common.Address) (*TokenInfo, error)
	CreateToken(p CreateTokenParams) (Call, error)
}

// Router is the AMM router contract.
type Router interface {
	Address() common.Address
	// Amounts along path for an exact input; last element is the output.
	AmountsOut(ctx context.Context, amountIn *big.Int, path []common.Address) ([]*big.Int, error)
	// Amounts along path for an exact output; first element is the input.
	AmountsIn(ctx context.Context, amountOut *big.Int, path []common.Address) ([]*big.Int, error)
	AddLiquidity(p AddLiquidityParams) (Call, error)
	SwapExactTokensForTokens(p SwapParams) (Call, error)
}

// Token is an ERC-20 token.
type Token interface {
	Address() common.Address
	Name(ctx context.Context) (string, error)
	Symbol(ctx context.Context) (string, error)
	Decimals(ctx context.Context) (uint8, error)
	TotalSupply(ctx context.Context) (*big.Int, error)
	BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error)
	Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error)
	Approve(spender common.Address, amount *big.Int) (Call, error)
}

// WrappedNative is a WETH-style token.
type WrappedNative interface {
	Token
	Deposit(value *big.Int) (Call, error)
	Withdraw(amount *big.Int) (Call, error)
}

// Backend binds contract capabilities to addresses on one chain.
type Backend interface {
	Factory(addr common.Address) Factory
	Router(addr common.Address) Router
	Token(addr common.Address) Token
	WrappedNative(addr common.Address) WrappedNative
	// Native currency balance.
	Balance(ctx context.Context, owner common.Address) (*big.Int, error)
}
