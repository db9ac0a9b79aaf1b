// internal/quote/mocks_test.go
package quote

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/mock"

	"github.com/rovshanmuradov/launchpad/internal/blockchain"
)

// MockRouter implements blockchain.Router.
type MockRouter struct {
	mock.Mock
}

func (m *MockRouter) Address() common.Address {
	return common.HexToAddress("0x00000000000000000000000000000000000000aa")
}

func (m *MockRouter) AmountsOut(ctx context.Context, amountIn *big.Int, path []common.Address) ([]*big.Int, error) {
	args := m.Called(ctx, amountIn, path)
	amounts, _ := args.Get(0).([]*big.Int)
	return amounts, args.Error(1)
}

func (m *MockRouter) AmountsIn(ctx context.Context, amountOut *big.Int, path []common.Address) ([]*big.Int, error) {
	args := m.Called(ctx, amountOut, path)
	amounts, _ := args.Get(0).([]*big.Int)
	return amounts, args.Error(1)
}

func (m *MockRouter) AddLiquidity(p blockchain.AddLiquidityParams) (blockchain.Call, error) {
	args := m.Called(p)
	return args.Get(0).(blockchain.Call), args.Error(1)
}

func (m *MockRouter) SwapExactTokensForTokens(p blockchain.SwapParams) (blockchain.Call, error) {
	args := m.Called(p)
	return args.Get(0).(blockchain.Call), args.Error(1)
}

func ints(vs ...int64) []*big.Int {
	out := make([]*big.Int, len(vs))
	for i, v := range vs {
		out[i] = big.NewInt(v)
	}
	return out
}
