// internal/pipeline/mocks_test.go
package pipeline

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/mock"

	"github.com/rovshanmuradov/launchpad/internal/blockchain"
)

// MockSigner implements blockchain.Signer.
type MockSigner struct {
	mock.Mock
}

func (m *MockSigner) Address() common.Address {
	return common.HexToAddress("0x000000000000000000000000000000000000beef")
}

func (m *MockSigner) Submit(ctx context.Context, call blockchain.Call) (common.Hash, error) {
	args := m.Called(ctx, call)
	return args.Get(0).(common.Hash), args.Error(1)
}

func (m *MockSigner) Wait(ctx context.Context, tx common.Hash) (*blockchain.Receipt, error) {
	args := m.Called(ctx, tx)
	r, _ := args.Get(0).(*blockchain.Receipt)
	return r, args.Error(1)
}

func hashOf(i int) common.Hash {
	return common.BigToHash(big.NewInt(int64(i + 1)))
}

func staticStep(name string) Step {
	return Step{
		Name: name,
		Kind: name,
		Build: func(context.Context, *State) (blockchain.Call, error) {
			return blockchain.Call{Method: name}, nil
		},
	}
}

// expectStep makes the signer accept and confirm the call for name.
func expectStep(m *MockSigner, i int, name string) {
	m.On("Submit", mock.Anything, mock.MatchedBy(func(c blockchain.Call) bool { return c.Method == name })).
		Return(hashOf(i), nil).Once()
	m.On("Wait", mock.Anything, hashOf(i)).
		Return(&blockchain.Receipt{TxHash: hashOf(i), Success: true, BlockNumber: uint64(100 + i)}, nil).Once()
}
