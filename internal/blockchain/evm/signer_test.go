package evm

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/blockchain"
	lptypes "github.com/rovshanmuradov/launchpad/internal/types"
)

type fakeTxBackend struct {
	*fakeNode
	baseFee     *big.Int
	sent        []*types.Transaction
	sendErrs    []error
	receipts    map[common.Hash]*types.Receipt
	estimateErr error
}

func newFakeTxBackend() *fakeTxBackend {
	return &fakeTxBackend{
		fakeNode: newFakeNode(),
		baseFee:  big.NewInt(10),
		receipts: map[common.Hash]*types.Receipt{},
	}
}

func (b *fakeTxBackend) CodeAt(context.Context, common.Address, *big.Int) ([]byte, error) {
	return nil, nil
}

func (b *fakeTxBackend) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	if r, ok := b.receipts[hash]; ok {
		return r, nil
	}
	return nil, ethereum.NotFound
}

func (b *fakeTxBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	return uint64(len(b.sent)), nil
}

func (b *fakeTxBackend) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	if b.estimateErr != nil {
		return 0, b.estimateErr
	}
	return 100_000, nil
}

func (b *fakeTxBackend) SuggestGasPrice(context.Context) (*big.Int, error) { return big.NewInt(7), nil }
func (b *fakeTxBackend) SuggestGasTipCap(context.Context) (*big.Int, error) {
	return big.NewInt(2), nil
}

func (b *fakeTxBackend) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	return &types.Header{Number: big.NewInt(1), BaseFee: b.baseFee}, nil
}

func (b *fakeTxBackend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	if len(b.sendErrs) > 0 {
		err := b.sendErrs[0]
		b.sendErrs = b.sendErrs[1:]
		if err != nil {
			return err
		}
	}
	b.sent = append(b.sent, tx)
	return nil
}

func newTestSigner(t *testing.T, backend TxBackend) *KeySigner {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	s, err := NewKeySigner(backend, key, SignerConfig{
		ChainID:        big.NewInt(50312),
		ConfirmTimeout: 2 * time.Second,
		PollInterval:   10 * time.Millisecond,
	}, zap.NewNop())
	require.NoError(t, err)
	return s
}

func TestKeySignerSubmitDynamicFee(t *testing.T) {
	backend := newFakeTxBackend()
	s := newTestSigner(t, backend)

	call := blockchain.Call{To: wethAddr, Data: erc20ABI.Methods["deposit"].ID, Value: big.NewInt(1000), Method: "deposit"}
	hash, err := s.Submit(context.Background(), call)
	require.NoError(t, err)

	require.Len(t, backend.sent, 1)
	tx := backend.sent[0]
	assert.Equal(t, hash, tx.Hash())
	assert.Equal(t, uint8(types.DynamicFeeTxType), tx.Type())
	assert.Equal(t, uint64(120_000), tx.Gas())
	assert.Equal(t, int64(22), tx.GasFeeCap().Int64())
	assert.Equal(t, int64(1000), tx.Value().Int64())

	from, err := types.Sender(types.LatestSignerForChainID(big.NewInt(50312)), tx)
	require.NoError(t, err)
	assert.Equal(t, s.Address(), from)
}

func TestKeySignerPriorityRaisesFees(t *testing.T) {
	backend := newFakeTxBackend()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	s, err := NewKeySigner(backend, key, SignerConfig{
		ChainID:  big.NewInt(50312),
		Priority: lptypes.PriorityExtreme,
	}, zap.NewNop())
	require.NoError(t, err)

	_, err = s.Submit(context.Background(), blockchain.Call{To: tokenAddr, Method: "approve"})
	require.NoError(t, err)
	tx := backend.sent[0]
	assert.Equal(t, int64(4), tx.GasTipCap().Int64())
	assert.Equal(t, int64(44), tx.GasFeeCap().Int64())
}

func TestKeySignerLegacyWithoutBaseFee(t *testing.T) {
	backend := newFakeTxBackend()
	backend.baseFee = nil
	s := newTestSigner(t, backend)

	_, err := s.Submit(context.Background(), blockchain.Call{To: tokenAddr, Method: "approve"})
	require.NoError(t, err)
	assert.Equal(t, uint8(types.LegacyTxType), backend.sent[0].Type())
	assert.Equal(t, int64(7), backend.sent[0].GasPrice().Int64())
}

func TestKeySignerRetriesBroadcast(t *testing.T) {
	backend := newFakeTxBackend()
	backend.sendErrs = []error{errors.New("connection refused")}
	s := newTestSigner(t, backend)

	_, err := s.Submit(context.Background(), blockchain.Call{To: tokenAddr, Method: "approve"})
	require.NoError(t, err)
	assert.Len(t, backend.sent, 1)
}

func TestKeySignerDoesNotRetryFundsError(t *testing.T) {
	backend := newFakeTxBackend()
	backend.sendErrs = []error{errors.New("insufficient funds for gas * price + value"), nil}
	s := newTestSigner(t, backend)

	_, err := s.Submit(context.Background(), blockchain.Call{To: tokenAddr, Method: "approve"})
	require.Error(t, err)
	assert.Empty(t, backend.sent)
}

func TestKeySignerEstimateRevert(t *testing.T) {
	backend := newFakeTxBackend()
	backend.estimateErr = errors.New("execution reverted: TransferHelper: TRANSFER_FROM_FAILED")
	s := newTestSigner(t, backend)

	_, err := s.Submit(context.Background(), blockchain.Call{To: tokenAddr, Method: "addLiquidity"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "addLiquidity would revert: TransferHelper: TRANSFER_FROM_FAILED")
	assert.Empty(t, backend.sent)
}

func TestKeySignerWait(t *testing.T) {
	backend := newFakeTxBackend()
	s := newTestSigner(t, backend)

	hash, err := s.Submit(context.Background(), blockchain.Call{To: tokenAddr, Method: "approve"})
	require.NoError(t, err)

	backend.receipts[hash] = &types.Receipt{
		TxHash: hash, Status: types.ReceiptStatusSuccessful, BlockNumber: big.NewInt(9), GasUsed: 50_000,
	}

	r, err := s.Wait(context.Background(), hash)
	require.NoError(t, err)
	assert.True(t, r.Success)
	assert.Equal(t, uint64(9), r.BlockNumber)
	assert.Equal(t, uint64(50_000), r.GasUsed)
}

func TestKeySignerWaitRevertedRecoversReason(t *testing.T) {
	backend := newFakeTxBackend()
	s := newTestSigner(t, backend)
	reason := encodeRevert(t, "UniswapV2Router: INSUFFICIENT_OUTPUT_AMOUNT")
	backend.on(routerABI, "swapExactTokensForTokens", func([]byte) ([]byte, error) {
		return nil, &revertErr{data: reason}
	})

	data, err := routerABI.Pack("swapExactTokensForTokens", big.NewInt(1), big.NewInt(1),
		[]common.Address{tokenAddr, wethAddr}, s.Address(), big.NewInt(1))
	require.NoError(t, err)

	hash, err := s.Submit(context.Background(), blockchain.Call{To: tokenAddr, Data: data, Method: "swap"})
	require.NoError(t, err)
	backend.receipts[hash] = &types.Receipt{TxHash: hash, Status: types.ReceiptStatusFailed, BlockNumber: big.NewInt(3)}

	r, err := s.Wait(context.Background(), hash)
	require.NoError(t, err)
	assert.False(t, r.Success)
	assert.Equal(t, "UniswapV2Router: INSUFFICIENT_OUTPUT_AMOUNT", r.RevertReason)
}

func TestKeySignerWaitUnknownHashTimesOut(t *testing.T) {
	backend := newFakeTxBackend()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	s, err := NewKeySigner(backend, key, SignerConfig{
		ChainID: big.NewInt(1), ConfirmTimeout: 50 * time.Millisecond, PollInterval: 5 * time.Millisecond,
	}, zap.NewNop())
	require.NoError(t, err)

	_, err = s.Wait(context.Background(), common.HexToHash("0xdead"))
	assert.ErrorIs(t, err, ErrConfirmationTimeout)
}

func TestParsePrivateKey(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	hexKey := "0x" + common.Bytes2Hex(crypto.FromECDSA(key))

	parsed, err := ParsePrivateKey(hexKey)
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey), crypto.PubkeyToAddress(parsed.PublicKey))

	_, err = ParsePrivateKey("")
	assert.Error(t, err)
	_, err = ParsePrivateKey("zz")
	assert.Error(t, err)
}
