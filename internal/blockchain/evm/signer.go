// internal/blockchain/evm/signer.go
package evm

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/blockchain"
	lptypes "github.com/rovshanmuradov/launchpad/internal/types"
)

var ErrConfirmationTimeout = errors.New("transaction confirmation timeout")

// TxBackend is what KeySigner needs from a node. *ethclient.Client
// satisfies it.
type TxBackend interface {
	bind.DeployBackend
	Reader
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// SignerConfig tunes gas and confirmation handling.
type SignerConfig struct {
	ChainID          *big.Int
	ConfirmTimeout   time.Duration
	PollInterval     time.Duration
	GasLimitBuffer   uint64 // percent added on top of the estimate
	BroadcastRetries uint
	Priority         lptypes.PriorityLevel
}

// KeySigner signs with a local private key. It stands in for an external
// wallet; the core only sees blockchain.Signer.
type KeySigner struct {
	backend TxBackend
	key     *ecdsa.PrivateKey
	address common.Address
	signer  types.Signer
	config  SignerConfig
	logger  *zap.Logger

	mu      sync.Mutex
	pending map[common.Hash]*types.Transaction
}

var _ blockchain.Signer = (*KeySigner)(nil)

// ParsePrivateKey accepts a hex key with or without 0x.
func ParsePrivateKey(hexKey string) (*ecdsa.PrivateKey, error) {
	h := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if h == "" {
		return nil, errors.New("empty private key")
	}
	key, err := crypto.HexToECDSA(h)
	if err != nil {
		return nil, fmt.Errorf("failed to decode private key: %w", err)
	}
	return key, nil
}

func NewKeySigner(backend TxBackend, key *ecdsa.PrivateKey, config SignerConfig, logger *zap.Logger) (*KeySigner, error) {
	if config.ChainID == nil || config.ChainID.Sign() <= 0 {
		return nil, errors.New("chain id is required")
	}
	if config.ConfirmTimeout <= 0 {
		config.ConfirmTimeout = 3 * time.Minute
	}
	if config.PollInterval <= 0 {
		config.PollInterval = time.Second
	}
	if config.GasLimitBuffer == 0 {
		config.GasLimitBuffer = 20
	}
	if config.BroadcastRetries == 0 {
		config.BroadcastRetries = 3
	}

	address := crypto.PubkeyToAddress(key.PublicKey)
	return &KeySigner{
		backend: backend,
		key:     key,
		address: address,
		signer:  types.LatestSignerForChainID(config.ChainID),
		config:  config,
		logger:  logger.Named("signer").With(zap.String("address", address.Hex())),
		pending: make(map[common.Hash]*types.Transaction),
	}, nil
}

func (s *KeySigner) Address() common.Address { return s.address }

// Submit prices, signs and broadcasts call. The signed transaction is
// rebroadcast on transport errors only; rebroadcasting the same bytes
// cannot double-spend.
func (s *KeySigner) Submit(ctx context.Context, call blockchain.Call) (common.Hash, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.buildTransaction(ctx, call)
	if err != nil {
		return common.Hash{}, err
	}

	signed, err := types.SignTx(tx, s.signer, s.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	op := func() (common.Hash, error) {
		if err := s.backend.SendTransaction(ctx, signed); err != nil {
			if strings.Contains(err.Error(), "already known") {
				return signed.Hash(), nil
			}
			if isPermanentSendError(err) {
				return common.Hash{}, backoff.Permanent(err)
			}
			s.logger.Warn("Retrying transaction send", zap.Error(err))
			return common.Hash{}, err
		}
		return signed.Hash(), nil
	}

	hash, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(s.config.BroadcastRetries))
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to send %s: %w", call.Method, err)
	}

	s.pending[hash] = signed
	s.logger.Info("Transaction sent",
		zap.String("method", call.Method),
		zap.String("tx", hash.Hex()),
		zap.Uint64("nonce", signed.Nonce()),
		zap.Uint64("gas", signed.Gas()))
	return hash, nil
}

func (s *KeySigner) buildTransaction(ctx context.Context, call blockchain.Call) (*types.Transaction, error) {
	value := call.Value
	if value == nil {
		value = new(big.Int)
	}
	to := call.To

	nonce, err := s.backend.PendingNonceAt(ctx, s.address)
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}

	gas, err := s.backend.EstimateGas(ctx, ethereum.CallMsg{From: s.address, To: &to, Value: value, Data: call.Data})
	if err != nil {
		if reason := RevertReason(err); reason != "" {
			return nil, fmt.Errorf("%s would revert: %s: %w", call.Method, reason, err)
		}
		return nil, fmt.Errorf("failed to estimate gas for %s: %w", call.Method, err)
	}
	gas += gas * s.config.GasLimitBuffer / 100
	priority := s.config.Priority.Config()

	head, err := s.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest header: %w", err)
	}

	if head.BaseFee == nil {
		price, err := s.backend.SuggestGasPrice(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to suggest gas price: %w", err)
		}
		return types.NewTx(&types.LegacyTx{
			Nonce: nonce, GasPrice: priority.Scale(price), Gas: gas, To: &to, Value: value, Data: call.Data,
		}), nil
	}

	tip, err := s.backend.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to suggest gas tip: %w", err)
	}
	tip = priority.Scale(tip)
	feeCap := priority.FeeCap(tip, head.BaseFee)

	return types.NewTx(&types.DynamicFeeTx{
		ChainID:   s.config.ChainID,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        &to,
		Value:     value,
		Data:      call.Data,
	}), nil
}

// Wait blocks until tx is mined or the confirm timeout passes.
func (s *KeySigner) Wait(ctx context.Context, hash common.Hash) (*blockchain.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.ConfirmTimeout)
	defer cancel()

	s.mu.Lock()
	tx := s.pending[hash]
	s.mu.Unlock()

	var (
		receipt *types.Receipt
		err     error
	)
	if tx != nil {
		receipt, err = bind.WaitMined(ctx, s.backend, tx)
	} else {
		receipt, err = s.awaitReceipt(ctx, hash)
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %s", ErrConfirmationTimeout, hash.Hex())
		}
		return nil, err
	}

	s.mu.Lock()
	delete(s.pending, hash)
	s.mu.Unlock()

	out := &blockchain.Receipt{
		TxHash:  receipt.TxHash,
		GasUsed: receipt.GasUsed,
		Success: receipt.Status == types.ReceiptStatusSuccessful,
	}
	if receipt.BlockNumber != nil {
		out.BlockNumber = receipt.BlockNumber.Uint64()
	}
	if !out.Success && tx != nil {
		out.RevertReason = s.replayRevert(ctx, tx, receipt.BlockNumber)
	}

	s.logger.Info("Transaction mined",
		zap.String("tx", hash.Hex()),
		zap.Bool("success", out.Success),
		zap.Uint64("block", out.BlockNumber),
		zap.Uint64("gas_used", out.GasUsed))
	return out, nil
}

// awaitReceipt polls for a transaction this signer did not send in the
// current process.
func (s *KeySigner) awaitReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	for {
		receipt, err := s.backend.TransactionReceipt(ctx, hash)
		if err == nil && receipt != nil {
			return receipt, nil
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			s.logger.Warn("Receipt check failed", zap.String("tx", hash.Hex()), zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// replayRevert re-executes a failed transaction at its block to recover
// the revert reason. Best effort.
func (s *KeySigner) replayRevert(ctx context.Context, tx *types.Transaction, block *big.Int) string {
	msg := ethereum.CallMsg{From: s.address, To: tx.To(), Gas: tx.Gas(), Value: tx.Value(), Data: tx.Data()}
	_, err := s.backend.CallContract(ctx, msg, block)
	return RevertReason(err)
}

func isPermanentSendError(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"nonce too low", "insufficient funds", "replacement transaction underpriced", executionReverted} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
