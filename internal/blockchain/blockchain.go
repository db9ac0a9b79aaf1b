// internal/blockchain/blockchain.go
package blockchain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Call is a fully encoded state-changing contract call, ready for a signer.
// Method is a human label used for logs and status messages only.
type Call struct {
	To     common.Address
	Data   []byte
	Value  *big.Int
	Method string
}

func (c Call) String() string {
	if c.Value != nil && c.Value.Sign() > 0 {
		return fmt.Sprintf("%s on %s (value %s)", c.Method, c.To.Hex(), c.Value)
	}
	return fmt.Sprintf("%s on %s", c.Method, c.To.Hex())
}

// Receipt is the committed outcome of a submitted call.
type Receipt struct {
	TxHash      common.Hash
	BlockNumber uint64
	GasUsed     uint64
	Success     bool
	// RevertReason is filled when the signer can recover it.
	RevertReason string
}

// Signer is the external wallet. Submit hands a call to the wallet and
// returns once it has been broadcast (or rejected); Wait blocks until the
// transaction is mined. Neither is retried by the core.
type Signer interface {
	Address() common.Address
	Submit(ctx context.Context, call Call) (common.Hash, error)
	Wait(ctx context.Context, tx common.Hash) (*Receipt, error)
}

// RejectedError is returned by signers when the user or wallet declines.
type RejectedError struct {
	Reason string
}

func (e *RejectedError) Error() string {
	if e.Reason == "" {
		return "transaction rejected by signer"
	}
	return "transaction rejected by signer: " + e.Reason
}

// RevertedError reports a mined transaction whose execution failed.
type RevertedError struct {
	Receipt *Receipt
}

func (e *RevertedError) Error() string {
	if e.Receipt == nil {
		return "transaction reverted"
	}
	if e.Receipt.RevertReason != "" {
		return fmt.Sprintf("transaction %s reverted: %s", e.Receipt.TxHash.Hex(), e.Receipt.RevertReason)
	}
	return fmt.Sprintf("transaction %s reverted", e.Receipt.TxHash.Hex())
}
