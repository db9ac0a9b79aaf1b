// internal/blockchain/evm/client.go
package evm

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/blockchain"
)

// Reader is the read side of a node connection. *ethclient.Client
// satisfies it.
type Reader interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

// Config controls read retries.
type Config struct {
	RetryInitial    time.Duration
	RetryMaxElapsed time.Duration
}

func (c Config) withDefaults() Config {
	if c.RetryInitial <= 0 {
		c.RetryInitial = 200 * time.Millisecond
	}
	if c.RetryMaxElapsed <= 0 {
		c.RetryMaxElapsed = 10 * time.Second
	}
	return c
}

// Client implements blockchain.Backend over a JSON-RPC node.
type Client struct {
	rpc    Reader
	config Config
	logger *zap.Logger
}

var _ blockchain.Backend = (*Client)(nil)

// Dial connects to rpcURL.
func Dial(ctx context.Context, rpcURL string, config Config, logger *zap.Logger) (*Client, *ethclient.Client, error) {
	ec, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to dial %s: %w", rpcURL, err)
	}
	return NewClient(ec, config, logger), ec, nil
}

func NewClient(rpc Reader, config Config, logger *zap.Logger) *Client {
	return &Client{
		rpc:    rpc,
		config: config.withDefaults(),
		logger: logger.Named("evm"),
	}
}

func (c *Client) Factory(addr common.Address) blockchain.Factory {
	return &factory{client: c, addr: addr}
}

func (c *Client) Router(addr common.Address) blockchain.Router {
	return &router{client: c, addr: addr}
}

func (c *Client) Token(addr common.Address) blockchain.Token {
	return &token{client: c, addr: addr}
}

func (c *Client) WrappedNative(addr common.Address) blockchain.WrappedNative {
	return &wrapped{token: token{client: c, addr: addr}}
}

func (c *Client) Balance(ctx context.Context, owner common.Address) (*big.Int, error) {
	return retryRead(ctx, c, "balance", func() (*big.Int, error) {
		return c.rpc.BalanceAt(ctx, owner, nil)
	})
}

// call packs and executes a view method and returns its unpacked outputs.
// Transport failures are retried; reverts and decode errors are not.
func (c *Client) call(ctx context.Context, contract abi.ABI, to common.Address, method string, args ...interface{}) ([]interface{}, error) {
	data, err := contract.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}

	return retryRead(ctx, c, method, func() ([]interface{}, error) {
		raw, err := c.rpc.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
		if err != nil {
			if IsRevert(err) {
				return nil, backoff.Permanent(fmt.Errorf("%s reverted: %w", method, err))
			}
			return nil, fmt.Errorf("%s call failed: %w", method, err)
		}
		if len(raw) == 0 {
			return nil, backoff.Permanent(fmt.Errorf("%s returned no data from %s", method, to.Hex()))
		}
		out, err := contract.Unpack(method, raw)
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("failed to unpack %s: %w", method, err))
		}
		return out, nil
	})
}

func retryRead[T any](ctx context.Context, c *Client, what string, op func() (T, error)) (T, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.config.RetryInitial

	notify := func(err error, d time.Duration) {
		c.logger.Debug("Retrying read", zap.String("method", what), zap.Error(err), zap.Duration("backoff", d))
	}

	return backoff.Retry(ctx, op,
		backoff.WithBackOff(policy),
		backoff.WithMaxElapsedTime(c.config.RetryMaxElapsed),
		backoff.WithNotify(notify))
}

func encode(contract abi.ABI, to common.Address, value *big.Int, method string, args ...interface{}) (blockchain.Call, error) {
	data, err := contract.Pack(method, args...)
	if err != nil {
		return blockchain.Call{}, fmt.Errorf("failed to pack %s: %w", method, err)
	}
	if value == nil {
		value = new(big.Int)
	}
	return blockchain.Call{To: to, Data: data, Value: new(big.Int).Set(value), Method: method}, nil
}

func one[T any](out []interface{}, method string) (T, error) {
	var zero T
	if len(out) == 0 {
		return zero, fmt.Errorf("%s: empty result", method)
	}
	v, ok := out[0].(T)
	if !ok {
		return zero, fmt.Errorf("%s: unexpected result type %T", method, out[0])
	}
	return v, nil
}
