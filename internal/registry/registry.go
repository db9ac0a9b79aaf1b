// internal/registry/registry.go

// Package registry reads the factory's append-only token list. The newest
// token is always the one at the highest index.
package registry

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/launchpad/internal/blockchain"
	"github.com/rovshanmuradov/launchpad/internal/utils/metrics"
)

// DefaultDecimals is assumed for tokens whose decimals() cannot be read.
const DefaultDecimals = 18

var ErrEmpty = errors.New("factory has not created any token")

type Config struct {
	// Concurrency bounds parallel reads in List.
	Concurrency int
	// SettleTimeout bounds how long ResolveCreated waits for the node to
	// reflect a just-confirmed creation.
	SettleTimeout time.Duration
	SettleInitial time.Duration
}

func DefaultConfig() Config {
	return Config{Concurrency: 8, SettleTimeout: 30 * time.Second, SettleInitial: 250 * time.Millisecond}
}

// Entry is one registry slot with its ERC-20 details. Detail fields keep
// their defaults when the token could not be read; Err says why.
type Entry struct {
	Index       int
	Address     common.Address
	Name        string
	Symbol      string
	Decimals    uint8
	TotalSupply *big.Int
	Err         error
}

type Registry struct {
	factory blockchain.Factory
	backend blockchain.Backend
	config  Config
	metrics *metrics.Collector
	logger  *zap.Logger
}

func New(factory blockchain.Factory, backend blockchain.Backend, cfg Config, collector *metrics.Collector, logger *zap.Logger) *Registry {
	def := DefaultConfig()
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.SettleTimeout <= 0 {
		cfg.SettleTimeout = def.SettleTimeout
	}
	if cfg.SettleInitial <= 0 {
		cfg.SettleInitial = def.SettleInitial
	}
	return &Registry{
		factory: factory,
		backend: backend,
		config:  cfg,
		metrics: collector,
		logger:  logger.Named("registry"),
	}
}

func (r *Registry) Factory() blockchain.Factory { return r.factory }

// Count returns the number of tokens created so far.
func (r *Registry) Count(ctx context.Context) (int, error) {
	n, err := r.factory.TotalTokens(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read token count: %w", err)
	}
	if !n.IsInt64() || n.Sign() < 0 {
		return 0, fmt.Errorf("token count %s out of range", n)
	}
	return int(n.Int64()), nil
}

// At returns the token at index, falling back to the legacy accessor when
// the current one is unavailable.
func (r *Registry) At(ctx context.Context, index int) (common.Address, error) {
	idx := big.NewInt(int64(index))
	addr, err := r.factory.TokenAt(ctx, idx)
	if err == nil {
		return addr, nil
	}

	r.logger.Debug("tokenAt unavailable, using tokensList", zap.Int("index", index), zap.Error(err))
	legacy, legacyErr := r.factory.LegacyTokenAt(ctx, idx)
	if legacyErr != nil {
		return common.Address{}, fmt.Errorf("failed to read token %d: %w", index, errors.Join(err, legacyErr))
	}
	return legacy, nil
}

// Latest returns the most recently created token and its index.
func (r *Registry) Latest(ctx context.Context) (common.Address, int, error) {
	n, err := r.Count(ctx)
	if err != nil {
		return common.Address{}, 0, err
	}
	if n == 0 {
		return common.Address{}, 0, ErrEmpty
	}
	addr, err := r.At(ctx, n-1)
	return addr, n - 1, err
}

// ResolveCreated returns the newest token once the registry has grown past
// prevCount. Nodes behind a load balancer can lag the block that confirmed
// the creation, so the count is polled with backoff.
func (r *Registry) ResolveCreated(ctx context.Context, prevCount int) (common.Address, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = r.config.SettleInitial

	op := func() (common.Address, error) {
		n, err := r.Count(ctx)
		if err != nil {
			return common.Address{}, err
		}
		if n <= prevCount {
			return common.Address{}, fmt.Errorf("registry still at %d tokens", n)
		}
		return r.At(ctx, n-1)
	}

	addr, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(policy),
		backoff.WithMaxElapsedTime(r.config.SettleTimeout),
		backoff.WithNotify(func(err error, d time.Duration) {
			r.logger.Debug("Waiting for registry", zap.Error(err), zap.Duration("backoff", d))
		}))
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to resolve created token: %w", err)
	}
	return addr, nil
}

// List reads every registry entry in index order. Address reads must all
// succeed; per-token detail failures only leave defaults behind.
func (r *Registry) List(ctx context.Context) ([]Entry, error) {
	start := time.Now()
	n, err := r.Count(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, n)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.config.Concurrency)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			addr, err := r.At(gctx, i)
			if err != nil {
				return err
			}
			entries[i] = r.details(gctx, i, addr)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	r.metrics.RecordRegistryFetch(time.Since(start))
	r.logger.Debug("Registry listed", zap.Int("tokens", n), zap.Duration("took", time.Since(start)))
	return entries, nil
}

// Details reads the ERC-20 fields of one token.
func (r *Registry) Details(ctx context.Context, addr common.Address) Entry {
	return r.details(ctx, -1, addr)
}

func (r *Registry) details(ctx context.Context, index int, addr common.Address) Entry {
	e := Entry{Index: index, Address: addr, Decimals: DefaultDecimals, TotalSupply: new(big.Int)}
	tok := r.backend.Token(addr)

	var errs []error
	if name, err := tok.Name(ctx); err == nil {
		e.Name = name
	} else {
		errs = append(errs, fmt.Errorf("name: %w", err))
	}
	if symbol, err := tok.Symbol(ctx); err == nil {
		e.Symbol = symbol
	} else {
		errs = append(errs, fmt.Errorf("symbol: %w", err))
	}
	if dec, err := tok.Decimals(ctx); err == nil {
		e.Decimals = dec
	} else {
		errs = append(errs, fmt.Errorf("decimals: %w", err))
	}
	if supply, err := tok.TotalSupply(ctx); err == nil {
		e.TotalSupply = supply
	} else {
		errs = append(errs, fmt.Errorf("totalSupply: %w", err))
	}

	if len(errs) > 0 {
		e.Err = errors.Join(errs...)
		r.logger.Warn("Incomplete token details", zap.String("token", addr.Hex()), zap.Error(e.Err))
	}
	return e
}

// Info returns the factory record for token, from getTokenInfo or, on
// older factories, getTokenMetadata.
func (r *Registry) Info(ctx context.Context, token common.Address) (*blockchain.TokenInfo, error) {
	info, err := r.factory.TokenInfo(ctx, token)
	if err == nil {
		return info, nil
	}
	legacy, legacyErr := r.factory.LegacyTokenMetadata(ctx, token)
	if legacyErr != nil {
		return nil, fmt.Errorf("failed to read token info for %s: %w", token.Hex(), errors.Join(err, legacyErr))
	}
	if legacy.Token == (common.Address{}) {
		legacy.Token = token
	}
	return legacy, nil
}
