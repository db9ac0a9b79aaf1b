// internal/quote/quote.go

// Package quote reads live AMM quotes from the router and coalesces
// concurrent refreshes so only the newest request's answer is kept.
package quote

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/blockchain"
	"github.com/rovshanmuradov/launchpad/internal/types"
	"github.com/rovshanmuradov/launchpad/internal/units"
	"github.com/rovshanmuradov/launchpad/internal/utils/metrics"
)

type Direction string

const (
	// Forward quotes an exact input (getAmountsOut).
	Forward Direction = "forward"
	// Reverse quotes an exact output (getAmountsIn).
	Reverse Direction = "reverse"
)

// Quote is an advisory router answer for one exact amount along one path.
// It is only meaningful for the input it was fetched for.
type Quote struct {
	Direction Direction
	Path      types.TradePath
	AmountIn  units.Amount
	AmountOut units.Amount
	// Hops holds the router's per-hop amounts, first element is the input.
	Hops      []*big.Int
	FetchedAt time.Time
}

// Key identifies the exact request a quote answers.
func (q Quote) Key() string {
	return RequestKey(q.Direction, q.Path, q.fixed())
}

// RequestKey builds the key a quote for (direction, path, amount) would have.
func RequestKey(d Direction, path types.TradePath, fixed units.Amount) string {
	return fmt.Sprintf("%s|%s|%s|%d", d, path, fixed.Int(), fixed.Decimals())
}

// fixed is the side the caller supplied.
func (q Quote) fixed() units.Amount {
	if q.Direction == Reverse {
		return q.AmountOut
	}
	return q.AmountIn
}

// Price is the execution price in output units per input unit.
func (q Quote) Price() decimal.Decimal {
	in := decimal.NewFromBigInt(q.AmountIn.Int(), -int32(q.AmountIn.Decimals()))
	if in.IsZero() {
		return decimal.Zero
	}
	out := decimal.NewFromBigInt(q.AmountOut.Int(), -int32(q.AmountOut.Decimals()))
	return out.DivRound(in, 18)
}

// MinOutput is the slippage-guarded minimum output.
func (q Quote) MinOutput(t types.Tolerance) units.Amount {
	return units.MustAmount(types.MinOutput(q.AmountOut.Int(), t), q.AmountOut.Decimals())
}

// MaxInput is the slippage-guarded maximum input.
func (q Quote) MaxInput(t types.Tolerance) units.Amount {
	return units.MustAmount(types.MaxInput(q.AmountIn.Int(), t), q.AmountIn.Decimals())
}

// Age is how long ago the quote was fetched.
func (q Quote) Age(now time.Time) time.Duration {
	return now.Sub(q.FetchedAt)
}

// Reader quotes against one router. It never caches.
type Reader struct {
	router  blockchain.Router
	metrics *metrics.Collector
	logger  *zap.Logger
	now     func() time.Time
}

func NewReader(router blockchain.Router, collector *metrics.Collector, logger *zap.Logger) *Reader {
	return &Reader{
		router:  router,
		metrics: collector,
		logger:  logger.Named("quote"),
		now:     time.Now,
	}
}

// Router returns the router this reader quotes against.
func (r *Reader) Router() blockchain.Router { return r.router }

// Forward quotes the output for an exact input. Zero input fails with
// ErrInvalidAmount without touching the router; an unusable answer fails
// with ErrNoLiquidity.
func (r *Reader) Forward(ctx context.Context, amountIn units.Amount, path types.TradePath, outDecimals uint8) (Quote, error) {
	if err := r.check(amountIn, path); err != nil {
		return Quote{}, err
	}

	start := r.now()
	amounts, err := r.router.AmountsOut(ctx, amountIn.Int(), path.Addresses())
	hops, err := r.finish(Forward, start, amounts, path, err)
	if err != nil {
		return Quote{}, err
	}

	return Quote{
		Direction: Forward,
		Path:      path,
		AmountIn:  amountIn,
		AmountOut: units.MustAmount(hops[len(hops)-1], outDecimals),
		Hops:      hops,
		FetchedAt: start,
	}, nil
}

// Reverse quotes the input required for an exact output.
func (r *Reader) Reverse(ctx context.Context, amountOut units.Amount, path types.TradePath, inDecimals uint8) (Quote, error) {
	if err := r.check(amountOut, path); err != nil {
		return Quote{}, err
	}

	start := r.now()
	amounts, err := r.router.AmountsIn(ctx, amountOut.Int(), path.Addresses())
	hops, err := r.finish(Reverse, start, amounts, path, err)
	if err != nil {
		return Quote{}, err
	}

	return Quote{
		Direction: Reverse,
		Path:      path,
		AmountIn:  units.MustAmount(hops[0], inDecimals),
		AmountOut: amountOut,
		Hops:      hops,
		FetchedAt: start,
	}, nil
}

func (r *Reader) check(amount units.Amount, path types.TradePath) error {
	if amount.IsZero() {
		return fmt.Errorf("%w: quote amount is zero", types.ErrInvalidAmount)
	}
	return path.Validate()
}

// finish validates a router answer and records metrics.
func (r *Reader) finish(d Direction, start time.Time, amounts []*big.Int, path types.TradePath, callErr error) ([]*big.Int, error) {
	err := callErr
	if err == nil {
		err = validateHops(amounts, len(path))
	}
	if err != nil {
		if callErr != nil {
			err = fmt.Errorf("%w: %s quote along %s: %w", types.ErrNoLiquidity, d, path, callErr)
		}
		r.metrics.RecordQuote(string(d), time.Since(start), true)
		r.logger.Debug("No liquidity", zap.String("direction", string(d)), zap.Stringer("path", path), zap.Error(err))
		return nil, err
	}

	r.metrics.RecordQuote(string(d), time.Since(start), false)
	out := make([]*big.Int, len(amounts))
	for i, a := range amounts {
		out[i] = new(big.Int).Set(a)
	}
	return out, nil
}

func validateHops(amounts []*big.Int, pathLen int) error {
	if len(amounts) != pathLen {
		return fmt.Errorf("%w: router returned %d amounts for a %d-hop path", types.ErrNoLiquidity, len(amounts), pathLen)
	}
	for i, a := range amounts {
		if a == nil || a.Sign() <= 0 {
			return fmt.Errorf("%w: zero amount at hop %d", types.ErrNoLiquidity, i)
		}
	}
	return nil
}
