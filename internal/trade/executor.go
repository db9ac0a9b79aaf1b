// internal/trade/executor.go

// Package trade buys, sells and swaps through the platform router. Every
// trade is an approve-then-swap pipeline whose minimum output is derived
// from a quote taken when the swap is built.
package trade

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/launchpad/internal/blockchain"
	"github.com/rovshanmuradov/launchpad/internal/events"
	"github.com/rovshanmuradov/launchpad/internal/pipeline"
	"github.com/rovshanmuradov/launchpad/internal/quote"
	"github.com/rovshanmuradov/launchpad/internal/types"
	"github.com/rovshanmuradov/launchpad/internal/units"
	logging "github.com/rovshanmuradov/launchpad/internal/utils/logger"
	"github.com/rovshanmuradov/launchpad/internal/utils/metrics"
)

const (
	DefaultTradeDeadline = 10 * time.Minute
	DefaultSwapDeadline  = 20 * time.Minute

	keyQuote = "quote"
	keyMin   = "min_output"
)

type Config struct {
	// TradeDeadline applies to buy and sell.
	TradeDeadline time.Duration
	// SwapDeadline applies to generic path swaps.
	SwapDeadline time.Duration
	// Router overrides the router the factory reports.
	Router common.Address
}

type Deps struct {
	Backend   blockchain.Backend
	Factory   blockchain.Factory
	Signer    blockchain.Signer
	Publisher events.Publisher
	Metrics   *metrics.Collector
	Logger    *zap.Logger
}

// Market is the wrapped currency and router the factory trades against.
type Market struct {
	Wrapped common.Address
	Router  common.Address
}

// Preview is what a trade would do right now. Nothing is submitted.
type Preview struct {
	Quote     quote.Quote
	Tolerance types.Tolerance
	// MinOutput is set for exact-input previews, MaxInput for exact-output.
	MinOutput units.Amount
	MaxInput  units.Amount
	Price     decimal.Decimal
}

// Result describes a confirmed trade.
type Result struct {
	Session   string
	Quote     quote.Quote
	MinOutput units.Amount
	Steps     []pipeline.StepRecord
	// TxHash is the swap transaction.
	TxHash common.Hash
}

type Executor struct {
	deps   Deps
	config Config
	logger *zap.Logger
	now    func() time.Time
}

func NewExecutor(deps Deps, cfg Config) *Executor {
	if cfg.TradeDeadline <= 0 {
		cfg.TradeDeadline = DefaultTradeDeadline
	}
	if cfg.SwapDeadline <= 0 {
		cfg.SwapDeadline = DefaultSwapDeadline
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Executor{
		deps:   deps,
		config: cfg,
		logger: deps.Logger.Named("trade"),
		now:    time.Now,
	}
}

// Market reads the wrapped currency and router, both fresh.
func (e *Executor) Market(ctx context.Context) (Market, error) {
	var m Market
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		addr, err := e.deps.Factory.WrappedNative(gctx)
		if err != nil {
			return fmt.Errorf("failed to read wrapped currency: %w", err)
		}
		m.Wrapped = addr
		return nil
	})
	g.Go(func() error {
		if e.config.Router != (common.Address{}) {
			m.Router = e.config.Router
			return nil
		}
		addr, err := e.deps.Factory.Router(gctx)
		if err != nil {
			return fmt.Errorf("failed to read router: %w", err)
		}
		m.Router = addr
		return nil
	})
	return m, g.Wait()
}

// endpoints reads the decimals of the first and last token of path.
func (e *Executor) endpoints(ctx context.Context, path types.TradePath) (in, out uint8, err error) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		d, err := e.deps.Backend.Token(path.In()).Decimals(gctx)
		if err != nil {
			return fmt.Errorf("failed to read decimals of %s: %w", path.In().Hex(), err)
		}
		in = d
		return nil
	})
	g.Go(func() error {
		d, err := e.deps.Backend.Token(path.Out()).Decimals(gctx)
		if err != nil {
			return fmt.Errorf("failed to read decimals of %s: %w", path.Out().Hex(), err)
		}
		out = d
		return nil
	})
	err = g.Wait()
	return in, out, err
}

// Preview quotes an exact-input trade along path.
func (e *Executor) Preview(ctx context.Context, path types.TradePath, amountHuman string, tol types.Tolerance) (*Preview, error) {
	if err := path.Validate(); err != nil {
		return nil, err
	}
	m, err := e.Market(ctx)
	if err != nil {
		return nil, err
	}
	inDec, outDec, err := e.endpoints(ctx, path)
	if err != nil {
		return nil, err
	}
	amount, err := parsePositive(amountHuman, inDec)
	if err != nil {
		return nil, err
	}

	q, err := e.reader(m).Forward(ctx, amount, path, outDec)
	if err != nil {
		return nil, err
	}
	return &Preview{Quote: q, Tolerance: tol, MinOutput: q.MinOutput(tol), Price: q.Price()}, nil
}

// PreviewExactOutput quotes how much input buys exactly amountOutHuman.
func (e *Executor) PreviewExactOutput(ctx context.Context, path types.TradePath, amountOutHuman string, tol types.Tolerance) (*Preview, error) {
	if err := path.Validate(); err != nil {
		return nil, err
	}
	m, err := e.Market(ctx)
	if err != nil {
		return nil, err
	}
	inDec, outDec, err := e.endpoints(ctx, path)
	if err != nil {
		return nil, err
	}
	amount, err := parsePositive(amountOutHuman, outDec)
	if err != nil {
		return nil, err
	}

	q, err := e.reader(m).Reverse(ctx, amount, path, inDec)
	if err != nil {
		return nil, err
	}
	return &Preview{Quote: q, Tolerance: tol, MaxInput: q.MaxInput(tol), Price: q.Price()}, nil
}

// Buy spends native currency on token: wrap, approve the wrapped currency,
// swap wrapped for token.
func (e *Executor) Buy(ctx context.Context, token common.Address, baseHuman string, tol types.Tolerance) (*Result, error) {
	amount, err := parsePositive(baseHuman, nativeDecimals)
	if err != nil {
		return nil, err
	}
	m, err := e.Market(ctx)
	if err != nil {
		return nil, err
	}
	path, err := types.NewTradePath(m.Wrapped, token)
	if err != nil {
		return nil, err
	}
	outDec, err := e.deps.Backend.Token(token).Decimals(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read decimals of %s: %w", token.Hex(), err)
	}

	steps := []pipeline.Step{
		{
			Name: "wrap",
			Kind: "wrap",
			Build: func(context.Context, *pipeline.State) (blockchain.Call, error) {
				return e.deps.Backend.WrappedNative(m.Wrapped).Deposit(amount.Int())
			},
		},
		e.approveStep("approve-wrapped", m.Wrapped, m.Router, amount),
		e.swapStep(m, path, amount, outDec, tol, e.config.TradeDeadline),
	}
	return e.run(ctx, "buy", steps, tol)
}

// Sell swaps tokenHuman of token for the wrapped currency.
func (e *Executor) Sell(ctx context.Context, token common.Address, tokenHuman string, tol types.Tolerance) (*Result, error) {
	if _, err := parsePositive(tokenHuman, nativeDecimals); err != nil {
		return nil, err
	}
	m, err := e.Market(ctx)
	if err != nil {
		return nil, err
	}
	path, err := types.NewTradePath(token, m.Wrapped)
	if err != nil {
		return nil, err
	}
	inDec, err := e.deps.Backend.Token(token).Decimals(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read decimals of %s: %w", token.Hex(), err)
	}
	amount, err := parsePositive(tokenHuman, inDec)
	if err != nil {
		return nil, err
	}

	steps := []pipeline.Step{
		e.approveStep("approve-token", token, m.Router, amount),
		e.swapStep(m, path, amount, nativeDecimals, tol, e.config.TradeDeadline),
	}
	return e.run(ctx, "sell", steps, tol)
}

// Swap trades an exact input along an arbitrary path.
func (e *Executor) Swap(ctx context.Context, path types.TradePath, amountHuman string, tol types.Tolerance) (*Result, error) {
	if err := path.Validate(); err != nil {
		return nil, err
	}
	if _, err := parsePositive(amountHuman, nativeDecimals); err != nil {
		return nil, err
	}
	m, err := e.Market(ctx)
	if err != nil {
		return nil, err
	}
	inDec, outDec, err := e.endpoints(ctx, path)
	if err != nil {
		return nil, err
	}
	amount, err := parsePositive(amountHuman, inDec)
	if err != nil {
		return nil, err
	}

	steps := []pipeline.Step{
		e.approveStep("approve", path.In(), m.Router, amount),
		e.swapStep(m, path, amount, outDec, tol, e.config.SwapDeadline),
	}
	return e.run(ctx, "swap", steps, tol)
}

func (e *Executor) reader(m Market) *quote.Reader {
	return quote.NewReader(e.deps.Backend.Router(m.Router), e.deps.Metrics, e.deps.Logger)
}

func (e *Executor) approveStep(name string, token, spender common.Address, amount units.Amount) pipeline.Step {
	return pipeline.Step{
		Name: name,
		Kind: "approve",
		Build: func(context.Context, *pipeline.State) (blockchain.Call, error) {
			return e.deps.Backend.Token(token).Approve(spender, amount.Int())
		},
	}
}

// swapStep quotes when built, so the guard reflects the pool at signing
// time rather than when the trade was requested.
func (e *Executor) swapStep(m Market, path types.TradePath, amount units.Amount, outDec uint8, tol types.Tolerance, validity time.Duration) pipeline.Step {
	return pipeline.Step{
		Name: "swap",
		Kind: "swap",
		Build: func(ctx context.Context, st *pipeline.State) (blockchain.Call, error) {
			q, err := e.reader(m).Forward(ctx, amount, path, outDec)
			if err != nil {
				return blockchain.Call{}, err
			}
			min := q.MinOutput(tol)
			st.Set(keyQuote, q)
			st.Set(keyMin, min)

			return e.deps.Backend.Router(m.Router).SwapExactTokensForTokens(blockchain.SwapParams{
				AmountIn:     amount.Int(),
				AmountOutMin: min.Int(),
				Path:         path.Addresses(),
				To:           e.deps.Signer.Address(),
				Deadline:     big.NewInt(e.now().Add(validity).Unix()),
			})
		},
	}
}

func (e *Executor) run(ctx context.Context, workflow string, steps []pipeline.Step, tol types.Tolerance) (*Result, error) {
	session := logging.NewSessionID()
	p := pipeline.New(workflow, e.deps.Signer, steps,
		pipeline.WithSession(session),
		pipeline.WithPublisher(e.deps.Publisher),
		pipeline.WithMetrics(e.deps.Metrics),
		pipeline.WithLogger(e.deps.Logger))

	err := p.Run(ctx)
	res := &Result{Session: session, Steps: p.Records()}
	if q, ok := pipeline.Lookup[quote.Quote](p.State(), keyQuote); ok {
		res.Quote = q
	}
	if min, ok := pipeline.Lookup[units.Amount](p.State(), keyMin); ok {
		res.MinOutput = min
	}
	if err != nil {
		if types.IsSlippageExceeded(err) {
			err = &types.SlippageExceededError{Tolerance: tol, Guard: res.MinOutput.Int(), OriginalError: err}
		}
		logging.WithSession(e.logger, session, workflow).Warn("Trade failed", zap.Error(err))
		return res, err
	}

	res.TxHash = res.Steps[len(res.Steps)-1].TxHash
	logging.WithSession(e.logger, session, workflow).Info("Trade confirmed",
		zap.String("tx_hash", res.TxHash.Hex()),
		zap.Stringer("in", res.Quote.AmountIn),
		zap.Stringer("min_out", res.MinOutput))
	return res, nil
}

const nativeDecimals = 18

func parsePositive(human string, decimals uint8) (units.Amount, error) {
	amount, err := units.Parse(human, decimals)
	if err != nil {
		return units.Amount{}, err
	}
	if amount.IsZero() {
		return units.Amount{}, fmt.Errorf("%w: amount must be positive", types.ErrInvalidAmount)
	}
	return amount, nil
}

// IsNoQuote reports whether err only means no pool could price the trade.
func IsNoQuote(err error) bool {
	return errors.Is(err, types.ErrNoLiquidity)
}
