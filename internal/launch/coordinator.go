// internal/launch/coordinator.go

// Package launch creates a token and optionally seeds its first pool.
package launch

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/blockchain"
	"github.com/rovshanmuradov/launchpad/internal/events"
	"github.com/rovshanmuradov/launchpad/internal/metadata"
	"github.com/rovshanmuradov/launchpad/internal/pipeline"
	"github.com/rovshanmuradov/launchpad/internal/quote"
	"github.com/rovshanmuradov/launchpad/internal/registry"
	"github.com/rovshanmuradov/launchpad/internal/types"
	"github.com/rovshanmuradov/launchpad/internal/units"
	logging "github.com/rovshanmuradov/launchpad/internal/utils/logger"
	"github.com/rovshanmuradov/launchpad/internal/utils/metrics"
)

const (
	workflowName   = "launch"
	nativeDecimals = 18

	DefaultLiquidityDeadline = 10 * time.Minute
)

// State keys shared by the launch steps.
const (
	keyToken   = "token"
	keyWrapped = "wrapped"
	keyRouter  = "router"
)

// Step names, in execution order.
const (
	StepCreate         = "create"
	StepWrap           = "wrap"
	StepApproveWrapped = "approve-wrapped"
	StepApproveToken   = "approve-token"
	StepAddLiquidity   = "add-liquidity"
)

var ErrNotResumable = errors.New("launch session cannot be resumed")

type Config struct {
	// DeployFee is sent as value with createToken.
	DeployFee *big.Int
	// LiquidityDeadline is added to the time add-liquidity is built.
	LiquidityDeadline time.Duration
}

// Deps are the collaborators a Coordinator works with. Store and Publisher
// are optional.
type Deps struct {
	Backend   blockchain.Backend
	Registry  *registry.Registry
	Signer    blockchain.Signer
	Store     metadata.Store
	Publisher events.Publisher
	Metrics   *metrics.Collector
	Logger    *zap.Logger
}

type Coordinator struct {
	deps   Deps
	config Config
	logger *zap.Logger
	now    func() time.Time
}

func NewCoordinator(deps Deps, cfg Config) *Coordinator {
	if cfg.DeployFee == nil {
		cfg.DeployFee = new(big.Int)
	}
	if cfg.LiquidityDeadline <= 0 {
		cfg.LiquidityDeadline = DefaultLiquidityDeadline
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Coordinator{
		deps:   deps,
		config: cfg,
		logger: deps.Logger.Named("launch"),
		now:    time.Now,
	}
}

// Launch validates req, creates the token and, when asked, seeds its pool.
// Local validation errors return a nil session and nothing is sent. Any
// later failure returns the session together with a *Failure.
func (c *Coordinator) Launch(ctx context.Context, req Request) (*Session, error) {
	p, err := req.plan()
	if err != nil {
		return nil, err
	}

	s := &Session{
		ID:      logging.NewSessionID(),
		Request: req,
		status:  StatusRunning,
		plan:    p,
	}
	log := logging.WithSession(c.logger, s.ID, workflowName)
	log.Info("Launch started",
		zap.String("symbol", req.Symbol),
		zap.String("supply", req.InitialSupply),
		zap.Bool("seed", p.seeding()))

	uri := c.publishMetadata(ctx, s, log)
	s.mu.Lock()
	s.metadataURI = uri
	s.mu.Unlock()

	s.prevCount, err = c.deps.Registry.Count(ctx)
	if err != nil {
		// Without a baseline, take whatever is newest after creation.
		log.Warn("Token count unavailable before creation", zap.Error(err))
		s.prevCount = -1
	}

	s.pipeline = pipeline.New(workflowName, c.deps.Signer, c.steps(s, uri),
		pipeline.WithSession(s.ID),
		pipeline.WithPublisher(c.deps.Publisher),
		pipeline.WithMetrics(c.deps.Metrics),
		pipeline.WithLogger(c.deps.Logger))

	return s, c.finish(ctx, s, s.pipeline.Run(ctx), log)
}

// ResumeLiquidity reruns the liquidity steps of a partially failed session,
// starting at the first step that is not confirmed. Creation is never
// repeated.
func (c *Coordinator) ResumeLiquidity(ctx context.Context, s *Session) error {
	if s == nil || s.pipeline == nil {
		return fmt.Errorf("%w: no session", ErrNotResumable)
	}
	if s.Status() != StatusFailedPartial {
		return fmt.Errorf("%w: session is %s", ErrNotResumable, s.Status())
	}

	log := logging.WithSession(c.logger, s.ID, workflowName)
	if s.Token() == (common.Address{}) {
		addr, err := c.resolveToken(ctx, s)
		if err != nil {
			return c.fail(s, StatusFailedPartial, err, log)
		}
		s.pipeline.State().Set(keyToken, addr)
	}
	if s.plan.seeding() {
		// A submitted deposit may already have spent the tokens; the pipeline
		// settles that step before anything is sent.
		holdings := !stepSubmitted(s.pipeline.Records(), StepAddLiquidity)
		if err := c.recheckSeed(ctx, s.Token(), s.plan, holdings); err != nil {
			return c.fail(s, StatusFailedPartial, err, log)
		}
	}

	from := firstUnconfirmed(s.pipeline.Records())
	log.Info("Resuming liquidity", zap.Int("from_step", from), zap.String("token", s.Token().Hex()))

	s.mu.Lock()
	s.status = StatusRunning
	s.failure = nil
	s.mu.Unlock()
	return c.finish(ctx, s, s.pipeline.ResumeFrom(ctx, from), log)
}

func firstUnconfirmed(records []pipeline.StepRecord) int {
	for i, r := range records {
		if r.Status != pipeline.StatusConfirmed {
			return i
		}
	}
	return len(records)
}

func (c *Coordinator) finish(ctx context.Context, s *Session, runErr error, log *zap.Logger) error {
	if runErr != nil {
		status := StatusFailedPartial
		var stepErr *pipeline.StepError
		if errors.As(runErr, &stepErr) && stepErr.Index == 0 && stepErr.Phase != pipeline.PhaseFinalize {
			status = StatusFailedBeforeCreation
			if create := s.pipeline.Records()[0]; create.Status == pipeline.StatusSubmitted {
				c.warn(s, "creation transaction %s was sent but not confirmed; check it before retrying",
					create.TxHash.Hex())
			}
		}
		return c.fail(s, status, runErr, log)
	}

	token := s.Token()
	c.emit(s, "token %s created", token.Hex())
	if s.plan.seeding() {
		c.checkPrice(ctx, s, log)
	}

	s.mu.Lock()
	s.status = StatusCompleted
	s.mu.Unlock()
	log.Info("Launch completed", zap.String("token", token.Hex()))
	return nil
}

func (c *Coordinator) fail(s *Session, status Status, err error, log *zap.Logger) error {
	f := &Failure{Status: status, Token: s.Token(), Err: err}
	s.mu.Lock()
	s.status = status
	s.failure = f
	s.mu.Unlock()
	log.Error("Launch failed", zap.String("status", string(status)), zap.String("token", f.Token.Hex()), zap.Error(err))
	return f
}

func (c *Coordinator) publishMetadata(ctx context.Context, s *Session, log *zap.Logger) string {
	if c.deps.Store == nil {
		return ""
	}
	c.emit(s, "uploading metadata")
	doc := s.Request.document(c.deps.Signer.Address().Hex())
	uri, err := metadata.Publish(ctx, c.deps.Store, doc, s.Request.Image)
	if err != nil {
		log.Warn("Metadata upload failed", zap.Error(err))
		c.warn(s, "metadata upload failed, creating token without metadata: %v", err)
		return ""
	}
	log.Debug("Metadata stored", zap.String("uri", uri))
	return uri
}

func (c *Coordinator) steps(s *Session, uri string) []pipeline.Step {
	req, p := s.Request, s.plan
	factory := c.deps.Registry.Factory()

	steps := []pipeline.Step{{
		Name: StepCreate,
		Kind: "create",
		Build: func(context.Context, *pipeline.State) (blockchain.Call, error) {
			return factory.CreateToken(blockchain.CreateTokenParams{
				Name:          req.Name,
				Symbol:        req.Symbol,
				Decimals:      req.Decimals,
				InitialSupply: p.supply,
				MetadataURI:   uri,
				AutoRenounce:  req.AutoRenounce,
				Fee:           c.config.DeployFee,
			})
		},
		OnConfirmed: func(ctx context.Context, st *pipeline.State, _ *blockchain.Receipt) error {
			addr, err := c.resolveToken(ctx, s)
			if err != nil {
				return err
			}
			st.Set(keyToken, addr)
			if p.seeding() {
				return c.recheckSeed(ctx, addr, p, true)
			}
			return nil
		},
	}}
	if !p.seeding() {
		return steps
	}

	return append(steps,
		pipeline.Step{
			Name: StepWrap,
			Kind: "wrap",
			Build: func(ctx context.Context, st *pipeline.State) (blockchain.Call, error) {
				wrapped, err := factory.WrappedNative(ctx)
				if err != nil {
					return blockchain.Call{}, fmt.Errorf("failed to read wrapped currency: %w", err)
				}
				router, err := factory.Router(ctx)
				if err != nil {
					return blockchain.Call{}, fmt.Errorf("failed to read router: %w", err)
				}
				st.Set(keyWrapped, wrapped)
				st.Set(keyRouter, router)
				return c.deps.Backend.WrappedNative(wrapped).Deposit(p.seedBase)
			},
		},
		pipeline.Step{
			Name: StepApproveWrapped,
			Kind: "approve",
			Build: func(_ context.Context, st *pipeline.State) (blockchain.Call, error) {
				wrapped, router, err := pair(st)
				if err != nil {
					return blockchain.Call{}, err
				}
				return c.deps.Backend.Token(wrapped).Approve(router, p.seedBase)
			},
		},
		pipeline.Step{
			Name: StepApproveToken,
			Kind: "approve",
			Build: func(_ context.Context, st *pipeline.State) (blockchain.Call, error) {
				_, router, err := pair(st)
				if err != nil {
					return blockchain.Call{}, err
				}
				token, err := tokenOf(st)
				if err != nil {
					return blockchain.Call{}, err
				}
				return c.deps.Backend.Token(token).Approve(router, p.seedTokens)
			},
		},
		pipeline.Step{
			Name: StepAddLiquidity,
			Kind: "add-liquidity",
			Build: func(_ context.Context, st *pipeline.State) (blockchain.Call, error) {
				wrapped, router, err := pair(st)
				if err != nil {
					return blockchain.Call{}, err
				}
				token, err := tokenOf(st)
				if err != nil {
					return blockchain.Call{}, err
				}
				deadline := c.now().Add(c.config.LiquidityDeadline).Unix()
				return c.deps.Backend.Router(router).AddLiquidity(blockchain.AddLiquidityParams{
					TokenA:         token,
					TokenB:         wrapped,
					AmountADesired: p.seedTokens,
					AmountBDesired: p.seedBase,
					AmountAMin:     types.MinOutput(p.seedTokens, req.Slippage),
					AmountBMin:     types.MinOutput(p.seedBase, req.Slippage),
					To:             c.deps.Signer.Address(),
					Deadline:       big.NewInt(deadline),
				})
			},
		},
	)
}

func (c *Coordinator) resolveToken(ctx context.Context, s *Session) (common.Address, error) {
	c.emit(s, "resolving token address")
	addr, err := c.deps.Registry.ResolveCreated(ctx, s.prevCount)
	if err != nil {
		return common.Address{}, err
	}
	s.setToken(addr)
	return addr, nil
}

// recheckSeed compares the seed against the supply the new token reports,
// falling back to the requested supply when it cannot be read. With
// holdings it also requires the signer to still hold the seed tokens.
func (c *Coordinator) recheckSeed(ctx context.Context, token common.Address, p plan, holdings bool) error {
	erc20 := c.deps.Backend.Token(token)
	supply, err := erc20.TotalSupply(ctx)
	if err != nil {
		c.logger.Debug("totalSupply unavailable, using requested supply", zap.Error(err))
		supply = p.supply
	}
	if err := checkSeed(p.seedTokens, p.seedBase, supply); err != nil {
		return err
	}
	if !holdings {
		return nil
	}

	owner := c.deps.Signer.Address()
	balance, err := erc20.BalanceOf(ctx, owner)
	if err != nil {
		return fmt.Errorf("failed to read token balance of %s: %w", owner.Hex(), err)
	}
	if balance.Cmp(p.seedTokens) < 0 {
		return fmt.Errorf("%w: %s holds %s tokens, liquidity needs %s",
			types.ErrPreconditionViolated, owner.Hex(), balance, p.seedTokens)
	}
	return nil
}

func stepSubmitted(records []pipeline.StepRecord, name string) bool {
	for _, r := range records {
		if r.Name == name {
			return r.Status == pipeline.StatusSubmitted
		}
	}
	return false
}

// checkPrice confirms that the new pool prices the token. Any problem is a
// warning; the liquidity may exist even if the quote call fails.
func (c *Coordinator) checkPrice(ctx context.Context, s *Session, log *zap.Logger) {
	st := s.pipeline.State()
	wrapped, router, err := pair(st)
	token, tokErr := tokenOf(st)
	if err != nil || tokErr != nil {
		c.warn(s, "price check skipped: pool addresses unknown")
		return
	}

	path, err := types.NewTradePath(token, wrapped)
	if err != nil {
		c.warn(s, "price check skipped: %v", err)
		return
	}
	reader := quote.NewReader(c.deps.Backend.Router(router), c.deps.Metrics, c.deps.Logger)
	q, err := reader.Forward(ctx, units.One(s.Request.Decimals), path, nativeDecimals)
	if err != nil {
		log.Warn("Price check failed", zap.Error(err))
		c.warn(s, "could not derive a price for the new pool: %v", err)
		return
	}

	price := q.Price()
	s.mu.Lock()
	s.price, s.priceKnown = price, true
	s.mu.Unlock()
	c.emit(s, "price: 1 %s = %s wrapped native", s.Request.Symbol, price.String())
}

func (c *Coordinator) emit(s *Session, format string, args ...interface{}) {
	events.Emit(c.deps.Publisher, events.NewProgress(s.ID, format, args...))
}

func (c *Coordinator) warn(s *Session, format string, args ...interface{}) {
	e := events.NewWarning(s.ID, format, args...)
	s.warn(e.Message)
	events.Emit(c.deps.Publisher, e)
}

func pair(st *pipeline.State) (wrapped, router common.Address, err error) {
	wrapped, ok := pipeline.Lookup[common.Address](st, keyWrapped)
	if !ok {
		return wrapped, router, errors.New("wrapped currency address unknown")
	}
	router, ok = pipeline.Lookup[common.Address](st, keyRouter)
	if !ok {
		return wrapped, router, errors.New("router address unknown")
	}
	return wrapped, router, nil
}

func tokenOf(st *pipeline.State) (common.Address, error) {
	token, ok := pipeline.Lookup[common.Address](st, keyToken)
	if !ok {
		return common.Address{}, errors.New("token address unknown")
	}
	return token, nil
}
