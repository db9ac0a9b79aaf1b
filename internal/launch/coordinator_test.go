package launch

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/launchpad/internal/blockchain"
	"github.com/rovshanmuradov/launchpad/internal/blockchain/fake"
	"github.com/rovshanmuradov/launchpad/internal/events"
	"github.com/rovshanmuradov/launchpad/internal/metadata"
	"github.com/rovshanmuradov/launchpad/internal/pipeline"
	"github.com/rovshanmuradov/launchpad/internal/registry"
	"github.com/rovshanmuradov/launchpad/internal/types"
	"github.com/rovshanmuradov/launchpad/internal/units"
	"github.com/rovshanmuradov/launchpad/internal/utils/metrics"
)

var creator = common.HexToAddress("0x00000000000000000000000000000000000c0de1")

type harness struct {
	chain  *fake.Chain
	coord  *Coordinator
	events *events.Collector
	store  *metadata.MemoryStore
	now    time.Time
}

func newHarness(t *testing.T) *harness {
	return newHarnessWith(t, nil)
}

// newHarnessWith lets wrap replace the creator's signer.
func newHarnessWith(t *testing.T, wrap func(*fake.Signer) blockchain.Signer) *harness {
	chain := fake.NewChain()
	chain.Fund(creator, units.Pow10(18))

	log := zaptest.NewLogger(t)
	collector := metrics.NewCollector()
	reg := registry.New(chain.Factory(chain.FactoryAddr), chain,
		registry.Config{SettleInitial: time.Millisecond, SettleTimeout: 100 * time.Millisecond}, collector, log)

	var signer blockchain.Signer = chain.Signer(creator)
	if wrap != nil {
		signer = wrap(chain.Signer(creator))
	}

	h := &harness{chain: chain, events: &events.Collector{}, store: metadata.NewMemoryStore()}
	h.coord = NewCoordinator(Deps{
		Backend:   chain,
		Registry:  reg,
		Signer:    signer,
		Store:     h.store,
		Publisher: h.events,
		Metrics:   collector,
		Logger:    log,
	}, Config{DeployFee: big.NewInt(1000), LiquidityDeadline: 10 * time.Minute})

	h.now = time.Unix(1_700_000_000, 0)
	h.coord.now = func() time.Time { return h.now }
	return h
}

func seededRequest() Request {
	return Request{
		Name:          "Moon Coin",
		Symbol:        "MOON",
		Decimals:      18,
		InitialSupply: "1000000",
		AutoRenounce:  true,
		Seed:          &Seed{Tokens: "100000", Base: "0.1"},
		Slippage:      types.MustTolerance(3),
	}
}

func wei(t *testing.T, human string) *big.Int {
	t.Helper()
	v, err := units.ToBaseUnits(human, 18)
	require.NoError(t, err)
	return v
}

func TestLaunchWithLiquidity(t *testing.T) {
	h := newHarness(t)

	s, err := h.coord.Launch(context.Background(), seededRequest())
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, s.Status())

	tokens := h.chain.Tokens()
	require.Len(t, tokens, 1)
	assert.Equal(t, tokens[0], s.Token())

	assert.Equal(t, []string{"createToken", "deposit", "approve", "approve", "addLiquidity"}, h.chain.SubmittedMethods())

	liq := h.chain.Liquidity()
	require.Len(t, liq, 1)
	assert.Equal(t, wei(t, "97000"), liq[0].AmountAMin)
	assert.Equal(t, wei(t, "0.097"), liq[0].AmountBMin)
	assert.Equal(t, wei(t, "100000"), liq[0].AmountADesired)
	assert.Equal(t, wei(t, "0.1"), liq[0].AmountBDesired)
	assert.Equal(t, s.Token(), liq[0].TokenA)
	assert.Equal(t, h.chain.WrappedAddr, liq[0].TokenB)
	assert.Equal(t, creator, liq[0].To)
	assert.Equal(t, h.now.Add(10*time.Minute).Unix(), liq[0].Deadline.Int64())

	price, ok := s.Price()
	require.True(t, ok)
	assert.True(t, price.IsPositive())
	assert.Empty(t, s.Warnings())
	assert.NotEmpty(t, s.MetadataURI())

	create := h.chain.Submissions()[0]
	assert.Equal(t, big.NewInt(1000), create.Value)
	params := create.Params.(blockchain.CreateTokenParams)
	assert.Equal(t, s.MetadataURI(), params.MetadataURI)
	assert.True(t, params.AutoRenounce)
}

func TestLaunchRejectsSeedAboveSupplyBeforeAnyCall(t *testing.T) {
	h := newHarness(t)
	req := seededRequest()
	req.Seed.Tokens = "2000000"

	s, err := h.coord.Launch(context.Background(), req)
	assert.Nil(t, s)
	assert.ErrorIs(t, err, types.ErrPreconditionViolated)
	assert.Empty(t, h.chain.Calls())
	assert.Equal(t, 0, h.store.Len())
}

func TestRequestValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Request)
		want   error
	}{
		{"blank name", func(r *Request) { r.Name = "  " }, ErrInvalidRequest},
		{"short symbol", func(r *Request) { r.Symbol = "M" }, ErrInvalidRequest},
		{"symbol with space", func(r *Request) { r.Symbol = "MO ON" }, ErrInvalidRequest},
		{"long symbol", func(r *Request) { r.Symbol = "ABCDEFGHIJKL" }, ErrInvalidRequest},
		{"decimals too low", func(r *Request) { r.Decimals = 5 }, ErrInvalidRequest},
		{"decimals too high", func(r *Request) { r.Decimals = 19 }, ErrInvalidRequest},
		{"zero supply", func(r *Request) { r.InitialSupply = "0" }, types.ErrInvalidAmount},
		{"bad supply", func(r *Request) { r.InitialSupply = "1e6" }, types.ErrInvalidAmount},
		{"zero base", func(r *Request) { r.Seed.Base = "0" }, types.ErrPreconditionViolated},
		{"empty seed tokens", func(r *Request) { r.Seed.Tokens = "" }, types.ErrPreconditionViolated},
		{"bad image", func(r *Request) { r.Image = []byte("text") }, metadata.ErrInvalidImage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := seededRequest()
			tt.mutate(&req)
			assert.ErrorIs(t, req.Validate(), tt.want)
		})
	}

	ok := seededRequest()
	ok.Seed.Tokens = "1000000"
	assert.NoError(t, ok.Validate())
}

func TestLaunchWithoutLiquidity(t *testing.T) {
	h := newHarness(t)
	req := seededRequest()
	req.Seed = nil

	s, err := h.coord.Launch(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, s.Status())
	assert.Equal(t, []string{"createToken"}, h.chain.SubmittedMethods())
	_, ok := s.Price()
	assert.False(t, ok)
}

func TestCreationFailureIsBeforeCreation(t *testing.T) {
	h := newHarness(t)
	h.chain.Revert("createToken", "Factory: fee too low")

	s, err := h.coord.Launch(context.Background(), seededRequest())
	var f *Failure
	require.ErrorAs(t, err, &f)
	assert.Equal(t, StatusFailedBeforeCreation, f.Status)
	assert.Equal(t, StatusFailedBeforeCreation, s.Status())
	assert.Equal(t, common.Address{}, f.Token)
	assert.ErrorIs(t, err, types.ErrExternalCallFailed)
	assert.Contains(t, err.Error(), "Factory: fee too low")

	assert.ErrorIs(t, h.coord.ResumeLiquidity(context.Background(), s), ErrNotResumable)
}

func TestApprovalFailureCarriesTokenAndResumes(t *testing.T) {
	h := newHarness(t)
	h.chain.FailSubmit("approve", &blockchain.RejectedError{Reason: "user denied"})

	s, err := h.coord.Launch(context.Background(), seededRequest())
	var f *Failure
	require.ErrorAs(t, err, &f)
	assert.Equal(t, StatusFailedPartial, f.Status)
	require.Len(t, h.chain.Tokens(), 1)
	assert.Equal(t, h.chain.Tokens()[0], f.Token)
	assert.Contains(t, err.Error(), f.Token.Hex())

	stepErr, ok := f.StepError()
	require.True(t, ok)
	assert.Equal(t, StepApproveWrapped, stepErr.Step)
	require.Len(t, stepErr.Committed, 2)
	assert.Equal(t, StepCreate, stepErr.Committed[0].Name)
	assert.Equal(t, StepWrap, stepErr.Committed[1].Name)

	h.chain.Heal()
	require.NoError(t, h.coord.ResumeLiquidity(context.Background(), s))
	assert.Equal(t, StatusCompleted, s.Status())
	assert.Nil(t, s.Failure())
	assert.Equal(t, []string{"createToken", "deposit", "approve", "approve", "addLiquidity"}, h.chain.SubmittedMethods())
	assert.Len(t, h.chain.Tokens(), 1)

	for _, r := range s.Steps() {
		assert.Equal(t, pipeline.StatusConfirmed, r.Status)
	}
}

// lostReceipt times out the first wait on a method while the transaction
// itself mines.
type lostReceipt struct {
	*fake.Signer
	method string
	hash   common.Hash
	lost   bool
}

func (s *lostReceipt) Submit(ctx context.Context, call blockchain.Call) (common.Hash, error) {
	hash, err := s.Signer.Submit(ctx, call)
	if err == nil && call.Method == s.method && s.hash == (common.Hash{}) {
		s.hash = hash
	}
	return hash, err
}

func (s *lostReceipt) Wait(ctx context.Context, hash common.Hash) (*blockchain.Receipt, error) {
	if !s.lost && hash == s.hash {
		s.lost = true
		return nil, errors.New("transaction confirmation timeout")
	}
	return s.Signer.Wait(ctx, hash)
}

func TestResumeAdoptsMinedWrap(t *testing.T) {
	h := newHarnessWith(t, func(s *fake.Signer) blockchain.Signer {
		return &lostReceipt{Signer: s, method: "deposit"}
	})

	s, err := h.coord.Launch(context.Background(), seededRequest())
	require.Error(t, err)
	assert.Equal(t, StatusFailedPartial, s.Status())
	assert.Equal(t, pipeline.StatusSubmitted, s.Steps()[1].Status)

	require.NoError(t, h.coord.ResumeLiquidity(context.Background(), s))
	assert.Equal(t, StatusCompleted, s.Status())
	assert.Equal(t, []string{"createToken", "deposit", "approve", "approve", "addLiquidity"}, h.chain.SubmittedMethods())
	assert.Len(t, h.chain.Liquidity(), 1)
}

func TestResumeRequiresSeedHoldings(t *testing.T) {
	h := newHarness(t)
	h.chain.FailSubmit("approve", &blockchain.RejectedError{Reason: "user denied"})

	s, err := h.coord.Launch(context.Background(), seededRequest())
	require.Error(t, err)
	require.Equal(t, StatusFailedPartial, s.Status())

	h.chain.Heal()
	h.chain.TokenState(s.Token()).Balances[creator] = wei(t, "10")
	submitted := len(h.chain.Submissions())

	err = h.coord.ResumeLiquidity(context.Background(), s)
	assert.ErrorIs(t, err, types.ErrPreconditionViolated)
	assert.Equal(t, StatusFailedPartial, s.Status())
	assert.Len(t, h.chain.Submissions(), submitted)
}

func TestMetadataFailureIsAWarning(t *testing.T) {
	h := newHarness(t)
	h.store.Err = errors.New("pinning down")

	s, err := h.coord.Launch(context.Background(), seededRequest())
	require.NoError(t, err)
	assert.Empty(t, s.MetadataURI())
	require.NotEmpty(t, s.Warnings())
	assert.Contains(t, s.Warnings()[0], "pinning down")

	params := h.chain.Submissions()[0].Params.(blockchain.CreateTokenParams)
	assert.Empty(t, params.MetadataURI)
}

func TestPriceCheckFailureIsAWarning(t *testing.T) {
	h := newHarness(t)
	h.chain.FailRead("getAmountsOut", errors.New("rpc flake"))

	s, err := h.coord.Launch(context.Background(), seededRequest())
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, s.Status())
	_, ok := s.Price()
	assert.False(t, ok)
	require.Len(t, s.Warnings(), 1)
	assert.Contains(t, s.Warnings()[0], "could not derive a price")
}

func TestStatusStream(t *testing.T) {
	h := newHarness(t)
	_, err := h.coord.Launch(context.Background(), seededRequest())
	require.NoError(t, err)

	lines := h.events.Lines()
	assert.Contains(t, lines, "uploading metadata")
	assert.Contains(t, lines, "launch: starting (5 steps)")
	assert.Contains(t, lines, "[1/5] create: awaiting signature")
	assert.Contains(t, lines, "resolving token address")
	assert.Equal(t, "launch: completed", lines[len(lines)-3])
}
