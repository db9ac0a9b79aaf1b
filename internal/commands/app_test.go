// internal/commands/app_test.go
package commands

import (
	"bytes"
	"context"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/blockchain"
	"github.com/rovshanmuradov/launchpad/internal/blockchain/fake"
	"github.com/rovshanmuradov/launchpad/internal/config"
	"github.com/rovshanmuradov/launchpad/internal/events"
	"github.com/rovshanmuradov/launchpad/internal/metadata"
	"github.com/rovshanmuradov/launchpad/internal/types"
	"github.com/rovshanmuradov/launchpad/internal/ui/style"
)

var user = common.HexToAddress("0x00000000000000000000000000000000000000a1")

func eth(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18))
}

type harness struct {
	chain  *fake.Chain
	cfg    *config.Config
	signer blockchain.Signer
	store  metadata.Store
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	chain := fake.NewChain()
	chain.Fund(user, eth(100))

	cfg := &config.Config{
		RPCURL:              "http://127.0.0.1:8545",
		ChainID:             50312,
		FactoryAddress:      chain.FactoryAddr.Hex(),
		DeployFee:           "0",
		DefaultSlippage:     "1",
		LiquidityDeadline:   config.DefaultLiquidityDeadline,
		TradeDeadline:       config.DefaultTradeDeadline,
		SwapDeadline:        config.DefaultSwapDeadline,
		ConfirmTimeout:      config.DefaultConfirmTimeout,
		RegistryConcurrency: 4,
	}
	require.NoError(t, cfg.Validate())

	return &harness{chain: chain, cfg: cfg, signer: chain.Signer(user), store: metadata.NewMemoryStore()}
}

func (h *harness) factory(*cli.Context) (*Env, error) {
	env := NewEnv(h.cfg, zap.NewNop(), h.chain, h.signer)
	env.Store = h.store
	return env, nil
}

// run executes one command line with --plain output and returns what it printed.
func (h *harness) run(t *testing.T, input string, args ...string) (string, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var out bytes.Buffer
	app := NewApp(h.factory, strings.NewReader(input), &out)
	err := app.RunContext(ctx, append([]string{"launchpad", "--plain"}, args...))
	return out.String(), err
}

func (h *harness) submit(t *testing.T) func(blockchain.Call, error) {
	return func(call blockchain.Call, err error) {
		t.Helper()
		require.NoError(t, err)
		signer := h.chain.Signer(user)
		hash, err := signer.Submit(context.Background(), call)
		require.NoError(t, err)
		receipt, err := signer.Wait(context.Background(), hash)
		require.NoError(t, err)
		require.True(t, receipt.Success, receipt.RevertReason)
	}
}

// token creates a token held by the user and pairs it 10000:1 with
// wrapped native.
func (h *harness) token(t *testing.T, symbol string) common.Address {
	t.Helper()
	addr := h.chain.AddToken(symbol+" Token", symbol, 18, eth(1_000_000), user)
	tokens, base := eth(100_000), eth(10)

	w := h.chain.WrappedNative(h.chain.WrappedAddr)
	h.submit(t)(w.Deposit(base))
	h.submit(t)(w.Approve(h.chain.RouterAddr, base))
	h.submit(t)(h.chain.Token(addr).Approve(h.chain.RouterAddr, tokens))
	h.submit(t)(h.chain.Router(h.chain.RouterAddr).AddLiquidity(blockchain.AddLiquidityParams{
		TokenA:         addr,
		TokenB:         h.chain.WrappedAddr,
		AmountADesired: tokens,
		AmountBDesired: base,
		AmountAMin:     tokens,
		AmountBMin:     base,
		To:             user,
		Deadline:       big.NewInt(time.Now().Add(time.Hour).Unix()),
	}))
	return addr
}

func (h *harness) balance(token common.Address) *big.Int {
	if v, ok := h.chain.TokenState(token).Balances[user]; ok {
		return new(big.Int).Set(v)
	}
	return new(big.Int)
}

func TestTokensEmpty(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "", "tokens")
	require.NoError(t, err)
	assert.Contains(t, out, "no tokens yet")
}

func TestTokensListsRegistry(t *testing.T) {
	h := newHarness(t)
	first := h.chain.AddToken("First", "ONE", 18, eth(1000), user)
	second := h.chain.AddToken("Second", "TWO", 6, big.NewInt(5_500_000), user)

	out, err := h.run(t, "", "tokens")
	require.NoError(t, err)
	assert.Contains(t, out, first.Hex())
	assert.Contains(t, out, second.Hex())
	assert.Contains(t, out, "ONE")
	assert.Contains(t, out, "Second")
	assert.Contains(t, out, "1000")
	assert.Contains(t, out, "5.5")

	out, err = h.run(t, "", "tokens", "--last", "1")
	require.NoError(t, err)
	assert.NotContains(t, out, first.Hex())
	assert.Contains(t, out, second.Hex())
}

func TestTokensExport(t *testing.T) {
	h := newHarness(t)
	h.chain.AddToken("First", "ONE", 18, eth(1000), user)
	h.chain.AddToken("Second", "TWO", 18, eth(2000), user)
	dir := t.TempDir()

	out, err := h.run(t, "", "tokens", "--export", "csv", "--out", dir, "--symbol", "two")
	require.NoError(t, err)

	files, err := filepath.Glob(filepath.Join(dir, "tokens_two_*.csv"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Contains(t, out, files[0])

	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "Second")
	assert.NotContains(t, string(data), "First")
}

func TestInfo(t *testing.T) {
	h := newHarness(t)
	addr := h.chain.AddToken("Moon Coin", "MOON", 18, eth(1000), user)

	out, err := h.run(t, "", "info", addr.Hex())
	require.NoError(t, err)
	assert.Contains(t, out, "Moon Coin (MOON)")
	assert.Regexp(t, `creator:\s+`+user.Hex(), out)
	assert.Regexp(t, `balance:\s+1000`, out)
}

func TestInfoRejectsBadAddress(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, "", "info", "not-an-address")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid address")
	assert.Empty(t, h.chain.Calls())
}

func TestQuote(t *testing.T) {
	h := newHarness(t)
	token := h.token(t, "MOON")
	submitted := len(h.chain.Submissions())

	out, err := h.run(t, "", "quote", "--amount", "1", h.chain.WrappedAddr.Hex(), token.Hex())
	require.NoError(t, err)
	assert.Regexp(t, `in:\s+1\b`, out)
	assert.Contains(t, out, "min out:")
	assert.Contains(t, out, "slippage:")
	assert.Len(t, h.chain.Submissions(), submitted)
}

func TestQuoteWatchStopsAfterCount(t *testing.T) {
	h := newHarness(t)
	token := h.token(t, "MOON")

	out, err := h.run(t, "", "quote", "--amount", "1", "--watch", "10ms", "--count", "3",
		h.chain.WrappedAddr.Hex(), token.Hex())
	require.NoError(t, err)
	assert.Contains(t, out, "quote ")
}

func TestBuy(t *testing.T) {
	h := newHarness(t)
	token := h.token(t, "MOON")
	before := h.balance(token)

	out, err := h.run(t, "", "buy", "--yes", "--amount", "1", token.Hex())
	require.NoError(t, err)
	assert.Contains(t, out, "buy: completed")
	assert.Regexp(t, `tx:\s+0x[0-9a-f]{64}`, out)
	assert.Equal(t, 1, h.balance(token).Cmp(before))

	methods := h.chain.SubmittedMethods()
	assert.Equal(t, "swapExactTokensForTokens", methods[len(methods)-1])
}

func TestBuyDeclined(t *testing.T) {
	h := newHarness(t)
	token := h.token(t, "MOON")
	submitted := len(h.chain.Submissions())

	out, err := h.run(t, "n", "buy", "--amount", "1", token.Hex())
	require.NoError(t, err)
	assert.Contains(t, out, "Submit this trade?")
	assert.Contains(t, out, "min out:")
	assert.Len(t, h.chain.Submissions(), submitted)
}

func TestTradeNeedsSigner(t *testing.T) {
	h := newHarness(t)
	h.signer = nil
	token := h.chain.AddToken("Moon Coin", "MOON", 18, eth(1000), user)

	_, err := h.run(t, "", "sell", "--yes", "--amount", "1", token.Hex())
	assert.ErrorIs(t, err, ErrNoSigner)
	assert.Empty(t, h.chain.Submissions())
}

func TestSwapRejectsShortPath(t *testing.T) {
	h := newHarness(t)
	token := h.chain.AddToken("Moon Coin", "MOON", 18, eth(1000), user)

	_, err := h.run(t, "", "swap", "--yes", "--amount", "1", token.Hex())
	require.Error(t, err)
	assert.Empty(t, h.chain.Submissions())
}

func TestLaunchWithSeed(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "", "launch", "--yes",
		"--name", "Moon Coin",
		"--symbol", "MOON",
		"--supply", "1000000",
		"--description", "to the moon",
		"--liquidity-tokens", "100000",
		"--liquidity-base", "0.1",
	)
	require.NoError(t, err)
	assert.Contains(t, out, "Launching Moon Coin (MOON)")
	assert.Contains(t, out, "launch: completed")
	assert.Regexp(t, `status:\s+completed`, out)
	assert.Regexp(t, `metadata:\s+mem://`, out)

	require.Len(t, h.chain.Tokens(), 1)
	assert.Contains(t, out, h.chain.Tokens()[0].Hex())
	assert.Len(t, h.chain.Liquidity(), 1)
}

func countMethod(methods []string, method string) int {
	n := 0
	for _, m := range methods {
		if m == method {
			n++
		}
	}
	return n
}

func TestLaunchYesNeverRetriesLiquidity(t *testing.T) {
	h := newHarness(t)
	h.chain.Revert("addLiquidity", "INSUFFICIENT_A_AMOUNT")

	out, err := h.run(t, "", "launch", "--yes",
		"--name", "Moon Coin",
		"--symbol", "MOON",
		"--supply", "1000000",
		"--liquidity-tokens", "100000",
		"--liquidity-base", "0.1",
	)
	require.Error(t, err)
	assert.Regexp(t, `status:\s+failed_partial`, out)
	assert.Contains(t, out, "liquidity steps not retried")
	assert.NotContains(t, out, "Retry the remaining liquidity steps?")
	assert.Equal(t, 1, countMethod(h.chain.SubmittedMethods(), "addLiquidity"))
}

func TestLaunchRetryDeclined(t *testing.T) {
	h := newHarness(t)
	h.chain.Revert("addLiquidity", "INSUFFICIENT_A_AMOUNT")

	out, err := h.run(t, "n", "launch",
		"--name", "Moon Coin",
		"--symbol", "MOON",
		"--supply", "1000000",
		"--liquidity-tokens", "100000",
		"--liquidity-base", "0.1",
	)
	require.Error(t, err)
	assert.Contains(t, out, "Retry the remaining liquidity steps?")
	assert.Equal(t, 1, countMethod(h.chain.SubmittedMethods(), "addLiquidity"))
	assert.Regexp(t, `status:\s+failed_partial`, out)
}

func TestLaunchWithoutStoreWarns(t *testing.T) {
	h := newHarness(t)
	h.store = nil

	out, err := h.run(t, "", "launch", "--yes", "--name", "Moon Coin", "--symbol", "MOON", "--supply", "1000")
	require.NoError(t, err)
	assert.Contains(t, out, "warning: no metadata endpoint configured")
	assert.Regexp(t, `status:\s+completed`, out)
}

func TestLaunchInvalidRequestSendsNothing(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, "", "launch", "--yes", "--name", "Moon Coin", "--symbol", "M", "--supply", "1000")
	require.Error(t, err)
	assert.Empty(t, h.chain.Submissions())
}

func TestLoadConfigFlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("LAUNCHPAD_RPC_URL", "http://env.invalid:8545")
	t.Setenv("LAUNCHPAD_CHAIN_ID", "7")
	t.Setenv("LAUNCHPAD_FACTORY_ADDRESS", "0x00000000000000000000000000000000000fac70")

	var got *config.Config
	app := &cli.App{
		Flags: globalFlags(),
		Action: func(c *cli.Context) error {
			var err error
			got, err = loadConfig(c)
			return err
		},
	}
	err := app.Run([]string{"launchpad", "--chain-id", "50312", "--priority", "HIGH", "--router", "0x000000000000000000000000000000000000a770"})
	require.NoError(t, err)

	assert.Equal(t, "http://env.invalid:8545", got.RPCURL)
	assert.Equal(t, int64(50312), got.ChainID)
	router, ok := got.Router()
	assert.True(t, ok)
	assert.Equal(t, common.HexToAddress("0xa770"), router)
	assert.Equal(t, types.PriorityHigh, got.Priority())
}

func TestPrinterRendersEvents(t *testing.T) {
	var out bytes.Buffer
	p := NewPrinter(&out, style.Plain())

	require.NoError(t, p.Handle(context.Background(), events.NewWarning("s1", "pool is %s", "thin")))
	require.NoError(t, p.Handle(context.Background(), events.NewQuoteEvent("s1", "A -> B", "1", "2")))
	p.Field("tx", "0xabc")

	assert.Equal(t, "warning: pool is thin\nquote A -> B: 1 -> 2\ntx:            0xabc\n", out.String())
}
