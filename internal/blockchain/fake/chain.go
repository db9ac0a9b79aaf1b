// internal/blockchain/fake/chain.go

// Package fake is an in-memory chain implementing the blockchain
// capabilities for tests and dry runs. State changes apply when a call is
// submitted; Wait only hands back the receipt.
package fake

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/rovshanmuradov/launchpad/internal/blockchain"
)

// TokenState is the ERC-20 state of one fake token.
type TokenState struct {
	Name       string
	Symbol     string
	Decimals   uint8
	Supply     *big.Int
	Balances   map[common.Address]*big.Int
	Allowances map[[2]common.Address]*big.Int
}

// Submission records a state-changing call handed to the signer.
type Submission struct {
	Hash   common.Hash
	From   common.Address
	Method string
	To     common.Address
	Value  *big.Int
	Params interface{}
}

// Quoter computes router amounts for a path.
type Quoter func(amount *big.Int, path []common.Address) ([]*big.Int, error)

type action struct {
	method string
	params interface{}
	apply  func(c *Chain, from common.Address, value *big.Int) error
}

// Chain is safe for concurrent use.
type Chain struct {
	mu sync.Mutex

	FactoryAddr common.Address
	RouterAddr  common.Address
	WrappedAddr common.Address

	// LegacyOnly makes tokenAt and getTokenInfo revert, as on older factories.
	LegacyOnly bool
	AmountsOut Quoter
	AmountsIn  Quoter

	tokens      []common.Address
	infos       map[common.Address]*blockchain.TokenInfo
	erc20       map[common.Address]*TokenState
	native      map[common.Address]*big.Int
	liquidity   []blockchain.AddLiquidityParams
	reserves    map[common.Address]map[common.Address]*big.Int
	calls       []string
	submissions []Submission
	actions     map[string]action
	receipts    map[common.Hash]*blockchain.Receipt
	submitErrs  map[string]error
	reverts     map[string]string
	readErrs    map[string]error
	nonce       uint64
}

// NewChain returns a chain with a factory, router and wrapped native token
// deployed.
func NewChain() *Chain {
	c := &Chain{
		FactoryAddr: common.HexToAddress("0x00000000000000000000000000000000000fac70"),
		RouterAddr:  common.HexToAddress("0x000000000000000000000000000000000000a770"),
		WrappedAddr: common.HexToAddress("0x00000000000000000000000000000000000000e7"),
		infos:       make(map[common.Address]*blockchain.TokenInfo),
		erc20:       make(map[common.Address]*TokenState),
		native:      make(map[common.Address]*big.Int),
		reserves:    make(map[common.Address]map[common.Address]*big.Int),
		actions:     make(map[string]action),
		receipts:    make(map[common.Hash]*blockchain.Receipt),
		submitErrs:  make(map[string]error),
		reverts:     make(map[string]string),
		readErrs:    make(map[string]error),
	}
	c.erc20[c.WrappedAddr] = newTokenState("Wrapped Somnia", "WSTT", 18, new(big.Int))
	c.AmountsOut = ConstantProduct(c)
	return c
}

func newTokenState(name, symbol string, decimals uint8, supply *big.Int) *TokenState {
	return &TokenState{
		Name:       name,
		Symbol:     symbol,
		Decimals:   decimals,
		Supply:     new(big.Int).Set(supply),
		Balances:   make(map[common.Address]*big.Int),
		Allowances: make(map[[2]common.Address]*big.Int),
	}
}

// AddToken registers an existing token with the factory.
func (c *Chain) AddToken(name, symbol string, decimals uint8, supply *big.Int, holder common.Address) common.Address {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.addTokenLocked(name, symbol, decimals, supply, holder, holder, "")
}

func (c *Chain) addTokenLocked(name, symbol string, decimals uint8, supply *big.Int, creator, holder common.Address, uri string) common.Address {
	addr := common.BigToAddress(big.NewInt(int64(0x1000 + len(c.tokens))))
	st := newTokenState(name, symbol, decimals, supply)
	st.Balances[holder] = new(big.Int).Set(supply)
	c.erc20[addr] = st
	c.tokens = append(c.tokens, addr)
	c.infos[addr] = &blockchain.TokenInfo{
		Token:     addr,
		Creator:   creator,
		Name:      name,
		Symbol:    symbol,
		ImageURI:  uri,
		CreatedAt: big.NewInt(int64(len(c.tokens))),
		LockID:    new(big.Int),
	}
	return addr
}

// Fund credits native currency.
func (c *Chain) Fund(owner common.Address, amount *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.native[owner] = new(big.Int).Add(c.nativeOf(owner), amount)
}

// FailSubmit makes Submit fail for method before anything is broadcast.
func (c *Chain) FailSubmit(method string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.submitErrs[method] = err
}

// Revert makes method mine with a failed status and the given reason.
func (c *Chain) Revert(method, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reverts[method] = reason
}

// FailRead makes a view method return err.
func (c *Chain) FailRead(method string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.readErrs[method] = err
}

// Heal clears every injected failure.
func (c *Chain) Heal() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.submitErrs = make(map[string]error)
	c.reverts = make(map[string]string)
	c.readErrs = make(map[string]error)
}

// Calls lists every external call, reads as the method name and
// submissions prefixed with "tx:".
func (c *Chain) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

// Submissions lists state-changing calls in submission order.
func (c *Chain) Submissions() []Submission {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Submission(nil), c.submissions...)
}

// SubmittedMethods lists submitted method names in order.
func (c *Chain) SubmittedMethods() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.submissions))
	for i, s := range c.submissions {
		out[i] = s.Method
	}
	return out
}

// Liquidity lists the addLiquidity calls that mined successfully.
func (c *Chain) Liquidity() []blockchain.AddLiquidityParams {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]blockchain.AddLiquidityParams(nil), c.liquidity...)
}

// Tokens lists factory tokens in creation order.
func (c *Chain) Tokens() []common.Address {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]common.Address(nil), c.tokens...)
}

// TokenState returns a snapshot pointer; callers must not mutate it
// concurrently with chain activity.
func (c *Chain) TokenState(addr common.Address) *TokenState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.erc20[addr]
}

func (c *Chain) read(method string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, method)
	return c.readErrs[method]
}

func (c *Chain) nativeOf(owner common.Address) *big.Int {
	if v, ok := c.native[owner]; ok {
		return v
	}
	return new(big.Int)
}

// encode parks the call's effect and returns a Call whose Data is the key.
func (c *Chain) encode(to common.Address, value *big.Int, a action) blockchain.Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := fmt.Sprintf("%s#%d", a.method, len(c.actions))
	c.actions[key] = a
	if value == nil {
		value = new(big.Int)
	}
	return blockchain.Call{To: to, Data: []byte(key), Value: new(big.Int).Set(value), Method: a.method}
}

// Signer returns a signer for owner bound to this chain.
func (c *Chain) Signer(owner common.Address) *Signer {
	return &Signer{chain: c, owner: owner}
}

// Signer submits calls to a Chain.
type Signer struct {
	chain *Chain
	owner common.Address
}

var _ blockchain.Signer = (*Signer)(nil)

func (s *Signer) Address() common.Address { return s.owner }

func (s *Signer) Submit(ctx context.Context, call blockchain.Call) (common.Hash, error) {
	if err := ctx.Err(); err != nil {
		return common.Hash{}, err
	}

	c := s.chain
	c.mu.Lock()
	defer c.mu.Unlock()

	a, ok := c.actions[string(call.Data)]
	if !ok {
		return common.Hash{}, fmt.Errorf("fake: unknown call data %q", call.Data)
	}
	c.calls = append(c.calls, "tx:"+a.method)
	if err := c.submitErrs[a.method]; err != nil {
		return common.Hash{}, err
	}

	c.nonce++
	hash := crypto.Keccak256Hash(call.Data, big.NewInt(int64(c.nonce)).Bytes())
	c.submissions = append(c.submissions, Submission{
		Hash: hash, From: s.owner, Method: a.method, To: call.To, Value: call.Value, Params: a.params,
	})

	receipt := &blockchain.Receipt{TxHash: hash, BlockNumber: c.nonce, GasUsed: 21000, Success: true}
	if reason, ok := c.reverts[a.method]; ok {
		receipt.Success = false
		receipt.RevertReason = reason
	} else if err := a.apply(c, s.owner, call.Value); err != nil {
		receipt.Success = false
		receipt.RevertReason = err.Error()
	}
	c.receipts[hash] = receipt
	return hash, nil
}

func (s *Signer) Wait(ctx context.Context, hash common.Hash) (*blockchain.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c := s.chain
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.receipts[hash]
	if !ok {
		return nil, fmt.Errorf("fake: unknown transaction %s", hash.Hex())
	}
	out := *r
	return &out, nil
}

// ConstantProduct quotes against the pools seeded through addLiquidity
// using the x*y=k formula with a 0.3% fee.
func ConstantProduct(c *Chain) Quoter {
	return func(amount *big.Int, path []common.Address) ([]*big.Int, error) {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.amountsOutLocked(amount, path)
	}
}

func (c *Chain) amountsOutLocked(amount *big.Int, path []common.Address) ([]*big.Int, error) {
	out := []*big.Int{new(big.Int).Set(amount)}
	cur := new(big.Int).Set(amount)
	for i := 0; i+1 < len(path); i++ {
		rIn, rOut := c.reservesLocked(path[i], path[i+1])
		if rIn.Sign() == 0 || rOut.Sign() == 0 {
			return nil, fmt.Errorf("execution reverted: UniswapV2Library: INSUFFICIENT_LIQUIDITY")
		}
		inWithFee := new(big.Int).Mul(cur, big.NewInt(997))
		num := new(big.Int).Mul(inWithFee, rOut)
		den := new(big.Int).Add(new(big.Int).Mul(rIn, big.NewInt(1000)), inWithFee)
		cur = new(big.Int).Quo(num, den)
		out = append(out, new(big.Int).Set(cur))
	}
	return out, nil
}

func (c *Chain) amountsInLocked(amount *big.Int, path []common.Address) ([]*big.Int, error) {
	out := make([]*big.Int, len(path))
	out[len(out)-1] = new(big.Int).Set(amount)
	for i := len(path) - 1; i > 0; i-- {
		rIn, rOut := c.reservesLocked(path[i-1], path[i])
		if rIn.Sign() == 0 || rOut.Cmp(out[i]) <= 0 {
			return nil, fmt.Errorf("execution reverted: UniswapV2Library: INSUFFICIENT_LIQUIDITY")
		}
		num := new(big.Int).Mul(new(big.Int).Mul(rIn, out[i]), big.NewInt(1000))
		den := new(big.Int).Mul(new(big.Int).Sub(rOut, out[i]), big.NewInt(997))
		out[i-1] = new(big.Int).Add(new(big.Int).Quo(num, den), big.NewInt(1))
	}
	return out, nil
}

func (c *Chain) reservesLocked(a, b common.Address) (*big.Int, *big.Int) {
	return c.reserveLocked(a, b), c.reserveLocked(b, a)
}

// reserveLocked is the balance of token held by the token/other pool.
func (c *Chain) reserveLocked(token, other common.Address) *big.Int {
	if m, ok := c.reserves[token]; ok {
		if v, ok := m[other]; ok {
			return v
		}
	}
	return new(big.Int)
}

func (c *Chain) addReserveLocked(token, other common.Address, delta *big.Int) {
	m, ok := c.reserves[token]
	if !ok {
		m = make(map[common.Address]*big.Int)
		c.reserves[token] = m
	}
	m[other] = new(big.Int).Add(c.reserveLocked(token, other), delta)
}
