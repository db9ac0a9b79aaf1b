// internal/blockchain/fake/contracts.go
package fake

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rovshanmuradov/launchpad/internal/blockchain"
)

var errReverted = errors.New("execution reverted")

var _ blockchain.Backend = (*Chain)(nil)

func (c *Chain) Factory(addr common.Address) blockchain.Factory { return &factory{c: c, addr: addr} }
func (c *Chain) Router(addr common.Address) blockchain.Router   { return &router{c: c, addr: addr} }
func (c *Chain) Token(addr common.Address) blockchain.Token     { return &token{c: c, addr: addr} }

func (c *Chain) WrappedNative(addr common.Address) blockchain.WrappedNative {
	return &wrapped{token: token{c: c, addr: addr}}
}

func (c *Chain) Balance(_ context.Context, owner common.Address) (*big.Int, error) {
	if err := c.read("balance"); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return new(big.Int).Set(c.nativeOf(owner)), nil
}

type factory struct {
	c    *Chain
	addr common.Address
}

func (f *factory) Address() common.Address { return f.addr }

func (f *factory) TotalTokens(context.Context) (*big.Int, error) {
	if err := f.c.read("totalTokens"); err != nil {
		return nil, err
	}
	f.c.mu.Lock()
	defer f.c.mu.Unlock()
	return big.NewInt(int64(len(f.c.tokens))), nil
}

func (f *factory) tokenAt(method string, index *big.Int) (common.Address, error) {
	if err := f.c.read(method); err != nil {
		return common.Address{}, err
	}
	f.c.mu.Lock()
	defer f.c.mu.Unlock()
	if method == "tokenAt" && f.c.LegacyOnly {
		return common.Address{}, fmt.Errorf("tokenAt: %w", errReverted)
	}
	if !index.IsInt64() || index.Sign() < 0 || index.Int64() >= int64(len(f.c.tokens)) {
		return common.Address{}, fmt.Errorf("%s(%s): %w", method, index, errReverted)
	}
	return f.c.tokens[index.Int64()], nil
}

func (f *factory) TokenAt(_ context.Context, index *big.Int) (common.Address, error) {
	return f.tokenAt("tokenAt", index)
}

func (f *factory) LegacyTokenAt(_ context.Context, index *big.Int) (common.Address, error) {
	return f.tokenAt("tokensList", index)
}

func (f *factory) WrappedNative(context.Context) (common.Address, error) {
	if err := f.c.read("weth"); err != nil {
		return common.Address{}, err
	}
	return f.c.WrappedAddr, nil
}

func (f *factory) Router(context.Context) (common.Address, error) {
	if err := f.c.read("router"); err != nil {
		return common.Address{}, err
	}
	return f.c.RouterAddr, nil
}

func (f *factory) TokenInfo(_ context.Context, addr common.Address) (*blockchain.TokenInfo, error) {
	if err := f.c.read("getTokenInfo"); err != nil {
		return nil, err
	}
	f.c.mu.Lock()
	defer f.c.mu.Unlock()
	if f.c.LegacyOnly {
		return nil, fmt.Errorf("getTokenInfo: %w", errReverted)
	}
	info, ok := f.c.infos[addr]
	if !ok {
		return nil, fmt.Errorf("getTokenInfo(%s): %w", addr.Hex(), errReverted)
	}
	out := *info
	return &out, nil
}

func (f *factory) LegacyTokenMetadata(_ context.Context, addr common.Address) (*blockchain.TokenInfo, error) {
	if err := f.c.read("getTokenMetadata"); err != nil {
		return nil, err
	}
	f.c.mu.Lock()
	defer f.c.mu.Unlock()
	info, ok := f.c.infos[addr]
	if !ok {
		return nil, fmt.Errorf("getTokenMetadata(%s): %w", addr.Hex(), errReverted)
	}
	return &blockchain.TokenInfo{
		Token: addr, Name: info.Name, Symbol: info.Symbol, Description: info.Description,
		ImageURI: info.ImageURI, Twitter: info.Twitter, Telegram: info.Telegram, Website: info.Website,
	}, nil
}

func (f *factory) CreateToken(p blockchain.CreateTokenParams) (blockchain.Call, error) {
	if p.InitialSupply == nil {
		return blockchain.Call{}, errors.New("createToken: nil supply")
	}
	return f.c.encode(f.addr, p.Fee, action{
		method: "createToken",
		params: p,
		apply: func(c *Chain, from common.Address, value *big.Int) error {
			if err := c.debitNativeLocked(from, value); err != nil {
				return err
			}
			c.addTokenLocked(p.Name, p.Symbol, p.Decimals, p.InitialSupply, from, from, p.MetadataURI)
			return nil
		},
	}), nil
}

type router struct {
	c    *Chain
	addr common.Address
}

func (r *router) Address() common.Address { return r.addr }

func (r *router) AmountsOut(_ context.Context, amountIn *big.Int, path []common.Address) ([]*big.Int, error) {
	if err := r.c.read("getAmountsOut"); err != nil {
		return nil, err
	}
	return r.c.AmountsOut(amountIn, path)
}

func (r *router) AmountsIn(_ context.Context, amountOut *big.Int, path []common.Address) ([]*big.Int, error) {
	if err := r.c.read("getAmountsIn"); err != nil {
		return nil, err
	}
	if r.c.AmountsIn != nil {
		return r.c.AmountsIn(amountOut, path)
	}
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	return r.c.amountsInLocked(amountOut, path)
}

func (r *router) AddLiquidity(p blockchain.AddLiquidityParams) (blockchain.Call, error) {
	return r.c.encode(r.addr, nil, action{
		method: "addLiquidity",
		params: p,
		apply: func(c *Chain, from common.Address, _ *big.Int) error {
			if p.AmountADesired.Cmp(p.AmountAMin) < 0 {
				return errors.New("UniswapV2Router: INSUFFICIENT_A_AMOUNT")
			}
			if p.AmountBDesired.Cmp(p.AmountBMin) < 0 {
				return errors.New("UniswapV2Router: INSUFFICIENT_B_AMOUNT")
			}
			if err := c.pullLocked(p.TokenA, from, r.addr, p.AmountADesired); err != nil {
				return err
			}
			if err := c.pullLocked(p.TokenB, from, r.addr, p.AmountBDesired); err != nil {
				return err
			}
			c.addReserveLocked(p.TokenA, p.TokenB, p.AmountADesired)
			c.addReserveLocked(p.TokenB, p.TokenA, p.AmountBDesired)
			c.liquidity = append(c.liquidity, p)
			return nil
		},
	}), nil
}

func (r *router) SwapExactTokensForTokens(p blockchain.SwapParams) (blockchain.Call, error) {
	path := append([]common.Address(nil), p.Path...)
	return r.c.encode(r.addr, nil, action{
		method: "swapExactTokensForTokens",
		params: p,
		apply: func(c *Chain, from common.Address, _ *big.Int) error {
			amounts, err := c.amountsOutLocked(p.AmountIn, path)
			if err != nil {
				return err
			}
			out := amounts[len(amounts)-1]
			if out.Cmp(p.AmountOutMin) < 0 {
				return errors.New("UniswapV2Router: INSUFFICIENT_OUTPUT_AMOUNT")
			}
			if err := c.pullLocked(path[0], from, r.addr, p.AmountIn); err != nil {
				return err
			}
			for i := 0; i+1 < len(path); i++ {
				c.addReserveLocked(path[i], path[i+1], amounts[i])
				c.addReserveLocked(path[i+1], path[i], new(big.Int).Neg(amounts[i+1]))
			}
			c.creditLocked(path[len(path)-1], p.To, out)
			return nil
		},
	}), nil
}

type token struct {
	c    *Chain
	addr common.Address
}

func (t *token) Address() common.Address { return t.addr }

func (t *token) state(method string) (*TokenState, error) {
	if err := t.c.read(method); err != nil {
		return nil, err
	}
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	st, ok := t.c.erc20[t.addr]
	if !ok {
		return nil, fmt.Errorf("%s on %s: %w", method, t.addr.Hex(), errReverted)
	}
	return st, nil
}

func (t *token) Name(context.Context) (string, error) {
	st, err := t.state("name")
	if err != nil {
		return "", err
	}
	return st.Name, nil
}

func (t *token) Symbol(context.Context) (string, error) {
	st, err := t.state("symbol")
	if err != nil {
		return "", err
	}
	return st.Symbol, nil
}

func (t *token) Decimals(context.Context) (uint8, error) {
	st, err := t.state("decimals")
	if err != nil {
		return 0, err
	}
	return st.Decimals, nil
}

func (t *token) TotalSupply(context.Context) (*big.Int, error) {
	st, err := t.state("totalSupply")
	if err != nil {
		return nil, err
	}
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	return new(big.Int).Set(st.Supply), nil
}

func (t *token) BalanceOf(_ context.Context, owner common.Address) (*big.Int, error) {
	st, err := t.state("balanceOf")
	if err != nil {
		return nil, err
	}
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	return new(big.Int).Set(balanceOf(st, owner)), nil
}

func (t *token) Allowance(_ context.Context, owner, spender common.Address) (*big.Int, error) {
	st, err := t.state("allowance")
	if err != nil {
		return nil, err
	}
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	if v, ok := st.Allowances[[2]common.Address{owner, spender}]; ok {
		return new(big.Int).Set(v), nil
	}
	return new(big.Int), nil
}

func (t *token) Approve(spender common.Address, amount *big.Int) (blockchain.Call, error) {
	addr := t.addr
	return t.c.encode(addr, nil, action{
		method: "approve",
		params: [2]interface{}{spender, new(big.Int).Set(amount)},
		apply: func(c *Chain, from common.Address, _ *big.Int) error {
			st, ok := c.erc20[addr]
			if !ok {
				return fmt.Errorf("approve on unknown token %s", addr.Hex())
			}
			st.Allowances[[2]common.Address{from, spender}] = new(big.Int).Set(amount)
			return nil
		},
	}), nil
}

type wrapped struct {
	token
}

func (w *wrapped) Deposit(value *big.Int) (blockchain.Call, error) {
	addr := w.addr
	return w.c.encode(addr, value, action{
		method: "deposit",
		params: new(big.Int).Set(value),
		apply: func(c *Chain, from common.Address, v *big.Int) error {
			if err := c.debitNativeLocked(from, v); err != nil {
				return err
			}
			st := c.erc20[addr]
			st.Supply = new(big.Int).Add(st.Supply, v)
			c.creditLocked(addr, from, v)
			return nil
		},
	}), nil
}

func (w *wrapped) Withdraw(amount *big.Int) (blockchain.Call, error) {
	addr := w.addr
	return w.c.encode(addr, nil, action{
		method: "withdraw",
		params: new(big.Int).Set(amount),
		apply: func(c *Chain, from common.Address, _ *big.Int) error {
			st := c.erc20[addr]
			bal := balanceOf(st, from)
			if bal.Cmp(amount) < 0 {
				return errors.New("WETH: insufficient balance")
			}
			st.Balances[from] = new(big.Int).Sub(bal, amount)
			st.Supply = new(big.Int).Sub(st.Supply, amount)
			c.native[from] = new(big.Int).Add(c.nativeOf(from), amount)
			return nil
		},
	}), nil
}

func balanceOf(st *TokenState, owner common.Address) *big.Int {
	if v, ok := st.Balances[owner]; ok {
		return v
	}
	return new(big.Int)
}

func (c *Chain) debitNativeLocked(from common.Address, value *big.Int) error {
	if value == nil || value.Sign() == 0 {
		return nil
	}
	bal := c.nativeOf(from)
	if bal.Cmp(value) < 0 {
		return errors.New("insufficient funds")
	}
	c.native[from] = new(big.Int).Sub(bal, value)
	return nil
}

func (c *Chain) creditLocked(tokenAddr, to common.Address, amount *big.Int) {
	st := c.erc20[tokenAddr]
	st.Balances[to] = new(big.Int).Add(balanceOf(st, to), amount)
}

// pullLocked moves amount of tokenAddr from owner using spender's allowance.
func (c *Chain) pullLocked(tokenAddr, owner, spender common.Address, amount *big.Int) error {
	st, ok := c.erc20[tokenAddr]
	if !ok {
		return fmt.Errorf("unknown token %s", tokenAddr.Hex())
	}
	key := [2]common.Address{owner, spender}
	allowance, ok := st.Allowances[key]
	if !ok || allowance.Cmp(amount) < 0 {
		return errors.New("TransferHelper: TRANSFER_FROM_FAILED")
	}
	bal := balanceOf(st, owner)
	if bal.Cmp(amount) < 0 {
		return errors.New("TransferHelper: TRANSFER_FROM_FAILED")
	}
	st.Allowances[key] = new(big.Int).Sub(allowance, amount)
	st.Balances[owner] = new(big.Int).Sub(bal, amount)
	return nil
}
