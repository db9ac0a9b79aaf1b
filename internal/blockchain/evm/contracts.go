// internal/blockchain/evm/contracts.go
package evm

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/rovshanmuradov/launchpad/internal/blockchain"
)

type factory struct {
	client *Client
	addr   common.Address
}

func (f *factory) Address() common.Address { return f.addr }

func (f *factory) TotalTokens(ctx context.Context) (*big.Int, error) {
	out, err := f.client.call(ctx, factoryABI, f.addr, "totalTokens")
	if err != nil {
		return nil, err
	}
	return one[*big.Int](out, "totalTokens")
}

func (f *factory) TokenAt(ctx context.Context, index *big.Int) (common.Address, error) {
	out, err := f.client.call(ctx, factoryABI, f.addr, "tokenAt", index)
	if err != nil {
		return common.Address{}, err
	}
	return one[common.Address](out, "tokenAt")
}

func (f *factory) LegacyTokenAt(ctx context.Context, index *big.Int) (common.Address, error) {
	out, err := f.client.call(ctx, factoryABI, f.addr, "tokensList", index)
	if err != nil {
		return common.Address{}, err
	}
	return one[common.Address](out, "tokensList")
}

func (f *factory) WrappedNative(ctx context.Context) (common.Address, error) {
	out, err := f.client.call(ctx, factoryABI, f.addr, "weth")
	if err != nil {
		return common.Address{}, err
	}
	return one[common.Address](out, "weth")
}

func (f *factory) Router(ctx context.Context) (common.Address, error) {
	out, err := f.client.call(ctx, factoryABI, f.addr, "router")
	if err != nil {
		return common.Address{}, err
	}
	return one[common.Address](out, "router")
}

func (f *factory) TokenInfo(ctx context.Context, tokenAddr common.Address) (*blockchain.TokenInfo, error) {
	out, err := f.client.call(ctx, factoryABI, f.addr, "getTokenInfo", tokenAddr)
	if err != nil {
		return nil, err
	}
	if len(out) != 12 {
		return nil, fmt.Errorf("getTokenInfo: expected 12 values, got %d", len(out))
	}

	info := &blockchain.TokenInfo{}
	var ok [12]bool
	info.Token, ok[0] = out[0].(common.Address)
	info.Creator, ok[1] = out[1].(common.Address)
	info.Name, ok[2] = out[2].(string)
	info.Symbol, ok[3] = out[3].(string)
	info.Description, ok[4] = out[4].(string)
	info.ImageURI, ok[5] = out[5].(string)
	info.Twitter, ok[6] = out[6].(string)
	info.Telegram, ok[7] = out[7].(string)
	info.Website, ok[8] = out[8].(string)
	info.CreatedAt, ok[9] = out[9].(*big.Int)
	info.LPLocked, ok[10] = out[10].(bool)
	info.LockID, ok[11] = out[11].(*big.Int)
	for i, good := range ok {
		if !good {
			return nil, fmt.Errorf("getTokenInfo: unexpected type %T at %d", out[i], i)
		}
	}
	return info, nil
}

func (f *factory) LegacyTokenMetadata(ctx context.Context, tokenAddr common.Address) (*blockchain.TokenInfo, error) {
	out, err := f.client.call(ctx, factoryABI, f.addr, "getTokenMetadata", tokenAddr)
	if err != nil {
		return nil, err
	}
	if len(out) != 7 {
		return nil, fmt.Errorf("getTokenMetadata: expected 7 values, got %d", len(out))
	}
	strs := make([]string, len(out))
	for i, v := range out {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("getTokenMetadata: unexpected type %T at %d", v, i)
		}
		strs[i] = s
	}
	return &blockchain.TokenInfo{
		Token:       tokenAddr,
		Name:        strs[0],
		Symbol:      strs[1],
		Description: strs[2],
		ImageURI:    strs[3],
		Twitter:     strs[4],
		Telegram:    strs[5],
		Website:     strs[6],
	}, nil
}

func (f *factory) CreateToken(p blockchain.CreateTokenParams) (blockchain.Call, error) {
	return encode(factoryABI, f.addr, p.Fee, "createToken",
		p.Name, p.Symbol, p.Decimals, p.InitialSupply, p.MetadataURI, p.AutoRenounce)
}

type router struct {
	client *Client
	addr   common.Address
}

func (r *router) Address() common.Address { return r.addr }

func (r *router) AmountsOut(ctx context.Context, amountIn *big.Int, path []common.Address) ([]*big.Int, error) {
	out, err := r.client.call(ctx, routerABI, r.addr, "getAmountsOut", amountIn, path)
	if err != nil {
		return nil, err
	}
	return one[[]*big.Int](out, "getAmountsOut")
}

func (r *router) AmountsIn(ctx context.Context, amountOut *big.Int, path []common.Address) ([]*big.Int, error) {
	out, err := r.client.call(ctx, routerABI, r.addr, "getAmountsIn", amountOut, path)
	if err != nil {
		return nil, err
	}
	return one[[]*big.Int](out, "getAmountsIn")
}

func (r *router) AddLiquidity(p blockchain.AddLiquidityParams) (blockchain.Call, error) {
	return encode(routerABI, r.addr, nil, "addLiquidity",
		p.TokenA, p.TokenB, p.AmountADesired, p.AmountBDesired, p.AmountAMin, p.AmountBMin, p.To, p.Deadline)
}

func (r *router) SwapExactTokensForTokens(p blockchain.SwapParams) (blockchain.Call, error) {
	return encode(routerABI, r.addr, nil, "swapExactTokensForTokens",
		p.AmountIn, p.AmountOutMin, p.Path, p.To, p.Deadline)
}

type token struct {
	client *Client
	addr   common.Address
}

func (t *token) Address() common.Address { return t.addr }

func (t *token) Name(ctx context.Context) (string, error) {
	return t.text(ctx, "name")
}

func (t *token) Symbol(ctx context.Context) (string, error) {
	return t.text(ctx, "symbol")
}

// text reads a string getter, falling back to the bytes32 encoding some
// older tokens use.
func (t *token) text(ctx context.Context, method string) (string, error) {
	out, err := t.client.call(ctx, erc20ABI, t.addr, method)
	if err == nil {
		return one[string](out, method)
	}

	data, packErr := erc20ABI.Pack(method)
	if packErr != nil {
		return "", err
	}
	raw, callErr := t.client.rpc.CallContract(ctx, ethereum.CallMsg{To: &t.addr, Data: data}, nil)
	if callErr != nil || len(raw) != 32 {
		return "", err
	}
	return strings.TrimRight(string(raw), "\x00"), nil
}

func (t *token) Decimals(ctx context.Context) (uint8, error) {
	out, err := t.client.call(ctx, erc20ABI, t.addr, "decimals")
	if err != nil {
		return 0, err
	}
	return one[uint8](out, "decimals")
}

func (t *token) TotalSupply(ctx context.Context) (*big.Int, error) {
	out, err := t.client.call(ctx, erc20ABI, t.addr, "totalSupply")
	if err != nil {
		return nil, err
	}
	return one[*big.Int](out, "totalSupply")
}

func (t *token) BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error) {
	out, err := t.client.call(ctx, erc20ABI, t.addr, "balanceOf", owner)
	if err != nil {
		return nil, err
	}
	return one[*big.Int](out, "balanceOf")
}

func (t *token) Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error) {
	out, err := t.client.call(ctx, erc20ABI, t.addr, "allowance", owner, spender)
	if err != nil {
		return nil, err
	}
	return one[*big.Int](out, "allowance")
}

func (t *token) Approve(spender common.Address, amount *big.Int) (blockchain.Call, error) {
	return encode(erc20ABI, t.addr, nil, "approve", spender, amount)
}

type wrapped struct {
	token
}

func (w *wrapped) Deposit(value *big.Int) (blockchain.Call, error) {
	return encode(erc20ABI, w.addr, value, "deposit")
}

func (w *wrapped) Withdraw(amount *big.Int) (blockchain.Call, error) {
	return encode(erc20ABI, w.addr, nil, "withdraw", amount)
}
