// internal/blockchain/evm/abi.go
package evm

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const factoryABIJSON = `[
 {"type":"function","name":"totalTokens","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
 {"type":"function","name":"tokenAt","stateMutability":"view","inputs":[{"name":"index","type":"uint256"}],"outputs":[{"name":"","type":"address"}]},
 {"type":"function","name":"tokensList","stateMutability":"view","inputs":[{"name":"","type":"uint256"}],"outputs":[{"name":"","type":"address"}]},
 {"type":"function","name":"weth","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
 {"type":"function","name":"router","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
 {"type":"function","name":"getTokenInfo","stateMutability":"view","inputs":[{"name":"","type":"address"}],"outputs":[
  {"name":"token","type":"address"},{"name":"creator","type":"address"},
  {"name":"name","type":"string"},{"name":"symbol","type":"string"},{"name":"description","type":"string"},
  {"name":"imageURI","type":"string"},{"name":"twitter","type":"string"},{"name":"telegram","type":"string"},
  {"name":"website","type":"string"},{"name":"createdAt","type":"uint256"},{"name":"lpLocked","type":"bool"},
  {"name":"lockId","type":"uint256"}]},
 {"type":"function","name":"getTokenMetadata","stateMutability":"view","inputs":[{"name":"","type":"address"}],"outputs":[
  {"name":"name","type":"string"},{"name":"symbol","type":"string"},{"name":"description","type":"string"},
  {"name":"imageURI","type":"string"},{"name":"twitter","type":"string"},{"name":"telegram","type":"string"},
  {"name":"website","type":"string"}]},
 {"type":"function","name":"createToken","stateMutability":"payable","inputs":[
  {"name":"name","type":"string"},{"name":"symbol","type":"string"},{"name":"decimals","type":"uint8"},
  {"name":"initialSupply","type":"uint256"},{"name":"metadataURI","type":"string"},{"name":"autoRenounce","type":"bool"}],
  "outputs":[{"name":"","type":"address"}]}
]`

const routerABIJSON = `[
 {"type":"function","name":"getAmountsOut","stateMutability":"view","inputs":[{"name":"amountIn","type":"uint256"},{"name":"path","type":"address[]"}],"outputs":[{"name":"amounts","type":"uint256[]"}]},
 {"type":"function","name":"getAmountsIn","stateMutability":"view","inputs":[{"name":"amountOut","type":"uint256"},{"name":"path","type":"address[]"}],"outputs":[{"name":"amounts","type":"uint256[]"}]},
 {"type":"function","name":"addLiquidity","stateMutability":"nonpayable","inputs":[
  {"name":"tokenA","type":"address"},{"name":"tokenB","type":"address"},
  {"name":"amountADesired","type":"uint256"},{"name":"amountBDesired","type":"uint256"},
  {"name":"amountAMin","type":"uint256"},{"name":"amountBMin","type":"uint256"},
  {"name":"to","type":"address"},{"name":"deadline","type":"uint256"}],
  "outputs":[{"name":"amountA","type":"uint256"},{"name":"amountB","type":"uint256"},{"name":"liquidity","type":"uint256"}]},
 {"type":"function","name":"swapExactTokensForTokens","stateMutability":"nonpayable","inputs":[
  {"name":"amountIn","type":"uint256"},{"name":"amountOutMin","type":"uint256"},{"name":"path","type":"address[]"},
  {"name":"to","type":"address"},{"name":"deadline","type":"uint256"}],
  "outputs":[{"name":"amounts","type":"uint256[]"}]}
]`

const erc20ABIJSON = `[
 {"type":"function","name":"name","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
 {"type":"function","name":"symbol","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
 {"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
 {"type":"function","name":"totalSupply","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
 {"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
 {"type":"function","name":"allowance","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
 {"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
 {"type":"function","name":"deposit","stateMutability":"payable","inputs":[],"outputs":[]},
 {"type":"function","name":"withdraw","stateMutability":"nonpayable","inputs":[{"name":"wad","type":"uint256"}],"outputs":[]}
]`

var (
	factoryABI = mustParseABI(factoryABIJSON)
	routerABI  = mustParseABI(routerABIJSON)
	// ERC-20 plus the WETH deposit/withdraw pair.
	erc20ABI = mustParseABI(erc20ABIJSON)
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic("evm: bad embedded abi: " + err.Error())
	}
	return parsed
}
