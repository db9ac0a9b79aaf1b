package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
rpc_url: https://dream-rpc.somnia.network
chain_id: 50312
factory_address: "0x00000000000000000000000000000000000fac70"
deploy_fee: "0.05"
default_slippage: "3"
swap_deadline: 15m
metadata:
  endpoint: https://pin.example.com/upload
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)

	assert.Equal(t, int64(50312), cfg.ChainID)
	assert.Equal(t, common.HexToAddress("0x00000000000000000000000000000000000fac70"), cfg.Factory())
	assert.Equal(t, "50000000000000000", cfg.DeployFeeWei().String())
	assert.Equal(t, int64(300), cfg.Slippage().BasisPoints())
	assert.Equal(t, 15*time.Minute, cfg.SwapDeadline)
	assert.Equal(t, DefaultLiquidityDeadline, cfg.LiquidityDeadline)
	assert.Equal(t, DefaultRegistryConcurrency, cfg.RegistryConcurrency)
	assert.Equal(t, "https://pin.example.com/upload", cfg.Metadata.Endpoint)

	_, ok := cfg.Router()
	assert.False(t, ok)
	assert.Error(t, cfg.RequireSigner())
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("LAUNCHPAD_PRIVATE_KEY", "0xabc")
	t.Setenv("LAUNCHPAD_ROUTER_ADDRESS", "0x000000000000000000000000000000000000a770")
	t.Setenv("LAUNCHPAD_METADATA_GATEWAY", "https://ipfs.io/ipfs/")
	t.Setenv("LAUNCHPAD_DEFAULT_SLIPPAGE", "0.5")

	cfg, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)

	assert.NoError(t, cfg.RequireSigner())
	router, ok := cfg.Router()
	assert.True(t, ok)
	assert.Equal(t, common.HexToAddress("0x000000000000000000000000000000000000a770"), router)
	assert.Equal(t, "https://ipfs.io/ipfs/", cfg.Metadata.Gateway)
	assert.Equal(t, int64(50), cfg.Slippage().BasisPoints())
}

func TestValidateRejects(t *testing.T) {
	base := func() *Config {
		return &Config{
			RPCURL: "https://rpc", ChainID: 1, FactoryAddress: "0x00000000000000000000000000000000000fac70",
			DeployFee: "0", DefaultSlippage: "1",
			LiquidityDeadline: time.Minute, TradeDeadline: time.Minute, SwapDeadline: time.Minute, ConfirmTimeout: time.Minute,
			RegistryConcurrency: 1,
		}
	}
	require.NoError(t, base().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing rpc", func(c *Config) { c.RPCURL = "" }},
		{"bad rpc scheme", func(c *Config) { c.RPCURL = "ftp://rpc" }},
		{"zero chain", func(c *Config) { c.ChainID = 0 }},
		{"bad factory", func(c *Config) { c.FactoryAddress = "factory" }},
		{"bad router", func(c *Config) { c.RouterAddress = "0x12" }},
		{"slippage above 50", func(c *Config) { c.DefaultSlippage = "51" }},
		{"bad fee", func(c *Config) { c.DeployFee = "-1" }},
		{"zero deadline", func(c *Config) { c.SwapDeadline = 0 }},
		{"zero concurrency", func(c *Config) { c.RegistryConcurrency = 0 }},
		{"bad metadata endpoint", func(c *Config) { c.Metadata.Endpoint = "ipfs://x" }},
		{"unknown priority", func(c *Config) { c.GasPriority = "urgent" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
