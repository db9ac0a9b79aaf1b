// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math/big"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/rovshanmuradov/launchpad/internal/types"
	"github.com/rovshanmuradov/launchpad/internal/units"
)

const EnvPrefix = "LAUNCHPAD"

type MetadataConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Gateway  string `mapstructure:"gateway"`
	Token    string `mapstructure:"token"`
}

type Config struct {
	RPCURL              string         `mapstructure:"rpc_url"`
	ChainID             int64          `mapstructure:"chain_id"`
	FactoryAddress      string         `mapstructure:"factory_address"`
	RouterAddress       string         `mapstructure:"router_address"`
	PrivateKey          string         `mapstructure:"private_key"`
	DeployFee           string         `mapstructure:"deploy_fee"`
	DefaultSlippage     string         `mapstructure:"default_slippage"`
	LiquidityDeadline   time.Duration  `mapstructure:"liquidity_deadline"`
	TradeDeadline       time.Duration  `mapstructure:"trade_deadline"`
	SwapDeadline        time.Duration  `mapstructure:"swap_deadline"`
	ConfirmTimeout      time.Duration  `mapstructure:"confirm_timeout"`
	Metadata            MetadataConfig `mapstructure:"metadata"`
	RegistryConcurrency int            `mapstructure:"registry_concurrency"`
	DebugLogging        bool           `mapstructure:"debug_logging"`
	LogFile             string         `mapstructure:"log_file"`
	MetricsAddr         string         `mapstructure:"metrics_addr"`
	GasPriority         string         `mapstructure:"gas_priority"`

	factory   common.Address
	router    common.Address
	slippage  types.Tolerance
	deployFee *big.Int
	priority  types.PriorityLevel
}

const (
	DefaultSlippage            = "1"
	DefaultDeployFee           = "0"
	DefaultLiquidityDeadline   = 10 * time.Minute
	DefaultTradeDeadline       = 10 * time.Minute
	DefaultSwapDeadline        = 20 * time.Minute
	DefaultConfirmTimeout      = 3 * time.Minute
	DefaultRegistryConcurrency = 8
	DefaultLogFile             = "launchpad.log"
)

// Load reads path (optional), then .env, then LAUNCHPAD_* environment
// variables, in increasing priority. Overrides run last, before validation.
func Load(path string, overrides ...func(*Config)) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	defaults := map[string]interface{}{
		"rpc_url":              "",
		"chain_id":             0,
		"factory_address":      "",
		"router_address":       "",
		"private_key":          "",
		"deploy_fee":           DefaultDeployFee,
		"default_slippage":     DefaultSlippage,
		"liquidity_deadline":   DefaultLiquidityDeadline,
		"trade_deadline":       DefaultTradeDeadline,
		"swap_deadline":        DefaultSwapDeadline,
		"confirm_timeout":      DefaultConfirmTimeout,
		"metadata.endpoint":    "",
		"metadata.gateway":     "",
		"metadata.token":       "",
		"registry_concurrency": DefaultRegistryConcurrency,
		"debug_logging":        false,
		"log_file":             DefaultLogFile,
		"metrics_addr":         "",
		"gas_priority":         string(types.PriorityLow),
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	for _, override := range overrides {
		override(&cfg)
	}

	return &cfg, cfg.Validate()
}

// Validate checks every field and caches the parsed forms.
func (c *Config) Validate() error {
	if c.RPCURL == "" {
		return errors.New("rpc_url is required")
	}
	if err := validateURL(c.RPCURL, "http", "https", "ws", "wss"); err != nil {
		return fmt.Errorf("invalid rpc_url: %w", err)
	}
	if c.ChainID <= 0 {
		return errors.New("chain_id must be positive")
	}

	if !common.IsHexAddress(c.FactoryAddress) {
		return fmt.Errorf("invalid factory_address %q", c.FactoryAddress)
	}
	c.factory = common.HexToAddress(c.FactoryAddress)

	if c.RouterAddress != "" {
		if !common.IsHexAddress(c.RouterAddress) {
			return fmt.Errorf("invalid router_address %q", c.RouterAddress)
		}
		c.router = common.HexToAddress(c.RouterAddress)
	}

	tol, err := types.ParseTolerance(c.DefaultSlippage)
	if err != nil {
		return fmt.Errorf("invalid default_slippage: %w", err)
	}
	c.slippage = tol

	fee, err := units.ToBaseUnits(c.DeployFee, 18)
	if err != nil {
		return fmt.Errorf("invalid deploy_fee: %w", err)
	}
	c.deployFee = fee

	priority, err := types.ParsePriorityLevel(c.GasPriority)
	if err != nil {
		return fmt.Errorf("invalid gas_priority: %w", err)
	}
	c.priority = priority

	if err := validateDurations(c); err != nil {
		return err
	}
	if c.RegistryConcurrency <= 0 {
		return errors.New("registry_concurrency must be positive")
	}
	if c.Metadata.Endpoint != "" {
		if err := validateURL(c.Metadata.Endpoint, "http", "https"); err != nil {
			return fmt.Errorf("invalid metadata.endpoint: %w", err)
		}
	}
	return nil
}

func validateDurations(c *Config) error {
	for name, d := range map[string]time.Duration{
		"liquidity_deadline": c.LiquidityDeadline,
		"trade_deadline":     c.TradeDeadline,
		"swap_deadline":      c.SwapDeadline,
		"confirm_timeout":    c.ConfirmTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("invalid %s: must be positive", name)
		}
	}
	return nil
}

func validateURL(rawURL string, schemes ...string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	for _, s := range schemes {
		if parsed.Scheme == s {
			return nil
		}
	}
	return fmt.Errorf("unsupported scheme %q", parsed.Scheme)
}

// RequireSigner reports whether a private key is configured.
func (c *Config) RequireSigner() error {
	if strings.TrimSpace(c.PrivateKey) == "" {
		return fmt.Errorf("private_key is required; set %s_PRIVATE_KEY", EnvPrefix)
	}
	return nil
}

func (c *Config) Factory() common.Address { return c.factory }

// Router returns the configured router override, if any.
func (c *Config) Router() (common.Address, bool) {
	return c.router, c.router != (common.Address{})
}

func (c *Config) Slippage() types.Tolerance { return c.slippage }

func (c *Config) Priority() types.PriorityLevel { return c.priority }

// DeployFeeWei is the createToken value in base units of the native currency.
func (c *Config) DeployFeeWei() *big.Int {
	if c.deployFee == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(c.deployFee)
}
