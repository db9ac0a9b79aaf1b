// internal/commands/app.go

// Package commands is the launchpad command line: launching tokens, quoting
// and trading through the router, and browsing the factory registry.
package commands

import (
	"fmt"
	"io"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/config"
	"github.com/rovshanmuradov/launchpad/internal/events"
	"github.com/rovshanmuradov/launchpad/internal/types"
	"github.com/rovshanmuradov/launchpad/internal/ui/style"
)

type App struct {
	newEnv EnvFactory
	in     io.Reader
	out    io.Writer
}

// NewApp builds the CLI. newEnv is DialEnv outside tests.
func NewApp(newEnv EnvFactory, in io.Reader, out io.Writer) *cli.App {
	a := &App{newEnv: newEnv, in: in, out: out}
	return &cli.App{
		Name:      "launchpad",
		Usage:     "Launch tokens and trade them on the platform AMM",
		Writer:    out,
		ErrWriter: out,
		Flags:     globalFlags(),
		Commands: []*cli.Command{
			a.launchCommand(),
			a.quoteCommand(),
			a.buyCommand(),
			a.sellCommand(),
			a.swapCommand(),
			a.tokensCommand(),
			a.infoCommand(),
		},
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "Config file (yaml, json or toml)"},
		&cli.StringFlag{Name: "rpc-url", Usage: "JSON-RPC endpoint"},
		&cli.Int64Flag{Name: "chain-id", Usage: "Chain id used for signing"},
		&cli.StringFlag{Name: "factory", Usage: "Launchpad factory address"},
		&cli.StringFlag{Name: "router", Usage: "Router address, overrides the factory's"},
		&cli.StringFlag{Name: "deploy-fee", Usage: "Native currency sent with createToken"},
		&cli.StringFlag{Name: "metadata-endpoint", Usage: "Pinning endpoint for token metadata"},
		&cli.StringFlag{Name: "metadata-gateway", Usage: "Gateway used to read ipfs:// URIs"},
		&cli.StringFlag{Name: "log-file", Usage: "Rotated JSON log file, empty to disable"},
		&cli.StringFlag{Name: "metrics-addr", Usage: "Serve Prometheus metrics on this address"},
		&cli.StringFlag{Name: "priority", Usage: "Gas priority: low, medium, high or extreme"},
		&cli.BoolFlag{Name: "debug", Aliases: []string{"D"}, Usage: "Verbose logging"},
		&cli.BoolFlag{Name: "plain", Usage: "Disable colors"},
	}
}

// loadConfig reads the config file and environment, then applies any flag
// that was set explicitly.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"), func(cfg *config.Config) {
		if c.IsSet("rpc-url") {
			cfg.RPCURL = c.String("rpc-url")
		}
		if c.IsSet("chain-id") {
			cfg.ChainID = c.Int64("chain-id")
		}
		if c.IsSet("factory") {
			cfg.FactoryAddress = c.String("factory")
		}
		if c.IsSet("router") {
			cfg.RouterAddress = c.String("router")
		}
		if c.IsSet("deploy-fee") {
			cfg.DeployFee = c.String("deploy-fee")
		}
		if c.IsSet("metadata-endpoint") {
			cfg.Metadata.Endpoint = c.String("metadata-endpoint")
		}
		if c.IsSet("metadata-gateway") {
			cfg.Metadata.Gateway = c.String("metadata-gateway")
		}
		if c.IsSet("log-file") {
			cfg.LogFile = c.String("log-file")
		}
		if c.IsSet("metrics-addr") {
			cfg.MetricsAddr = c.String("metrics-addr")
		}
		if c.IsSet("priority") {
			cfg.GasPriority = c.String("priority")
		}
		if c.IsSet("debug") {
			cfg.DebugLogging = c.Bool("debug")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// with builds the Env around action and tears it down afterwards.
func (a *App) with(action func(c *cli.Context, env *Env) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		env, err := a.newEnv(c)
		if err != nil {
			return err
		}
		if env.In == nil {
			env.In = a.in
		}
		if env.Out == nil {
			env.Out = a.out
		}
		if c.Bool("plain") {
			env.Plain = true
		}
		if env.Plain {
			env.Styles = style.Plain()
		}
		env.Print = NewPrinter(env.Out, env.Styles)
		env.Bus.Subscribe(events.Any, env.Print)

		err = action(c, env)
		if cerr := env.Close(); cerr != nil {
			env.Logger.Warn("Shutdown incomplete", zap.Error(cerr))
		}
		return err
	}
}

// tolerance is the --slippage flag when given, the configured default
// otherwise.
func tolerance(c *cli.Context, env *Env) (types.Tolerance, error) {
	if !c.IsSet("slippage") {
		return env.Config.Slippage(), nil
	}
	return types.ParseTolerance(c.String("slippage"))
}

func slippageFlag() cli.Flag {
	return &cli.StringFlag{Name: "slippage", Aliases: []string{"s"}, Usage: "Slippage tolerance in percent"}
}

func yesFlag() cli.Flag {
	return &cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "Do not ask for confirmation"}
}
