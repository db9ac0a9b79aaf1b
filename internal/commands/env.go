// internal/commands/env.go
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/blockchain"
	"github.com/rovshanmuradov/launchpad/internal/blockchain/evm"
	"github.com/rovshanmuradov/launchpad/internal/config"
	"github.com/rovshanmuradov/launchpad/internal/events"
	"github.com/rovshanmuradov/launchpad/internal/launch"
	"github.com/rovshanmuradov/launchpad/internal/metadata"
	"github.com/rovshanmuradov/launchpad/internal/registry"
	"github.com/rovshanmuradov/launchpad/internal/trade"
	"github.com/rovshanmuradov/launchpad/internal/ui/style"
	logging "github.com/rovshanmuradov/launchpad/internal/utils/logger"
	"github.com/rovshanmuradov/launchpad/internal/utils/metrics"
)

var ErrNoSigner = errors.New("this command needs a signing key")

// Env is everything a command runs against. It is built once per
// invocation and closed when the command returns.
type Env struct {
	Config  *config.Config
	Logger  *zap.Logger
	Backend blockchain.Backend
	// Signer is nil when no key is configured; read-only commands still work.
	Signer  blockchain.Signer
	Metrics *metrics.Collector
	Bus     *events.Bus
	Store   metadata.Store
	Fetcher *metadata.Fetcher

	Styles style.Styles
	// Plain output has no colors or frames.
	Plain bool
	In    io.Reader
	Out   io.Writer
	// Print is attached by the app before the command runs.
	Print *Printer

	closers []func(context.Context) error
}

// EnvFactory builds the Env for one command invocation.
type EnvFactory func(c *cli.Context) (*Env, error)

// NewEnv wires the pieces shared by every backend.
func NewEnv(cfg *config.Config, logger *zap.Logger, backend blockchain.Backend, signer blockchain.Signer) *Env {
	return &Env{
		Config:  cfg,
		Logger:  logger,
		Backend: backend,
		Signer:  signer,
		Metrics: metrics.NewCollector(),
		Bus:     events.NewBus(logger, 512),
		Fetcher: metadata.NewFetcher(cfg.Metadata.Gateway, logger),
		Styles:  style.NewStyles(style.DefaultPalette()),
	}
}

// DialEnv loads configuration, connects to the node and, when a key is
// configured, builds a local signer.
func DialEnv(c *cli.Context) (*Env, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}

	logCfg := logging.DefaultConfig()
	logCfg.LogFile = cfg.LogFile
	logCfg.Development = cfg.DebugLogging
	logCfg.Quiet = !cfg.DebugLogging
	logCfg.NoColor = c.Bool("plain")
	log, err := logging.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	backend, ec, err := evm.Dial(c.Context, cfg.RPCURL, evm.Config{}, log.Logger)
	if err != nil {
		return nil, err
	}

	var signer blockchain.Signer
	if cfg.PrivateKey != "" {
		key, err := evm.ParsePrivateKey(cfg.PrivateKey)
		if err != nil {
			ec.Close()
			return nil, err
		}
		signer, err = evm.NewKeySigner(ec, key, evm.SignerConfig{
			ChainID:        big.NewInt(cfg.ChainID),
			ConfirmTimeout: cfg.ConfirmTimeout,
			Priority:       cfg.Priority(),
		}, log.Logger)
		if err != nil {
			ec.Close()
			return nil, err
		}
	}

	env := NewEnv(cfg, log.Logger, backend, signer)
	env.closers = append(env.closers,
		func(context.Context) error { ec.Close(); return nil },
		func(context.Context) error { _ = log.Sync(); return nil },
	)
	if cfg.Metadata.Endpoint != "" {
		env.Store = metadata.NewHTTPStore(metadata.HTTPConfig{
			Endpoint: cfg.Metadata.Endpoint,
			Gateway:  cfg.Metadata.Gateway,
			Token:    cfg.Metadata.Token,
		}, log.Logger)
	}
	if cfg.MetricsAddr != "" {
		env.serveMetrics(cfg.MetricsAddr)
	}
	return env, nil
}

func (e *Env) serveMetrics(addr string) {
	srv := &http.Server{Addr: addr, Handler: e.Metrics.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.Logger.Warn("Metrics server stopped", zap.String("addr", addr), zap.Error(err))
		}
	}()
	e.Logger.Info("Serving metrics", zap.String("addr", addr))
	e.closers = append(e.closers, srv.Shutdown)
}

func (e *Env) Registry() *registry.Registry {
	return registry.New(e.Backend.Factory(e.Config.Factory()), e.Backend, registry.Config{
		Concurrency: e.Config.RegistryConcurrency,
	}, e.Metrics, e.Logger)
}

func (e *Env) Coordinator() (*launch.Coordinator, error) {
	if err := e.requireSigner(); err != nil {
		return nil, err
	}
	return launch.NewCoordinator(launch.Deps{
		Backend:   e.Backend,
		Registry:  e.Registry(),
		Signer:    e.Signer,
		Store:     e.Store,
		Publisher: e.Bus.Sync(),
		Metrics:   e.Metrics,
		Logger:    e.Logger,
	}, launch.Config{
		DeployFee:         e.Config.DeployFeeWei(),
		LiquidityDeadline: e.Config.LiquidityDeadline,
	}), nil
}

func (e *Env) requireSigner() error {
	if e.Signer == nil {
		return fmt.Errorf("%w; set %s_PRIVATE_KEY", ErrNoSigner, config.EnvPrefix)
	}
	return nil
}

// Executor returns a trade executor. Previews work without a signer.
func (e *Env) Executor() *trade.Executor {
	router, _ := e.Config.Router()
	return trade.NewExecutor(trade.Deps{
		Backend:   e.Backend,
		Factory:   e.Backend.Factory(e.Config.Factory()),
		Signer:    e.Signer,
		Publisher: e.Bus.Sync(),
		Metrics:   e.Metrics,
		Logger:    e.Logger,
	}, trade.Config{
		TradeDeadline: e.Config.TradeDeadline,
		SwapDeadline:  e.Config.SwapDeadline,
		Router:        router,
	})
}

// Close drains the status stream and releases the connection.
func (e *Env) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var errs []error
	if e.Bus != nil {
		errs = append(errs, e.Bus.Shutdown(ctx))
	}
	for i := len(e.closers) - 1; i >= 0; i-- {
		errs = append(errs, e.closers[i](ctx))
	}
	return errors.Join(errs...)
}
