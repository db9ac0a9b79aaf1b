// internal/commands/trade.go
package commands

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/urfave/cli/v2"

	"github.com/rovshanmuradov/launchpad/internal/quote"
	"github.com/rovshanmuradov/launchpad/internal/trade"
	"github.com/rovshanmuradov/launchpad/internal/types"
	"github.com/rovshanmuradov/launchpad/internal/ui"
	logging "github.com/rovshanmuradov/launchpad/internal/utils/logger"
)

func (a *App) quoteCommand() *cli.Command {
	return &cli.Command{
		Name:      "quote",
		Usage:     "Quote a trade along a path of token addresses",
		ArgsUsage: "TOKEN_IN [HOP...] TOKEN_OUT",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "amount", Aliases: []string{"a"}, Required: true, Usage: "Exact input, or exact output with --exact-out"},
			&cli.BoolFlag{Name: "exact-out", Usage: "Treat --amount as the desired output"},
			&cli.DurationFlag{Name: "watch", Usage: "Re-quote at this interval until interrupted"},
			&cli.IntFlag{Name: "count", Usage: "Stop watching after this many quotes"},
			slippageFlag(),
		},
		Action: a.with(runQuote),
	}
}

func (a *App) buyCommand() *cli.Command {
	return &cli.Command{
		Name:      "buy",
		Usage:     "Buy a token with native currency",
		ArgsUsage: "TOKEN",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "amount", Aliases: []string{"a"}, Required: true, Usage: "Native currency to spend"},
			slippageFlag(),
			yesFlag(),
		},
		Action: a.with(runBuy),
	}
}

func (a *App) sellCommand() *cli.Command {
	return &cli.Command{
		Name:      "sell",
		Usage:     "Sell a token for wrapped native currency",
		ArgsUsage: "TOKEN",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "amount", Aliases: []string{"a"}, Required: true, Usage: "Tokens to sell"},
			slippageFlag(),
			yesFlag(),
		},
		Action: a.with(runSell),
	}
}

func (a *App) swapCommand() *cli.Command {
	return &cli.Command{
		Name:      "swap",
		Usage:     "Swap an exact input along a path of token addresses",
		ArgsUsage: "TOKEN_IN [HOP...] TOKEN_OUT",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "amount", Aliases: []string{"a"}, Required: true, Usage: "Exact input amount"},
			slippageFlag(),
			yesFlag(),
		},
		Action: a.with(runSwap),
	}
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}

func tokenArg(c *cli.Context) (common.Address, error) {
	if c.NArg() != 1 {
		return common.Address{}, fmt.Errorf("expected one token address, got %d arguments", c.NArg())
	}
	return parseAddress(c.Args().First())
}

func runQuote(c *cli.Context, env *Env) error {
	path, err := types.ParseTradePath(c.Args().Slice()...)
	if err != nil {
		return err
	}
	tol, err := tolerance(c, env)
	if err != nil {
		return err
	}
	exec := env.Executor()
	amount := c.String("amount")

	preview := func(ctx context.Context) (*trade.Preview, error) {
		if c.Bool("exact-out") {
			return exec.PreviewExactOutput(ctx, path, amount, tol)
		}
		return exec.Preview(ctx, path, amount, tol)
	}

	if c.Duration("watch") <= 0 {
		p, err := preview(c.Context)
		if err != nil {
			return err
		}
		printPreview(env.Print, p)
		return nil
	}
	return watchQuote(c.Context, env, c.Duration("watch"), c.Int("count"), preview)
}

// watchQuote re-quotes on every tick. Requests may overlap on a slow node;
// the slot keeps only the newest answer and drops the rest as stale.
func watchQuote(ctx context.Context, env *Env, interval time.Duration, count int, preview func(context.Context) (*trade.Preview, error)) error {
	slot := quote.NewSlot(env.Metrics, env.Logger).WithPublisher(env.Bus.Sync(), logging.NewSessionID())
	fetch := func(ctx context.Context) (quote.Quote, error) {
		p, err := preview(ctx)
		if err != nil {
			return quote.Quote{}, err
		}
		return p.Quote, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	request := func() {
		defer wg.Done()
		if _, err := slot.Request(ctx, fetch); err != nil && !errors.Is(err, quote.ErrStale) && ctx.Err() == nil {
			env.Print.Warn("%v", err)
		}
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for issued := 1; ; issued++ {
		wg.Add(1)
		go request()
		if count > 0 && issued >= count {
			break
		}
		select {
		case <-ctx.Done():
			wg.Wait()
			return nil
		case <-ticker.C:
		}
	}
	wg.Wait()
	return nil
}

func printPreview(p *Printer, pv *trade.Preview) {
	q := pv.Quote
	p.Field("path", q.Path.String())
	p.Field("in", q.AmountIn.String())
	p.Field("out", q.AmountOut.String())
	p.Field("price", pv.Price.String())
	p.Field("slippage", pv.Tolerance.String())
	if q.Direction == quote.Reverse {
		p.Field("max in", pv.MaxInput.String())
	} else {
		p.Field("min out", pv.MinOutput.String())
	}
}

// confirmTrade previews the trade and asks before anything is signed.
func confirmTrade(c *cli.Context, env *Env, path types.TradePath, amount string, tol types.Tolerance) (bool, error) {
	if c.Bool("yes") {
		return true, nil
	}
	pv, err := env.Executor().Preview(c.Context, path, amount, tol)
	if err != nil {
		return false, err
	}
	printPreview(env.Print, pv)
	return ui.Confirm(c.Context, "Submit this trade?", env.In, env.Out, env.Styles, env.Logger)
}

func runBuy(c *cli.Context, env *Env) error {
	if err := env.requireSigner(); err != nil {
		return err
	}
	token, err := tokenArg(c)
	if err != nil {
		return err
	}
	tol, err := tolerance(c, env)
	if err != nil {
		return err
	}
	exec := env.Executor()
	m, err := exec.Market(c.Context)
	if err != nil {
		return err
	}
	path, err := types.NewTradePath(m.Wrapped, token)
	if err != nil {
		return err
	}
	if ok, err := confirmTrade(c, env, path, c.String("amount"), tol); err != nil || !ok {
		return err
	}

	res, err := exec.Buy(c.Context, token, c.String("amount"), tol)
	return reportTrade(env, res, err)
}

func runSell(c *cli.Context, env *Env) error {
	if err := env.requireSigner(); err != nil {
		return err
	}
	token, err := tokenArg(c)
	if err != nil {
		return err
	}
	tol, err := tolerance(c, env)
	if err != nil {
		return err
	}
	exec := env.Executor()
	m, err := exec.Market(c.Context)
	if err != nil {
		return err
	}
	path, err := types.NewTradePath(token, m.Wrapped)
	if err != nil {
		return err
	}
	if ok, err := confirmTrade(c, env, path, c.String("amount"), tol); err != nil || !ok {
		return err
	}

	res, err := exec.Sell(c.Context, token, c.String("amount"), tol)
	return reportTrade(env, res, err)
}

func runSwap(c *cli.Context, env *Env) error {
	if err := env.requireSigner(); err != nil {
		return err
	}
	path, err := types.ParseTradePath(c.Args().Slice()...)
	if err != nil {
		return err
	}
	tol, err := tolerance(c, env)
	if err != nil {
		return err
	}
	if ok, err := confirmTrade(c, env, path, c.String("amount"), tol); err != nil || !ok {
		return err
	}

	res, err := env.Executor().Swap(c.Context, path, c.String("amount"), tol)
	return reportTrade(env, res, err)
}

func reportTrade(env *Env, res *trade.Result, err error) error {
	if res == nil {
		return err
	}
	p := env.Print
	p.Field("session", res.Session)
	if err != nil {
		var slip *types.SlippageExceededError
		if errors.As(err, &slip) {
			p.Warn("the price moved more than %s; retry with a fresh quote or a wider --slippage", slip.Tolerance)
		}
		if types.IsDeadlineExpired(err) {
			p.Warn("the transaction expired before it was mined; retry to rebuild it")
		}
		return err
	}
	p.Field("spent", res.Quote.AmountIn.String())
	p.Field("quoted out", res.Quote.AmountOut.String())
	p.Field("min out", res.MinOutput.String())
	p.Field("tx", res.TxHash.Hex())
	return nil
}
