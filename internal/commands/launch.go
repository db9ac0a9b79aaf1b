// internal/commands/launch.go
package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/urfave/cli/v2"

	"github.com/rovshanmuradov/launchpad/internal/launch"
	"github.com/rovshanmuradov/launchpad/internal/metadata"
	"github.com/rovshanmuradov/launchpad/internal/ui"
)

// maxResumeAttempts bounds how often one invocation asks to retry the
// liquidity steps.
const maxResumeAttempts = 3

func (a *App) launchCommand() *cli.Command {
	return &cli.Command{
		Name:  "launch",
		Usage: "Create a token and optionally seed its first pool",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Required: true, Usage: "Token name"},
			&cli.StringFlag{Name: "symbol", Required: true, Usage: "Ticker, 2-11 letters or digits"},
			&cli.StringFlag{Name: "description", Usage: "Free text shown on the token page"},
			&cli.UintFlag{Name: "decimals", Value: 18, Usage: "Token decimals, 6-18"},
			&cli.StringFlag{Name: "supply", Required: true, Usage: "Initial supply in whole tokens"},
			&cli.StringFlag{Name: "image", Usage: "Path to a png, jpeg, gif or webp image"},
			&cli.StringFlag{Name: "twitter"},
			&cli.StringFlag{Name: "telegram"},
			&cli.StringFlag{Name: "website"},
			&cli.BoolFlag{Name: "auto-renounce", Usage: "Renounce ownership after creation"},
			&cli.BoolFlag{Name: "lock-lp", Usage: "Record the intent to lock pool tokens"},
			&cli.StringFlag{Name: "liquidity-tokens", Usage: "Tokens to seed the pool with"},
			&cli.StringFlag{Name: "liquidity-base", Usage: "Native currency to seed the pool with"},
			slippageFlag(),
			yesFlag(),
		},
		Action: a.with(runLaunch),
	}
}

func launchRequest(c *cli.Context, env *Env) (launch.Request, error) {
	req := launch.Request{
		Name:          c.String("name"),
		Symbol:        c.String("symbol"),
		Description:   c.String("description"),
		Decimals:      uint8(c.Uint("decimals")),
		InitialSupply: c.String("supply"),
		Links: metadata.Links{
			Twitter:  c.String("twitter"),
			Telegram: c.String("telegram"),
			Website:  c.String("website"),
		},
		AutoRenounce: c.Bool("auto-renounce"),
		LockLP:       c.Bool("lock-lp"),
	}
	if c.Uint("decimals") > 255 {
		return req, fmt.Errorf("%w: decimals %d out of range", launch.ErrInvalidRequest, c.Uint("decimals"))
	}

	if path := c.String("image"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return req, fmt.Errorf("failed to read image: %w", err)
		}
		req.Image = data
	}

	tokens, base := c.String("liquidity-tokens"), c.String("liquidity-base")
	if tokens != "" || base != "" {
		req.Seed = &launch.Seed{Tokens: tokens, Base: base}
	}

	tol, err := tolerance(c, env)
	if err != nil {
		return req, err
	}
	req.Slippage = tol
	return req, nil
}

func runLaunch(c *cli.Context, env *Env) error {
	req, err := launchRequest(c, env)
	if err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		return err
	}
	coordinator, err := env.Coordinator()
	if err != nil {
		return err
	}

	p := env.Print
	p.Title(fmt.Sprintf("Launching %s (%s)", req.Name, req.Symbol))
	if env.Store == nil {
		p.Warn("no metadata endpoint configured; the token is created without metadata")
	}

	session, err := coordinator.Launch(c.Context, req)
	for attempt := 0; err != nil && attempt < maxResumeAttempts; attempt++ {
		if session == nil || session.Status() != launch.StatusFailedPartial {
			break
		}
		p.Error("%v", err)
		// A retry resends an on-chain call, so it always needs an answer
		// from the user; --yes only covers the launch itself.
		if c.Bool("yes") {
			p.Warn("liquidity steps not retried; run without --yes to be asked")
			break
		}
		retry, perr := ui.Confirm(c.Context, "Retry the remaining liquidity steps?", env.In, env.Out, env.Styles, env.Logger)
		if perr != nil {
			return errors.Join(err, perr)
		}
		if !retry {
			break
		}
		err = coordinator.ResumeLiquidity(c.Context, session)
	}

	if session != nil {
		printSession(p, session)
	}
	return err
}

func printSession(p *Printer, s *launch.Session) {
	p.Field("session", s.ID)
	p.Field("status", string(s.Status()))
	if token := s.Token(); token != (common.Address{}) {
		p.Field("token", token.Hex())
	}
	if uri := s.MetadataURI(); uri != "" {
		p.Field("metadata", uri)
	}
	if price, ok := s.Price(); ok {
		p.Field("price", price.String()+" per token")
	}
	if n := len(s.Warnings()); n > 0 {
		p.Field("warnings", fmt.Sprint(n))
	}
}
