// internal/commands/tokens.go
package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/ethereum/go-ethereum/common"
	"github.com/urfave/cli/v2"

	"github.com/rovshanmuradov/launchpad/internal/export"
	"github.com/rovshanmuradov/launchpad/internal/metadata"
	"github.com/rovshanmuradov/launchpad/internal/registry"
	"github.com/rovshanmuradov/launchpad/internal/ui/component"
	"github.com/rovshanmuradov/launchpad/internal/units"
)

func (a *App) tokensCommand() *cli.Command {
	return &cli.Command{
		Name:  "tokens",
		Usage: "List every token the factory has created",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "last", Usage: "Show only the newest N tokens"},
			&cli.StringFlag{Name: "export", Usage: "Write the listing to a csv or json file instead"},
			&cli.StringFlag{Name: "out", Value: ".", Usage: "Directory for --export files"},
			&cli.StringFlag{Name: "symbol", Usage: "Only export tokens with this symbol"},
		},
		Action: a.with(runTokens),
	}
}

func (a *App) infoCommand() *cli.Command {
	return &cli.Command{
		Name:      "info",
		Usage:     "Show a token's factory record, metadata and holdings",
		ArgsUsage: "TOKEN",
		Action:    a.with(runInfo),
	}
}

func runTokens(c *cli.Context, env *Env) error {
	entries, err := env.Registry().List(c.Context)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		env.Print.Line(env.Styles.Muted, "no tokens yet")
		return nil
	}
	if last := c.Int("last"); last > 0 && last < len(entries) {
		entries = entries[len(entries)-last:]
	}
	if c.IsSet("export") {
		return exportTokens(c, env, entries)
	}
	env.Print.Block(tokensTable(env, entries).View())
	return nil
}

func exportTokens(c *cli.Context, env *Env, entries []registry.Entry) error {
	format, err := export.ParseFormat(c.String("export"))
	if err != nil {
		return err
	}
	path, err := export.NewRegistryExporter(env.Logger).Export(entries, export.ExportOptions{
		Format:       format,
		SymbolFilter: c.String("symbol"),
		OutputDir:    c.String("out"),
	})
	if err != nil {
		return err
	}
	env.Print.Field("exported", path)
	return nil
}

func tokensTable(env *Env, entries []registry.Entry) *component.Table {
	t := component.NewTable(env.Styles).
		AddColumn("#", 0, lipgloss.Right).
		AddColumn("Address", 0, lipgloss.Left).
		AddColumn("Symbol", 0, lipgloss.Left).
		AddColumn("Name", 0, lipgloss.Left).
		AddColumn("Decimals", 0, lipgloss.Right).
		AddColumn("Supply", 0, lipgloss.Right)
	t.SetShowBorder(!env.Plain)
	for _, e := range entries {
		symbol := e.Symbol
		if e.Err != nil && symbol == "" {
			symbol = "?"
		}
		t.AddRow(
			strconv.Itoa(e.Index),
			e.Address.Hex(),
			symbol,
			e.Name,
			strconv.Itoa(int(e.Decimals)),
			units.FormatDisplay(e.TotalSupply, int(e.Decimals), 2),
		)
	}
	return t
}

func runInfo(c *cli.Context, env *Env) error {
	token, err := tokenArg(c)
	if err != nil {
		return err
	}
	reg := env.Registry()
	p := env.Print

	details := reg.Details(c.Context, token)
	p.Title(fmt.Sprintf("%s (%s)", details.Name, details.Symbol))
	p.Field("address", token.Hex())
	p.Field("decimals", strconv.Itoa(int(details.Decimals)))
	p.Field("supply", units.FormatDisplay(details.TotalSupply, int(details.Decimals), 4))

	info, err := reg.Info(c.Context, token)
	if err != nil {
		p.Warn("no factory record: %v", err)
	} else {
		if info.Creator != (common.Address{}) {
			p.Field("creator", info.Creator.Hex())
		}
		if info.CreatedAt != nil && info.CreatedAt.Sign() > 0 {
			p.Field("created", time.Unix(info.CreatedAt.Int64(), 0).UTC().Format(time.RFC3339))
		}
		p.Field("lp locked", strconv.FormatBool(info.LPLocked))
		printLinks(p, metadata.Links{Twitter: info.Twitter, Telegram: info.Telegram, Website: info.Website})
		if info.ImageURI != "" {
			printDocument(c, env, info.ImageURI)
		}
	}

	if env.Signer != nil {
		bal, err := env.Backend.Token(token).BalanceOf(c.Context, env.Signer.Address())
		if err != nil {
			p.Warn("balance unavailable: %v", err)
		} else {
			p.Field("balance", units.FormatDisplay(bal, int(details.Decimals), 4))
		}
	}
	return nil
}

// printDocument shows the off-chain document the factory record points at.
func printDocument(c *cli.Context, env *Env, uri string) {
	p := env.Print
	p.Field("metadata", uri)
	doc, err := env.Fetcher.Fetch(c.Context, uri)
	if err != nil {
		p.Warn("metadata unavailable: %v", err)
		return
	}
	if doc.Description != "" {
		p.Field("description", doc.Description)
	}
	if doc.Image != "" {
		p.Field("image", doc.Image)
	}
	printLinks(p, doc.Links)
}

func printLinks(p *Printer, l metadata.Links) {
	for _, link := range []struct{ label, value string }{
		{"twitter", l.Twitter},
		{"telegram", l.Telegram},
		{"website", l.Website},
	} {
		if link.value != "" {
			p.Field(link.label, link.value)
		}
	}
}
