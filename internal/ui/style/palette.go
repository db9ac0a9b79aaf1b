// internal/ui/style/palette.go

// Package style holds the terminal colors and line styles of the CLI.
package style

import "github.com/charmbracelet/lipgloss"

var (
	Cyan    = lipgloss.Color("#00E5FF")
	Magenta = lipgloss.Color("#FF1B6B")
	Yellow  = lipgloss.Color("#FFB500")
	Green   = lipgloss.Color("#2AFFAA")
	Red     = lipgloss.Color("#FF5555")
	Blue    = lipgloss.Color("#3B82F6")

	Muted     = lipgloss.Color("#6C7280")
	Text      = lipgloss.Color("#ECEFF4")
	Secondary = lipgloss.Color("#B4BCC8")
)

// Palette maps roles to colors.
type Palette struct {
	Primary   lipgloss.Color
	Accent    lipgloss.Color
	Success   lipgloss.Color
	Error     lipgloss.Color
	Warning   lipgloss.Color
	Info      lipgloss.Color
	Text      lipgloss.Color
	TextMuted lipgloss.Color
	TextAlt   lipgloss.Color
}

func DefaultPalette() Palette {
	return Palette{
		Primary:   Cyan,
		Accent:    Magenta,
		Success:   Green,
		Error:     Red,
		Warning:   Yellow,
		Info:      Blue,
		Text:      Text,
		TextMuted: Muted,
		TextAlt:   Secondary,
	}
}

// Styles are the line styles of the status stream and command output.
type Styles struct {
	Title    lipgloss.Style
	Label    lipgloss.Style
	Value    lipgloss.Style
	Muted    lipgloss.Style
	Pending  lipgloss.Style
	Success  lipgloss.Style
	Warning  lipgloss.Style
	Error    lipgloss.Style
	Hash     lipgloss.Style
	Address  lipgloss.Style
	Header   lipgloss.Style
	Cell     lipgloss.Style
	Frame    lipgloss.Style
	Prompt   lipgloss.Style
	Emphasis lipgloss.Style
}

func NewStyles(p Palette) Styles {
	return Styles{
		Title:    lipgloss.NewStyle().Foreground(p.Primary).Bold(true),
		Label:    lipgloss.NewStyle().Foreground(p.TextAlt),
		Value:    lipgloss.NewStyle().Foreground(p.Text).Bold(true),
		Muted:    lipgloss.NewStyle().Foreground(p.TextMuted),
		Pending:  lipgloss.NewStyle().Foreground(p.Info),
		Success:  lipgloss.NewStyle().Foreground(p.Success).Bold(true),
		Warning:  lipgloss.NewStyle().Foreground(p.Warning),
		Error:    lipgloss.NewStyle().Foreground(p.Error).Bold(true),
		Hash:     lipgloss.NewStyle().Foreground(p.TextMuted).Italic(true),
		Address:  lipgloss.NewStyle().Foreground(p.Accent),
		Header:   lipgloss.NewStyle().Foreground(p.Accent).Bold(true).Padding(0, 1),
		Cell:     lipgloss.NewStyle().Foreground(p.Text).Padding(0, 1),
		Frame:    lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(p.TextMuted),
		Prompt:   lipgloss.NewStyle().Foreground(p.Warning).Bold(true),
		Emphasis: lipgloss.NewStyle().Foreground(p.Primary),
	}
}

// Plain returns styles that render text unchanged, for non-terminal output
// and tests.
func Plain() Styles {
	s := lipgloss.NewStyle()
	return Styles{
		Title: s, Label: s, Value: s, Muted: s, Pending: s, Success: s,
		Warning: s, Error: s, Hash: s, Address: s,
		Header: s.Padding(0, 1), Cell: s.Padding(0, 1),
		Frame: s, Prompt: s, Emphasis: s,
	}
}
