// internal/ui/confirm.go

// Package ui holds the interactive pieces of the CLI.
package ui

import (
	"context"
	"io"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/ui/style"
)

type confirmModel struct {
	question string
	keys     KeyMap
	styles   style.Styles

	answered bool
	yes      bool
}

func (m confirmModel) Init() tea.Cmd { return nil }

func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	k, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(k, m.keys.Yes):
		m.answered, m.yes = true, true
		return m, tea.Quit
	case key.Matches(k, m.keys.No), key.Matches(k, m.keys.Quit):
		m.answered = true
		return m, tea.Quit
	}
	return m, nil
}

func (m confirmModel) View() string {
	if m.answered {
		answer := "no"
		if m.yes {
			answer = "yes"
		}
		return m.styles.Prompt.Render(m.question) + " " + answer + "\n"
	}
	return m.styles.Prompt.Render(m.question) + " " + m.styles.Muted.Render("("+m.keys.Help()+")")
}

// Confirm asks a yes/no question on in/out. Anything but an explicit yes,
// including cancellation, is a no.
func Confirm(ctx context.Context, question string, in io.Reader, out io.Writer, styles style.Styles, logger *zap.Logger) (bool, error) {
	model := confirmModel{question: question, keys: DefaultKeyMap(), styles: styles}
	program := tea.NewProgram(model,
		tea.WithContext(ctx),
		tea.WithInput(in),
		tea.WithOutput(out),
		tea.WithoutSignalHandler(),
	)

	final, err := run(program, logger)
	if err != nil {
		return false, err
	}
	m, ok := final.(confirmModel)
	return ok && m.yes, nil
}
