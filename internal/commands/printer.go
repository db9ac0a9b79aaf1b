// internal/commands/printer.go
package commands

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/rovshanmuradov/launchpad/internal/events"
	"github.com/rovshanmuradov/launchpad/internal/ui/style"
)

// Printer renders the status stream and command results on one writer.
type Printer struct {
	mu     sync.Mutex
	out    io.Writer
	styles style.Styles
}

func NewPrinter(out io.Writer, styles style.Styles) *Printer {
	return &Printer{out: out, styles: styles}
}

// Handle implements events.Handler.
func (p *Printer) Handle(_ context.Context, event events.Event) error {
	p.Line(p.styleFor(event.Type()), "%s", event.Status())
	return nil
}

func (p *Printer) styleFor(t events.EventType) lipgloss.Style {
	switch t {
	case events.StepPending, events.StepSubmitted, events.WorkflowStarted:
		return p.styles.Pending
	case events.StepConfirmed, events.WorkflowCompleted:
		return p.styles.Success
	case events.StepFailed, events.WorkflowFailed:
		return p.styles.Error
	case events.Warning:
		return p.styles.Warning
	case events.QuoteUpdated:
		return p.styles.Emphasis
	default:
		return p.styles.Label
	}
}

func (p *Printer) Line(s lipgloss.Style, format string, args ...interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, s.Render(fmt.Sprintf(format, args...)))
}

func (p *Printer) Title(text string) {
	p.Line(p.styles.Title, "%s", text)
}

// Field prints an aligned "label: value" pair.
func (p *Printer) Field(label, value string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "%s %s\n", p.styles.Label.Render(fmt.Sprintf("%-14s", label+":")), p.styles.Value.Render(value))
}

func (p *Printer) Block(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, text)
}

func (p *Printer) Warn(format string, args ...interface{}) {
	p.Line(p.styles.Warning, "warning: "+format, args...)
}

func (p *Printer) Error(format string, args ...interface{}) {
	p.Line(p.styles.Error, format, args...)
}
