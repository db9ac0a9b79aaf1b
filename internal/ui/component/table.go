// internal/ui/component/table.go

// Package component renders static blocks of CLI output.
package component

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rovshanmuradov/launchpad/internal/ui/style"
)

// TableColumn represents a column configuration. A zero Width sizes the
// column to its widest cell, capped by MaxWidth when set.
type TableColumn struct {
	Header   string
	Width    int
	MaxWidth int
	Align    lipgloss.Position
}

// Table renders rows once; it has no selection or scrolling.
type Table struct {
	columns []TableColumn
	rows    [][]string
	styles  style.Styles
	border  bool
}

func NewTable(styles style.Styles) *Table {
	return &Table{styles: styles, border: true}
}

// AddColumn adds a column to the table
func (t *Table) AddColumn(header string, width int, align lipgloss.Position) *Table {
	t.columns = append(t.columns, TableColumn{Header: header, Width: width, Align: align})
	return t
}

// AddRow adds a row to the table
func (t *Table) AddRow(data ...string) *Table {
	t.rows = append(t.rows, data)
	return t
}

func (t *Table) SetShowBorder(show bool) *Table {
	t.border = show
	return t
}

func (t *Table) RowCount() int { return len(t.rows) }

// View renders the table
func (t *Table) View() string {
	if len(t.columns) == 0 {
		return ""
	}
	widths := t.widths()

	var content strings.Builder
	for i, col := range t.columns {
		content.WriteString(renderCell(col.Header, widths[i], col.Align, t.styles.Header))
		if i < len(t.columns)-1 {
			content.WriteString("│")
		}
	}
	content.WriteString("\n")
	for i := range t.columns {
		content.WriteString(strings.Repeat("─", widths[i]+2))
		if i < len(t.columns)-1 {
			content.WriteString("┼")
		}
	}

	for _, row := range t.rows {
		content.WriteString("\n")
		for i, col := range t.columns {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			content.WriteString(renderCell(cell, widths[i], col.Align, t.styles.Cell))
			if i < len(t.columns)-1 {
				content.WriteString("│")
			}
		}
	}

	if t.border {
		return t.styles.Frame.Render(content.String())
	}
	return content.String()
}

// widths excludes cell padding.
func (t *Table) widths() []int {
	out := make([]int, len(t.columns))
	for i, col := range t.columns {
		if col.Width > 0 {
			out[i] = col.Width
			continue
		}
		w := lipgloss.Width(col.Header)
		for _, row := range t.rows {
			if i < len(row) && lipgloss.Width(row[i]) > w {
				w = lipgloss.Width(row[i])
			}
		}
		if col.MaxWidth > 0 && w > col.MaxWidth {
			w = col.MaxWidth
		}
		out[i] = w
	}
	return out
}

func renderCell(content string, width int, align lipgloss.Position, s lipgloss.Style) string {
	if len(content) > width {
		if width > 3 {
			content = content[:width-3] + "..."
		} else {
			content = content[:width]
		}
	}
	// Width includes the style's horizontal padding.
	return s.Width(width + s.GetHorizontalPadding()).Align(align).Render(content)
}
