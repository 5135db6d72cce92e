// internal/tui/component/table.go
package component

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rovshanmuradov/prediction-pump/internal/tui/style"
)

// Column describes one table column: its header, fixed width and cell
// alignment.
type Column struct {
	Title string
	Width int
	Align lipgloss.Position
}

// Table renders a fixed-layout, non-interactive table. The explorer's
// price ladder has a known row count and column set, so there is no
// scrolling or selection, only layout.
type Table struct {
	columns []Column
	rows    [][]string

	headerStyle lipgloss.Style
	cellStyle   lipgloss.Style
	mutedStyle  lipgloss.Style
	borderStyle lipgloss.Style
}

// NewTable creates an empty table with the default styling.
func NewTable() *Table {
	palette := style.DefaultPalette()
	return &Table{
		headerStyle: lipgloss.NewStyle().
			Foreground(palette.Primary).
			Bold(true),
		cellStyle: lipgloss.NewStyle().
			Foreground(palette.Text),
		mutedStyle: lipgloss.NewStyle().
			Foreground(palette.TextMuted),
		borderStyle: lipgloss.NewStyle().
			Foreground(palette.Border),
	}
}

// AddColumn appends a column definition.
func (t *Table) AddColumn(title string, width int, align lipgloss.Position) *Table {
	t.columns = append(t.columns, Column{Title: title, Width: width, Align: align})
	return t
}

// SetRows replaces the table body. Rows shorter than the column set are
// padded with empty cells; extra cells are dropped.
func (t *Table) SetRows(rows [][]string) *Table {
	t.rows = rows
	return t
}

// View renders the table: header, separator and body rows joined with
// light box-drawing characters.
func (t *Table) View() string {
	if len(t.columns) == 0 {
		return ""
	}

	var b strings.Builder

	headers := make([]string, len(t.columns))
	for i, col := range t.columns {
		headers[i] = t.headerStyle.Render(t.fitCell(col.Title, i))
	}
	b.WriteString(strings.Join(headers, t.borderStyle.Render(" │ ")))
	b.WriteString("\n")
	b.WriteString(t.separator())

	for _, row := range t.rows {
		b.WriteString("\n")
		cells := make([]string, len(t.columns))
		for i := range t.columns {
			value := ""
			if i < len(row) {
				value = row[i]
			}
			cells[i] = t.cellStyle.Render(t.fitCell(value, i))
		}
		b.WriteString(strings.Join(cells, t.borderStyle.Render(" │ ")))
	}

	return b.String()
}

// separator draws the header/body divider line.
func (t *Table) separator() string {
	parts := make([]string, len(t.columns))
	for i, col := range t.columns {
		parts[i] = strings.Repeat("─", col.Width)
	}
	return t.borderStyle.Render(strings.Join(parts, "─┼─"))
}

// fitCell pads or truncates a value to the column width. Truncated
// values keep a trailing ellipsis so the cut is visible.
func (t *Table) fitCell(value string, col int) string {
	width := t.columns[col].Width
	runes := []rune(value)
	if len(runes) > width {
		if width <= 3 {
			return string(runes[:width])
		}
		return string(runes[:width-3]) + "..."
	}

	pad := width - len(runes)
	switch t.columns[col].Align {
	case lipgloss.Right:
		return strings.Repeat(" ", pad) + value
	case lipgloss.Center:
		left := pad / 2
		return strings.Repeat(" ", left) + value + strings.Repeat(" ", pad-left)
	default:
		return value + strings.Repeat(" ", pad)
	}
}
