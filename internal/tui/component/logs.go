// internal/tui/component/logs.go
package component

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/prediction-pump/internal/logger"
	"github.com/rovshanmuradov/prediction-pump/internal/tui/style"
)

// LogFilter selects which log levels the viewer shows.
type LogFilter int

const (
	FilterAll LogFilter = iota
	FilterInfo
	FilterWarn
	FilterError
)

// String returns the filter label shown in the pane title.
func (f LogFilter) String() string {
	switch f {
	case FilterInfo:
		return "info+"
	case FilterWarn:
		return "warn+"
	case FilterError:
		return "error"
	default:
		return "all"
	}
}

// maxVisibleEntries caps how much of the ring buffer one refresh renders.
const maxVisibleEntries = 200

// LogViewer is a scrollable pane over a LogBuffer. Entries are rendered
// through FormatMessage, so the pane shows the same prettified lines the
// console logger prints.
type LogViewer struct {
	buffer   *logger.LogBuffer
	viewport viewport.Model
	filter   LogFilter
	width    int
	height   int

	titleStyle  lipgloss.Style
	timeStyle   lipgloss.Style
	levelStyles map[string]lipgloss.Style
	borderStyle lipgloss.Style
}

// NewLogViewer creates a viewer over the given buffer.
func NewLogViewer(buffer *logger.LogBuffer, width, height int) *LogViewer {
	palette := style.DefaultPalette()

	lv := &LogViewer{
		buffer:   buffer,
		viewport: viewport.New(width-4, height-3),
		width:    width,
		height:   height,

		titleStyle: lipgloss.NewStyle().
			Foreground(palette.Primary).
			Bold(true),

		timeStyle: lipgloss.NewStyle().
			Foreground(palette.TextMuted),

		levelStyles: map[string]lipgloss.Style{
			"warn":  lipgloss.NewStyle().Foreground(palette.Warning),
			"error": lipgloss.NewStyle().Foreground(palette.Error),
			"fatal": lipgloss.NewStyle().Foreground(palette.Error).Bold(true),
		},

		borderStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(palette.Border).
			Padding(0, 1),
	}

	lv.Refresh()
	return lv
}

// SetSize resizes the pane.
func (lv *LogViewer) SetSize(width, height int) {
	lv.width = width
	lv.height = height
	lv.viewport.Width = width - 4
	lv.viewport.Height = height - 3
	if lv.viewport.Height < 1 {
		lv.viewport.Height = 1
	}
	lv.Refresh()
}

// CycleFilter advances to the next level filter.
func (lv *LogViewer) CycleFilter() {
	lv.filter = (lv.filter + 1) % 4
	lv.Refresh()
}

// Filter returns the active filter.
func (lv *LogViewer) Filter() LogFilter {
	return lv.filter
}

// Refresh re-reads the buffer and rebuilds the viewport content,
// keeping the view pinned to the newest entry.
func (lv *LogViewer) Refresh() {
	if lv.buffer == nil {
		return
	}

	entries := lv.buffer.GetRecentLogs(0)

	lines := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !lv.filter.accepts(entry.Level) {
			continue
		}
		lines = append(lines, lv.formatEntry(entry))
	}
	if len(lines) > maxVisibleEntries {
		lines = lines[len(lines)-maxVisibleEntries:]
	}

	lv.viewport.SetContent(strings.Join(lines, "\n"))
	lv.viewport.GotoBottom()
}

// Update forwards scroll keys to the viewport.
func (lv *LogViewer) Update(msg tea.Msg) (*LogViewer, tea.Cmd) {
	var cmd tea.Cmd
	lv.viewport, cmd = lv.viewport.Update(msg)
	return lv, cmd
}

// View renders the bordered pane with a title row.
func (lv *LogViewer) View() string {
	title := lv.titleStyle.Render("Logs") +
		lv.timeStyle.Render(" ["+lv.filter.String()+"]")

	content := title + "\n" + lv.viewport.View()
	return lv.borderStyle.Width(lv.width - 2).Render(content)
}

// formatEntry renders one buffer entry: timestamp prefix plus the
// prettified message.
func (lv *LogViewer) formatEntry(entry logger.LogEntry) string {
	ts := lv.timeStyle.Render(entry.Timestamp.Format("15:04:05"))

	message := logger.FormatMessage(entry.Message, bufferFields(entry.Fields)...)
	if styled, ok := lv.levelStyles[strings.ToLower(entry.Level)]; ok {
		message = styled.Render(message)
	}

	return ts + " " + message
}

// accepts reports whether a level passes the filter.
func (f LogFilter) accepts(level string) bool {
	rank := levelRank(level)
	switch f {
	case FilterInfo:
		return rank >= 1
	case FilterWarn:
		return rank >= 2
	case FilterError:
		return rank >= 3
	default:
		return true
	}
}

func levelRank(level string) int {
	switch strings.ToLower(level) {
	case "debug":
		return 0
	case "info":
		return 1
	case "warn", "warning":
		return 2
	case "error", "fatal", "panic":
		return 3
	default:
		return 1
	}
}

// bufferFields rebuilds zap fields from a buffered entry so the message
// prettifier can pull values back out. JSON numbers arrive as float64;
// integral ones are rendered without an exponent.
func bufferFields(m map[string]interface{}) []zap.Field {
	if len(m) == 0 {
		return nil
	}
	fields := make([]zap.Field, 0, len(m))
	for k, v := range m {
		switch val := v.(type) {
		case string:
			fields = append(fields, zap.String(k, val))
		case float64:
			fields = append(fields, zap.String(k, strconv.FormatFloat(val, 'f', -1, 64)))
		case bool:
			fields = append(fields, zap.String(k, strconv.FormatBool(val)))
		default:
			fields = append(fields, zap.Any(k, val))
		}
	}
	return fields
}
