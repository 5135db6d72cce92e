// internal/tui/component/helpbar.go
package component

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/rovshanmuradov/prediction-pump/internal/tui/style"
)

// HelpBar renders keyboard shortcuts as a "key description" strip at the
// bottom of the screen.
type HelpBar struct {
	bindings []key.Binding
	width    int

	keyStyle  lipgloss.Style
	descStyle lipgloss.Style
	sepStyle  lipgloss.Style
}

// NewHelpBar creates a help bar with the default styling.
func NewHelpBar() *HelpBar {
	palette := style.DefaultPalette()

	return &HelpBar{
		width: 80,

		keyStyle: lipgloss.NewStyle().
			Foreground(palette.Primary).
			Bold(true),

		descStyle: lipgloss.NewStyle().
			Foreground(palette.TextMuted),

		sepStyle: lipgloss.NewStyle().
			Foreground(palette.TextMuted),
	}
}

// SetKeyBindings sets the bindings to display, in order.
func (h *HelpBar) SetKeyBindings(bindings []key.Binding) *HelpBar {
	h.bindings = bindings
	return h
}

// SetWidth sets the wrap width.
func (h *HelpBar) SetWidth(width int) *HelpBar {
	if width > 0 {
		h.width = width
	}
	return h
}

// View renders the enabled bindings, wrapping onto extra lines when the
// strip outgrows the width.
func (h *HelpBar) View() string {
	items := make([]string, 0, len(h.bindings))
	for _, binding := range h.bindings {
		if !binding.Enabled() {
			continue
		}
		help := binding.Help()
		if help.Key == "" || help.Desc == "" {
			continue
		}
		items = append(items, h.keyStyle.Render(help.Key)+" "+h.descStyle.Render(help.Desc))
	}
	if len(items) == 0 {
		return ""
	}

	separator := h.sepStyle.Render(" • ")
	sepWidth := lipgloss.Width(separator)

	var lines []string
	var line []string
	lineWidth := 0
	for _, item := range items {
		itemWidth := lipgloss.Width(item)
		if len(line) > 0 && lineWidth+sepWidth+itemWidth > h.width {
			lines = append(lines, strings.Join(line, separator))
			line = line[:0]
			lineWidth = 0
		}
		if len(line) > 0 {
			lineWidth += sepWidth
		}
		line = append(line, item)
		lineWidth += itemWidth
	}
	if len(line) > 0 {
		lines = append(lines, strings.Join(line, separator))
	}

	return strings.Join(lines, "\n")
}
