// internal/tui/style/palette.go
package style

import "github.com/charmbracelet/lipgloss"

// Palette holds the color scheme used across the explorer. Every
// component pulls from the same palette so the panels stay coherent.
type Palette struct {
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Success   lipgloss.Color
	Error     lipgloss.Color
	Warning   lipgloss.Color

	Text      lipgloss.Color
	TextMuted lipgloss.Color

	Background    lipgloss.Color
	BackgroundAlt lipgloss.Color
	Border        lipgloss.Color

	// Outcome colors for YES/NO sides of a market.
	Yes lipgloss.Color
	No  lipgloss.Color
}

// DefaultPalette returns the standard explorer color scheme.
func DefaultPalette() Palette {
	return Palette{
		Primary:   lipgloss.Color("#22D3EE"),
		Secondary: lipgloss.Color("#E879F9"),
		Success:   lipgloss.Color("#34D399"),
		Error:     lipgloss.Color("#F87171"),
		Warning:   lipgloss.Color("#FBBF24"),

		Text:      lipgloss.Color("#E5E7EB"),
		TextMuted: lipgloss.Color("#6B7280"),

		Background:    lipgloss.Color("#0F172A"),
		BackgroundAlt: lipgloss.Color("#1E293B"),
		Border:        lipgloss.Color("#334155"),

		Yes: lipgloss.Color("#10B981"),
		No:  lipgloss.Color("#EF4444"),
	}
}

// TitleStyle is the shared style for panel titles.
func TitleStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(DefaultPalette().Primary).
		Bold(true)
}

// PanelStyle is the shared bordered container for explorer panels.
func PanelStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(DefaultPalette().Border).
		Padding(0, 1)
}
