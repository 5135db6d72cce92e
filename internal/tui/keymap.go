// internal/tui/keymap.go
package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the explorer's keyboard shortcuts. Printable characters
// belong to the parameter inputs, so the global actions sit on control
// chords and escape.
type KeyMap struct {
	NextField   key.Binding
	PrevField   key.Binding
	ToggleSide  key.Binding
	ToggleLogs  key.Binding
	CycleFilter key.Binding
	Quit        key.Binding
}

// DefaultKeyMap returns the standard explorer bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		NextField: key.NewBinding(
			key.WithKeys("tab", "enter", "down"),
			key.WithHelp("tab", "next field"),
		),
		PrevField: key.NewBinding(
			key.WithKeys("shift+tab", "up"),
			key.WithHelp("shift+tab", "prev field"),
		),
		ToggleSide: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("ctrl+s", "buy/sell"),
		),
		ToggleLogs: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("ctrl+l", "logs"),
		),
		CycleFilter: key.NewBinding(
			key.WithKeys("ctrl+f"),
			key.WithHelp("ctrl+f", "log level"),
		),
		Quit: key.NewBinding(
			key.WithKeys("esc", "ctrl+c"),
			key.WithHelp("esc", "quit"),
		),
	}
}

// HelpBindings lists the bindings in help-bar order.
func (k KeyMap) HelpBindings() []key.Binding {
	return []key.Binding{
		k.NextField,
		k.PrevField,
		k.ToggleSide,
		k.ToggleLogs,
		k.CycleFilter,
		k.Quit,
	}
}
