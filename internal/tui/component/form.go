// internal/tui/component/form.go
package component

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rovshanmuradov/prediction-pump/internal/tui/style"
)

// Field is one labeled text input with an optional validation hook.
type Field struct {
	Name     string
	Label    string
	Validate func(string) error
	Error    string

	input textinput.Model
}

// Form is a vertical stack of labeled inputs with tab-cycle focus. Every
// keystroke is delivered to the focused input, so callers can recompute
// derived state on each update and get live previews.
type Form struct {
	fields     []Field
	focusIndex int
	labelWidth int

	labelStyle   lipgloss.Style
	focusedLabel lipgloss.Style
	inputStyle   lipgloss.Style
	focusedInput lipgloss.Style
	errorStyle   lipgloss.Style
}

// NewForm creates an empty form.
func NewForm() *Form {
	palette := style.DefaultPalette()

	return &Form{
		labelWidth: 16,

		labelStyle: lipgloss.NewStyle().
			Foreground(palette.TextMuted),

		focusedLabel: lipgloss.NewStyle().
			Foreground(palette.Primary).
			Bold(true),

		inputStyle: lipgloss.NewStyle().
			Foreground(palette.Text),

		focusedInput: lipgloss.NewStyle().
			Foreground(palette.Text).
			Background(palette.BackgroundAlt),

		errorStyle: lipgloss.NewStyle().
			Foreground(palette.Error),
	}
}

// AddField appends a field. The first field added receives focus.
func (f *Form) AddField(name, label, initial string, validate func(string) error) *Form {
	ti := textinput.New()
	ti.Width = 20
	ti.Prompt = ""
	ti.CharLimit = 24
	ti.SetValue(initial)

	f.fields = append(f.fields, Field{
		Name:     name,
		Label:    label,
		Validate: validate,
		input:    ti,
	})

	if len(f.fields) == 1 {
		f.fields[0].input.Focus()
	}
	return f
}

// SetLabelWidth sets the label column width.
func (f *Form) SetLabelWidth(width int) *Form {
	f.labelWidth = width
	return f
}

// Value returns the current text of the named field.
func (f *Form) Value(name string) string {
	for i := range f.fields {
		if f.fields[i].Name == name {
			return f.fields[i].input.Value()
		}
	}
	return ""
}

// SetValue replaces the text of the named field.
func (f *Form) SetValue(name, value string) *Form {
	for i := range f.fields {
		if f.fields[i].Name == name {
			f.fields[i].input.SetValue(value)
			f.fields[i].Error = ""
			break
		}
	}
	return f
}

// FocusedField returns the name of the field holding focus.
func (f *Form) FocusedField() string {
	if f.focusIndex < len(f.fields) {
		return f.fields[f.focusIndex].Name
	}
	return ""
}

// Update handles key input: tab/enter advance focus, shift+tab goes
// back, everything else lands in the focused input.
func (f *Form) Update(msg tea.Msg) (*Form, tea.Cmd) {
	if len(f.fields) == 0 {
		return f, nil
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "tab", "enter", "down":
			f.moveFocus(1)
			return f, nil
		case "shift+tab", "up":
			f.moveFocus(-1)
			return f, nil
		}
	}

	field := &f.fields[f.focusIndex]
	var cmd tea.Cmd
	field.input, cmd = field.input.Update(msg)
	field.Error = ""
	return f, cmd
}

// Validate runs every field's validation hook, records the first error
// per field and reports whether the whole form is clean.
func (f *Form) Validate() bool {
	valid := true
	for i := range f.fields {
		field := &f.fields[i]
		field.Error = ""

		if strings.TrimSpace(field.input.Value()) == "" {
			field.Error = "required"
			valid = false
			continue
		}
		if field.Validate != nil {
			if err := field.Validate(field.input.Value()); err != nil {
				field.Error = err.Error()
				valid = false
			}
		}
	}
	return valid
}

// View renders one line per field: label column, input, inline error.
func (f *Form) View() string {
	var b strings.Builder
	for i := range f.fields {
		field := &f.fields[i]

		label := f.labelStyle
		input := f.inputStyle
		if i == f.focusIndex {
			label = f.focusedLabel
			input = f.focusedInput
		}

		b.WriteString(label.Width(f.labelWidth).Render(field.Label))
		b.WriteString(input.Render(field.input.View()))
		if field.Error != "" {
			b.WriteString(" ")
			b.WriteString(f.errorStyle.Render("⚠ " + field.Error))
		}
		if i < len(f.fields)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (f *Form) moveFocus(delta int) {
	f.fields[f.focusIndex].input.Blur()
	f.focusIndex = (f.focusIndex + delta + len(f.fields)) % len(f.fields)
	f.fields[f.focusIndex].input.Focus()
}
