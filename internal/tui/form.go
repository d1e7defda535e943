package tui

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Form styles
var (
	formLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Width(10)

	formHintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Italic(true)
)

// CredentialForm collects an API key with hidden input
type CredentialForm struct {
	input textinput.Model
}

// NewCredentialForm creates a focused credential form
func NewCredentialForm() CredentialForm {
	ti := textinput.New()
	ti.Placeholder = "sk-or-v1-..."
	ti.EchoMode = textinput.EchoPassword
	ti.EchoCharacter = '•'
	ti.CharLimit = 256
	ti.Width = 48
	ti.Focus()
	return CredentialForm{input: ti}
}

// Value returns the trimmed input
func (f CredentialForm) Value() string {
	return strings.TrimSpace(f.input.Value())
}

// Validate checks the form can be submitted
func (f CredentialForm) Validate() error {
	if f.Value() == "" {
		return errors.New("API key cannot be empty")
	}
	return nil
}

// Update forwards msg to the input
func (f CredentialForm) Update(msg tea.Msg) (CredentialForm, tea.Cmd) {
	var cmd tea.Cmd
	f.input, cmd = f.input.Update(msg)
	return f, cmd
}

// View renders the form
func (f CredentialForm) View() string {
	var b strings.Builder
	b.WriteString(formLabelStyle.Render("API key"))
	b.WriteString(f.input.View())
	b.WriteString("\n\n")
	b.WriteString(formHintStyle.Render("The key is verified before it is stored. Stored keys are obfuscated, not encrypted."))
	return b.String()
}
