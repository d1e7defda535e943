package tui

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"modelkombat/config"
)

// Run starts the TUI over state
func Run(ctx context.Context, state *config.State) error {
	if !IsTerminal() {
		return fmt.Errorf("the model picker requires a terminal. Use the models subcommands for non-interactive mode")
	}

	p := tea.NewProgram(NewModel(ctx, state), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

// IsTerminal reports whether stdin and stdout are terminals
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}
