package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all keyboard shortcuts
type KeyMap struct {
	Up          key.Binding // k - move up
	Down        key.Binding // j - move down
	Top         key.Binding // g - jump to top
	Bottom      key.Binding // G - jump to bottom
	Toggle      key.Binding // Enter/Space - enable or disable model
	Flagship    key.Binding // f - flagship filter
	Sync        key.Binding // s - sync catalog
	Credential  key.Binding // a - set API key
	Refiner     key.Binding // r - set default refiner
	Judge       key.Binding // J - set default judge
	MoreRounds  key.Binding // + - one more round
	FewerRounds key.Binding // - - one round less
	Plan        key.Binding // p - round plan preview
	Help        key.Binding // ? - help
	Quit        key.Binding // q - quit
	Cancel      key.Binding // Esc - cancel
	Confirm     key.Binding // Enter - confirm (in form)
}

// DefaultKeyMap returns the default key bindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "down"),
		),
		Top: key.NewBinding(
			key.WithKeys("g"),
			key.WithHelp("g", "top"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("G"),
			key.WithHelp("G", "bottom"),
		),
		Toggle: key.NewBinding(
			key.WithKeys("enter", " "),
			key.WithHelp("Enter", "toggle"),
		),
		Flagship: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "flagship only"),
		),
		Sync: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "sync catalog"),
		),
		Credential: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "set API key"),
		),
		Refiner: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "default refiner"),
		),
		Judge: key.NewBinding(
			key.WithKeys("J"),
			key.WithHelp("J", "default judge"),
		),
		MoreRounds: key.NewBinding(
			key.WithKeys("+", "="),
			key.WithHelp("+", "more rounds"),
		),
		FewerRounds: key.NewBinding(
			key.WithKeys("-"),
			key.WithHelp("-", "fewer rounds"),
		),
		Plan: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "round plan"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("Esc", "cancel"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("Enter", "confirm"),
		),
	}
}

// ShortHelp returns short help text
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Toggle, k.Sync, k.Flagship, k.Help, k.Quit}
}

// FullHelp returns full help text
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Top, k.Bottom},
		{k.Toggle, k.Flagship, k.Sync, k.Credential},
		{k.Refiner, k.Judge, k.MoreRounds, k.FewerRounds},
		{k.Plan, k.Help, k.Quit, k.Cancel},
	}
}
