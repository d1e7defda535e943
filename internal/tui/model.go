// Package tui provides a terminal model picker over the configuration state
package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"modelkombat/config"
	"modelkombat/config/models"
	"modelkombat/internal/catalog"
)

// ViewState represents the current view state
type ViewState int

const (
	ViewMain       ViewState = iota // Catalog list
	ViewCredential                  // API key form
	ViewPlan                        // Round plan preview
	ViewHelp                        // Help panel
)

// Model is the core state model for TUI
type Model struct {
	ctx   context.Context
	state *config.State

	keys    KeyMap
	help    help.Model
	spinner spinner.Model

	viewState ViewState
	cfg       *models.Config
	entries   []catalog.Annotated // full catalog, annotated
	visible   []catalog.Annotated // entries after filtering
	flagship  bool                // flagship filter on

	cursor       int
	scrollOffset int

	form CredentialForm

	busy     bool
	message  string
	errorMsg string

	width  int
	height int
}

// NewModel creates a new TUI model over state
func NewModel(ctx context.Context, state *config.State) Model {
	return Model{
		ctx:     ctx,
		state:   state,
		keys:    DefaultKeyMap(),
		help:    help.New(),
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
		cfg:     models.NewConfig(""),
		width:   80,
		height:  24,
		busy:    true,
	}
}

// Init loads the configuration
func (m Model) Init() tea.Cmd {
	return tea.Batch(loadConfig(m.ctx, m.state), m.spinner.Tick)
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.adjustScrollOffset()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case ConfigLoadedMsg:
		m.busy = false
		if msg.Err != nil {
			m.errorMsg = msg.Err.Error()
			return m, nil
		}
		m.cfg = msg.Config
		m.errorMsg = msg.LastError
		m.setCatalog(msg.Catalog)
		return m, nil

	case CatalogSyncedMsg:
		m.busy = false
		if msg.Err != nil {
			m.errorMsg = msg.Err.Error()
			return m, nil
		}
		m.message = fmt.Sprintf("Catalog synced: %d models", len(msg.Catalog))
		m.errorMsg = ""
		m.cfg = m.state.Config()
		m.setCatalog(msg.Catalog)
		return m, nil

	case ConfigChangedMsg:
		m.busy = false
		if msg.Err != nil {
			m.errorMsg = msg.Err.Error()
			return m, nil
		}
		m.message = msg.Title
		m.errorMsg = ""
		m.cfg = m.state.Config()
		m.setCatalog(m.state.Catalog())
		return m, nil

	case CredentialSavedMsg:
		m.busy = false
		if msg.Err != nil {
			m.errorMsg = msg.Err.Error()
			return m, nil
		}
		m.message = "API key saved"
		m.errorMsg = ""
		m.viewState = ViewMain
		m.cfg = m.state.Config()
		m.busy = true
		return m, syncCatalog(m.ctx, m.state, false)
	}

	return m, nil
}

// handleKeyMsg handles keyboard input
func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.viewState {
	case ViewCredential:
		return m.handleCredentialKeys(msg)
	case ViewPlan, ViewHelp:
		if key.Matches(msg, m.keys.Cancel, m.keys.Help, m.keys.Plan) {
			m.viewState = ViewMain
			return m, nil
		}
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}
		return m, nil
	default:
		return m.handleMainViewKeys(msg)
	}
}

// handleMainViewKeys handles keyboard input in main view
func (m Model) handleMainViewKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Down):
		m.moveDown()
		m.clearMessages()
	case key.Matches(msg, m.keys.Up):
		m.moveUp()
		m.clearMessages()
	case key.Matches(msg, m.keys.Top):
		m.cursor = 0
		m.scrollOffset = 0
	case key.Matches(msg, m.keys.Bottom):
		if len(m.visible) > 0 {
			m.cursor = len(m.visible) - 1
			m.adjustScrollOffset()
		}

	case key.Matches(msg, m.keys.Help):
		m.viewState = ViewHelp
	case key.Matches(msg, m.keys.Plan):
		m.viewState = ViewPlan

	case key.Matches(msg, m.keys.Flagship):
		m.flagship = !m.flagship
		m.applyFilter()

	case key.Matches(msg, m.keys.Credential):
		m.form = NewCredentialForm()
		m.viewState = ViewCredential
		m.clearMessages()

	case m.busy:
		// remaining keys start work; one operation at a time

	case key.Matches(msg, m.keys.Sync):
		m.busy = true
		m.clearMessages()
		return m, syncCatalog(m.ctx, m.state, true)

	case key.Matches(msg, m.keys.Toggle):
		if entry, ok := m.selected(); ok {
			m.busy = true
			return m, toggleModel(m.ctx, m.state, entry.ID, !entry.Enabled)
		}

	case key.Matches(msg, m.keys.Refiner):
		if entry, ok := m.selected(); ok {
			m.busy = true
			return m, mutate(m.ctx, "Default refiner: "+entry.ID, func(ctx context.Context) error {
				return m.state.SetDefaultRefiner(ctx, entry.ID)
			})
		}

	case key.Matches(msg, m.keys.Judge):
		if entry, ok := m.selected(); ok {
			m.busy = true
			return m, mutate(m.ctx, "Default judge: "+entry.ID, func(ctx context.Context) error {
				return m.state.SetDefaultJudge(ctx, entry.ID)
			})
		}

	case key.Matches(msg, m.keys.MoreRounds), key.Matches(msg, m.keys.FewerRounds):
		n := m.cfg.DefaultRefinementRounds + 1
		if key.Matches(msg, m.keys.FewerRounds) {
			n = m.cfg.DefaultRefinementRounds - 1
		}
		m.busy = true
		return m, mutate(m.ctx, fmt.Sprintf("Default rounds: %d", n), func(ctx context.Context) error {
			return m.state.SetDefaultRounds(ctx, n)
		})
	}

	return m, nil
}

func (m Model) handleCredentialKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.String() == "ctrl+c":
		return m, tea.Quit
	case key.Matches(msg, m.keys.Cancel):
		m.viewState = ViewMain
		return m, nil
	case key.Matches(msg, m.keys.Confirm):
		if err := m.form.Validate(); err != nil {
			m.errorMsg = err.Error()
			return m, nil
		}
		m.busy = true
		m.errorMsg = ""
		return m, saveCredential(m.ctx, m.state, m.form.Value())
	}

	var cmd tea.Cmd
	m.form, cmd = m.form.Update(msg)
	return m, cmd
}

func (m *Model) clearMessages() {
	m.message = ""
	m.errorMsg = ""
}

func (m *Model) setCatalog(entries []models.CatalogEntry) {
	var enabled []string
	if m.cfg != nil {
		enabled = m.cfg.EnabledModelIDs
	}
	m.entries = catalog.Annotate(entries, enabled)
	m.applyFilter()
}

func (m *Model) applyFilter() {
	if m.flagship {
		m.visible = catalog.Filter(m.entries, func(a catalog.Annotated) bool { return a.Flagship })
	} else {
		m.visible = m.entries
	}
	if m.cursor >= len(m.visible) {
		m.cursor = max(len(m.visible)-1, 0)
	}
	m.adjustScrollOffset()
}

func (m Model) selected() (catalog.Annotated, bool) {
	if m.cursor < 0 || m.cursor >= len(m.visible) {
		return catalog.Annotated{}, false
	}
	return m.visible[m.cursor], true
}

// moveUp moves cursor up
func (m *Model) moveUp() {
	if m.cursor > 0 {
		m.cursor--
		m.adjustScrollOffset()
	}
}

// moveDown moves cursor down
func (m *Model) moveDown() {
	if len(m.visible) > 0 && m.cursor < len(m.visible)-1 {
		m.cursor++
		m.adjustScrollOffset()
	}
}

// getVisibleListHeight returns the number of lines available for the list:
// title, summary and separator above, separator and status bar below
func (m *Model) getVisibleListHeight() int {
	headerLines := 5
	footerLines := 4
	return max(m.height-headerLines-footerLines, 1)
}

// adjustScrollOffset keeps the cursor inside the visible window
func (m *Model) adjustScrollOffset() {
	visibleHeight := m.getVisibleListHeight()

	if m.cursor < m.scrollOffset {
		m.scrollOffset = m.cursor
	}
	if m.cursor >= m.scrollOffset+visibleHeight {
		m.scrollOffset = m.cursor - visibleHeight + 1
	}

	maxOffset := max(len(m.visible)-visibleHeight, 0)
	m.scrollOffset = min(max(m.scrollOffset, 0), maxOffset)
}

// View renders the UI
func (m Model) View() string {
	switch m.viewState {
	case ViewCredential:
		return m.RenderCredentialView()
	case ViewPlan:
		return m.RenderPlanView()
	case ViewHelp:
		return m.RenderHelpView()
	default:
		return m.RenderMainView()
	}
}

func loadConfig(ctx context.Context, state *config.State) tea.Cmd {
	return func() tea.Msg {
		if err := state.LoadConfig(ctx); err != nil {
			return ConfigLoadedMsg{Err: err}
		}
		return ConfigLoadedMsg{Config: state.Config(), Catalog: state.Catalog(), LastError: state.LastError()}
	}
}

func syncCatalog(ctx context.Context, state *config.State, force bool) tea.Cmd {
	return func() tea.Msg {
		entries, err := state.SyncCatalog(ctx, force)
		return CatalogSyncedMsg{Catalog: entries, Err: err}
	}
}

func saveCredential(ctx context.Context, state *config.State, credential string) tea.Cmd {
	return func() tea.Msg {
		return CredentialSavedMsg{Err: state.SaveCredential(ctx, credential)}
	}
}

func toggleModel(ctx context.Context, state *config.State, modelID string, enable bool) tea.Cmd {
	title := "Disabled " + modelID
	if enable {
		title = "Enabled " + modelID
	}
	return mutate(ctx, title, func(ctx context.Context) error {
		return state.ToggleModel(ctx, modelID)
	})
}

func mutate(ctx context.Context, title string, fn func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return ConfigChangedMsg{Title: title, Err: fn(ctx)}
	}
}
