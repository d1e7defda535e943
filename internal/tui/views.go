package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"modelkombat/internal/catalog"
	"modelkombat/internal/rounds"
)

// Styles for the TUI
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("229")).
			Background(lipgloss.Color("57")).
			Bold(true)

	enabledStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	normalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	flagshipStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	messageStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	separatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("238"))
)

// RenderMainView renders the catalog list
func (m Model) RenderMainView() string {
	var b strings.Builder
	width := m.getEffectiveWidth(40)

	b.WriteString(titleStyle.Render("Model Kombat · Models"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.summary()))
	b.WriteString("\n")
	b.WriteString(separatorStyle.Render(strings.Repeat("─", width)))
	b.WriteString("\n\n")

	if len(m.visible) == 0 {
		if len(m.entries) == 0 {
			b.WriteString(dimStyle.Render("No catalog yet, press 's' to sync (an API key is required, press 'a')"))
		} else {
			b.WriteString(dimStyle.Render("No flagship models in the catalog, press 'f' to show all"))
		}
		b.WriteString("\n")
	} else {
		visibleHeight := m.getVisibleListHeight()
		start := m.scrollOffset
		end := min(start+visibleHeight, len(m.visible))

		if start > 0 {
			b.WriteString(dimStyle.Render(fmt.Sprintf("  ↑ %d more...", start)))
			b.WriteString("\n")
		}
		for i := start; i < end; i++ {
			b.WriteString(m.renderEntryLine(i, m.visible[i]))
			b.WriteString("\n")
		}
		if end < len(m.visible) {
			b.WriteString(dimStyle.Render(fmt.Sprintf("  ↓ %d more...", len(m.visible)-end)))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(separatorStyle.Render(strings.Repeat("─", width)))
	b.WriteString("\n")
	b.WriteString(m.RenderStatusBar())
	return b.String()
}

func (m Model) summary() string {
	refiner, judge := m.cfg.DefaultRefinerID, m.cfg.DefaultJudgeID
	if refiner == "" {
		refiner = "-"
	}
	if judge == "" {
		judge = "-"
	}
	filter := ""
	if m.flagship {
		filter = " · flagship only"
	}
	return fmt.Sprintf("%d enabled · %d rounds · refiner %s · judge %s%s",
		len(m.cfg.EnabledModelIDs), m.cfg.DefaultRefinementRounds, refiner, judge, filter)
}

// getEffectiveWidth returns the terminal width capped to a readable size
func (m Model) getEffectiveWidth(defaultWidth int) int {
	if m.width <= 0 {
		return defaultWidth
	}
	return min(m.width, 100)
}

// renderEntryLine renders one catalog entry
func (m Model) renderEntryLine(index int, entry catalog.Annotated) string {
	cursor := "  "
	if index == m.cursor {
		cursor = "> "
	}
	check := "[ ] "
	if entry.Enabled {
		check = "[x] "
	}
	star := "  "
	if entry.Flagship {
		star = flagshipStyle.Render("★ ")
	}

	name := entry.ID
	if entry.DisplayName != "" && entry.DisplayName != entry.ID {
		name = fmt.Sprintf("%s %s", entry.ID, dimStyle.Render("("+entry.DisplayName+")"))
	}
	content := truncateText(cursor+check+name, m.getEffectiveWidth(80)-2)

	switch {
	case index == m.cursor:
		return star + selectedStyle.Render(content)
	case entry.Enabled:
		return star + enabledStyle.Render(content)
	default:
		return star + normalStyle.Render(content)
	}
}

// truncateText cuts text to maxWidth runes, adding an ellipsis
func truncateText(text string, maxWidth int) string {
	runes := []rune(text)
	if maxWidth <= 3 || len(runes) <= maxWidth {
		return text
	}
	return string(runes[:maxWidth-3]) + "..."
}

// RenderCredentialView renders the API key form
func (m Model) RenderCredentialView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Set API key"))
	b.WriteString("\n")
	b.WriteString(separatorStyle.Render(strings.Repeat("─", m.getEffectiveWidth(40))))
	b.WriteString("\n\n")
	b.WriteString(m.form.View())
	b.WriteString("\n\n")
	if m.busy {
		b.WriteString(m.spinner.View() + " Verifying...\n")
	}
	if m.errorMsg != "" {
		b.WriteString(errorStyle.Render("✗ " + m.errorMsg))
		b.WriteString("\n")
	}
	b.WriteString(dimStyle.Render("Enter: save │ Esc: cancel"))
	return b.String()
}

// RenderPlanView renders the model of each round over the enabled models
func (m Model) RenderPlanView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Round plan"))
	b.WriteString("\n")
	b.WriteString(separatorStyle.Render(strings.Repeat("─", m.getEffectiveWidth(40))))
	b.WriteString("\n\n")

	for i, model := range rounds.Plan(m.cfg.EnabledModelIDs, m.cfg.DefaultRefinementRounds) {
		label := model
		if model == rounds.AutoModel {
			label = model + dimStyle.Render(" (automatic selection)")
		}
		b.WriteString(fmt.Sprintf("  %s %s\n", dimStyle.Render(fmt.Sprintf("round %2d", i+1)), label))
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Esc: back"))
	return b.String()
}

// RenderHelpView renders every key binding
func (m Model) RenderHelpView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Help"))
	b.WriteString("\n")
	b.WriteString(separatorStyle.Render(strings.Repeat("─", m.getEffectiveWidth(40))))
	b.WriteString("\n\n")

	h := m.help
	h.ShowAll = true
	b.WriteString(h.View(m.keys))
	b.WriteString("\n\n")
	b.WriteString(dimStyle.Render("★ marks flagship models. Esc: back"))
	return b.String()
}

// RenderStatusBar renders the bottom status bar
func (m Model) RenderStatusBar() string {
	var b strings.Builder

	if m.busy {
		b.WriteString(m.spinner.View() + " Working...\n")
	}
	if m.errorMsg != "" {
		b.WriteString(errorStyle.Render("✗ " + m.errorMsg))
		b.WriteString("\n")
	}
	if m.message != "" {
		b.WriteString(messageStyle.Render("✓ " + m.message))
		b.WriteString("\n")
	}

	b.WriteString(m.help.View(m.keys))
	return b.String()
}
