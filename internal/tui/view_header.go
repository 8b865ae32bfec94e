package tui

import (
	"github.com/charmbracelet/lipgloss"

	"replydraft/internal/orchestrator"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Underline(true).
			Padding(0, 1)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("241")).
				Padding(0, 1)

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			PaddingTop(1)
)

func badgeView(b orchestrator.Badge) string {
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#ffffff")).
		Background(lipgloss.Color(b.Color())).
		Padding(0, 1).
		Render("R " + b.String())
}

func header(active tabState, b orchestrator.Badge) string {
	tabs := make([]string, 0, 2)
	for _, t := range []struct {
		state tabState
		label string
	}{
		{tabDraft, "Draft"},
		{tabSettings, "Settings"},
	} {
		if t.state == active {
			tabs = append(tabs, activeTabStyle.Render(t.label))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(t.label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Center,
		titleStyle.Render("replydraft"), "  ",
		lipgloss.JoinHorizontal(lipgloss.Center, tabs...), "  ",
		badgeView(b))
}
