package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	labelStyle        = lipgloss.NewStyle().Bold(true)
	focusedLabelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
)

func (m *AppModel) label(field int, text string) string {
	if m.tab == tabSettings && m.focus == field {
		return focusedLabelStyle.Render("> " + text)
	}
	return labelStyle.Render("  " + text)
}

func (m *AppModel) settingsView() string {
	var b strings.Builder
	b.WriteString(m.label(fieldAPIKey, "OpenAI API key"))
	b.WriteString("\n  ")
	b.WriteString(m.apiKey.View())
	b.WriteString("\n\n")
	b.WriteString(m.label(fieldSender, "Sender name"))
	b.WriteString("\n  ")
	b.WriteString(m.senderName.View())
	b.WriteString("\n\n")
	b.WriteString(m.label(fieldPrompt, "Reply style"))
	b.WriteString("\n")
	b.WriteString(m.prompt.View())
	b.WriteString("\n\n")
	b.WriteString(m.saveLabel)
	return b.String()
}

func settingsFooter() string {
	return footerStyle.Render("tab/shift+tab: next field  ctrl+s: save  esc: back")
}
