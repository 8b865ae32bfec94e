package tui

import (
	"errors"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"replydraft/internal/orchestrator"
)

const (
	copyDefaultLabel = "c: copy draft"
	saveDefaultLabel = "ctrl+s: save"

	alertOpenReply = "Open a reply box in webmail, then press r to check again."
	alertSettings  = "Some settings are missing. Press tab to fill them in."

	toggleHidden = "▶ Show the email being replied to (p)"
	toggleShown  = "▼ Hide the email being replied to (p)"
)

var (
	alertStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8a5a00")).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#e0b000")).
			Padding(0, 1)

	subjectStyle = lipgloss.NewStyle().Bold(true)

	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

	snippetStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("241")).
			PaddingLeft(1)
)

// alerts lists the cards shown above the draft.
func (m *AppModel) alerts() []string {
	if m.check == nil && m.checkErr == nil {
		return nil
	}
	complete := m.settings.Complete()
	if m.check != nil {
		complete = m.check.SettingsComplete
	}
	if m.check == nil || m.check.Context == nil || !m.check.HasReplyOpen {
		alerts := []string{alertOpenReply}
		if !complete {
			alerts = append(alerts, alertSettings)
		}
		return alerts
	}
	if !complete {
		return []string{alertSettings}
	}
	return nil
}

func (m *AppModel) draftView() string {
	var b strings.Builder

	subject := "-"
	if m.check != nil && m.check.Context != nil {
		subject = m.check.Context.Subject
	}
	b.WriteString(subjectStyle.Render("Subject: " + subject))
	b.WriteString("\n")
	if m.checkErr != nil && errors.Is(m.checkErr, orchestrator.ErrNoWebmailTab) {
		b.WriteString(mutedStyle.Render("No webmail tab is open."))
		b.WriteString("\n")
	}

	for _, a := range m.alerts() {
		b.WriteString(alertStyle.Render("⚠ " + a))
		b.WriteString("\n")
	}

	if m.generating {
		b.WriteString(m.spinner.View() + " Writing a draft...\n")
	}
	if m.genErr != nil {
		b.WriteString(errorStyle.Render(m.genErr.Error()))
		b.WriteString("\n")
	}

	if m.gen == nil {
		return b.String()
	}

	b.WriteString("\n")
	b.WriteString(m.draftViewport.View())
	b.WriteString("\n\n")
	b.WriteString(mutedStyle.Render(m.gen.CostLine))
	b.WriteString("\n")

	if m.showSnippet {
		b.WriteString(toggleShown + "\n")
		b.WriteString(snippetStyle.Render(strings.Join([]string{
			"From: " + m.gen.Context.LatestSender,
			m.gen.Context.Snippet,
		}, "\n")))
		b.WriteString("\n")
	} else {
		b.WriteString(toggleHidden + "\n")
	}
	b.WriteString(m.copyLabel)
	return b.String()
}

func draftFooter() string {
	return footerStyle.Render("g: generate  r: recheck  c: copy  s: save to gmail  tab: settings  q: quit")
}
