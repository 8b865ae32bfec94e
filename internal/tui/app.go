package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"replydraft/internal/bus"
	"replydraft/internal/model"
	"replydraft/internal/orchestrator"
)

// clipboardWriteAll is swapped out in tests.
var clipboardWriteAll = clipboard.WriteAll

const labelResetDelay = 1600 * time.Millisecond

// Backend is the part of the orchestrator the popup drives.
type Backend interface {
	CheckContext(ctx context.Context) (orchestrator.Check, error)
	MaybeAutoGenerate(ctx context.Context) (*orchestrator.Generation, error)
	Generate(ctx context.Context) (*orchestrator.Generation, error)
	Settings(ctx context.Context) (model.Settings, error)
	SaveSettings(ctx context.Context, s model.Settings) error
	SaveGmailDraft(ctx context.Context, gen *orchestrator.Generation) (string, error)
	HandleNotification(env bus.Envelope) orchestrator.Badge
}

type tabState int

const (
	tabDraft tabState = iota
	tabSettings
)

const (
	fieldAPIKey = iota
	fieldSender
	fieldPrompt
	fieldCount
)

type AppModel struct {
	ctx           context.Context
	backend       Backend
	notifications <-chan bus.Envelope
	autoGenerate  bool
	Err           error
	status        string

	tab   tabState
	badge orchestrator.Badge

	// Draft tab
	check       *orchestrator.Check
	checkErr    error
	gen         *orchestrator.Generation
	genErr      error
	generating  bool
	showSnippet bool
	copyLabel   string

	// Settings tab
	settings   model.Settings
	apiKey     textinput.Model
	senderName textinput.Model
	prompt     textarea.Model
	focus      int
	saveLabel  string

	spinner       spinner.Model
	draftViewport viewport.Model

	width, height int
}

// Options tune NewAppModel. Notifications may be nil.
type Options struct {
	Notifications <-chan bus.Envelope
	AutoGenerate  bool
}

func NewAppModel(ctx context.Context, backend Backend, opts Options) AppModel {
	key := textinput.New()
	key.Placeholder = "sk-..."
	key.EchoMode = textinput.EchoPassword
	key.EchoCharacter = '•'
	key.Prompt = ""

	sender := textinput.New()
	sender.Placeholder = "Your name for the signature"
	sender.Prompt = ""

	prompt := textarea.New()
	prompt.Placeholder = "How replies should sound"
	prompt.ShowLineNumbers = false
	prompt.SetWidth(60)
	prompt.SetHeight(6)

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return AppModel{
		ctx:           ctx,
		backend:       backend,
		notifications: opts.Notifications,
		autoGenerate:  opts.AutoGenerate,
		status:        "Checking webmail...",
		copyLabel:     copyDefaultLabel,
		saveLabel:     saveDefaultLabel,
		apiKey:        key,
		senderName:    sender,
		prompt:        prompt,
		spinner:       sp,
		draftViewport: viewport.New(80, 12),
	}
}

func (m *AppModel) Init() tea.Cmd {
	return tea.Batch(m.loadSettingsCmd(), m.checkCmd(), m.waitForNotification())
}

func (m *AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.draftViewport.Width = msg.Width
		m.draftViewport.Height = max(msg.Height-14, 3) // header, alerts, cost and footer
		m.prompt.SetWidth(max(msg.Width-4, 20))
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		if !m.generating {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case settingsLoadedMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("Failed to load settings: %v", msg.err)
			return m, nil
		}
		m.applySettings(msg.settings)
		return m, nil

	case settingsSavedMsg:
		if msg.err != nil {
			m.saveLabel = "Save failed"
			m.status = msg.err.Error()
			return m, nil
		}
		m.saveLabel = "Saved ✔"
		m.settings = m.formSettings()
		return m, tea.Batch(resetLabelsAfter(labelResetDelay), m.checkCmd())

	case checkResultMsg:
		return m.handleCheck(msg)

	case draftResultMsg:
		m.generating = false
		if msg.err != nil {
			m.genErr = msg.err
			m.status = ""
			return m, nil
		}
		if msg.gen != nil {
			m.gen = msg.gen
			m.genErr = nil
			m.copyLabel = copyDefaultLabel
			m.draftViewport.SetContent(msg.gen.Draft.Text)
			m.draftViewport.GotoTop()
		}
		m.status = ""
		return m, nil

	case notificationMsg:
		b := m.backend.HandleNotification(bus.Envelope(msg))
		cmds := []tea.Cmd{m.waitForNotification()}
		if m.check == nil || m.check.TabID == msg.TabID {
			m.badge = b
			cmds = append(cmds, m.checkCmd())
		}
		return m, tea.Batch(cmds...)

	case copiedMsg:
		if msg.err != nil {
			m.copyLabel = "Copy failed"
			return m, nil
		}
		m.copyLabel = "Copied ✔"
		return m, resetLabelsAfter(labelResetDelay)

	case gmailSavedMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("Gmail draft failed: %v", msg.err)
		} else {
			m.status = "Saved to Gmail drafts"
		}
		return m, clearStatusAfter(2 * time.Second)

	case resetLabelMsg:
		m.copyLabel = copyDefaultLabel
		m.saveLabel = saveDefaultLabel
		return m, nil

	case statusMsg:
		if string(msg) == "" {
			m.status = ""
		}
		return m, nil
	}

	var cmd tea.Cmd
	switch m.tab {
	case tabDraft:
		m.draftViewport, cmd = m.draftViewport.Update(msg)
	case tabSettings:
		cmd = m.updateFocused(msg)
	}
	return m, cmd
}

func (m *AppModel) handleCheck(msg checkResultMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.check = nil
		m.checkErr = msg.err
		m.gen = nil
		m.genErr = nil
		m.status = ""
		if !errors.Is(msg.err, orchestrator.ErrNoWebmailTab) && !errors.Is(msg.err, orchestrator.ErrNoResponse) {
			m.status = msg.err.Error()
		}
		m.badge = orchestrator.BadgeDefault
		return m, nil
	}

	check := msg.check
	m.check = &check
	m.checkErr = nil
	m.status = ""
	m.badge = orchestrator.BadgeFor(check.HasReplyOpen && check.Context != nil)
	if check.Context == nil {
		m.gen = nil
		m.genErr = nil
		m.draftViewport.SetContent("")
		return m, nil
	}
	if !m.autoGenerate || !check.HasReplyOpen || !check.SettingsComplete || m.generating {
		return m, nil
	}
	m.generating = true
	return m, tea.Batch(m.autoGenerateCmd(), m.spinner.Tick)
}

func (m *AppModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	// Global keys
	switch key {
	case "ctrl+c":
		return m, tea.Quit
	}

	switch m.tab {
	case tabDraft:
		switch key {
		case "q":
			return m, tea.Quit
		case "tab":
			return m, m.switchTab(tabSettings)
		case "r":
			m.status = "Checking webmail..."
			return m, m.checkCmd()
		case "g":
			return m.startGenerate()
		case "c":
			if m.gen == nil || m.gen.Draft.Text == "" {
				return m, nil
			}
			return m, copyCmd(m.gen.Draft.Text)
		case "p":
			m.showSnippet = !m.showSnippet
			return m, nil
		case "s":
			if m.gen == nil {
				return m, nil
			}
			m.status = "Saving Gmail draft..."
			return m, m.saveGmailCmd(m.gen)
		}
		var cmd tea.Cmd
		m.draftViewport, cmd = m.draftViewport.Update(msg)
		return m, cmd

	case tabSettings:
		switch key {
		case "esc":
			return m, m.switchTab(tabDraft)
		case "ctrl+s":
			return m, m.saveSettingsCmd(m.formSettings())
		case "tab":
			return m, m.setFocus((m.focus + 1) % fieldCount)
		case "shift+tab":
			return m, m.setFocus((m.focus + fieldCount - 1) % fieldCount)
		}
		return m, m.updateFocused(msg)
	}

	return m, nil
}

func (m *AppModel) startGenerate() (tea.Model, tea.Cmd) {
	if m.generating {
		return m, nil
	}
	if m.check == nil || m.check.Context == nil {
		return m, nil
	}
	m.generating = true
	m.genErr = nil
	return m, tea.Batch(m.generateCmd(), m.spinner.Tick)
}

func (m *AppModel) switchTab(t tabState) tea.Cmd {
	m.tab = t
	if t == tabSettings {
		return m.setFocus(m.focus)
	}
	m.apiKey.Blur()
	m.senderName.Blur()
	m.prompt.Blur()
	return nil
}

func (m *AppModel) setFocus(field int) tea.Cmd {
	m.focus = field
	m.apiKey.Blur()
	m.senderName.Blur()
	m.prompt.Blur()
	switch field {
	case fieldAPIKey:
		return m.apiKey.Focus()
	case fieldSender:
		return m.senderName.Focus()
	default:
		return m.prompt.Focus()
	}
}

func (m *AppModel) updateFocused(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch m.focus {
	case fieldAPIKey:
		m.apiKey, cmd = m.apiKey.Update(msg)
	case fieldSender:
		m.senderName, cmd = m.senderName.Update(msg)
	default:
		m.prompt, cmd = m.prompt.Update(msg)
	}
	return cmd
}

func (m *AppModel) applySettings(s model.Settings) {
	m.settings = s
	m.apiKey.SetValue(s.APIKey)
	m.senderName.SetValue(s.SenderName)
	m.prompt.SetValue(s.Prompt)
}

func (m *AppModel) formSettings() model.Settings {
	return model.Settings{
		APIKey:     strings.TrimSpace(m.apiKey.Value()),
		SenderName: strings.TrimSpace(m.senderName.Value()),
		Prompt:     strings.TrimSpace(m.prompt.Value()),
	}
}

// Commands

func (m *AppModel) checkCmd() tea.Cmd {
	return func() tea.Msg {
		check, err := m.backend.CheckContext(m.ctx)
		return checkResultMsg{check: check, err: err}
	}
}

func (m *AppModel) autoGenerateCmd() tea.Cmd {
	return func() tea.Msg {
		gen, err := m.backend.MaybeAutoGenerate(m.ctx)
		return draftResultMsg{gen: gen, err: err}
	}
}

func (m *AppModel) generateCmd() tea.Cmd {
	return func() tea.Msg {
		gen, err := m.backend.Generate(m.ctx)
		return draftResultMsg{gen: gen, err: err}
	}
}

func (m *AppModel) loadSettingsCmd() tea.Cmd {
	return func() tea.Msg {
		s, err := m.backend.Settings(m.ctx)
		return settingsLoadedMsg{settings: s, err: err}
	}
}

func (m *AppModel) saveSettingsCmd(s model.Settings) tea.Cmd {
	return func() tea.Msg {
		return settingsSavedMsg{err: m.backend.SaveSettings(m.ctx, s)}
	}
}

func (m *AppModel) saveGmailCmd(gen *orchestrator.Generation) tea.Cmd {
	return func() tea.Msg {
		id, err := m.backend.SaveGmailDraft(m.ctx, gen)
		return gmailSavedMsg{id: id, err: err}
	}
}

// waitForNotification blocks on the next detector notification. It
// returns nil once the channel is closed, which ends the chain.
func (m *AppModel) waitForNotification() tea.Cmd {
	if m.notifications == nil {
		return nil
	}
	ch := m.notifications
	return func() tea.Msg {
		env, ok := <-ch
		if !ok {
			return nil
		}
		return notificationMsg(env)
	}
}

func copyCmd(text string) tea.Cmd {
	return func() tea.Msg {
		return copiedMsg{err: clipboardWriteAll(text)}
	}
}

func resetLabelsAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return resetLabelMsg{}
	})
}

func clearStatusAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return statusMsg("")
	})
}

// View renders the header and the active tab.
func (m *AppModel) View() string {
	if m.Err != nil {
		return "Error: " + m.Err.Error() + "\n"
	}

	var b strings.Builder
	b.WriteString(header(m.tab, m.badge))
	b.WriteString("\n\n")

	switch m.tab {
	case tabDraft:
		b.WriteString(m.draftView())
		b.WriteString("\n")
		b.WriteString(draftFooter())
	case tabSettings:
		b.WriteString(m.settingsView())
		b.WriteString("\n")
		b.WriteString(settingsFooter())
	}

	if m.status != "" {
		b.WriteString("\n")
		b.WriteString(m.status)
	}

	return b.String()
}
