package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"replydraft/internal/bus"
	"replydraft/internal/model"
	"replydraft/internal/orchestrator"
)

type fakeBackend struct {
	check     orchestrator.Check
	checkErr  error
	gen       *orchestrator.Generation
	genErr    error
	settings  model.Settings
	saved     []model.Settings
	gmailID   string
	autoCalls int
	genCalls  int
	checks    int
	notified  []bus.Envelope
}

func (f *fakeBackend) CheckContext(context.Context) (orchestrator.Check, error) {
	f.checks++
	return f.check, f.checkErr
}

func (f *fakeBackend) MaybeAutoGenerate(context.Context) (*orchestrator.Generation, error) {
	f.autoCalls++
	return f.gen, f.genErr
}

func (f *fakeBackend) Generate(context.Context) (*orchestrator.Generation, error) {
	f.genCalls++
	return f.gen, f.genErr
}

func (f *fakeBackend) Settings(context.Context) (model.Settings, error) {
	return f.settings, nil
}

func (f *fakeBackend) SaveSettings(_ context.Context, s model.Settings) error {
	f.saved = append(f.saved, s)
	return nil
}

func (f *fakeBackend) SaveGmailDraft(context.Context, *orchestrator.Generation) (string, error) {
	return f.gmailID, nil
}

func (f *fakeBackend) HandleNotification(env bus.Envelope) orchestrator.Badge {
	f.notified = append(f.notified, env)
	return orchestrator.BadgeFor(env.Notification.HasReplyOpen)
}

func openCheck(complete bool) orchestrator.Check {
	rc := model.NewReplyContext("Re: Lunch", "Alice <a@b.com>", "Thanks, see you then.")
	return orchestrator.Check{TabID: "tab-1", HasReplyOpen: true, Context: &rc, SettingsComplete: complete}
}

func sampleGeneration() *orchestrator.Generation {
	rc := model.NewReplyContext("Re: Lunch", "Alice <a@b.com>", "Thanks, see you then.")
	return &orchestrator.Generation{
		Context:  rc,
		Draft:    model.Draft{Text: "Hi Alice, see you at noon. Bob"},
		CostLine: "Cost: ¥0.135 (input: 1200 tokens, output: 300 tokens)",
	}
}

func newTestApp(t *testing.T, backend *fakeBackend, auto bool) *AppModel {
	t.Helper()
	m := NewAppModel(context.Background(), backend, Options{AutoGenerate: auto})
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return &m
}

func key(s string) tea.KeyMsg {
	switch s {
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestAppNoWebmailTabShowsAlert(t *testing.T) {
	backend := &fakeBackend{}
	m := newTestApp(t, backend, true)

	m.Update(checkResultMsg{err: orchestrator.ErrNoWebmailTab})

	view := m.View()
	require.Contains(t, view, alertOpenReply)
	require.Contains(t, view, alertSettings, "settings are empty too")
	require.Contains(t, view, "Subject: -")
	require.Equal(t, orchestrator.BadgeDefault, m.badge)
}

func TestAppCheckAutoGenerates(t *testing.T) {
	backend := &fakeBackend{gen: sampleGeneration()}
	m := newTestApp(t, backend, true)

	_, cmd := m.Update(checkResultMsg{check: openCheck(true)})
	require.NotNil(t, cmd)
	require.True(t, m.generating)
	require.Equal(t, orchestrator.BadgeAvailable, m.badge)

	m.Update(m.autoGenerateCmd()())
	require.Equal(t, 1, backend.autoCalls)
	require.False(t, m.generating)

	view := m.View()
	require.Contains(t, view, "Hi Alice, see you at noon. Bob")
	require.Contains(t, view, "Cost: ¥0.135 (input: 1200 tokens, output: 300 tokens)")
	require.Contains(t, view, toggleHidden)
	require.NotContains(t, view, alertOpenReply)
}

func TestAppIncompleteSettingsSkipsGeneration(t *testing.T) {
	backend := &fakeBackend{}
	m := newTestApp(t, backend, true)

	_, cmd := m.Update(checkResultMsg{check: openCheck(false)})
	require.Nil(t, cmd)
	require.False(t, m.generating)

	view := m.View()
	require.Contains(t, view, alertSettings)
	require.NotContains(t, view, alertOpenReply)
}

func TestAppGenerateErrorIsShown(t *testing.T) {
	backend := &fakeBackend{genErr: errors.New("API error: 401 Incorrect API key provided")}
	m := newTestApp(t, backend, false)
	m.Update(checkResultMsg{check: openCheck(true)})

	_, cmd := m.Update(key("g"))
	require.NotNil(t, cmd)
	require.True(t, m.generating)

	m.Update(m.generateCmd()())
	require.Equal(t, 1, backend.genCalls)
	require.False(t, m.generating)
	require.Contains(t, m.View(), "API error: 401 Incorrect API key provided")
}

func TestAppCopyAndSnippet(t *testing.T) {
	var copied string
	orig := clipboardWriteAll
	clipboardWriteAll = func(s string) error {
		copied = s
		return nil
	}
	t.Cleanup(func() { clipboardWriteAll = orig })

	backend := &fakeBackend{}
	m := newTestApp(t, backend, false)
	m.Update(checkResultMsg{check: openCheck(true)})
	m.Update(draftResultMsg{gen: sampleGeneration()})

	_, cmd := m.Update(key("c"))
	require.NotNil(t, cmd)
	m.Update(cmd())
	require.Equal(t, "Hi Alice, see you at noon. Bob", copied)
	require.Contains(t, m.View(), "Copied ✔")

	m.Update(resetLabelMsg{})
	require.Contains(t, m.View(), copyDefaultLabel)

	m.Update(key("p"))
	view := m.View()
	require.Contains(t, view, toggleShown)
	require.Contains(t, view, "From: Alice <a@b.com>")
	require.Contains(t, view, "Thanks, see you then.")
}

func TestAppCopyWithoutDraftIsNoop(t *testing.T) {
	m := newTestApp(t, &fakeBackend{}, false)
	_, cmd := m.Update(key("c"))
	require.Nil(t, cmd)
}

func TestAppReplyClosedClearsDraft(t *testing.T) {
	m := newTestApp(t, &fakeBackend{}, false)
	m.Update(checkResultMsg{check: openCheck(true)})
	m.Update(draftResultMsg{gen: sampleGeneration()})

	m.Update(checkResultMsg{check: orchestrator.Check{TabID: "tab-1", SettingsComplete: true}})
	require.Nil(t, m.gen)
	require.Contains(t, m.View(), alertOpenReply)
	require.Equal(t, orchestrator.BadgeDefault, m.badge)
}

func TestAppSettingsSave(t *testing.T) {
	backend := &fakeBackend{}
	m := newTestApp(t, backend, false)
	m.Update(settingsLoadedMsg{settings: model.Settings{Prompt: "Be brief."}})

	m.Update(key("tab"))
	require.Equal(t, tabSettings, m.tab)
	require.Equal(t, fieldAPIKey, m.focus)

	m.Update(key("sk-1"))
	m.Update(key("tab"))
	m.Update(key("Bob"))
	require.NotContains(t, m.View(), "sk-1", "api key is masked")

	_, cmd := m.Update(key("ctrl+s"))
	require.NotNil(t, cmd)
	m.Update(cmd())
	require.Equal(t, []model.Settings{{APIKey: "sk-1", SenderName: "Bob", Prompt: "Be brief."}}, backend.saved)
	require.Contains(t, m.View(), "Saved ✔")

	m.Update(key("esc"))
	require.Equal(t, tabDraft, m.tab)
}

func TestAppNotificationUpdatesBadgeAndRechecks(t *testing.T) {
	backend := &fakeBackend{}
	m := newTestApp(t, backend, false)
	m.Update(checkResultMsg{check: orchestrator.Check{TabID: "tab-1"}})

	env := bus.Envelope{TabID: "tab-1", Notification: model.ReplyContextState(true)}
	_, cmd := m.Update(notificationMsg(env))
	require.NotNil(t, cmd)
	require.Equal(t, orchestrator.BadgeAvailable, m.badge)
	require.Equal(t, []bus.Envelope{env}, backend.notified)
}

func TestAppNotificationFromOtherTabKeepsBadge(t *testing.T) {
	backend := &fakeBackend{}
	m := newTestApp(t, backend, false)
	m.Update(checkResultMsg{check: orchestrator.Check{TabID: "tab-1"}})

	env := bus.Envelope{TabID: "tab-2", Notification: model.ReplyContextState(true)}
	m.Update(notificationMsg(env))
	require.Equal(t, orchestrator.BadgeDefault, m.badge)
	require.Equal(t, []bus.Envelope{env}, backend.notified)
}

func TestWaitForNotification(t *testing.T) {
	ch := make(chan bus.Envelope, 1)
	m := NewAppModel(context.Background(), &fakeBackend{}, Options{Notifications: ch})

	env := bus.Envelope{TabID: "tab-1", Notification: model.ReplyContextState(false)}
	ch <- env
	require.Equal(t, notificationMsg(env), m.waitForNotification()())

	close(ch)
	require.Nil(t, m.waitForNotification()())

	none := NewAppModel(context.Background(), &fakeBackend{}, Options{})
	require.Nil(t, none.waitForNotification())
}
