package tui

import (
	"replydraft/internal/bus"
	"replydraft/internal/model"
	"replydraft/internal/orchestrator"
)

// Async message types for Bubble Tea commands.

type checkResultMsg struct {
	check orchestrator.Check
	err   error
}

type draftResultMsg struct {
	gen *orchestrator.Generation // nil when auto generation was skipped
	err error
}

type settingsLoadedMsg struct {
	settings model.Settings
	err      error
}

type settingsSavedMsg struct {
	err error
}

type notificationMsg bus.Envelope

type gmailSavedMsg struct {
	id  string
	err error
}

type copiedMsg struct {
	err error
}

// resetLabelMsg restores the copy and save labels.
type resetLabelMsg struct{}

type statusMsg string
