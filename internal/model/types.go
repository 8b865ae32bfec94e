package model

import "strings"

// Placeholders used when a field of the reply context cannot be resolved.
const (
	NoSubject     = "No subject"
	UnknownSender = "Unknown"
	NoBodySnippet = "No body text found"
)

// ReplyContext is a snapshot of the conversation around an open reply editor.
// It is built fresh on every detection pass and never mutated afterwards.
type ReplyContext struct {
	Subject      string `json:"subject"`
	LatestSender string `json:"latestSender"`
	Body         string `json:"body"`
	Snippet      string `json:"snippet"`
	ThreadID     string `json:"threadId,omitempty"` // only used for Gmail drafts
}

// NewReplyContext fills in the snippet fallback so callers cannot produce a
// half-populated context.
func NewReplyContext(subject, sender, body string) ReplyContext {
	if subject == "" {
		subject = NoSubject
	}
	if sender == "" {
		sender = UnknownSender
	}
	snippet := body
	if snippet == "" {
		snippet = NoBodySnippet
	}
	return ReplyContext{
		Subject:      subject,
		LatestSender: sender,
		Body:         body,
		Snippet:      snippet,
	}
}

// Settings are the user preferences persisted between runs.
type Settings struct {
	APIKey     string
	SenderName string
	Prompt     string // reply style prompt
}

// Complete reports whether every setting required for generation is present.
func (s Settings) Complete() bool {
	return strings.TrimSpace(s.APIKey) != "" &&
		strings.TrimSpace(s.SenderName) != "" &&
		strings.TrimSpace(s.Prompt) != ""
}

// Draft is a generated reply together with the usage reported by the API.
type Draft struct {
	Text         string
	Model        string
	InputTokens  int
	OutputTokens int
}
