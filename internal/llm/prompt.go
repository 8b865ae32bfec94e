package llm

import (
	"fmt"
	"strings"

	"replydraft/internal/model"
)

// DefaultStylePrompt is used until the user saves a prompt of their own.
const DefaultStylePrompt = `Keep the tone friendly but professional.
Acknowledge the main points of the email and state any next steps clearly.
Keep it short.`

const DefaultLanguage = "Japanese"

const noBody = "(no body)"

// Prompt is the message set sent for one draft.
type Prompt struct {
	System []string
	User   string
}

// BuildPrompt assembles the instructions for replying to rc as the user
// described by s. The style prompt comes last and overrides the base rules.
func BuildPrompt(rc model.ReplyContext, s model.Settings, language string) Prompt {
	return Prompt{
		System: []string{
			BaseInstructions(s.SenderName, language),
			StyleInstructions(s.Prompt),
		},
		User: UserPayload(rc),
	}
}

func BaseInstructions(senderName, language string) string {
	if language == "" {
		language = DefaultLanguage
	}
	signature := "Close with a generic signature."
	if name := strings.TrimSpace(senderName); name != "" {
		signature = fmt.Sprintf("Sign the reply as %q.", name)
	}
	return strings.Join([]string{
		"[Base rules]",
		"You draft email replies on behalf of the user.",
		fmt.Sprintf("Using the information below, write a polite and concise reply in %s.", language),
		"Do not include a subject line in the reply.",
		"Use appropriate greetings and a signature, and use bullet points when they help.",
		signature,
	}, "\n")
}

func StyleInstructions(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		prompt = DefaultStylePrompt
	}
	return strings.Join([]string{
		"[Reply style (highest priority)]",
		prompt,
		"If this conflicts with the base rules above, follow this style.",
	}, "\n")
}

// UserPayload renders the email being replied to.
func UserPayload(rc model.ReplyContext) string {
	body := rc.Body
	if body == "" {
		body = noBody
	}
	return strings.Join([]string{
		"Subject: " + rc.Subject,
		"From (replying to): " + rc.LatestSender,
		"Body:",
		body,
	}, "\n")
}

// SystemText joins the system messages, for local token estimates.
func (p Prompt) SystemText() string {
	return strings.Join(p.System, "\n")
}
