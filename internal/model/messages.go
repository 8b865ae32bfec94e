package model

// Message kinds exchanged between the detector and the orchestrator.
const (
	KindCheckReplyContext = "CHECK_REPLY_CONTEXT"
	KindReplyContextState = "REPLY_CONTEXT_STATE"
)

// Query asks a detector for the current reply context.
type Query struct {
	Kind string `json:"type"`
}

// CheckReplyContext is the only query a detector answers.
func CheckReplyContext() Query {
	return Query{Kind: KindCheckReplyContext}
}

// CheckReply answers a CHECK_REPLY_CONTEXT query. Context is nil (null on
// the wire) when no reply editor is open.
type CheckReply struct {
	HasReplyOpen bool          `json:"hasReplyOpen"`
	Context      *ReplyContext `json:"context"`
}

// StateNotification is pushed by a detector whenever the reply-open state
// changes.
type StateNotification struct {
	Kind         string `json:"type"`
	HasReplyOpen bool   `json:"hasReplyOpen"`
}

func ReplyContextState(open bool) StateNotification {
	return StateNotification{Kind: KindReplyContextState, HasReplyOpen: open}
}
