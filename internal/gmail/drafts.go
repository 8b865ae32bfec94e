package gmail

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"strings"

	gmailv1 "google.golang.org/api/gmail/v1"

	"replydraft/internal/model"
	"replydraft/internal/util"
)

// ErrEmptyDraft is returned when there is no text to save.
var ErrEmptyDraft = errors.New("draft text is empty")

// ReplyDraft is a generated reply ready to be stored as a Gmail draft.
type ReplyDraft struct {
	To       string // bare address; may be empty
	Subject  string
	Body     string
	ThreadID string
}

// NewReplyDraft addresses text as a reply to the conversation in rc.
func NewReplyDraft(rc model.ReplyContext, text string) ReplyDraft {
	return ReplyDraft{
		To:       util.AddressOf(rc.LatestSender),
		Subject:  replySubject(rc.Subject),
		Body:     text,
		ThreadID: rc.ThreadID,
	}
}

func replySubject(subject string) string {
	subject = strings.TrimSpace(subject)
	if subject == "" || subject == model.NoSubject {
		return "Re:"
	}
	if len(subject) >= 3 && strings.EqualFold(subject[:3], "re:") {
		return subject
	}
	return "Re: " + subject
}

// CreateReplyDraft stores d in the user's Drafts and returns the draft id.
func CreateReplyDraft(ctx context.Context, svc *gmailv1.Service, d ReplyDraft) (string, error) {
	if strings.TrimSpace(d.Body) == "" {
		return "", ErrEmptyDraft
	}
	msg := &gmailv1.Message{
		Raw:      base64.URLEncoding.EncodeToString(buildRaw(d)),
		ThreadId: d.ThreadID,
	}
	created, err := svc.Users.Drafts.Create("me", &gmailv1.Draft{Message: msg}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("create draft: %w", err)
	}
	return created.Id, nil
}

// buildRaw renders d as an RFC 5322 message with a UTF-8 plain text body.
func buildRaw(d ReplyDraft) []byte {
	var b bytes.Buffer
	if d.To != "" {
		fmt.Fprintf(&b, "To: %s\r\n", d.To)
	}
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", d.Subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("Content-Transfer-Encoding: base64\r\n")
	b.WriteString("\r\n")

	body := base64.StdEncoding.EncodeToString([]byte(strings.ReplaceAll(d.Body, "\n", "\r\n")))
	for len(body) > 76 {
		b.WriteString(body[:76])
		b.WriteString("\r\n")
		body = body[76:]
	}
	b.WriteString(body)
	b.WriteString("\r\n")
	return b.Bytes()
}

// Drafts saves reply drafts through a Gmail service.
type Drafts struct {
	svc *gmailv1.Service
}

func NewDrafts(svc *gmailv1.Service) *Drafts {
	return &Drafts{svc: svc}
}

func (d *Drafts) SaveReplyDraft(ctx context.Context, rd ReplyDraft) (string, error) {
	return CreateReplyDraft(ctx, d.svc, rd)
}
