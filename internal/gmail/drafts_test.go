package gmail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"strings"
	"testing"

	gmailv1 "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"replydraft/internal/model"
)

func TestReplySubject(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Lunch", "Re: Lunch"},
		{"Re: Lunch", "Re: Lunch"},
		{"RE: Lunch", "RE: Lunch"},
		{"", "Re:"},
		{model.NoSubject, "Re:"},
	}
	for _, tc := range tests {
		if got := replySubject(tc.in); got != tc.want {
			t.Errorf("replySubject(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNewReplyDraft(t *testing.T) {
	rc := model.NewReplyContext("Lunch", "Alice <a@b.com>", "See you")
	rc.ThreadID = "18c2f"
	d := NewReplyDraft(rc, "Thanks!")

	if d.To != "a@b.com" || d.Subject != "Re: Lunch" || d.ThreadID != "18c2f" || d.Body != "Thanks!" {
		t.Fatalf("unexpected draft: %+v", d)
	}
}

func TestBuildRawParses(t *testing.T) {
	d := ReplyDraft{To: "a@b.com", Subject: "Re: ランチ", Body: "ありがとうございます。\nまた後ほど。"}
	msg, err := mail.ReadMessage(strings.NewReader(string(buildRaw(d))))
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if got := msg.Header.Get("To"); got != "a@b.com" {
		t.Fatalf("To = %q", got)
	}
	subject, err := new(mime.WordDecoder).DecodeHeader(msg.Header.Get("Subject"))
	if err != nil {
		t.Fatalf("decode subject: %v", err)
	}
	if subject != "Re: ランチ" {
		t.Fatalf("Subject = %q", subject)
	}

	raw, err := io.ReadAll(msg.Body)
	if err != nil {
		t.Fatal(err)
	}
	body, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(string(raw), "\r\n", ""))
	if err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if string(body) != "ありがとうございます。\r\nまた後ほど。" {
		t.Fatalf("body = %q", body)
	}
}

func TestBuildRawWithoutRecipient(t *testing.T) {
	raw := string(buildRaw(ReplyDraft{Subject: "Re:", Body: "x"}))
	if strings.Contains(raw, "To:") {
		t.Fatalf("unexpected To header:\n%s", raw)
	}
}

func TestCreateReplyDraft(t *testing.T) {
	var got gmailv1.Draft
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || !strings.HasSuffix(r.URL.Path, "/users/me/drafts") {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode draft: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"r-123","message":{"id":"m1","threadId":"18c2f"}}`)
	}))
	defer srv.Close()

	svc, err := gmailv1.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	id, err := CreateReplyDraft(context.Background(), svc, ReplyDraft{
		To: "a@b.com", Subject: "Re: Lunch", Body: "Thanks!", ThreadID: "18c2f",
	})
	if err != nil {
		t.Fatalf("CreateReplyDraft: %v", err)
	}
	if id != "r-123" {
		t.Fatalf("id = %q", id)
	}
	if got.Message == nil || got.Message.ThreadId != "18c2f" {
		t.Fatalf("thread id not sent: %+v", got.Message)
	}
	raw, err := base64.URLEncoding.DecodeString(got.Message.Raw)
	if err != nil {
		t.Fatalf("raw is not base64url: %v", err)
	}
	if !strings.Contains(string(raw), "Subject: Re: Lunch\r\n") {
		t.Fatalf("raw message missing subject:\n%s", raw)
	}
}

func TestCreateReplyDraftEmpty(t *testing.T) {
	_, err := CreateReplyDraft(context.Background(), nil, ReplyDraft{Body: " \n"})
	if !errors.Is(err, ErrEmptyDraft) {
		t.Fatalf("expected ErrEmptyDraft, got %v", err)
	}
}

func TestParseAuthCode(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"4/abc", "4/abc", false},
		{"  4/abc \n", "4/abc", false},
		{"http://127.0.0.1:5555/?state=state-token&code=4/xyz&scope=x", "4/xyz", false},
		{"http://127.0.0.1:5555/?state=state-token", "", true},
		{"", "", true},
	}
	for _, tc := range tests {
		got, err := parseAuthCode(tc.in)
		if (err != nil) != tc.wantErr {
			t.Fatalf("parseAuthCode(%q) err = %v, wantErr %v", tc.in, err, tc.wantErr)
		}
		if got != tc.want {
			t.Fatalf("parseAuthCode(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
