package store

import (
	"context"
	"path/filepath"
	"testing"

	"replydraft/internal/llm"
	"replydraft/internal/model"
)

func testStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLoadSettingsDefaults(t *testing.T) {
	s := testStore(t)

	st, err := s.LoadSettings(context.Background())
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if st.APIKey != "" || st.SenderName != "" {
		t.Fatalf("expected empty settings, got %+v", st)
	}
	if st.Prompt != llm.DefaultStylePrompt {
		t.Fatalf("expected default prompt, got %q", st.Prompt)
	}
	if st.Complete() {
		t.Fatal("fresh settings reported complete")
	}
}

func TestSaveAndLoadSettings(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	in := model.Settings{APIKey: "  sk-123 ", SenderName: "Bob\n", Prompt: " Be brief. "}
	if err := s.SaveSettings(ctx, in); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}
	got, err := s.LoadSettings(ctx)
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	want := model.Settings{APIKey: "sk-123", SenderName: "Bob", Prompt: "Be brief."}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	if !got.Complete() {
		t.Fatal("expected complete settings")
	}

	// Saving again overwrites.
	want.SenderName = "Robert"
	if err := s.SaveSettings(ctx, want); err != nil {
		t.Fatalf("SaveSettings update: %v", err)
	}
	got, _ = s.LoadSettings(ctx)
	if got.SenderName != "Robert" {
		t.Fatalf("expected Robert, got %q", got.SenderName)
	}
}

func TestSaveEmptyPromptStoresDefault(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if err := s.SaveSettings(ctx, model.Settings{APIKey: "k", SenderName: "n", Prompt: "   "}); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}
	raw, err := s.get(ctx, KeyPrompt)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if raw != llm.DefaultStylePrompt {
		t.Fatalf("stored prompt %q, want default", raw)
	}
}

func TestGetSet(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	val, err := s.get(ctx, KeySenderName)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if val != "" {
		t.Fatalf("expected empty, got %q", val)
	}

	if err := s.set(ctx, KeySenderName, "Alice"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	s.set(ctx, KeySenderName, "Carol")
	val, _ = s.get(ctx, KeySenderName)
	if val != "Carol" {
		t.Fatalf("expected Carol, got %q", val)
	}
}

func TestReopenKeepsSettings(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "settings.db")
	ctx := context.Background()

	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	if err := s.SaveSettings(ctx, model.Settings{APIKey: "k", SenderName: "n", Prompt: "p"}); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}
	s.Close()

	s, err = NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	got, _ := s.LoadSettings(ctx)
	if got.APIKey != "k" {
		t.Fatalf("expected persisted api key, got %q", got.APIKey)
	}
}
