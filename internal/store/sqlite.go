package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"replydraft/internal/llm"
	"replydraft/internal/model"

	_ "modernc.org/sqlite"
)

// Setting keys.
const (
	KeyAPIKey     = "api_key"
	KeySenderName = "sender_name"
	KeyPrompt     = "prompt"
)

// SQLiteStore persists user settings in a local SQLite database. Nothing
// about the conversations themselves is stored.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at the given path and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

func migrate(db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS settings (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL DEFAULT ''
);
`
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// get returns the stored value for key, or "" when it was never set.
func (s *SQLiteStore) get(ctx context.Context, key string) (string, error) {
	var val string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&val)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get setting %s: %w", key, err)
	}
	return val, nil
}

func (s *SQLiteStore) set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}

// LoadSettings reads all settings. The style prompt falls back to the
// default when none was saved.
func (s *SQLiteStore) LoadSettings(ctx context.Context) (model.Settings, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key, value FROM settings WHERE key IN (?, ?, ?)",
		KeyAPIKey, KeySenderName, KeyPrompt)
	if err != nil {
		return model.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	defer rows.Close()

	var st model.Settings
	for rows.Next() {
		var key, val string
		if err := rows.Scan(&key, &val); err != nil {
			return model.Settings{}, fmt.Errorf("scan setting: %w", err)
		}
		switch key {
		case KeyAPIKey:
			st.APIKey = val
		case KeySenderName:
			st.SenderName = val
		case KeyPrompt:
			st.Prompt = val
		}
	}
	if err := rows.Err(); err != nil {
		return model.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	if strings.TrimSpace(st.Prompt) == "" {
		st.Prompt = llm.DefaultStylePrompt
	}
	return st, nil
}

// SaveSettings trims and stores all settings in one transaction. An empty
// prompt is saved as the default prompt.
func (s *SQLiteStore) SaveSettings(ctx context.Context, st model.Settings) error {
	prompt := strings.TrimSpace(st.Prompt)
	if prompt == "" {
		prompt = llm.DefaultStylePrompt
	}
	values := [][2]string{
		{KeyAPIKey, strings.TrimSpace(st.APIKey)},
		{KeySenderName, strings.TrimSpace(st.SenderName)},
		{KeyPrompt, prompt},
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, kv := range values {
		if _, err := stmt.ExecContext(ctx, kv[0], kv[1]); err != nil {
			return fmt.Errorf("save setting %s: %w", kv[0], err)
		}
	}
	return tx.Commit()
}
