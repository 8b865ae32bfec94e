package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"replydraft/internal/cost"
	"replydraft/internal/detector"
	"replydraft/internal/llm"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"OPENAI_API_KEY", "OPENAI_BASE_URL", "REPLYDRAFT_MODEL",
		"REPLYDRAFT_DEBUGGER_URL", "REPLYDRAFT_CHROME_BIN", "REPLYDRAFT_HEADLESS",
		"REPLYDRAFT_LOG_LEVEL",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	cfg, err := Load(dir, filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	require.Equal(t, llm.DefaultModel, cfg.LLM.Model)
	require.Equal(t, "https://mail.google.com", cfg.Browser.WebmailURL)
	require.Equal(t, filepath.Join(dir, "replydraft.db"), cfg.DatabasePath)
	require.Equal(t, detector.DefaultDebounce, cfg.DebounceDelay())
	require.Equal(t, llm.DefaultTimeout, cfg.LLMTimeout())
	require.Equal(t, cost.DefaultPricing(), cfg.CostPricing())
}

func TestLoadYAML(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
llm:
  model: gpt-5
  timeout: 30s
  language: English
browser:
  debugger_url: http://127.0.0.1:9222
detector:
  debounce: 350ms
pricing:
  usd_to_jpy: 155
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := Load(dir, path)
	require.NoError(t, err)
	require.Equal(t, "gpt-5", cfg.LLM.Model)
	require.Equal(t, "English", cfg.LLM.Language)
	require.Equal(t, 30*time.Second, cfg.LLMTimeout())
	require.Equal(t, 350*time.Millisecond, cfg.DebounceDelay())
	require.Equal(t, "http://127.0.0.1:9222", cfg.Browser.DebuggerURL)
	require.Equal(t, 155.0, cfg.CostPricing().USDToJPY)
	// Unset keys keep their defaults.
	require.Equal(t, llm.DefaultMaxTokens, cfg.LLM.MaxTokens)
	require.Equal(t, cost.DefaultInputPrice, cfg.CostPricing().InputPerMillion)
}

func TestLoadInvalidYAML(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm: [unclosed"), 0o600))

	_, err := Load(dir, path)
	require.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("REPLYDRAFT_MODEL", "gpt-5-nano")
	t.Setenv("REPLYDRAFT_HEADLESS", "true")
	dir := t.TempDir()

	cfg, err := Load(dir, filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	require.Equal(t, "sk-env", cfg.LLM.APIKey)
	require.Equal(t, "gpt-5-nano", cfg.LLM.Model)
	require.True(t, cfg.Browser.Headless)
}

func TestDotenvInConfigDir(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("REPLYDRAFT_CHROME_BIN=/opt/chrome\n"), 0o600))
	// godotenv does not override variables that are already set, and
	// clearEnv sets them to "", so drop this one for the test.
	require.NoError(t, os.Unsetenv("REPLYDRAFT_CHROME_BIN"))
	t.Cleanup(func() { os.Unsetenv("REPLYDRAFT_CHROME_BIN") })

	cfg, err := Load(dir, filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	require.Equal(t, "/opt/chrome", cfg.Browser.ChromeBin)
}

func TestSaveRoundTrip(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "config.yaml")

	cfg := Default(dir)
	cfg.LLM.Language = "German"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(dir, path)
	require.NoError(t, err)
	require.Equal(t, "German", loaded.LLM.Language)
}

func TestBadDurationFallsBack(t *testing.T) {
	cfg := Default(t.TempDir())
	cfg.Detector.Debounce = "soon"
	cfg.LLM.Timeout = "-5s"
	require.Equal(t, detector.DefaultDebounce, cfg.DebounceDelay())
	require.Equal(t, llm.DefaultTimeout, cfg.LLMTimeout())
}
