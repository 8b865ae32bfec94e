// Package config loads replydraft's configuration from
// ~/.config/replydraft/config.yaml, .env files and the environment, in
// increasing order of precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"replydraft/internal/cost"
	"replydraft/internal/detector"
	"replydraft/internal/llm"
	"replydraft/internal/util"
)

const appName = "replydraft"

type Config struct {
	LLM      LLMConfig      `yaml:"llm"`
	Browser  BrowserConfig  `yaml:"browser"`
	Detector DetectorConfig `yaml:"detector"`
	Pricing  PricingConfig  `yaml:"pricing"`
	Gmail    GmailConfig    `yaml:"gmail"`
	Logging  LoggingConfig  `yaml:"logging"`

	DatabasePath string `yaml:"database_path"`
}

type LLMConfig struct {
	// APIKey only comes from the environment; the settings store holds the
	// user's key otherwise.
	APIKey          string `yaml:"-"`
	Model           string `yaml:"model"`
	BaseURL         string `yaml:"base_url"`
	ReasoningEffort string `yaml:"reasoning_effort"`
	MaxTokens       int    `yaml:"max_tokens"`
	Timeout         string `yaml:"timeout"`
	MaxRetries      int    `yaml:"max_retries"`
	Language        string `yaml:"language"` // language of generated replies
	AutoGenerate    bool   `yaml:"auto_generate"`
}

type BrowserConfig struct {
	// DebuggerURL points at a running Chrome started with
	// --remote-debugging-port. Empty means launch a browser.
	DebuggerURL string `yaml:"debugger_url"`
	ChromeBin   string `yaml:"chrome_bin"`
	Headless    bool   `yaml:"headless"`
	UserDataDir string `yaml:"user_data_dir"`
	WebmailURL  string `yaml:"webmail_url"`
}

type DetectorConfig struct {
	Debounce      string `yaml:"debounce"`
	SanitizeLimit int    `yaml:"sanitize_limit"`
}

type PricingConfig struct {
	InputPerMillion  float64 `yaml:"input_per_million"`
	OutputPerMillion float64 `yaml:"output_per_million"`
	USDToJPY         float64 `yaml:"usd_to_jpy"`
}

type GmailConfig struct {
	CredentialsPath string `yaml:"credentials_path"`
	TokenPath       string `yaml:"token_path"`
}

type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	File  string `yaml:"file"`
}

// Dir returns ~/.config/replydraft.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".config", appName), nil
}

// Default returns the configuration used when no file exists. Paths live
// under dir.
func Default(dir string) *Config {
	return &Config{
		LLM: LLMConfig{
			Model:           llm.DefaultModel,
			ReasoningEffort: llm.DefaultReasoningEffort,
			MaxTokens:       llm.DefaultMaxTokens,
			Timeout:         llm.DefaultTimeout.String(),
			MaxRetries:      1,
			Language:        llm.DefaultLanguage,
			AutoGenerate:    true,
		},
		Browser: BrowserConfig{
			WebmailURL:  "https://mail.google.com",
			UserDataDir: filepath.Join(dir, "chrome"),
		},
		Detector: DetectorConfig{
			Debounce:      detector.DefaultDebounce.String(),
			SanitizeLimit: util.DefaultSanitizeLimit,
		},
		Pricing: PricingConfig{
			InputPerMillion:  cost.DefaultInputPrice,
			OutputPerMillion: cost.DefaultOutputPrice,
			USDToJPY:         cost.DefaultUSDToJPY,
		},
		Gmail: GmailConfig{
			CredentialsPath: filepath.Join(dir, "client_secret.json"),
			TokenPath:       filepath.Join(dir, "token.json"),
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  filepath.Join(dir, appName+".log"),
		},
		DatabasePath: filepath.Join(dir, appName+".db"),
	}
}

// Load reads the YAML file at path on top of Default(dir). A missing file is
// not an error. .env files in the working directory and in dir are loaded
// into the environment before overrides are applied; variables already set
// win over them.
func Load(dir, path string) (*Config, error) {
	cfg := Default(dir)

	for _, f := range []string{".env", filepath.Join(dir, ".env")} {
		if _, err := os.Stat(f); err == nil {
			if err := godotenv.Load(f); err != nil {
				return nil, fmt.Errorf("load %s: %w", f, err)
			}
		}
	}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes cfg as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	c.LLM.APIKey = getEnv("OPENAI_API_KEY", c.LLM.APIKey)
	c.LLM.BaseURL = getEnv("OPENAI_BASE_URL", c.LLM.BaseURL)
	c.LLM.Model = getEnv("REPLYDRAFT_MODEL", c.LLM.Model)
	c.Browser.DebuggerURL = getEnv("REPLYDRAFT_DEBUGGER_URL", c.Browser.DebuggerURL)
	c.Browser.ChromeBin = getEnv("REPLYDRAFT_CHROME_BIN", c.Browser.ChromeBin)
	c.Browser.Headless = getEnvBool("REPLYDRAFT_HEADLESS", c.Browser.Headless)
	c.Logging.Level = getEnv("REPLYDRAFT_LOG_LEVEL", c.Logging.Level)
}

// LLMTimeout returns the completion timeout, or the default when the
// configured value does not parse.
func (c *Config) LLMTimeout() time.Duration {
	return parseDuration(c.LLM.Timeout, llm.DefaultTimeout)
}

func (c *Config) DebounceDelay() time.Duration {
	return parseDuration(c.Detector.Debounce, detector.DefaultDebounce)
}

func (c *Config) CostPricing() cost.Pricing {
	p := cost.DefaultPricing()
	if c.Pricing.InputPerMillion > 0 {
		p.InputPerMillion = c.Pricing.InputPerMillion
	}
	if c.Pricing.OutputPerMillion > 0 {
		p.OutputPerMillion = c.Pricing.OutputPerMillion
	}
	if c.Pricing.USDToJPY > 0 {
		p.USDToJPY = c.Pricing.USDToJPY
	}
	return p
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
