// Package llm talks to the hosted completion endpoint that writes reply
// drafts.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"go.uber.org/zap"

	"replydraft/internal/model"
)

const (
	DefaultModel           = "gpt-5-mini"
	DefaultReasoningEffort = "low"
	DefaultMaxTokens       = 2000
	DefaultTimeout         = 15 * time.Second
)

// ErrMissingAPIKey is returned by New when no key is configured.
var ErrMissingAPIKey = errors.New("API key is required")

type Config struct {
	APIKey          string
	BaseURL         string // optional, for proxies and tests
	Model           string
	ReasoningEffort string // "", "low", "medium" or "high"
	MaxTokens       int
	Timeout         time.Duration
	MaxRetries      int
}

// Client generates reply drafts through the OpenAI chat completions API.
type Client struct {
	openai openai.Client
	cfg    Config
	log    *zap.Logger
}

func New(cfg Config, log *zap.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Client{
		openai: openai.NewClient(opts...),
		cfg:    cfg,
		log:    log,
	}, nil
}

// Complete sends p and returns the generated reply. The request is bounded
// by the configured timeout.
func (c *Client) Complete(ctx context.Context, p Prompt) (model.Draft, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(p.System)+1)
	for _, s := range p.System {
		messages = append(messages, openai.SystemMessage(s))
	}
	messages = append(messages, openai.UserMessage(p.User))

	params := openai.ChatCompletionNewParams{
		Model:               c.cfg.Model,
		Messages:            messages,
		MaxCompletionTokens: openai.Int(int64(c.cfg.MaxTokens)),
	}
	if c.cfg.ReasoningEffort != "" {
		params.ReasoningEffort = shared.ReasoningEffort(c.cfg.ReasoningEffort)
	}

	start := time.Now()
	resp, err := c.openai.Chat.Completions.New(ctx, params)
	if err != nil {
		return model.Draft{}, apiError(err)
	}

	c.log.Debug("completion finished",
		zap.String("model", c.cfg.Model),
		zap.Duration("duration", time.Since(start)),
		zap.Int64("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int64("completion_tokens", resp.Usage.CompletionTokens))

	if len(resp.Choices) == 0 {
		return model.Draft{}, errors.New("no draft returned: response had no choices")
	}
	choice := resp.Choices[0]
	text := strings.TrimSpace(choice.Message.Content)
	if text == "" {
		reason := choice.FinishReason
		if reason == "" {
			reason = "unknown"
		}
		return model.Draft{}, fmt.Errorf("no draft returned: finish reason %s", reason)
	}

	return model.Draft{
		Text:         text,
		Model:        c.cfg.Model,
		InputTokens:  int(resp.Usage.PromptTokens),
		OutputTokens: int(resp.Usage.CompletionTokens),
	}, nil
}

// apiError renders API failures as "API error: <status> <message>".
func apiError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		msg := strings.TrimSpace(apiErr.Message)
		if msg == "" {
			msg = http.StatusText(apiErr.StatusCode)
		}
		if msg == "" {
			msg = "unknown error"
		}
		return fmt.Errorf("API error: %d %s", apiErr.StatusCode, msg)
	}
	return fmt.Errorf("request completion: %w", err)
}
