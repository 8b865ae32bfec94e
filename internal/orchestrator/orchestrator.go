// Package orchestrator asks the detector of the webmail tab for the reply
// context, generates drafts from it and tracks the reply-available badge.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"replydraft/internal/bus"
	"replydraft/internal/cost"
	"replydraft/internal/gmail"
	"replydraft/internal/llm"
	"replydraft/internal/model"
)

var (
	ErrNoWebmailTab       = errors.New("no webmail tab is open")
	ErrNoResponse         = errors.New("the webmail tab did not respond")
	ErrNoContext          = errors.New("no reply is open")
	ErrSettingsIncomplete = errors.New("settings are incomplete")
	ErrBusy               = errors.New("a draft is already being generated")
	ErrGmailDisabled      = errors.New("gmail drafts are not configured")
)

// Tabs finds the webmail tab and injects a detector into it.
type Tabs interface {
	ActiveWebmailTab(ctx context.Context) (tabID string, ok bool, err error)
	Inject(ctx context.Context, tabID string) error
}

// Querier delivers queries to the detector of a tab.
type Querier interface {
	Request(ctx context.Context, tabID string, q model.Query) (model.CheckReply, error)
}

type SettingsStore interface {
	LoadSettings(ctx context.Context) (model.Settings, error)
	SaveSettings(ctx context.Context, s model.Settings) error
}

type Completer interface {
	Complete(ctx context.Context, p llm.Prompt) (model.Draft, error)
}

// CompleterFactory builds a completion client for the user's API key, which
// may change whenever settings are saved.
type CompleterFactory func(apiKey string) (Completer, error)

type DraftSaver interface {
	SaveReplyDraft(ctx context.Context, d gmail.ReplyDraft) (string, error)
}

type Options struct {
	Drafts   DraftSaver // optional
	Pricing  cost.Pricing
	Language string
	// EnvAPIKey is used when the stored settings carry no key.
	EnvAPIKey string
	Logger    *zap.Logger
}

// Check is the outcome of one CheckContext call.
type Check struct {
	TabID            string
	HasReplyOpen     bool
	Context          *model.ReplyContext
	SettingsComplete bool
}

// Generation is a generated draft with its cost.
type Generation struct {
	Context  model.ReplyContext
	Prompt   llm.Prompt
	Draft    model.Draft
	Cost     cost.Breakdown
	CostLine string
}

type Orchestrator struct {
	tabs         Tabs
	query        Querier
	store        SettingsStore
	newCompleter CompleterFactory
	drafts       DraftSaver
	pricing      cost.Pricing
	language     string
	envAPIKey    string
	log          *zap.Logger

	mu            sync.Mutex
	lastContext   *model.ReplyContext
	generating    bool
	autoTriggered bool
	badges        map[string]Badge
	current       Badge
	checkedTab    string // tab of the latest check; owns current
}

func New(tabs Tabs, query Querier, store SettingsStore, newCompleter CompleterFactory, opts Options) *Orchestrator {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Pricing == (cost.Pricing{}) {
		opts.Pricing = cost.DefaultPricing()
	}
	return &Orchestrator{
		tabs:         tabs,
		query:        query,
		store:        store,
		newCompleter: newCompleter,
		drafts:       opts.Drafts,
		pricing:      opts.Pricing,
		language:     opts.Language,
		envAPIKey:    opts.EnvAPIKey,
		log:          opts.Logger.Named("orchestrator"),
		badges:       make(map[string]Badge),
	}
}

// Settings returns the stored settings, with the environment API key filled
// in when none is stored.
func (o *Orchestrator) Settings(ctx context.Context) (model.Settings, error) {
	s, err := o.store.LoadSettings(ctx)
	if err != nil {
		return model.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	if strings.TrimSpace(s.APIKey) == "" {
		s.APIKey = o.envAPIKey
	}
	return s, nil
}

func (o *Orchestrator) SaveSettings(ctx context.Context, s model.Settings) error {
	if err := o.store.SaveSettings(ctx, s); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// CheckContext asks the active webmail tab for its reply context. A tab
// without a detector gets one injected, then the query is retried exactly
// once.
func (o *Orchestrator) CheckContext(ctx context.Context) (Check, error) {
	tabID, ok, err := o.tabs.ActiveWebmailTab(ctx)
	if err != nil {
		return Check{}, fmt.Errorf("find webmail tab: %w", err)
	}
	if !ok {
		o.setCurrentBadge(BadgeDefault)
		return Check{}, ErrNoWebmailTab
	}

	o.mu.Lock()
	o.checkedTab = tabID
	o.mu.Unlock()

	reply, err := o.query.Request(ctx, tabID, model.CheckReplyContext())
	if errors.Is(err, bus.ErrNoReceiver) {
		o.log.Debug("no detector in tab, injecting", zap.String("tab", tabID))
		if injErr := o.tabs.Inject(ctx, tabID); injErr != nil {
			o.log.Error("inject detector", zap.String("tab", tabID), zap.Error(injErr))
		} else {
			reply, err = o.query.Request(ctx, tabID, model.CheckReplyContext())
		}
	}
	if err != nil {
		o.log.Debug("check reply context", zap.String("tab", tabID), zap.Error(err))
		o.setBadge(tabID, BadgeDefault)
		return Check{TabID: tabID}, fmt.Errorf("%w: %v", ErrNoResponse, err)
	}

	settings, err := o.Settings(ctx)
	if err != nil {
		return Check{}, err
	}
	check := Check{
		TabID:            tabID,
		HasReplyOpen:     reply.HasReplyOpen,
		Context:          reply.Context,
		SettingsComplete: settings.Complete(),
	}

	o.mu.Lock()
	if reply.Context == nil {
		o.lastContext = nil
	} else {
		rc := *reply.Context
		o.lastContext = &rc
		o.autoTriggered = false
	}
	o.mu.Unlock()

	o.setBadge(tabID, BadgeFor(reply.HasReplyOpen && reply.Context != nil))
	return check, nil
}

// LastContext returns the context from the latest successful check.
func (o *Orchestrator) LastContext() *model.ReplyContext {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.lastContext == nil {
		return nil
	}
	rc := *o.lastContext
	return &rc
}

// Generating reports whether a draft is being generated.
func (o *Orchestrator) Generating() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.generating
}

// MaybeAutoGenerate generates a draft for the latest context unless one was
// already generated for it, one is in progress, settings are incomplete or
// there is no context. It returns nil when it did nothing.
func (o *Orchestrator) MaybeAutoGenerate(ctx context.Context) (*Generation, error) {
	settings, err := o.Settings(ctx)
	if err != nil {
		return nil, err
	}

	o.mu.Lock()
	if o.autoTriggered || o.generating || !settings.Complete() || o.lastContext == nil {
		o.mu.Unlock()
		return nil, nil
	}
	o.autoTriggered = true
	o.mu.Unlock()

	return o.Generate(ctx)
}

// Generate writes a draft for the latest context.
func (o *Orchestrator) Generate(ctx context.Context) (*Generation, error) {
	settings, err := o.Settings(ctx)
	if err != nil {
		return nil, err
	}

	o.mu.Lock()
	if o.lastContext == nil {
		o.mu.Unlock()
		return nil, ErrNoContext
	}
	if !settings.Complete() {
		o.mu.Unlock()
		return nil, ErrSettingsIncomplete
	}
	if o.generating {
		o.mu.Unlock()
		return nil, ErrBusy
	}
	o.generating = true
	rc := *o.lastContext
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.generating = false
		o.mu.Unlock()
	}()

	client, err := o.newCompleter(settings.APIKey)
	if err != nil {
		return nil, fmt.Errorf("create completion client: %w", err)
	}

	prompt := llm.BuildPrompt(rc, settings, o.language)
	draft, err := client.Complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	breakdown := o.pricing.FromUsage(draft.InputTokens, draft.OutputTokens)
	if draft.InputTokens == 0 && draft.OutputTokens == 0 {
		breakdown = o.pricing.Estimate(prompt.SystemText(), prompt.User, draft.Text)
	}
	o.log.Info("draft generated",
		zap.String("model", draft.Model),
		zap.Int("input_tokens", breakdown.InputTokens),
		zap.Int("output_tokens", breakdown.OutputTokens))

	return &Generation{
		Context:  rc,
		Prompt:   prompt,
		Draft:    draft,
		Cost:     breakdown,
		CostLine: o.pricing.Format(breakdown),
	}, nil
}

// SaveGmailDraft stores gen as a draft reply in the conversation's thread.
func (o *Orchestrator) SaveGmailDraft(ctx context.Context, gen *Generation) (string, error) {
	if o.drafts == nil {
		return "", ErrGmailDisabled
	}
	if gen == nil {
		return "", ErrNoContext
	}
	id, err := o.drafts.SaveReplyDraft(ctx, gmail.NewReplyDraft(gen.Context, gen.Draft.Text))
	if err != nil {
		return "", fmt.Errorf("save gmail draft: %w", err)
	}
	o.log.Info("gmail draft saved", zap.String("draft", id))
	return id, nil
}
