package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"replydraft/internal/browser"
	"replydraft/internal/bus"
	"replydraft/internal/config"
	"replydraft/internal/gmail"
	"replydraft/internal/llm"
	"replydraft/internal/orchestrator"
	"replydraft/internal/store"
)

// app holds the components shared by the browser-facing commands.
type app struct {
	store   *store.SQLiteStore
	hub     *bus.Hub
	session *browser.Session
	orch    *orchestrator.Orchestrator
}

type appOptions struct {
	gmail bool
}

// newApp opens the settings store, connects to the browser and wires the
// orchestrator. Close releases all of it.
func newApp(ctx context.Context, c *config.Config, log *zap.Logger, opts appOptions) (*app, error) {
	db, err := store.NewSQLiteStore(c.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	hub := bus.New()
	session := browser.New(browser.Config{
		DebuggerURL:   c.Browser.DebuggerURL,
		ChromeBin:     c.Browser.ChromeBin,
		Headless:      c.Browser.Headless,
		UserDataDir:   c.Browser.UserDataDir,
		WebmailURL:    c.Browser.WebmailURL,
		Debounce:      c.DebounceDelay(),
		SanitizeLimit: c.Detector.SanitizeLimit,
	}, hub, log)
	if err := session.Start(ctx); err != nil {
		db.Close()
		return nil, err
	}

	var drafts orchestrator.DraftSaver
	if opts.gmail {
		svc, err := gmail.NewService(ctx, gmail.Auth{
			CredentialsPath: c.Gmail.CredentialsPath,
			TokenPath:       c.Gmail.TokenPath,
			Log:             log,
		})
		if err != nil {
			session.Close()
			db.Close()
			return nil, fmt.Errorf("connect to gmail: %w", err)
		}
		drafts = gmail.NewDrafts(svc)
	}

	orch := orchestrator.New(session, hub, db, completerFactory(c, log), orchestrator.Options{
		Drafts:    drafts,
		Pricing:   c.CostPricing(),
		Language:  c.LLM.Language,
		EnvAPIKey: c.LLM.APIKey,
		Logger:    log,
	})

	return &app{store: db, hub: hub, session: session, orch: orch}, nil
}

func (a *app) Close() error {
	return errors.Join(a.session.Close(), a.store.Close())
}

func completerFactory(c *config.Config, log *zap.Logger) orchestrator.CompleterFactory {
	return func(apiKey string) (orchestrator.Completer, error) {
		client, err := llm.New(llm.Config{
			APIKey:          apiKey,
			BaseURL:         c.LLM.BaseURL,
			Model:           c.LLM.Model,
			ReasoningEffort: c.LLM.ReasoningEffort,
			MaxTokens:       c.LLM.MaxTokens,
			Timeout:         c.LLMTimeout(),
			MaxRetries:      c.LLM.MaxRetries,
		}, log)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}

// openStore is used by commands that only touch settings.
func openStore(c *config.Config) (*store.SQLiteStore, error) {
	db, err := store.NewSQLiteStore(c.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}
