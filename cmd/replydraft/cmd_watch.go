package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"replydraft/internal/tui"
)

const attachInterval = 2 * time.Second

var watchGmail bool

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Attach to the webmail tab and open the interactive view",
	Long: `Connects to Chrome (or launches it), keeps a reply detector attached to
the webmail tab and shows the draft view. The badge in the header turns blue
while a reply box is open.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchGmail, "gmail", false, "Allow saving drafts to Gmail (authorises on first use)")
	rootCmd.Flags().BoolVar(&watchGmail, "gmail", false, "Allow saving drafts to Gmail (authorises on first use)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger, appOptions{gmail: watchGmail})
	if err != nil {
		return err
	}
	defer a.Close()

	if cfg.Browser.DebuggerURL == "" {
		// A freshly launched browser has no webmail tab yet.
		if _, ok, err := a.session.ActiveWebmailTab(ctx); err == nil && !ok {
			if _, err := a.session.Navigate(ctx, cfg.Browser.WebmailURL); err != nil {
				logger.Warn("open webmail", zap.Error(err))
			}
		}
	}

	notifications := a.hub.Subscribe()
	defer a.hub.Unsubscribe(notifications)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		keepAttached(gctx, a)
		return nil
	})

	g.Go(func() error {
		defer cancel()
		m := tui.NewAppModel(gctx, a.orch, tui.Options{
			Notifications: notifications,
			AutoGenerate:  cfg.LLM.AutoGenerate,
		})
		p := tea.NewProgram(&m, tea.WithAltScreen(), tea.WithContext(gctx))
		final, err := p.Run()
		if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return fmt.Errorf("run interactive view: %w", err)
		}
		if fm, ok := final.(*tui.AppModel); ok && fm.Err != nil {
			return fm.Err
		}
		return nil
	})

	return g.Wait()
}

// keepAttached makes sure the webmail tab always carries a detector, so the
// badge follows the reply box even before the first explicit check.
func keepAttached(ctx context.Context, a *app) {
	ticker := time.NewTicker(attachInterval)
	defer ticker.Stop()
	for {
		tabID, ok, err := a.session.ActiveWebmailTab(ctx)
		switch {
		case err != nil:
			logger.Debug("find webmail tab", zap.Error(err))
		case ok:
			if err := a.session.Inject(ctx, tabID); err != nil {
				logger.Debug("attach detector", zap.String("tab", tabID), zap.Error(err))
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
